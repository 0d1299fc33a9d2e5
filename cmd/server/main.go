package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/warmconnects-backend/internal/config"
	"github.com/ignatzorin/warmconnects-backend/internal/db"
	"github.com/ignatzorin/warmconnects-backend/internal/events"
	"github.com/ignatzorin/warmconnects-backend/internal/goroutine"
	httpHandlers "github.com/ignatzorin/warmconnects-backend/internal/http/handlers"
	httpRouter "github.com/ignatzorin/warmconnects-backend/internal/http/router"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
	"github.com/ignatzorin/warmconnects-backend/internal/worker"
	"github.com/ignatzorin/warmconnects-backend/migrations"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.L().WithError(err).Fatal("main: ошибка подключения к базе")
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, migrations.FS); err != nil {
		logger.L().WithError(err).Fatal("main: ошибка миграций")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	escrowMetrics := metrics.NewEscrowMetrics(registry)

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		logger.WithFields(logrus.Fields{"brokers": cfg.KafkaBrokers, "topic": cfg.KafkaOrderTopic}).Info("события заказов отправляются в kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.L().WithError(err).Warn("main: ошибка закрытия publisher")
		}
	}()

	store := repository.NewStore(dbConn)
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	// Сервисы.
	orderService := service.NewOrderService(store, cfg.Escrow, publisher, escrowMetrics)
	disputeService := service.NewDisputeService(store, publisher, escrowMetrics)
	walletService := service.NewWalletService(store, cfg.Escrow, escrowMetrics)

	// Автоприёмка и разморозка заработка.
	scheduler := worker.NewScheduler(store, orderService, escrowMetrics,
		worker.WithInterval(cfg.JobPollInterval),
		worker.WithBatchSize(cfg.JobBatchSize),
	)
	var background goroutine.Group
	background.Go(ctx, "scheduler", scheduler.Start)

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(cfg, tokenManager, registry,
		httpHandlers.NewHealthHandler(dbConn),
		httpHandlers.NewPricingHandler(),
		httpHandlers.NewOrderHandler(orderService),
		httpHandlers.NewDisputeHandler(disputeService),
		httpHandlers.NewWalletHandler(walletService),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo(ctx, "http-shutdown", func(ctx context.Context) {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.L().WithError(err).Error("main: ошибка остановки http сервера")
		}
	})

	logger.WithFields(logrus.Fields{"port": cfg.HTTPPort, "env": cfg.Env}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L().WithError(err).Error("main: сервер завершился с ошибкой")
	}

	stop()
	scheduler.Stop()
	background.Wait()
	logger.L().Info("main: сервис остановлен")
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		logger.L().WithError(err).Error("main: ошибка закрытия базы")
	}
}
