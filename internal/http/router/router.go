package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignatzorin/warmconnects-backend/internal/config"
	"github.com/ignatzorin/warmconnects-backend/internal/http/handlers"
	"github.com/ignatzorin/warmconnects-backend/internal/http/middleware"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	tokenManager *service.TokenManager,
	registry *prometheus.Registry,
	healthHandler *handlers.HealthHandler,
	pricingHandler *handlers.PricingHandler,
	orderHandler *handlers.OrderHandler,
	disputeHandler *handlers.DisputeHandler,
	walletHandler *handlers.WalletHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	if cfg.MetricsEnabled && registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	api := r.Group("/api")
	api.GET("/pricing/quote", pricingHandler.Quote)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))

	// Лимит на операции, которые двигают деньги.
	moneyLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)

	orders := protected.Group("/orders")
	{
		orders.POST("", moneyLimit, orderHandler.CreateOrder)
		orders.GET("/buyer", orderHandler.ListBuyerOrders)
		orders.GET("/seller", orderHandler.ListSellerOrders)
		orders.GET("/:id", middleware.UUIDValidator("id"), orderHandler.GetOrder)
		orders.POST("/:id/accept", middleware.UUIDValidator("id"), orderHandler.AcceptOrder)
		orders.POST("/:id/decline", middleware.UUIDValidator("id"), orderHandler.DeclineOrder)
		orders.POST("/:id/deliver", middleware.UUIDValidator("id"), orderHandler.DeliverOrder)
		orders.POST("/:id/request-revision", middleware.UUIDValidator("id"), orderHandler.RequestRevision)
		orders.POST("/:id/approve", middleware.UUIDValidator("id"), moneyLimit, orderHandler.ApproveOrder)
	}

	disputes := protected.Group("/disputes")
	{
		disputes.POST("", disputeHandler.OpenDispute)
		disputes.GET("", disputeHandler.ListMyDisputes)
		disputes.GET("/:id", middleware.UUIDValidator("id"), disputeHandler.GetDispute)
		disputes.POST("/:id/respond", middleware.UUIDValidator("id"), disputeHandler.Respond)
		disputes.POST("/:id/appeal", middleware.UUIDValidator("id"), disputeHandler.Appeal)
		disputes.POST("/:id/mediate", middleware.UUIDValidator("id"), middleware.RequireMediator(), disputeHandler.Mediate)
	}

	wallet := protected.Group("/wallet")
	{
		wallet.GET("/balance", walletHandler.GetBalance)
		wallet.POST("/top-up", moneyLimit, walletHandler.TopUp)
		wallet.POST("/withdraw", moneyLimit, walletHandler.Withdraw)
		wallet.GET("/transactions", walletHandler.ListTransactions)
		wallet.GET("/withdrawals", walletHandler.ListWithdrawals)
		wallet.GET("/ledger/verify", walletHandler.VerifyLedger)
	}

	return r
}
