package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
)

const (
	defaultInterval    = 30 * time.Second
	defaultBatchSize   = 50
	defaultMaxAttempts = 5
	defaultRetryDelay  = time.Minute
)

// Результаты обработки задачи для метрик.
const (
	resultApplied = "applied"
	resultSkipped = "skipped"
	resultRetry   = "retry"
	resultFailed  = "failed"
)

// OrderProcessor - системные действия над заказом, которые выполняет планировщик.
// Оба метода идемпотентны и возвращают true, если что-то изменили.
type OrderProcessor interface {
	MaybeAutoApprove(ctx context.Context, orderID uuid.UUID) (bool, error)
	ClearEarnings(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type handler func(ctx context.Context, orderID uuid.UUID) (bool, error)

// Scheduler периодически забирает наступившие задачи и выполняет их.
type Scheduler struct {
	jobs        domainrepo.JobRepository
	handlers    map[string]handler
	metrics     *metrics.EscrowMetrics
	interval    time.Duration
	batchSize   int
	maxAttempts int
	retryDelay  time.Duration
	stopCh      chan struct{}
	now         func() time.Time
}

// Option настраивает планировщик.
type Option func(*Scheduler)

func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRetry задаёт число попыток и шаг задержки между ними. Задержка растёт линейно.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(s *Scheduler) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(jobs domainrepo.JobRepository, orders OrderProcessor, m *metrics.EscrowMetrics, opts ...Option) *Scheduler {
	s := &Scheduler{
		jobs: jobs,
		handlers: map[string]handler{
			models.JobTypeAutoApprove:   orders.MaybeAutoApprove,
			models.JobTypeClearEarnings: orders.ClearEarnings,
		},
		metrics:     m,
		interval:    defaultInterval,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		stopCh:      make(chan struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start блокируется до отмены ctx или вызова Stop.
func (s *Scheduler) Start(ctx context.Context) {
	logger.WithFields(logrus.Fields{"interval": s.interval.String()}).Info("планировщик задач запущен")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.L().Info("планировщик задач остановлен по контексту")
			return
		case <-s.stopCh:
			logger.L().Info("планировщик задач остановлен")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// RunOnce обрабатывает одну пачку наступивших задач и возвращает число обработанных.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	due, err := s.jobs.DueJobs(ctx, s.now(), s.batchSize)
	if err != nil {
		logger.L().WithError(err).Error("не удалось получить задачи")
		return 0
	}
	for _, job := range due {
		if ctx.Err() != nil {
			return 0
		}
		s.process(ctx, job)
	}
	return len(due)
}

func (s *Scheduler) process(ctx context.Context, job models.ScheduledJob) {
	log := logger.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"order_id": job.OrderID,
		"attempt":  job.Attempts + 1,
	})

	applied, err := s.run(ctx, job)
	if err == nil {
		result := resultSkipped
		if applied {
			result = resultApplied
		}
		if err := s.jobs.MarkJobDone(ctx, job.ID, s.now()); err != nil {
			log.WithError(err).Error("не удалось закрыть задачу")
		}
		s.metrics.RecordJob(job.Type, result)
		log.WithField("result", result).Debug("задача выполнена")
		return
	}

	attempt := job.Attempts + 1
	final := attempt >= s.maxAttempts
	retryAt := s.now().Add(time.Duration(attempt) * s.retryDelay)
	if markErr := s.jobs.MarkJobFailed(ctx, job.ID, err.Error(), retryAt, final, s.now()); markErr != nil {
		log.WithError(markErr).Error("не удалось записать ошибку задачи")
	}

	if final {
		s.metrics.RecordJob(job.Type, resultFailed)
		log.WithError(err).Error("задача исчерпала попытки")
		return
	}
	s.metrics.RecordJob(job.Type, resultRetry)
	log.WithError(err).WithField("retry_at", retryAt).Warn("задача завершилась ошибкой, повторим")
}

// run вызывает обработчик, превращая panic в ошибку, чтобы задача ушла на повтор.
func (s *Scheduler) run(ctx context.Context, job models.ScheduledJob) (applied bool, err error) {
	h, ok := s.handlers[job.Type]
	if !ok {
		return false, fmt.Errorf("неизвестный тип задачи %q", job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(logrus.Fields{
				"job_type": job.Type,
				"stack":    string(debug.Stack()),
			}).Error("panic в обработчике задачи")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, job.OrderID)
}
