package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/events"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/pricing"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// storeErr переводит ошибки хранилища в ошибки приложения.
// Ошибки приложения, пришедшие из домена, возвращаются как есть.
func storeErr(err error, notFound *apperror.AppError) error {
	if err == nil {
		return nil
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, domainrepo.ErrNotFound):
		if notFound != nil {
			return apperror.Wrap(err, notFound.Code, notFound.Message)
		}
		return apperror.Wrap(err, apperror.ErrCodeNotFound, "запись не найдена")
	case errors.Is(err, domainrepo.ErrVersionConflict):
		return apperror.Wrap(err, apperror.ErrCodeConflict, apperror.ErrConcurrentUpdate.Message)
	case errors.Is(err, domainrepo.ErrDuplicate):
		return apperror.Wrap(err, apperror.ErrCodeConflict, "запись уже существует")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, "внутренняя ошибка сервера")
}

func normalizePaging(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// lockAccounts блокирует счета в порядке возрастания id, чтобы параллельные
// транзакции не захватывали их встречно.
func lockAccounts(ctx context.Context, tx domainrepo.Tx, ids ...uuid.UUID) (map[uuid.UUID]*models.Account, error) {
	sorted := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	accounts := make(map[uuid.UUID]*models.Account, len(sorted))
	for _, id := range sorted {
		acc, err := tx.LockAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts[id] = acc
	}
	return accounts, nil
}

// sellerStatsDelta - изменение статистики продавца после закрытия заказа.
type sellerStatsDelta struct {
	completed bool
	earnings  decimal.Decimal
	lost      bool
}

// applySellerStats обновляет счётчики продавца и пересчитывает его уровень.
// Уровень в уже созданных заказах не меняется.
func applySellerStats(ctx context.Context, tx domainrepo.Tx, sellerID uuid.UUID, delta sellerStatsDelta, now time.Time) error {
	seller, err := tx.LockUser(ctx, sellerID)
	if err != nil {
		return storeErr(err, apperror.ErrUserNotFound)
	}
	if delta.completed {
		seller.TotalOrders++
	}
	if delta.lost {
		seller.DisputesLost++
	}
	seller.TotalEarnings = seller.TotalEarnings.Add(delta.earnings)
	seller.SellerTier = string(pricing.TierFor(pricing.SellerStats{
		TotalOrders:   seller.TotalOrders,
		AverageRating: seller.AverageRating,
		DisputeRate:   seller.DisputeRate(),
	}))
	seller.UpdatedAt = now
	return tx.UpdateSellerStats(ctx, seller)
}

// effects - побочные действия после фиксации транзакции. Их ошибки не отменяют операцию.
type effects struct {
	publisher events.Publisher
	metrics   *metrics.EscrowMetrics
}

func newEffects(publisher events.Publisher, m *metrics.EscrowMetrics) effects {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return effects{publisher: publisher, metrics: m}
}

func (e effects) publish(ctx context.Context, evs ...events.OrderEvent) {
	if err := e.publisher.Publish(ctx, evs...); err != nil {
		for _, ev := range evs {
			logger.WithFields(logrus.Fields{
				"event":    ev.Type,
				"order_id": ev.OrderID,
			}).WithError(err).Warn("не удалось опубликовать событие")
		}
	}
}

func (e effects) postings(entries ...models.LedgerEntry) {
	types := make([]string, 0, len(entries))
	for _, entry := range entries {
		types = append(types, entry.Type)
	}
	e.metrics.RecordPostings(types...)
}

// failed записывает ошибку операции в метрики и возвращает её без изменений.
func (e effects) failed(operation string, err error) error {
	if err != nil {
		e.metrics.RecordError(operation, string(apperror.CodeOf(err)))
	}
	return err
}
