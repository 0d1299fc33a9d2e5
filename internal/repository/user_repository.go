package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

// GetUser возвращает пользователя по идентификатору.
func (q *queries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := common.GetByID[models.User](ctx, q.db, "users", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("user repository: get by id: %w", err)
	}
	return user, nil
}

// LockUser блокирует строку продавца на время обновления статистики.
func (q *queries) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := common.LockByID[models.User](ctx, q.db, "users", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("user repository: lock: %w", err)
	}
	return user, nil
}

// UpdateSellerStats сохраняет счётчики продавца и его уровень.
func (q *queries) UpdateSellerStats(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users SET
			seller_tier = :seller_tier,
			total_orders = :total_orders,
			total_earnings = :total_earnings,
			disputes_lost = :disputes_lost,
			updated_at = :updated_at
		WHERE id = :id
	`
	res, err := sqlx.NamedExecContext(ctx, q.db, query, user)
	if err != nil {
		return fmt.Errorf("user repository: update seller stats: %w", err)
	}
	return common.ExpectOneRow(res, domainrepo.ErrNotFound)
}

// GetService возвращает услугу каталога.
func (q *queries) GetService(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	svc, err := common.GetByID[models.ServiceListing](ctx, q.db, "services", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("service repository: get by id: %w", err)
	}
	return svc, nil
}
