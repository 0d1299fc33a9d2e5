package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
)

type DisputeRepository interface {
	GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	LockDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	GetDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error)
	// InsertDispute возвращает ErrDuplicate, если по заказу уже есть спор.
	InsertDispute(ctx context.Context, dispute *entity.Dispute) error
	UpdateDispute(ctx context.Context, dispute *entity.Dispute) error
	ListDisputesForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error)
}
