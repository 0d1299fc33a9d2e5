package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
)

type OrderRepository interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	// LockOrder читает заказ с блокировкой строки до конца транзакции.
	LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	InsertOrder(ctx context.Context, order *entity.Order) error
	// UpdateOrder сохраняет заказ, если его версия не изменилась, и увеличивает версию.
	UpdateOrder(ctx context.Context, order *entity.Order) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]entity.Order, error)

	InsertRevision(ctx context.Context, rev *entity.RevisionRequest) error
	ListRevisions(ctx context.Context, orderID uuid.UUID) ([]entity.RevisionRequest, error)

	// SumHeldEscrow - сумма эскроу по заказам покупателя, деньги по которым ещё удерживаются.
	SumHeldEscrow(ctx context.Context, buyerID uuid.UUID) (decimal.Decimal, error)
}

type OrderFilter struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   valueobject.OrderStatus
	Limit    int
	Offset   int
}
