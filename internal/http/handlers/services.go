package handlers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
)

// OrderUseCase - операции с заказами, которые нужны HTTP слою.
type OrderUseCase interface {
	CreateOrder(ctx context.Context, in service.CreateOrderInput) (*entity.Order, error)
	AcceptOrder(ctx context.Context, orderID, sellerID uuid.UUID) (*entity.Order, error)
	DeclineOrder(ctx context.Context, orderID, sellerID uuid.UUID, reason string) (*entity.Order, error)
	DeliverOrder(ctx context.Context, orderID, sellerID uuid.UUID, proof entity.Proof) (*entity.Order, error)
	RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID, reason, instructions string) (*entity.Order, error)
	ApproveOrder(ctx context.Context, orderID, buyerID uuid.UUID) (*entity.Order, error)
	GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*entity.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error)
	ListSellerOrders(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error)
}

// DisputeUseCase - операции со спорами.
type DisputeUseCase interface {
	OpenDispute(ctx context.Context, in service.OpenDisputeInput) (*entity.Dispute, error)
	Respond(ctx context.Context, disputeID, actorID uuid.UUID, response string, evidence []string) (*entity.Dispute, error)
	Appeal(ctx context.Context, disputeID, actorID uuid.UUID, reason string, evidence []string) (*entity.Dispute, error)
	Resolve(ctx context.Context, in service.ResolveInput) (*entity.Dispute, error)
	GetDispute(ctx context.Context, disputeID, actorID uuid.UUID, role string) (*entity.Dispute, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error)
}

// WalletUseCase - балансы, пополнения и выводы.
type WalletUseCase interface {
	Balance(ctx context.Context, userID uuid.UUID) (*models.BalanceView, error)
	TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.TopUpResult, error)
	Withdraw(ctx context.Context, in service.WithdrawInput) (*models.Withdrawal, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	Withdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
	VerifyLedger(ctx context.Context, userID uuid.UUID) (*service.LedgerReport, error)
}

var (
	_ OrderUseCase   = (*service.OrderService)(nil)
	_ DisputeUseCase = (*service.DisputeService)(nil)
	_ WalletUseCase  = (*service.WalletService)(nil)
)
