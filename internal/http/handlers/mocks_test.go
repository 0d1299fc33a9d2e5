package handlers

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
)

type mockOrders struct{ mock.Mock }

func orderResult(args mock.Arguments) (*entity.Order, error) {
	o, _ := args.Get(0).(*entity.Order)
	return o, args.Error(1)
}

func (m *mockOrders) CreateOrder(ctx context.Context, in service.CreateOrderInput) (*entity.Order, error) {
	return orderResult(m.Called(ctx, in))
}

func (m *mockOrders) AcceptOrder(ctx context.Context, orderID, sellerID uuid.UUID) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, sellerID))
}

func (m *mockOrders) DeclineOrder(ctx context.Context, orderID, sellerID uuid.UUID, reason string) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, sellerID, reason))
}

func (m *mockOrders) DeliverOrder(ctx context.Context, orderID, sellerID uuid.UUID, proof entity.Proof) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, sellerID, proof))
}

func (m *mockOrders) RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID, reason, instructions string) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, buyerID, reason, instructions))
}

func (m *mockOrders) ApproveOrder(ctx context.Context, orderID, buyerID uuid.UUID) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, buyerID))
}

func (m *mockOrders) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*entity.Order, error) {
	return orderResult(m.Called(ctx, orderID, actorID, role))
}

func (m *mockOrders) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error) {
	args := m.Called(ctx, buyerID, status, limit, offset)
	orders, _ := args.Get(0).([]entity.Order)
	return orders, args.Error(1)
}

func (m *mockOrders) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error) {
	args := m.Called(ctx, sellerID, status, limit, offset)
	orders, _ := args.Get(0).([]entity.Order)
	return orders, args.Error(1)
}

type mockDisputes struct{ mock.Mock }

func disputeResult(args mock.Arguments) (*entity.Dispute, error) {
	d, _ := args.Get(0).(*entity.Dispute)
	return d, args.Error(1)
}

func (m *mockDisputes) OpenDispute(ctx context.Context, in service.OpenDisputeInput) (*entity.Dispute, error) {
	return disputeResult(m.Called(ctx, in))
}

func (m *mockDisputes) Respond(ctx context.Context, disputeID, actorID uuid.UUID, response string, evidence []string) (*entity.Dispute, error) {
	return disputeResult(m.Called(ctx, disputeID, actorID, response, evidence))
}

func (m *mockDisputes) Appeal(ctx context.Context, disputeID, actorID uuid.UUID, reason string, evidence []string) (*entity.Dispute, error) {
	return disputeResult(m.Called(ctx, disputeID, actorID, reason, evidence))
}

func (m *mockDisputes) Resolve(ctx context.Context, in service.ResolveInput) (*entity.Dispute, error) {
	return disputeResult(m.Called(ctx, in))
}

func (m *mockDisputes) GetDispute(ctx context.Context, disputeID, actorID uuid.UUID, role string) (*entity.Dispute, error) {
	return disputeResult(m.Called(ctx, disputeID, actorID, role))
}

func (m *mockDisputes) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error) {
	args := m.Called(ctx, userID, limit, offset)
	disputes, _ := args.Get(0).([]entity.Dispute)
	return disputes, args.Error(1)
}

type mockWallet struct{ mock.Mock }

func (m *mockWallet) Balance(ctx context.Context, userID uuid.UUID) (*models.BalanceView, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).(*models.BalanceView)
	return v, args.Error(1)
}

func (m *mockWallet) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.TopUpResult, error) {
	args := m.Called(ctx, userID, amount)
	v, _ := args.Get(0).(*models.TopUpResult)
	return v, args.Error(1)
}

func (m *mockWallet) Withdraw(ctx context.Context, in service.WithdrawInput) (*models.Withdrawal, error) {
	args := m.Called(ctx, in)
	v, _ := args.Get(0).(*models.Withdrawal)
	return v, args.Error(1)
}

func (m *mockWallet) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	v, _ := args.Get(0).([]models.LedgerEntry)
	return v, args.Error(1)
}

func (m *mockWallet) Withdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, userID, limit, offset)
	v, _ := args.Get(0).([]models.Withdrawal)
	return v, args.Error(1)
}

func (m *mockWallet) VerifyLedger(ctx context.Context, userID uuid.UUID) (*service.LedgerReport, error) {
	args := m.Called(ctx, userID)
	v, _ := args.Get(0).(*service.LedgerReport)
	return v, args.Error(1)
}

type stubDB struct {
	pingErr error
	stats   sql.DBStats
}

func (s stubDB) PingContext(context.Context) error { return s.pingErr }
func (s stubDB) Stats() sql.DBStats                { return s.stats }
