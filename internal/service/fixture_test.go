package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/warmconnects-backend/internal/config"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/events"
	"github.com/ignatzorin/warmconnects-backend/internal/ledger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pricing"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evs ...events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	t         *testing.T
	ctx       context.Context
	store     *memStore
	clock     *testClock
	policy    config.EscrowPolicy
	publisher *recordingPublisher
	metrics   *metrics.EscrowMetrics

	orders   *OrderService
	disputes *DisputeService
	wallet   *WalletService

	buyer    models.User
	seller   models.User
	mediator models.User
	outsider models.User
	listing  models.ServiceListing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		store:     newMemStore(),
		clock:     &testClock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)},
		policy:    config.DefaultEscrowPolicy(),
		publisher: &recordingPublisher{},
		metrics:   metrics.NewEscrowMetrics(prometheus.NewRegistry()),
	}

	f.buyer = f.addUser(models.RoleBuyer, pricing.TierNew)
	f.seller = f.addUser(models.RoleSeller, pricing.TierBronze)
	f.mediator = f.addUser(models.RoleMediator, pricing.TierNew)
	f.outsider = f.addUser(models.RoleBoth, pricing.TierNew)
	f.listing = f.addListing(f.seller.ID, "100.00")

	f.orders = NewOrderService(f.store, f.policy, f.publisher, f.metrics)
	f.orders.now = f.clock.Now
	f.disputes = NewDisputeService(f.store, f.publisher, f.metrics)
	f.disputes.now = f.clock.Now
	f.wallet = NewWalletService(f.store, f.policy, f.metrics)
	f.wallet.now = f.clock.Now

	return f
}

func (f *fixture) addUser(role string, tier pricing.Tier) models.User {
	u := models.User{
		ID:            uuid.New(),
		Email:         uuid.NewString() + "@example.com",
		Username:      uuid.NewString()[:8],
		Role:          role,
		IsActive:      true,
		SellerTier:    string(tier),
		TotalEarnings: decimal.Zero,
		AverageRating: 4.5,
	}
	f.store.users[u.ID] = u
	return u
}

func (f *fixture) addListing(sellerID uuid.UUID, price string) models.ServiceListing {
	l := models.ServiceListing{
		ID:              uuid.New(),
		SellerID:        sellerID,
		Title:           "Instagram shoutout",
		ServiceType:     "shoutout",
		Platform:        "instagram",
		Price:           decimal.RequireFromString(price),
		TurnaroundHours: 24,
		IsActive:        true,
	}
	f.store.services[l.ID] = l
	return l
}

// fund зачисляет сумму на кредитный баланс через журнал, без бонусов.
func (f *fixture) fund(userID uuid.UUID, amount string) {
	f.t.Helper()
	err := f.store.WithinTx(f.ctx, func(tx domainrepo.Tx) error {
		acc, err := tx.LockAccount(f.ctx, userID)
		if err != nil {
			return err
		}
		_, err = ledger.Post(f.ctx, tx, acc, f.clock.Now(), ledger.Posting{
			Field:  models.BalanceCredit,
			Type:   models.EntryTypeCreditPurchase,
			Amount: decimal.RequireFromString(amount),
		})
		return err
	})
	require.NoError(f.t, err)
}

func (f *fixture) account(userID uuid.UUID) *models.Account {
	f.t.Helper()
	acc, err := f.store.GetAccount(f.ctx, userID)
	require.NoError(f.t, err)
	return acc
}

func (f *fixture) order(id uuid.UUID) *entity.Order {
	f.t.Helper()
	o, err := f.store.GetOrder(f.ctx, id)
	require.NoError(f.t, err)
	return o
}

// createOrder создаёт заказ на услугу по 100.00 у продавца уровня bronze.
func (f *fixture) createOrder() *entity.Order {
	f.t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{
		BuyerID:      f.buyer.ID,
		ServiceID:    f.listing.ID,
		Quantity:     1,
		Requirements: "Пост в сторис с отметкой",
	})
	require.NoError(f.t, err)
	return o
}

func (f *fixture) deliveredOrder() *entity.Order {
	f.t.Helper()
	o := f.createOrder()
	_, err := f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)
	require.NoError(f.t, err)
	o, err = f.orders.DeliverOrder(f.ctx, o.ID, f.seller.ID, entity.Proof{URL: "https://instagram.com/p/abc"})
	require.NoError(f.t, err)
	return o
}

func (f *fixture) orderEntries(userID, orderID uuid.UUID) []models.LedgerEntry {
	all, err := f.store.AllLedgerEntries(f.ctx, userID)
	require.NoError(f.t, err)
	out := []models.LedgerEntry{}
	for _, e := range all {
		if e.OrderID != nil && *e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// requireLedgerConsistent проверяет, что журнал каждого пользователя воспроизводит его баланс.
func (f *fixture) requireLedgerConsistent() {
	f.t.Helper()
	for _, u := range []models.User{f.buyer, f.seller, f.mediator, f.outsider} {
		report, err := f.wallet.VerifyLedger(f.ctx, u.ID)
		require.NoError(f.t, err)
		require.True(f.t, report.Consistent, report.Problem)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
