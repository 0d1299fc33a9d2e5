package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/events"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2))
}

func TestOrderService_CreateOrder_LocksEscrow(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")

	o := f.createOrder()

	assertMoney(t, "100.00", o.BaseCost)
	assertMoney(t, "14.00", o.PlatformFee)
	assertMoney(t, "114.00", o.TotalCost)
	assertMoney(t, "114.00", o.EscrowAmount)
	assert.Equal(t, valueobject.OrderStatusPendingAcceptance, o.Status)
	assert.Equal(t, valueobject.EscrowStatusLocked, o.EscrowStatus)
	assert.Regexp(t, `^WC-\d{14}-[A-Z0-9]{6}$`, o.OrderNumber)

	assertMoney(t, "86.00", f.account(f.buyer.ID).CreditBalance)

	entries := f.orderEntries(f.buyer.ID, o.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryTypeOrderPayment, entries[0].Type)
	assertMoney(t, "-114.00", entries[0].Amount)

	balance, err := f.wallet.Balance(f.ctx, f.buyer.ID)
	require.NoError(t, err)
	assertMoney(t, "114.00", balance.InEscrow)

	assert.Equal(t, []string{events.TypeOrderCreated}, f.publisher.types())
	f.requireLedgerConsistent()
}

func TestOrderService_CreateOrder_InsufficientFunds(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "50")

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{BuyerID: f.buyer.ID, ServiceID: f.listing.ID, Quantity: 1})

	assert.True(t, apperror.IsInsufficientFunds(err))
	assert.Empty(t, f.store.orders, "заказ не должен сохраниться при откате")
	assertMoney(t, "50.00", f.account(f.buyer.ID).CreditBalance)
	f.requireLedgerConsistent()
}

func TestOrderService_CreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "500")

	inactive := f.addListing(f.seller.ID, "10")
	inactive.IsActive = false
	f.store.services[inactive.ID] = inactive

	tests := []struct {
		name  string
		input CreateOrderInput
		check func(error) bool
	}{
		{"zero quantity", CreateOrderInput{BuyerID: f.buyer.ID, ServiceID: f.listing.ID, Quantity: 0}, apperror.IsValidation},
		{"unknown service", CreateOrderInput{BuyerID: f.buyer.ID, ServiceID: uuid.New(), Quantity: 1}, apperror.IsNotFound},
		{"inactive service", CreateOrderInput{BuyerID: f.buyer.ID, ServiceID: inactive.ID, Quantity: 1}, apperror.IsNotFound},
		{"seller cannot buy", CreateOrderInput{BuyerID: f.seller.ID, ServiceID: f.listing.ID, Quantity: 1}, apperror.IsForbidden},
		{"unknown buyer", CreateOrderInput{BuyerID: uuid.New(), ServiceID: f.listing.ID, Quantity: 1}, apperror.IsNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.CreateOrder(f.ctx, tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), err.Error())
		})
	}
}

func TestOrderService_CreateOrder_OwnService(t *testing.T) {
	f := newFixture(t)
	own := f.addListing(f.outsider.ID, "20")
	f.fund(f.outsider.ID, "100")

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{BuyerID: f.outsider.ID, ServiceID: own.ID, Quantity: 1})

	assert.True(t, apperror.IsValidation(err))
}

func TestOrderService_CreateOrder_RetriesNumberCollision(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")

	f.store.failOn("InsertOrder", domainrepo.ErrDuplicate)

	_, err := f.orders.CreateOrder(f.ctx, CreateOrderInput{BuyerID: f.buyer.ID, ServiceID: f.listing.ID, Quantity: 1})

	assert.True(t, apperror.IsConflict(err), "после исчерпания попыток возвращается конфликт")
	assert.Empty(t, f.store.orders)
	assertMoney(t, "200.00", f.account(f.buyer.ID).CreditBalance)

	f.store.failOn("InsertOrder", nil)
	o := f.createOrder()
	assert.NotEmpty(t, o.OrderNumber)
	f.requireLedgerConsistent()
}

func TestOrderService_Accept(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()

	_, err := f.orders.AcceptOrder(f.ctx, o.ID, f.buyer.ID)
	assert.True(t, apperror.IsForbidden(err), "покупатель не может принять заказ")

	accepted, err := f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusAccepted, accepted.Status)
	assert.Equal(t, valueobject.EscrowStatusActive, accepted.EscrowStatus)
	require.NotNil(t, accepted.Deadline)
	assert.Equal(t, f.clock.Now().Add(24*time.Hour), *accepted.Deadline)

	_, err = f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)
	assert.True(t, apperror.IsInvalidState(err))

	_, err = f.orders.AcceptOrder(f.ctx, uuid.New(), f.seller.ID)
	assert.True(t, errors.Is(err, apperror.ErrOrderNotFound))
}

func TestOrderService_DeclineTwice(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()

	declined, err := f.orders.DeclineOrder(f.ctx, o.ID, f.seller.ID, "нет свободных слотов")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCancelled, declined.Status)
	assert.Equal(t, valueobject.EscrowStatusRefunded, declined.EscrowStatus)
	assert.True(t, declined.EscrowAmount.IsZero())
	assertMoney(t, "200.00", f.account(f.buyer.ID).CreditBalance)

	_, err = f.orders.DeclineOrder(f.ctx, o.ID, f.seller.ID, "повтор")
	assert.True(t, apperror.IsInvalidState(err))
	assertMoney(t, "200.00", f.account(f.buyer.ID).CreditBalance)
	assert.Len(t, f.orderEntries(f.buyer.ID, o.ID), 2)
	f.requireLedgerConsistent()
}

func TestOrderService_DeclineAfterAccept(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()
	_, err := f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)
	require.NoError(t, err)

	_, err = f.orders.DeclineOrder(f.ctx, o.ID, f.seller.ID, "")
	assert.True(t, apperror.IsInvalidState(err))
	assertMoney(t, "86.00", f.account(f.buyer.ID).CreditBalance)
}

func TestOrderService_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()

	assert.Equal(t, valueobject.OrderStatusDelivered, o.Status)
	assert.Equal(t, valueobject.EscrowStatusUnderReview, o.EscrowStatus)
	require.NotNil(t, o.ReviewDeadline)
	assert.Equal(t, f.clock.Now().Add(f.policy.ReviewWindow), *o.ReviewDeadline)
	assert.Len(t, f.store.jobsFor(o.ID, models.JobTypeAutoApprove), 1)

	_, err := f.orders.ApproveOrder(f.ctx, o.ID, f.seller.ID)
	assert.True(t, apperror.IsForbidden(err), "продавец не может принять свою работу")

	approved, err := f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusApproved, approved.Status)
	assert.Equal(t, valueobject.EscrowStatusReleased, approved.EscrowStatus)
	assert.True(t, approved.EscrowAmount.IsZero())

	seller := f.account(f.seller.ID)
	assertMoney(t, "100.00", seller.PendingBalance)
	assertMoney(t, "0.00", seller.AvailableBalance)

	buyerEntries := f.orderEntries(f.buyer.ID, o.ID)
	sellerEntries := f.orderEntries(f.seller.ID, o.ID)
	require.Len(t, buyerEntries, 1)
	require.Len(t, sellerEntries, 1)
	assertMoney(t, "-114.00", buyerEntries[0].Amount)
	assertMoney(t, "100.00", sellerEntries[0].Amount)
	assert.Equal(t, models.BalancePending, sellerEntries[0].Field)

	// деньги сохраняются: списание у покупателя = выплата продавцу + комиссия
	assert.True(t, buyerEntries[0].Amount.Neg().Equal(sellerEntries[0].Amount.Add(approved.PlatformFee)))

	stats := f.store.users[f.seller.ID]
	assert.Equal(t, 1, stats.TotalOrders)
	assertMoney(t, "100.00", stats.TotalEarnings)
	assert.Len(t, f.store.jobsFor(o.ID, models.JobTypeClearEarnings), 1)

	_, err = f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID)
	assert.True(t, apperror.IsInvalidState(err))
	assertMoney(t, "100.00", f.account(f.seller.ID).PendingBalance)

	f.requireLedgerConsistent()
}

func TestOrderService_RevisionLimit(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()

	_, err := f.orders.RequestRevision(f.ctx, o.ID, f.buyer.ID, "", "")
	assert.True(t, apperror.IsValidation(err))

	revised, err := f.orders.RequestRevision(f.ctx, o.ID, f.buyer.ID, "Нет отметки", "Добавьте отметку аккаунта")
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusRevisionRequested, revised.Status)
	assert.Equal(t, valueobject.EscrowStatusActive, revised.EscrowStatus)
	assert.Equal(t, 1, revised.RevisionCount)
	assert.Nil(t, revised.ReviewDeadline)

	_, err = f.orders.DeliverOrder(f.ctx, o.ID, f.seller.ID, entity.Proof{URL: "https://instagram.com/p/fixed"})
	require.NoError(t, err)
	assert.Len(t, f.store.jobsFor(o.ID, models.JobTypeAutoApprove), 2, "после доработки ставится новая автоприёмка")

	_, err = f.orders.RequestRevision(f.ctx, o.ID, f.buyer.ID, "Ещё раз", "")
	assert.True(t, apperror.IsPolicyViolation(err))

	got, err := f.orders.GetOrder(f.ctx, o.ID, f.buyer.ID, models.RoleBuyer)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusDelivered, got.Status)
	require.Len(t, got.Revisions, 1)
	assert.Equal(t, "Нет отметки", got.Revisions[0].Reason)
}

func TestOrderService_RevisionOnWrongStatus(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()

	_, err := f.orders.RequestRevision(f.ctx, o.ID, f.buyer.ID, "рано", "")
	assert.True(t, apperror.IsInvalidState(err))
}

func TestOrderService_DeliverRequiresProof(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()
	_, err := f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)
	require.NoError(t, err)

	_, err = f.orders.DeliverOrder(f.ctx, o.ID, f.seller.ID, entity.Proof{URL: "  "})
	assert.True(t, apperror.IsValidation(err))
	assert.Equal(t, valueobject.OrderStatusAccepted, f.order(o.ID).Status)
}

func TestOrderService_MaybeAutoApprove(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()

	applied, err := f.orders.MaybeAutoApprove(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, applied, "срок проверки ещё не истёк")
	assert.Equal(t, valueobject.OrderStatusDelivered, f.order(o.ID).Status)

	f.clock.Advance(f.policy.ReviewWindow)

	applied, err = f.orders.MaybeAutoApprove(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, applied)

	got := f.order(o.ID)
	assert.Equal(t, valueobject.OrderStatusApproved, got.Status)
	assert.True(t, got.AutoApproved)
	assertMoney(t, "100.00", f.account(f.seller.ID).PendingBalance)

	applied, err = f.orders.MaybeAutoApprove(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, applied, "повторный вызов ничего не делает")
	assertMoney(t, "100.00", f.account(f.seller.ID).PendingBalance)
	f.requireLedgerConsistent()
}

func TestOrderService_MaybeAutoApprove_AfterManualApproval(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()
	_, err := f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID)
	require.NoError(t, err)

	f.clock.Advance(f.policy.ReviewWindow + time.Hour)
	applied, err := f.orders.MaybeAutoApprove(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, applied)
	assertMoney(t, "100.00", f.account(f.seller.ID).PendingBalance)
}

func TestOrderService_ClearEarnings(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()
	_, err := f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID)
	require.NoError(t, err)

	applied, err := f.orders.ClearEarnings(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, applied, "холд ещё не прошёл")

	f.clock.Advance(f.policy.EarningsHold)

	applied, err = f.orders.ClearEarnings(f.ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, applied)

	acc := f.account(f.seller.ID)
	assertMoney(t, "0.00", acc.PendingBalance)
	assertMoney(t, "100.00", acc.AvailableBalance)
	assert.Equal(t, valueobject.OrderStatusCompleted, f.order(o.ID).Status)

	applied, err = f.orders.ClearEarnings(f.ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, applied)
	assertMoney(t, "100.00", f.account(f.seller.ID).AvailableBalance)
	f.requireLedgerConsistent()
}

func TestOrderService_ConcurrentApprove(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assertMoney(t, "100.00", f.account(f.seller.ID).PendingBalance)
	f.requireLedgerConsistent()
}

func TestOrderService_RollbackOnStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.deliveredOrder()
	f.store.failOn("AppendLedgerEntry", errors.New("disk full"))

	_, err := f.orders.ApproveOrder(f.ctx, o.ID, f.buyer.ID)

	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))
	assert.Equal(t, valueobject.OrderStatusDelivered, f.order(o.ID).Status)
	assert.True(t, f.account(f.seller.ID).PendingBalance.IsZero())
}

func TestOrderService_VersionConflictMapsToConflict(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()
	f.store.failOn("UpdateOrder", domainrepo.ErrVersionConflict)

	_, err := f.orders.AcceptOrder(f.ctx, o.ID, f.seller.ID)

	assert.True(t, apperror.IsConflict(err))
}

func TestOrderService_GetOrder_Access(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "200")
	o := f.createOrder()

	_, err := f.orders.GetOrder(f.ctx, o.ID, f.outsider.ID, models.RoleBoth)
	assert.True(t, errors.Is(err, apperror.ErrNotOrderParty))

	got, err := f.orders.GetOrder(f.ctx, o.ID, f.mediator.ID, models.RoleMediator)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newFixture(t)
	f.fund(f.buyer.ID, "500")
	first := f.createOrder()
	f.clock.Advance(time.Minute)
	second := f.createOrder()
	_, err := f.orders.AcceptOrder(f.ctx, second.ID, f.seller.ID)
	require.NoError(t, err)

	bought, err := f.orders.ListBuyerOrders(f.ctx, f.buyer.ID, "", 0, 0)
	require.NoError(t, err)
	require.Len(t, bought, 2)
	assert.Equal(t, second.ID, bought[0].ID)
	assert.Equal(t, first.ID, bought[1].ID)

	accepted, err := f.orders.ListSellerOrders(f.ctx, f.seller.ID, "accepted", 10, 0)
	require.NoError(t, err)
	require.Len(t, accepted, 1)
	assert.Equal(t, second.ID, accepted[0].ID)

	_, err = f.orders.ListSellerOrders(f.ctx, f.seller.ID, "shipped", 10, 0)
	assert.True(t, apperror.IsValidation(err))
}
