package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/warmconnects-backend/internal/config"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/events"
	"github.com/ignatzorin/warmconnects-backend/internal/ledger"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/numbering"
	"github.com/ignatzorin/warmconnects-backend/internal/pricing"
)

// maxNumberAttempts - сколько раз пробуем создать заказ при совпадении номера.
const maxNumberAttempts = 3

// OrderService содержит бизнес-логику жизненного цикла заказа и эскроу.
type OrderService struct {
	store   domainrepo.Store
	policy  config.EscrowPolicy
	numbers *numbering.Generator
	effects effects
	now     func() time.Time
}

// NewOrderService создаёт сервис заказов.
func NewOrderService(store domainrepo.Store, policy config.EscrowPolicy, publisher events.Publisher, m *metrics.EscrowMetrics) *OrderService {
	return &OrderService{
		store:   store,
		policy:  policy,
		numbers: numbering.MustNew(numbering.PrefixOrder),
		effects: newEffects(publisher, m),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrderInput описывает входные данные.
type CreateOrderInput struct {
	BuyerID      uuid.UUID
	ServiceID    uuid.UUID
	Quantity     int
	Requirements string
	TargetURL    *string
}

// CreateOrder оформляет заказ и переводит полную стоимость с кредитного баланса покупателя в эскроу.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	var (
		order   *entity.Order
		entries []models.LedgerEntry
		err     error
	)
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		order, entries, err = s.createOrder(ctx, in)
		if !errors.Is(err, domainrepo.ErrDuplicate) {
			break
		}
		logger.WithFields(logrus.Fields{"attempt": attempt + 1}).Warn("совпал номер заказа, повторяем")
	}
	if err != nil {
		return nil, s.effects.failed("create_order", storeErr(err, nil))
	}

	s.effects.metrics.RecordEscrowLocked(order.EscrowAmount)
	s.effects.metrics.RecordTransition("create", string(order.Status))
	s.effects.postings(entries...)
	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderCreated, order, order.TotalCost, order.CreatedAt))

	logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"buyer_id":     order.BuyerID,
		"seller_id":    order.SellerID,
		"total_cost":   order.TotalCost.String(),
	}).Info("заказ создан, средства заблокированы в эскроу")

	return order, nil
}

func (s *OrderService) createOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, []models.LedgerEntry, error) {
	var (
		order   *entity.Order
		entries []models.LedgerEntry
	)
	now := s.now()

	err := s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		buyer, err := tx.GetUser(ctx, in.BuyerID)
		if err != nil {
			return storeErr(err, apperror.ErrUserNotFound)
		}
		if !buyer.IsActive || !buyer.CanBuy() {
			return apperror.New(apperror.ErrCodeForbidden, "оформлять заказы могут только активные покупатели")
		}

		listing, err := tx.GetService(ctx, in.ServiceID)
		if err != nil {
			return storeErr(err, apperror.ErrServiceNotFound)
		}
		if !listing.IsActive {
			return apperror.ErrServiceNotFound
		}

		seller, err := tx.GetUser(ctx, listing.SellerID)
		if err != nil {
			return storeErr(err, apperror.ErrUserNotFound)
		}

		quote, err := pricing.Calculate(listing.Price, in.Quantity, pricing.Tier(seller.SellerTier))
		if err != nil {
			return err
		}

		order, err = entity.NewOrder(in.BuyerID, s.numbers.Next(), entity.ServiceSnapshot{
			ServiceID:       listing.ID,
			SellerID:        listing.SellerID,
			Title:           listing.Title,
			ServiceType:     listing.ServiceType,
			Platform:        listing.Platform,
			UnitPrice:       listing.Price,
			TurnaroundHours: listing.TurnaroundHours,
		}, quote, strings.TrimSpace(in.Requirements), in.TargetURL, now)
		if err != nil {
			return err
		}

		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		acc, err := tx.LockAccount(ctx, in.BuyerID)
		if err != nil {
			return err
		}
		entries, err = ledger.Post(ctx, tx, acc, now, ledger.Posting{
			Field:         models.BalanceCredit,
			Type:          models.EntryTypeOrderPayment,
			Amount:        order.TotalCost.Neg(),
			OrderID:       &order.ID,
			RelatedUserID: &order.SellerID,
			Description:   "Оплата заказа " + order.OrderNumber,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return order, entries, nil
}

// orderAction - изменение заказа внутри транзакции. Возвращает сумму, сдвинутую переходом.
type orderAction func(tx domainrepo.Tx, order *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error)

// transition блокирует заказ, проверяет, что действует нужная сторона, и выполняет action.
// allowed == nil означает системное действие без проверки участника.
func (s *OrderService) transition(ctx context.Context, op string, orderID uuid.UUID, allowed func(*entity.Order) bool, action orderAction) (*entity.Order, decimal.Decimal, error) {
	var (
		order   *entity.Order
		amount  decimal.Decimal
		entries []models.LedgerEntry
	)
	now := s.now()

	err := s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, orderID)
		if err != nil {
			return storeErr(err, apperror.ErrOrderNotFound)
		}
		if allowed != nil && !allowed(order) {
			return apperror.ErrNotOrderParty
		}
		amount, entries, err = action(tx, order, now)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, s.effects.failed(op, storeErr(err, apperror.ErrOrderNotFound))
	}

	if order.UpdatedAt.Equal(now) {
		s.effects.metrics.RecordTransition(op, string(order.Status))
	}
	s.effects.postings(entries...)
	return order, amount, nil
}

func sellerOnly(actorID uuid.UUID) func(*entity.Order) bool {
	return func(o *entity.Order) bool { return o.IsSeller(actorID) }
}

func buyerOnly(actorID uuid.UUID) func(*entity.Order) bool {
	return func(o *entity.Order) bool { return o.IsBuyer(actorID) }
}

// AcceptOrder - продавец берёт заказ в работу. Деньги остаются в эскроу.
func (s *OrderService) AcceptOrder(ctx context.Context, orderID, sellerID uuid.UUID) (*entity.Order, error) {
	order, _, err := s.transition(ctx, "accept", orderID, sellerOnly(sellerID),
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			if err := o.Accept(now); err != nil {
				return decimal.Zero, nil, err
			}
			return decimal.Zero, nil, tx.UpdateOrder(ctx, o)
		})
	if err != nil {
		return nil, err
	}

	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderAccepted, order, decimal.Zero, order.UpdatedAt))
	return order, nil
}

// DeclineOrder - продавец отказывается от заказа, покупателю возвращается полная стоимость.
func (s *OrderService) DeclineOrder(ctx context.Context, orderID, sellerID uuid.UUID, reason string) (*entity.Order, error) {
	reason = strings.TrimSpace(reason)
	order, refund, err := s.transition(ctx, "decline", orderID, sellerOnly(sellerID),
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			refund, err := o.Decline(reason, now)
			if err != nil {
				return decimal.Zero, nil, err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return decimal.Zero, nil, err
			}
			acc, err := tx.LockAccount(ctx, o.BuyerID)
			if err != nil {
				return decimal.Zero, nil, err
			}
			entries, err := ledger.Post(ctx, tx, acc, now, ledger.Posting{
				Field:         models.BalanceCredit,
				Type:          models.EntryTypeOrderRefund,
				Amount:        refund,
				OrderID:       &o.ID,
				RelatedUserID: &o.SellerID,
				Description:   "Возврат за отклонённый заказ " + o.OrderNumber,
			})
			return refund, entries, err
		})
	if err != nil {
		return nil, err
	}

	s.effects.metrics.RecordSettlement(decimal.Zero, refund, decimal.Zero)
	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderDeclined, order, refund, order.UpdatedAt))
	logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"buyer_id": order.BuyerID,
		"amount":   refund.String(),
	}).Info("заказ отклонён, средства возвращены покупателю")
	return order, nil
}

// DeliverOrder - продавец сдаёт работу. Начинается срок проверки, по истечении которого заказ принимается автоматически.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID, sellerID uuid.UUID, proof entity.Proof) (*entity.Order, error) {
	proof.URL = strings.TrimSpace(proof.URL)
	order, _, err := s.transition(ctx, "deliver", orderID, sellerOnly(sellerID),
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			if err := o.Deliver(proof, s.policy.ReviewWindow, now); err != nil {
				return decimal.Zero, nil, err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return decimal.Zero, nil, err
			}
			job := models.NewScheduledJob(models.JobTypeAutoApprove, o.ID, o.RevisionCount, *o.ReviewDeadline, now)
			return decimal.Zero, nil, tx.EnqueueJob(ctx, &job)
		})
	if err != nil {
		return nil, err
	}

	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderDelivered, order, decimal.Zero, order.UpdatedAt))
	return order, nil
}

// RequestRevision - покупатель возвращает сданную работу на доработку.
func (s *OrderService) RequestRevision(ctx context.Context, orderID, buyerID uuid.UUID, reason, instructions string) (*entity.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина доработки обязательна")
	}
	order, _, err := s.transition(ctx, "request_revision", orderID, buyerOnly(buyerID),
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			rev, err := o.RequestRevision(reason, strings.TrimSpace(instructions), s.policy.RevisionLimit, now)
			if err != nil {
				return decimal.Zero, nil, err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return decimal.Zero, nil, err
			}
			return decimal.Zero, nil, tx.InsertRevision(ctx, rev)
		})
	if err != nil {
		return nil, err
	}

	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderRevisionRequested, order, decimal.Zero, order.UpdatedAt))
	return order, nil
}

// ApproveOrder - покупатель принимает работу. Продавцу начисляется base_cost на отложенный баланс.
func (s *OrderService) ApproveOrder(ctx context.Context, orderID, buyerID uuid.UUID) (*entity.Order, error) {
	order, payout, err := s.transition(ctx, "approve", orderID, buyerOnly(buyerID),
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			payout, err := o.Approve(now)
			if err != nil {
				return decimal.Zero, nil, err
			}
			entries, err := s.settleApproval(ctx, tx, o, payout, now)
			return payout, entries, err
		})
	if err != nil {
		return nil, err
	}

	s.afterApproval(ctx, order, payout)
	return order, nil
}

// MaybeAutoApprove принимает заказ, если срок проверки истёк, а покупатель так и не ответил.
// Повторный вызов ничего не делает. Возвращает true, если заказ был принят этим вызовом.
func (s *OrderService) MaybeAutoApprove(ctx context.Context, orderID uuid.UUID) (bool, error) {
	applied := false
	order, payout, err := s.transition(ctx, "auto_approve", orderID, nil,
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			if !o.ReviewExpired(now) {
				return decimal.Zero, nil, nil
			}
			payout, err := o.AutoApprove(now)
			if err != nil {
				return decimal.Zero, nil, err
			}
			applied = true
			entries, err := s.settleApproval(ctx, tx, o, payout, now)
			return payout, entries, err
		})
	if err != nil {
		return false, err
	}
	if applied {
		s.afterApproval(ctx, order, payout)
	}
	return applied, nil
}

// settleApproval - общая часть ручной и автоматической приёмки.
func (s *OrderService) settleApproval(ctx context.Context, tx domainrepo.Tx, o *entity.Order, payout decimal.Decimal, now time.Time) ([]models.LedgerEntry, error) {
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return nil, err
	}

	acc, err := tx.LockAccount(ctx, o.SellerID)
	if err != nil {
		return nil, err
	}
	entries, err := ledger.Post(ctx, tx, acc, now, ledger.Posting{
		Field:         models.BalancePending,
		Type:          models.EntryTypeEarningsReceived,
		Amount:        payout,
		OrderID:       &o.ID,
		RelatedUserID: &o.BuyerID,
		Description:   "Оплата за заказ " + o.OrderNumber,
	})
	if err != nil {
		return nil, err
	}

	if err := applySellerStats(ctx, tx, o.SellerID, sellerStatsDelta{completed: true, earnings: payout}, now); err != nil {
		return nil, err
	}

	job := models.NewScheduledJob(models.JobTypeClearEarnings, o.ID, 0, now.Add(s.policy.EarningsHold), now)
	if err := tx.EnqueueJob(ctx, &job); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *OrderService) afterApproval(ctx context.Context, order *entity.Order, payout decimal.Decimal) {
	s.effects.metrics.RecordSettlement(payout, decimal.Zero, order.PlatformFee)
	s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderApproved, order, payout, order.UpdatedAt))
	logger.WithFields(logrus.Fields{
		"order_id":      order.ID,
		"seller_id":     order.SellerID,
		"amount":        payout.String(),
		"platform_fee":  order.PlatformFee.String(),
		"auto_approved": order.AutoApproved,
	}).Info("заказ принят, средства выпущены из эскроу")
}

// ClearEarnings переводит заработок по заказу с отложенного баланса на доступный
// после окончания холда и закрывает заказ. Повторный вызов ничего не делает.
func (s *OrderService) ClearEarnings(ctx context.Context, orderID uuid.UUID) (bool, error) {
	applied := false
	order, amount, err := s.transition(ctx, "complete", orderID, nil,
		func(tx domainrepo.Tx, o *entity.Order, now time.Time) (decimal.Decimal, []models.LedgerEntry, error) {
			if o.Status != valueobject.OrderStatusApproved || o.ApprovedAt == nil {
				return decimal.Zero, nil, nil
			}
			if o.ApprovedAt.Add(s.policy.EarningsHold).After(now) {
				return decimal.Zero, nil, nil
			}
			if err := o.Complete(now); err != nil {
				return decimal.Zero, nil, err
			}
			if err := tx.UpdateOrder(ctx, o); err != nil {
				return decimal.Zero, nil, err
			}

			acc, err := tx.LockAccount(ctx, o.SellerID)
			if err != nil {
				return decimal.Zero, nil, err
			}
			description := "Заработок по заказу " + o.OrderNumber + " доступен к выводу"
			entries, err := ledger.Post(ctx, tx, acc, now,
				ledger.Posting{
					Field:       models.BalancePending,
					Type:        models.EntryTypeEarningsCleared,
					Amount:      o.BaseCost.Neg(),
					OrderID:     &o.ID,
					Description: description,
				},
				ledger.Posting{
					Field:       models.BalanceAvailable,
					Type:        models.EntryTypeEarningsCleared,
					Amount:      o.BaseCost,
					OrderID:     &o.ID,
					Description: description,
				},
			)
			if err != nil {
				return decimal.Zero, nil, err
			}
			applied = true
			return o.BaseCost, entries, nil
		})
	if err != nil {
		return false, err
	}
	if applied {
		s.effects.publish(ctx, events.NewOrderEvent(events.TypeOrderCompleted, order, amount, order.UpdatedAt))
	}
	return applied, nil
}

// GetOrder возвращает заказ с историей доработок. Видеть заказ могут его участники и медиаторы.
func (s *OrderService) GetOrder(ctx context.Context, orderID, actorID uuid.UUID, role string) (*entity.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, apperror.ErrOrderNotFound)
	}
	if !order.IsParty(actorID) && !models.IsMediator(role) {
		return nil, apperror.ErrNotOrderParty
	}

	revisions, err := s.store.ListRevisions(ctx, orderID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	order.Revisions = revisions
	return order, nil
}

// ListBuyerOrders возвращает заказы покупателя, новые первыми.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error) {
	return s.listOrders(ctx, domainrepo.OrderFilter{BuyerID: &buyerID}, status, limit, offset)
}

// ListSellerOrders возвращает заказы продавца, новые первыми.
func (s *OrderService) ListSellerOrders(ctx context.Context, sellerID uuid.UUID, status string, limit, offset int) ([]entity.Order, error) {
	return s.listOrders(ctx, domainrepo.OrderFilter{SellerID: &sellerID}, status, limit, offset)
}

func (s *OrderService) listOrders(ctx context.Context, filter domainrepo.OrderFilter, status string, limit, offset int) ([]entity.Order, error) {
	if status != "" {
		st, err := valueobject.NewOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter.Status = st
	}
	filter.Limit, filter.Offset = normalizePaging(limit, offset)

	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return orders, nil
}
