package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

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
)

var errDisputeExists = apperror.New(apperror.ErrCodeInvalidState, "по заказу уже открыт спор")

// DisputeService ведёт споры по заказам и распределяет эскроу по решению медиатора.
type DisputeService struct {
	store   domainrepo.Store
	numbers *numbering.Generator
	effects effects
	now     func() time.Time
}

func NewDisputeService(store domainrepo.Store, publisher events.Publisher, m *metrics.EscrowMetrics) *DisputeService {
	return &DisputeService{
		store:   store,
		numbers: numbering.MustNew(numbering.PrefixDispute),
		effects: newEffects(publisher, m),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// OpenDisputeInput описывает заявление стороны заказа.
type OpenDisputeInput struct {
	OrderID     uuid.UUID
	ActorID     uuid.UUID
	Type        string
	Reason      string
	Description string
	Evidence    []string
}

// OpenDispute открывает спор и замораживает эскроу заказа до решения медиатора.
func (s *DisputeService) OpenDispute(ctx context.Context, in OpenDisputeInput) (*entity.Dispute, error) {
	disputeType, err := valueobject.NewDisputeType(in.Type)
	if err != nil {
		return nil, err
	}

	var (
		order   *entity.Order
		dispute *entity.Dispute
	)
	now := s.now()

	err = s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		var err error
		order, err = tx.LockOrder(ctx, in.OrderID)
		if err != nil {
			return storeErr(err, apperror.ErrOrderNotFound)
		}
		if !order.IsParty(in.ActorID) {
			return apperror.ErrNotOrderParty
		}

		if _, err := tx.GetDisputeByOrder(ctx, order.ID); err == nil {
			return errDisputeExists
		} else if !errors.Is(err, domainrepo.ErrNotFound) {
			return err
		}

		dispute, err = entity.NewDispute(order, in.ActorID, s.numbers.Next(), entity.DisputeClaim{
			Type:        disputeType,
			Reason:      strings.TrimSpace(in.Reason),
			Description: strings.TrimSpace(in.Description),
			Evidence:    in.Evidence,
		}, now)
		if err != nil {
			return err
		}
		if err := order.OpenDispute(now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		if err := tx.InsertDispute(ctx, dispute); err != nil {
			if errors.Is(err, domainrepo.ErrDuplicate) {
				return errDisputeExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, s.effects.failed("open_dispute", storeErr(err, apperror.ErrOrderNotFound))
	}

	s.effects.metrics.RecordTransition(string(valueobject.OrderEventOpenDispute), string(order.Status))
	s.effects.metrics.RecordDisputeOpened(string(dispute.DisputeType), dispute.InitiatorRole)
	s.effects.publish(ctx, events.NewDisputeEvent(events.TypeDisputeOpened, order, dispute, order.EscrowAmount, now))
	logger.WithFields(logrus.Fields{
		"dispute_id":   dispute.ID,
		"order_id":     order.ID,
		"initiator_id": dispute.InitiatorID,
		"amount":       order.EscrowAmount.String(),
	}).Info("открыт спор, эскроу заморожен")

	return dispute, nil
}

// disputeAction выполняется над заблокированным спором.
type disputeAction func(tx domainrepo.Tx, d *entity.Dispute, now time.Time) error

func (s *DisputeService) update(ctx context.Context, op string, disputeID uuid.UUID, action disputeAction) (*entity.Dispute, time.Time, error) {
	var dispute *entity.Dispute
	now := s.now()

	err := s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		var err error
		dispute, err = tx.LockDispute(ctx, disputeID)
		if err != nil {
			return storeErr(err, apperror.ErrDisputeNotFound)
		}
		if err := action(tx, dispute, now); err != nil {
			return err
		}
		return tx.UpdateDispute(ctx, dispute)
	})
	if err != nil {
		return nil, now, s.effects.failed(op, storeErr(err, apperror.ErrDisputeNotFound))
	}
	return dispute, now, nil
}

// Respond - единственный ответ ответчика. После него спор переходит к медиатору.
func (s *DisputeService) Respond(ctx context.Context, disputeID, actorID uuid.UUID, response string, evidence []string) (*entity.Dispute, error) {
	dispute, now, err := s.update(ctx, "respond_dispute", disputeID, func(_ domainrepo.Tx, d *entity.Dispute, now time.Time) error {
		return d.Respond(actorID, strings.TrimSpace(response), evidence, now)
	})
	if err != nil {
		return nil, err
	}
	s.publishDispute(ctx, events.TypeDisputeResponded, dispute, decimal.Zero, now)
	return dispute, nil
}

// Appeal фиксирует несогласие стороны с решением. Деньги повторно не распределяются.
func (s *DisputeService) Appeal(ctx context.Context, disputeID, actorID uuid.UUID, reason string, evidence []string) (*entity.Dispute, error) {
	dispute, now, err := s.update(ctx, "appeal_dispute", disputeID, func(_ domainrepo.Tx, d *entity.Dispute, now time.Time) error {
		return d.Appeal(actorID, strings.TrimSpace(reason), evidence, now)
	})
	if err != nil {
		return nil, err
	}
	s.publishDispute(ctx, events.TypeDisputeAppealed, dispute, decimal.Zero, now)
	return dispute, nil
}

// ResolveInput - решение медиатора.
type ResolveInput struct {
	DisputeID        uuid.UUID
	MediatorID       uuid.UUID
	Resolution       string
	RefundPercentage *decimal.Decimal
	Notes            string
}

// Resolve применяет решение медиатора: закрывает заказ и проводит возврат и выплату по журналу.
func (s *DisputeService) Resolve(ctx context.Context, in ResolveInput) (*entity.Dispute, error) {
	resolution, err := valueobject.NewResolutionType(in.Resolution)
	if err != nil {
		return nil, err
	}

	var (
		order      *entity.Order
		settlement entity.Settlement
		entries    []models.LedgerEntry
	)

	dispute, now, err := s.update(ctx, "resolve_dispute", in.DisputeID, func(tx domainrepo.Tx, d *entity.Dispute, now time.Time) error {
		if _, err := d.Status.Next(valueobject.DisputeEventResolve); err != nil {
			return err
		}

		var err error
		order, err = tx.LockOrder(ctx, d.OrderID)
		if err != nil {
			return storeErr(err, apperror.ErrOrderNotFound)
		}
		if order.IsParty(in.MediatorID) {
			return apperror.New(apperror.ErrCodeForbidden, "участник заказа не может разрешать спор по нему")
		}

		settlement, err = entity.ComputeSettlement(order, resolution, in.RefundPercentage)
		if err != nil {
			return err
		}
		if err := order.ApplyResolution(resolution, now); err != nil {
			return err
		}
		if err := d.Resolve(in.MediatorID, settlement, strings.TrimSpace(in.Notes), now); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}

		accounts, err := lockAccounts(ctx, tx, order.BuyerID, order.SellerID)
		if err != nil {
			return err
		}
		refunded, err := ledger.Post(ctx, tx, accounts[order.BuyerID], now, ledger.Posting{
			Field:         models.BalanceCredit,
			Type:          models.EntryTypeOrderRefund,
			Amount:        settlement.BuyerRefund,
			OrderID:       &order.ID,
			DisputeID:     &d.ID,
			RelatedUserID: &order.SellerID,
			Description:   "Возврат по спору " + d.DisputeNumber,
		})
		if err != nil {
			return err
		}
		paid, err := ledger.Post(ctx, tx, accounts[order.SellerID], now, ledger.Posting{
			Field:         models.BalanceAvailable,
			Type:          models.EntryTypeEarningsReceived,
			Amount:        settlement.SellerPayout,
			OrderID:       &order.ID,
			DisputeID:     &d.ID,
			RelatedUserID: &order.BuyerID,
			Description:   "Выплата по спору " + d.DisputeNumber,
		})
		if err != nil {
			return err
		}
		entries = append(refunded, paid...)

		return applySellerStats(ctx, tx, order.SellerID, sellerStatsDelta{
			completed: settlement.SellerPayout.IsPositive(),
			earnings:  settlement.SellerPayout,
			lost:      resolution == valueobject.ResolutionFullRefund,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	s.effects.metrics.RecordTransition(string(resolution.OrderEvent()), string(order.Status))
	s.effects.metrics.RecordSettlement(settlement.SellerPayout, settlement.BuyerRefund, settlement.PlatformRetained)
	s.effects.metrics.RecordDisputeResolved(string(resolution))
	s.effects.postings(entries...)
	s.effects.publish(ctx, events.NewDisputeEvent(events.TypeDisputeResolved, order, dispute, settlement.BuyerRefund.Add(settlement.SellerPayout), now))

	logger.WithFields(logrus.Fields{
		"dispute_id":        dispute.ID,
		"order_id":          order.ID,
		"mediator_id":       in.MediatorID,
		"resolution":        resolution,
		"buyer_refund":      settlement.BuyerRefund.String(),
		"seller_payout":     settlement.SellerPayout.String(),
		"platform_retained": settlement.PlatformRetained.String(),
	}).Info("спор закрыт, эскроу распределён")

	return dispute, nil
}

// GetDispute возвращает спор его участнику или медиатору.
func (s *DisputeService) GetDispute(ctx context.Context, disputeID, actorID uuid.UUID, role string) (*entity.Dispute, error) {
	dispute, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, storeErr(err, apperror.ErrDisputeNotFound)
	}
	if !dispute.IsParty(actorID) && !models.IsMediator(role) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "пользователь не является участником спора")
	}
	return dispute, nil
}

// ListForUser возвращает споры, где пользователь - инициатор или ответчик.
func (s *DisputeService) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error) {
	limit, offset = normalizePaging(limit, offset)
	disputes, err := s.store.ListDisputesForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return disputes, nil
}

func (s *DisputeService) publishDispute(ctx context.Context, eventType string, d *entity.Dispute, amount decimal.Decimal, now time.Time) {
	order, err := s.store.GetOrder(ctx, d.OrderID)
	if err != nil {
		logger.WithFields(logrus.Fields{"dispute_id": d.ID}).WithError(err).Warn("не удалось загрузить заказ для события спора")
		return
	}
	s.effects.publish(ctx, events.NewDisputeEvent(eventType, order, d, amount, now))
}
