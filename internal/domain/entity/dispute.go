package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

const (
	PartyBuyer  = "buyer"
	PartySeller = "seller"
)

type Dispute struct {
	ID            uuid.UUID                 `db:"id" json:"id"`
	DisputeNumber string                    `db:"dispute_number" json:"dispute_number"`
	OrderID       uuid.UUID                 `db:"order_id" json:"order_id"`
	InitiatorID   uuid.UUID                 `db:"initiator_id" json:"initiator_id"`
	InitiatorRole string                    `db:"initiator_role" json:"initiator_role"`
	RespondentID  uuid.UUID                 `db:"respondent_id" json:"respondent_id"`
	DisputeType   valueobject.DisputeType   `db:"dispute_type" json:"dispute_type"`
	Status        valueobject.DisputeStatus `db:"status" json:"status"`
	Reason        string                    `db:"reason" json:"reason"`
	Description   string                    `db:"description" json:"description"`
	Evidence      pq.StringArray            `db:"evidence" json:"evidence"`

	Response         *string        `db:"response" json:"response,omitempty"`
	ResponseEvidence pq.StringArray `db:"response_evidence" json:"response_evidence,omitempty"`
	RespondedAt      *time.Time     `db:"responded_at" json:"responded_at,omitempty"`

	Resolution       *valueobject.ResolutionType `db:"resolution" json:"resolution,omitempty"`
	RefundPercentage decimal.NullDecimal         `db:"refund_percentage" json:"refund_percentage"`
	ResolutionNotes  *string                     `db:"resolution_notes" json:"resolution_notes,omitempty"`
	BuyerRefund      decimal.Decimal             `db:"buyer_refund" json:"buyer_refund"`
	SellerPayout     decimal.Decimal             `db:"seller_payout" json:"seller_payout"`
	ResolvedBy       *uuid.UUID                  `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolvedAt       *time.Time                  `db:"resolved_at" json:"resolved_at,omitempty"`

	AppealReason   *string        `db:"appeal_reason" json:"appeal_reason,omitempty"`
	AppealEvidence pq.StringArray `db:"appeal_evidence" json:"appeal_evidence,omitempty"`
	AppealedBy     *uuid.UUID     `db:"appealed_by" json:"appealed_by,omitempty"`
	AppealedAt     *time.Time     `db:"appealed_at" json:"appealed_at,omitempty"`

	Version   int64     `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DisputeClaim - заявление стороны, открывающей спор.
type DisputeClaim struct {
	Type        valueobject.DisputeType
	Reason      string
	Description string
	Evidence    []string
}

// NewDispute открывает спор по заказу. Ответчиком становится вторая сторона заказа.
func NewDispute(order *Order, initiatorID uuid.UUID, number string, claim DisputeClaim, now time.Time) (*Dispute, error) {
	if !order.IsParty(initiatorID) {
		return nil, apperror.ErrNotOrderParty
	}
	if claim.Reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора обязательна")
	}

	role := PartySeller
	if order.IsBuyer(initiatorID) {
		role = PartyBuyer
	}

	return &Dispute{
		ID:            uuid.New(),
		DisputeNumber: number,
		OrderID:       order.ID,
		InitiatorID:   initiatorID,
		InitiatorRole: role,
		RespondentID:  order.Counterparty(initiatorID),
		DisputeType:   claim.Type,
		Status:        valueobject.DisputeStatusOpen,
		Reason:        claim.Reason,
		Description:   claim.Description,
		Evidence:      pq.StringArray(claim.Evidence),
		BuyerRefund:   decimal.Zero,
		SellerPayout:  decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (d *Dispute) IsParty(userID uuid.UUID) bool {
	return d.InitiatorID == userID || d.RespondentID == userID
}

// Respond принимает единственный ответ ответчика и передаёт спор медиатору.
func (d *Dispute) Respond(actorID uuid.UUID, response string, evidence []string, now time.Time) error {
	if actorID != d.RespondentID {
		return apperror.New(apperror.ErrCodeForbidden, "ответить на спор может только ответчик")
	}
	if response == "" {
		return apperror.New(apperror.ErrCodeValidation, "текст ответа обязателен")
	}
	next, err := d.Status.Next(valueobject.DisputeEventRespond)
	if err != nil {
		return err
	}
	d.Status = next
	d.Response = &response
	d.ResponseEvidence = pq.StringArray(evidence)
	d.RespondedAt = &now
	d.UpdatedAt = now
	return nil
}

// Resolve фиксирует решение медиатора. Денежные проводки выполняет сервис.
func (d *Dispute) Resolve(mediatorID uuid.UUID, s Settlement, notes string, now time.Time) error {
	next, err := d.Status.Next(valueobject.DisputeEventResolve)
	if err != nil {
		return err
	}
	resolution := s.Resolution
	d.Status = next
	d.Resolution = &resolution
	d.RefundPercentage = s.RefundPercentage
	d.BuyerRefund = s.BuyerRefund
	d.SellerPayout = s.SellerPayout
	if notes != "" {
		d.ResolutionNotes = &notes
	}
	d.ResolvedBy = &mediatorID
	d.ResolvedAt = &now
	d.UpdatedAt = now
	return nil
}

// Appeal фиксирует апелляцию стороны. Деньги при этом не двигаются.
func (d *Dispute) Appeal(actorID uuid.UUID, reason string, evidence []string, now time.Time) error {
	if !d.IsParty(actorID) {
		return apperror.New(apperror.ErrCodeForbidden, "подать апелляцию может только участник спора")
	}
	if reason == "" {
		return apperror.New(apperror.ErrCodeValidation, "причина апелляции обязательна")
	}
	next, err := d.Status.Next(valueobject.DisputeEventAppeal)
	if err != nil {
		return err
	}
	d.Status = next
	d.AppealReason = &reason
	d.AppealEvidence = pq.StringArray(evidence)
	d.AppealedBy = &actorID
	d.AppealedAt = &now
	d.UpdatedAt = now
	return nil
}
