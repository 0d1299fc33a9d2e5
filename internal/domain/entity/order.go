package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/pricing"
)

// Order - заказ покупателя на услугу продавца с деньгами в эскроу.
// Условия услуги копируются в заказ при создании и дальше не меняются.
type Order struct {
	ID          uuid.UUID `db:"id" json:"id"`
	OrderNumber string    `db:"order_number" json:"order_number"`
	BuyerID     uuid.UUID `db:"buyer_id" json:"buyer_id"`
	SellerID    uuid.UUID `db:"seller_id" json:"seller_id"`
	ServiceID   uuid.UUID `db:"service_id" json:"service_id"`

	ServiceTitle    string          `db:"service_title" json:"service_title"`
	ServiceType     string          `db:"service_type" json:"service_type"`
	Platform        string          `db:"platform" json:"platform"`
	UnitPrice       decimal.Decimal `db:"unit_price" json:"unit_price"`
	Quantity        int             `db:"quantity" json:"quantity"`
	TurnaroundHours int             `db:"turnaround_hours" json:"turnaround_hours"`
	SellerTier      pricing.Tier    `db:"seller_tier" json:"seller_tier"`
	Requirements    string          `db:"requirements" json:"requirements"`
	TargetURL       *string         `db:"target_url" json:"target_url,omitempty"`

	BaseCost     decimal.Decimal          `db:"base_cost" json:"base_cost"`
	PlatformFee  decimal.Decimal          `db:"platform_fee" json:"platform_fee"`
	TotalCost    decimal.Decimal          `db:"total_cost" json:"total_cost"`
	EscrowAmount decimal.Decimal          `db:"escrow_amount" json:"escrow_amount"`
	Status       valueobject.OrderStatus  `db:"status" json:"status"`
	EscrowStatus valueobject.EscrowStatus `db:"escrow_status" json:"escrow_status"`

	RevisionCount int `db:"revision_count" json:"revision_count"`

	ProofURL         *string        `db:"proof_url" json:"proof_url,omitempty"`
	ProofDescription *string        `db:"proof_description" json:"proof_description,omitempty"`
	ProofScreenshots pq.StringArray `db:"proof_screenshots" json:"proof_screenshots,omitempty"`
	ProofSubmittedAt *time.Time     `db:"proof_submitted_at" json:"proof_submitted_at,omitempty"`

	DeclineReason  *string    `db:"decline_reason" json:"decline_reason,omitempty"`
	Deadline       *time.Time `db:"deadline" json:"deadline,omitempty"`
	ReviewDeadline *time.Time `db:"review_deadline" json:"review_deadline,omitempty"`
	AutoApproved   bool       `db:"auto_approved" json:"auto_approved"`

	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	DeclinedAt  *time.Time `db:"declined_at" json:"declined_at,omitempty"`
	DeliveredAt *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	DisputedAt  *time.Time `db:"disputed_at" json:"disputed_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	RefundedAt  *time.Time `db:"refunded_at" json:"refunded_at,omitempty"`

	Version   int64     `db:"version" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Revisions []RevisionRequest `db:"-" json:"revisions,omitempty"`
}

// RevisionRequest - запрос покупателя на доработку.
type RevisionRequest struct {
	ID           uuid.UUID `db:"id" json:"id"`
	OrderID      uuid.UUID `db:"order_id" json:"order_id"`
	Reason       string    `db:"reason" json:"reason"`
	Instructions string    `db:"instructions" json:"instructions"`
	RequestedAt  time.Time `db:"requested_at" json:"requested_at"`
}

// Proof - подтверждение выполнения, которое продавец прикладывает при сдаче работы.
type Proof struct {
	URL         string
	Description string
	Screenshots []string
}

// ServiceSnapshot - условия услуги на момент оформления заказа.
type ServiceSnapshot struct {
	ServiceID       uuid.UUID
	SellerID        uuid.UUID
	Title           string
	ServiceType     string
	Platform        string
	UnitPrice       decimal.Decimal
	TurnaroundHours int
}

// NewOrder создаёт заказ в статусе pending_acceptance с деньгами в эскроу.
func NewOrder(buyerID uuid.UUID, number string, svc ServiceSnapshot, quote pricing.Quote, requirements string, targetURL *string, now time.Time) (*Order, error) {
	if buyerID == svc.SellerID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя заказать собственную услугу")
	}
	if !quote.TotalCost.IsPositive() {
		return nil, apperror.New(apperror.ErrCodeValidation, "стоимость заказа должна быть положительной")
	}

	return &Order{
		ID:              uuid.New(),
		OrderNumber:     number,
		BuyerID:         buyerID,
		SellerID:        svc.SellerID,
		ServiceID:       svc.ServiceID,
		ServiceTitle:    svc.Title,
		ServiceType:     svc.ServiceType,
		Platform:        svc.Platform,
		UnitPrice:       svc.UnitPrice,
		Quantity:        quote.Quantity,
		TurnaroundHours: svc.TurnaroundHours,
		SellerTier:      quote.Tier,
		Requirements:    requirements,
		TargetURL:       targetURL,
		BaseCost:        quote.BaseCost,
		PlatformFee:     quote.PlatformFee,
		TotalCost:       quote.TotalCost,
		EscrowAmount:    quote.TotalCost,
		Status:          valueobject.OrderStatusPendingAcceptance,
		EscrowStatus:    valueobject.EscrowStatusLocked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (o *Order) apply(event valueobject.OrderEvent, now time.Time) error {
	status, escrow, err := o.Status.Next(event)
	if err != nil {
		return err
	}
	o.Status = status
	o.EscrowStatus = escrow
	o.UpdatedAt = now
	return nil
}

// releaseEscrow обнуляет эскроу и возвращает сумму, которая в нём была.
func (o *Order) releaseEscrow() decimal.Decimal {
	held := o.EscrowAmount
	o.EscrowAmount = decimal.Zero
	return held
}

func (o *Order) IsBuyer(userID uuid.UUID) bool {
	return o.BuyerID == userID
}

func (o *Order) IsSeller(userID uuid.UUID) bool {
	return o.SellerID == userID
}

func (o *Order) IsParty(userID uuid.UUID) bool {
	return o.IsBuyer(userID) || o.IsSeller(userID)
}

// Counterparty возвращает второго участника заказа.
func (o *Order) Counterparty(userID uuid.UUID) uuid.UUID {
	if o.IsBuyer(userID) {
		return o.SellerID
	}
	return o.BuyerID
}

func (o *Order) Accept(now time.Time) error {
	if err := o.apply(valueobject.OrderEventAccept, now); err != nil {
		return err
	}
	deadline := now.Add(time.Duration(o.TurnaroundHours) * time.Hour)
	o.AcceptedAt = &now
	o.Deadline = &deadline
	return nil
}

// Decline отменяет заказ и возвращает сумму, подлежащую возврату покупателю.
func (o *Order) Decline(reason string, now time.Time) (decimal.Decimal, error) {
	if err := o.apply(valueobject.OrderEventDecline, now); err != nil {
		return decimal.Zero, err
	}
	if reason != "" {
		o.DeclineReason = &reason
	}
	o.DeclinedAt = &now
	return o.releaseEscrow(), nil
}

func (o *Order) Deliver(proof Proof, reviewWindow time.Duration, now time.Time) error {
	if proof.URL == "" {
		return apperror.New(apperror.ErrCodeValidation, "ссылка на подтверждение выполнения обязательна")
	}
	if err := o.apply(valueobject.OrderEventDeliver, now); err != nil {
		return err
	}
	reviewDeadline := now.Add(reviewWindow)
	o.ProofURL = &proof.URL
	if proof.Description != "" {
		o.ProofDescription = &proof.Description
	}
	o.ProofScreenshots = pq.StringArray(proof.Screenshots)
	o.ProofSubmittedAt = &now
	o.DeliveredAt = &now
	o.ReviewDeadline = &reviewDeadline
	return nil
}

// RequestRevision возвращает заказ продавцу на доработку, не более limit раз.
func (o *Order) RequestRevision(reason, instructions string, limit int, now time.Time) (*RevisionRequest, error) {
	if !o.Status.Allows(valueobject.OrderEventRequestRevision) {
		return nil, apperror.Newf(apperror.ErrCodeInvalidState,
			"доработку можно запросить только для сданного заказа, текущий статус %q", o.Status)
	}
	if o.RevisionCount >= limit {
		return nil, apperror.ErrRevisionLimit
	}
	if err := o.apply(valueobject.OrderEventRequestRevision, now); err != nil {
		return nil, err
	}

	rev := RevisionRequest{
		ID:           uuid.New(),
		OrderID:      o.ID,
		Reason:       reason,
		Instructions: instructions,
		RequestedAt:  now,
	}
	o.RevisionCount++
	o.ReviewDeadline = nil
	o.Revisions = append(o.Revisions, rev)
	return &rev, nil
}

// Approve выпускает эскроу и возвращает сумму для продавца: только base_cost, комиссия остаётся платформе.
func (o *Order) Approve(now time.Time) (decimal.Decimal, error) {
	if err := o.apply(valueobject.OrderEventApprove, now); err != nil {
		return decimal.Zero, err
	}
	o.releaseEscrow()
	o.ApprovedAt = &now
	return o.BaseCost, nil
}

// ReviewExpired сообщает, что срок проверки истёк и заказ можно принять автоматически.
func (o *Order) ReviewExpired(now time.Time) bool {
	return o.Status == valueobject.OrderStatusDelivered &&
		o.ReviewDeadline != nil && !now.Before(*o.ReviewDeadline)
}

// AutoApprove - то же, что Approve, но инициировано системой по истечении срока проверки.
func (o *Order) AutoApprove(now time.Time) (decimal.Decimal, error) {
	if !o.ReviewExpired(now) {
		return decimal.Zero, apperror.New(apperror.ErrCodeInvalidState, "срок проверки заказа ещё не истёк")
	}
	amount, err := o.Approve(now)
	if err != nil {
		return decimal.Zero, err
	}
	o.AutoApproved = true
	return amount, nil
}

func (o *Order) OpenDispute(now time.Time) error {
	if err := o.apply(valueobject.OrderEventOpenDispute, now); err != nil {
		return err
	}
	o.DisputedAt = &now
	return nil
}

// ApplyResolution закрывает спорный заказ согласно решению медиатора.
func (o *Order) ApplyResolution(resolution valueobject.ResolutionType, now time.Time) error {
	if err := o.apply(resolution.OrderEvent(), now); err != nil {
		return err
	}
	o.releaseEscrow()
	if o.Status == valueobject.OrderStatusRefunded {
		o.RefundedAt = &now
	} else {
		o.CompletedAt = &now
	}
	return nil
}

// Complete переводит принятый заказ в completed, когда заработок продавца стал доступен.
func (o *Order) Complete(now time.Time) error {
	if err := o.apply(valueobject.OrderEventComplete, now); err != nil {
		return err
	}
	o.CompletedAt = &now
	return nil
}
