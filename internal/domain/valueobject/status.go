package valueobject

import (
	"fmt"

	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

type OrderStatus string

const (
	OrderStatusPendingAcceptance OrderStatus = "pending_acceptance"
	OrderStatusAccepted          OrderStatus = "accepted"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusApproved          OrderStatus = "approved"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusDisputed          OrderStatus = "disputed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingAcceptance, OrderStatusAccepted, OrderStatusDelivered,
		OrderStatusRevisionRequested, OrderStatusApproved, OrderStatusCompleted,
		OrderStatusDisputed, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// IsTerminal сообщает, что из статуса больше нет переходов.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func NewOrderStatus(status string) (OrderStatus, error) {
	s := OrderStatus(status)
	if !s.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректный статус заказа")
	}
	return s, nil
}

type EscrowStatus string

const (
	EscrowStatusLocked      EscrowStatus = "locked"
	EscrowStatusActive      EscrowStatus = "active"
	EscrowStatusUnderReview EscrowStatus = "under_review"
	EscrowStatusReleased    EscrowStatus = "released"
	EscrowStatusRefunded    EscrowStatus = "refunded"
	EscrowStatusDisputed    EscrowStatus = "disputed"
)

// IsHeld сообщает, что средства ещё удерживаются платформой.
func (s EscrowStatus) IsHeld() bool {
	switch s {
	case EscrowStatusLocked, EscrowStatusActive, EscrowStatusUnderReview, EscrowStatusDisputed:
		return true
	}
	return false
}

// OrderEvent описывает внешний триггер перехода заказа: действие пользователя или системы.
type OrderEvent string

const (
	OrderEventAccept          OrderEvent = "accept"
	OrderEventDecline         OrderEvent = "decline"
	OrderEventDeliver         OrderEvent = "deliver"
	OrderEventRequestRevision OrderEvent = "request_revision"
	OrderEventApprove         OrderEvent = "approve"
	OrderEventOpenDispute     OrderEvent = "open_dispute"
	OrderEventResolveRefund   OrderEvent = "resolve_refund"
	OrderEventResolveRelease  OrderEvent = "resolve_release"
	OrderEventComplete        OrderEvent = "complete"
)

// OrderTransition - целевое состояние заказа и эскроу после события.
type OrderTransition struct {
	From   []OrderStatus
	To     OrderStatus
	Escrow EscrowStatus
}

var orderTransitions = map[OrderEvent]OrderTransition{
	OrderEventAccept: {
		From:   []OrderStatus{OrderStatusPendingAcceptance},
		To:     OrderStatusAccepted,
		Escrow: EscrowStatusActive,
	},
	OrderEventDecline: {
		From:   []OrderStatus{OrderStatusPendingAcceptance},
		To:     OrderStatusCancelled,
		Escrow: EscrowStatusRefunded,
	},
	OrderEventDeliver: {
		From:   []OrderStatus{OrderStatusAccepted, OrderStatusRevisionRequested},
		To:     OrderStatusDelivered,
		Escrow: EscrowStatusUnderReview,
	},
	OrderEventRequestRevision: {
		From:   []OrderStatus{OrderStatusDelivered},
		To:     OrderStatusRevisionRequested,
		Escrow: EscrowStatusActive,
	},
	OrderEventApprove: {
		From:   []OrderStatus{OrderStatusDelivered},
		To:     OrderStatusApproved,
		Escrow: EscrowStatusReleased,
	},
	OrderEventOpenDispute: {
		From:   []OrderStatus{OrderStatusAccepted, OrderStatusDelivered, OrderStatusRevisionRequested},
		To:     OrderStatusDisputed,
		Escrow: EscrowStatusDisputed,
	},
	OrderEventResolveRefund: {
		From:   []OrderStatus{OrderStatusDisputed},
		To:     OrderStatusRefunded,
		Escrow: EscrowStatusRefunded,
	},
	OrderEventResolveRelease: {
		From:   []OrderStatus{OrderStatusDisputed},
		To:     OrderStatusCompleted,
		Escrow: EscrowStatusReleased,
	},
	OrderEventComplete: {
		From:   []OrderStatus{OrderStatusApproved},
		To:     OrderStatusCompleted,
		Escrow: EscrowStatusReleased,
	},
}

// Next - единая точка проверки переходов заказа.
func (s OrderStatus) Next(event OrderEvent) (OrderStatus, EscrowStatus, error) {
	tr, ok := orderTransitions[event]
	if !ok {
		return "", "", apperror.Newf(apperror.ErrCodeValidation, "неизвестное событие заказа %q", event)
	}
	for _, from := range tr.From {
		if from == s {
			return tr.To, tr.Escrow, nil
		}
	}
	return "", "", apperror.Newf(apperror.ErrCodeInvalidState,
		"действие %q недоступно для заказа в статусе %q", event, s)
}

// Allows проверяет переход без изменения состояния.
func (s OrderStatus) Allows(event OrderEvent) bool {
	_, _, err := s.Next(event)
	return err == nil
}

type DisputeStatus string

const (
	DisputeStatusOpen             DisputeStatus = "open"
	DisputeStatusAwaitingResponse DisputeStatus = "awaiting_response"
	DisputeStatusUnderMediation   DisputeStatus = "under_mediation"
	DisputeStatusResolved         DisputeStatus = "resolved"
	DisputeStatusAppealed         DisputeStatus = "appealed"
)

type DisputeEvent string

const (
	DisputeEventRespond DisputeEvent = "respond"
	DisputeEventResolve DisputeEvent = "resolve"
	DisputeEventAppeal  DisputeEvent = "appeal"
)

var disputeTransitions = map[DisputeEvent]struct {
	from []DisputeStatus
	to   DisputeStatus
}{
	DisputeEventRespond: {
		from: []DisputeStatus{DisputeStatusOpen, DisputeStatusAwaitingResponse},
		to:   DisputeStatusUnderMediation,
	},
	DisputeEventResolve: {
		from: []DisputeStatus{DisputeStatusOpen, DisputeStatusAwaitingResponse, DisputeStatusUnderMediation},
		to:   DisputeStatusResolved,
	},
	DisputeEventAppeal: {
		from: []DisputeStatus{DisputeStatusResolved},
		to:   DisputeStatusAppealed,
	},
}

func (s DisputeStatus) Next(event DisputeEvent) (DisputeStatus, error) {
	tr, ok := disputeTransitions[event]
	if !ok {
		return "", apperror.Newf(apperror.ErrCodeValidation, "неизвестное событие спора %q", event)
	}
	for _, from := range tr.from {
		if from == s {
			return tr.to, nil
		}
	}
	return "", apperror.Newf(apperror.ErrCodeInvalidState,
		"действие %q недоступно для спора в статусе %q", event, s)
}

type DisputeType string

const (
	DisputeTypeNonDelivery            DisputeType = "non_delivery"
	DisputeTypeQualityIssues          DisputeType = "quality_issues"
	DisputeTypeRequirementMismatch    DisputeType = "requirement_mismatch"
	DisputeTypePlatformViolation      DisputeType = "platform_violation"
	DisputeTypeMissingDisclosure      DisputeType = "missing_disclosure"
	DisputeTypeFakeProof              DisputeType = "fake_proof"
	DisputeTypeUnauthorizedChanges    DisputeType = "unauthorized_changes"
	DisputeTypeCommunicationBreakdown DisputeType = "communication_breakdown"
	DisputeTypeInappropriateContent   DisputeType = "inappropriate_content"
	DisputeTypePaymentIssues          DisputeType = "payment_issues"
)

func NewDisputeType(value string) (DisputeType, error) {
	t := DisputeType(value)
	switch t {
	case DisputeTypeNonDelivery, DisputeTypeQualityIssues, DisputeTypeRequirementMismatch,
		DisputeTypePlatformViolation, DisputeTypeMissingDisclosure, DisputeTypeFakeProof,
		DisputeTypeUnauthorizedChanges, DisputeTypeCommunicationBreakdown,
		DisputeTypeInappropriateContent, DisputeTypePaymentIssues:
		return t, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректный тип спора")
}

type ResolutionType string

const (
	ResolutionFullRefund    ResolutionType = "full_refund"
	ResolutionPartialRefund ResolutionType = "partial_refund"
	ResolutionFullPayment   ResolutionType = "full_payment"
)

func NewResolutionType(value string) (ResolutionType, error) {
	r := ResolutionType(value)
	switch r {
	case ResolutionFullRefund, ResolutionPartialRefund, ResolutionFullPayment:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("неподдерживаемый тип решения %q", value))
}

// OrderEvent возвращает событие заказа, которое применяет данное решение.
func (r ResolutionType) OrderEvent() OrderEvent {
	if r == ResolutionFullRefund {
		return OrderEventResolveRefund
	}
	return OrderEventResolveRelease
}
