// Package events публикует доменные события заказов и споров во внешнюю шину.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
)

// Типы событий
const (
	TypeOrderCreated           = "order.created"
	TypeOrderAccepted          = "order.accepted"
	TypeOrderDeclined          = "order.declined"
	TypeOrderDelivered         = "order.delivered"
	TypeOrderRevisionRequested = "order.revision_requested"
	TypeOrderApproved          = "order.approved"
	TypeOrderCompleted         = "order.completed"
	TypeDisputeOpened          = "dispute.opened"
	TypeDisputeResponded       = "dispute.responded"
	TypeDisputeResolved        = "dispute.resolved"
	TypeDisputeAppealed        = "dispute.appealed"
)

// OrderEvent - снимок заказа после перехода. Для событий спора заполнен DisputeID.
type OrderEvent struct {
	EventID      string                   `json:"event_id"`
	Type         string                   `json:"type"`
	OrderID      uuid.UUID                `json:"order_id"`
	OrderNumber  string                   `json:"order_number"`
	BuyerID      uuid.UUID                `json:"buyer_id"`
	SellerID     uuid.UUID                `json:"seller_id"`
	Status       valueobject.OrderStatus  `json:"status"`
	EscrowStatus valueobject.EscrowStatus `json:"escrow_status"`
	TotalCost    decimal.Decimal          `json:"total_cost"`
	Amount       decimal.Decimal          `json:"amount"`
	AutoApproved bool                     `json:"auto_approved,omitempty"`
	DisputeID    *uuid.UUID               `json:"dispute_id,omitempty"`
	OccurredAt   time.Time                `json:"occurred_at"`
}

// NewOrderEvent собирает событие по текущему состоянию заказа.
// amount - сумма, которую переход сдвинул (возврат, выплата и т.п.).
func NewOrderEvent(eventType string, o *entity.Order, amount decimal.Decimal, now time.Time) OrderEvent {
	return OrderEvent{
		EventID:      uuid.NewString(),
		Type:         eventType,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		BuyerID:      o.BuyerID,
		SellerID:     o.SellerID,
		Status:       o.Status,
		EscrowStatus: o.EscrowStatus,
		TotalCost:    o.TotalCost,
		Amount:       amount,
		AutoApproved: o.AutoApproved,
		OccurredAt:   now,
	}
}

// NewDisputeEvent - событие спора вместе с состоянием заказа.
func NewDisputeEvent(eventType string, o *entity.Order, d *entity.Dispute, amount decimal.Decimal, now time.Time) OrderEvent {
	ev := NewOrderEvent(eventType, o, amount, now)
	id := d.ID
	ev.DisputeID = &id
	return ev
}

// Publisher отправляет события. Вызывается после фиксации транзакции.
type Publisher interface {
	Publish(ctx context.Context, events ...OrderEvent) error
	Close() error
}

// NopPublisher ничего не отправляет. Используется, когда KAFKA_BROKERS не задан.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ...OrderEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
