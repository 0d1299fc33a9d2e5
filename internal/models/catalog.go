package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ServiceListing - услуга продавца. Каталогом управляет другой сервис, здесь она только читается.
type ServiceListing struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	SellerID        uuid.UUID       `db:"seller_id" json:"seller_id"`
	Title           string          `db:"title" json:"title"`
	ServiceType     string          `db:"service_type" json:"service_type"`
	Platform        string          `db:"platform" json:"platform"`
	Price           decimal.Decimal `db:"price" json:"price"`
	TurnaroundHours int             `db:"turnaround_hours" json:"turnaround_hours"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}
