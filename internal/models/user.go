package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Роли пользователей. Роль both позволяет и покупать, и продавать.
const (
	RoleBuyer    = "buyer"
	RoleSeller   = "seller"
	RoleBoth     = "both"
	RoleMediator = "mediator"
	RoleAdmin    = "admin"
)

// User - данные пользователя, нужные ядру заказов. Регистрацией и профилем управляет другой сервис.
type User struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Email         string          `db:"email" json:"email"`
	Username      string          `db:"username" json:"username"`
	Role          string          `db:"role" json:"role"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	SellerTier    string          `db:"seller_tier" json:"seller_tier"`
	TotalOrders   int             `db:"total_orders" json:"total_orders"`
	TotalEarnings decimal.Decimal `db:"total_earnings" json:"total_earnings"`
	AverageRating float64         `db:"average_rating" json:"average_rating"`
	DisputesLost  int             `db:"disputes_lost" json:"disputes_lost"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// CanBuy сообщает, может ли пользователь оформлять заказы.
func (u *User) CanBuy() bool {
	return u.Role == RoleBuyer || u.Role == RoleBoth
}

// CanSell сообщает, может ли пользователь продавать услуги и выводить заработок.
func (u *User) CanSell() bool {
	return u.Role == RoleSeller || u.Role == RoleBoth
}

// IsMediator сообщает, может ли пользователь выносить решения по спорам.
func IsMediator(role string) bool {
	return role == RoleMediator || role == RoleAdmin
}

// DisputeRate - доля заказов продавца, проигранных в споре.
func (u *User) DisputeRate() float64 {
	if u.TotalOrders == 0 {
		return 0
	}
	return float64(u.DisputesLost) / float64(u.TotalOrders)
}
