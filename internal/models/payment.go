package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceField - баланс счёта, по которому ведётся отдельная цепочка проводок.
type BalanceField string

const (
	// BalanceCredit - покупательский баланс, с которого оплачиваются заказы.
	BalanceCredit BalanceField = "credit"
	// BalancePending - заработок продавца, ещё не доступный к выводу.
	BalancePending BalanceField = "pending"
	// BalanceAvailable - заработок продавца, доступный к выводу.
	BalanceAvailable BalanceField = "available"
)

var BalanceFields = []BalanceField{BalanceCredit, BalancePending, BalanceAvailable}

// Типы проводок
const (
	EntryTypeCreditPurchase   = "credit_purchase"
	EntryTypeBonus            = "bonus"
	EntryTypeOrderPayment     = "order_payment"
	EntryTypeOrderRefund      = "order_refund"
	EntryTypeEarningsReceived = "earnings_received"
	EntryTypeEarningsCleared  = "earnings_cleared"
	EntryTypeWithdrawal       = "withdrawal"
)

// Account - балансы пользователя. Version растёт при каждом изменении.
type Account struct {
	UserID           uuid.UUID       `db:"user_id" json:"user_id"`
	CreditBalance    decimal.Decimal `db:"credit_balance" json:"credit_balance"`
	PendingBalance   decimal.Decimal `db:"pending_balance" json:"pending_balance"`
	AvailableBalance decimal.Decimal `db:"available_balance" json:"available_balance"`
	Version          int64           `db:"version" json:"-"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// NewAccount возвращает пустой счёт пользователя.
func NewAccount(userID uuid.UUID, now time.Time) *Account {
	return &Account{
		UserID:           userID,
		CreditBalance:    decimal.Zero,
		PendingBalance:   decimal.Zero,
		AvailableBalance: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Balance возвращает значение указанного баланса.
func (a *Account) Balance(field BalanceField) decimal.Decimal {
	switch field {
	case BalanceCredit:
		return a.CreditBalance
	case BalancePending:
		return a.PendingBalance
	case BalanceAvailable:
		return a.AvailableBalance
	}
	return decimal.Zero
}

// SetBalance меняет указанный баланс. Вызывается только из пакета ledger.
func (a *Account) SetBalance(field BalanceField, value decimal.Decimal) {
	switch field {
	case BalanceCredit:
		a.CreditBalance = value
	case BalancePending:
		a.PendingBalance = value
	case BalanceAvailable:
		a.AvailableBalance = value
	}
}

// LedgerEntry - неизменяемая запись об одном изменении баланса.
type LedgerEntry struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Seq           int64           `db:"seq" json:"seq"`
	UserID        uuid.UUID       `db:"user_id" json:"user_id"`
	Field         BalanceField    `db:"balance_field" json:"balance_field"`
	Type          string          `db:"type" json:"type"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	OrderID       *uuid.UUID      `db:"order_id" json:"order_id,omitempty"`
	DisputeID     *uuid.UUID      `db:"dispute_id" json:"dispute_id,omitempty"`
	RelatedUserID *uuid.UUID      `db:"related_user_id" json:"related_user_id,omitempty"`
	Reference     *string         `db:"reference" json:"reference,omitempty"`
	Description   string          `db:"description" json:"description"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// BalanceView - сводка по кошельку пользователя.
type BalanceView struct {
	UserID           uuid.UUID       `json:"user_id"`
	CreditBalance    decimal.Decimal `json:"credit_balance"`
	InEscrow         decimal.Decimal `json:"in_escrow"`
	PendingBalance   decimal.Decimal `json:"pending_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// TopUpResult - итог пополнения кошелька.
type TopUpResult struct {
	Amount           decimal.Decimal `json:"amount"`
	Bonus            decimal.Decimal `json:"bonus"`
	PaymentReference string          `json:"payment_reference"`
	Balance          decimal.Decimal `json:"credit_balance"`
}
