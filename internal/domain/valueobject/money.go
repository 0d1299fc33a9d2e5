package valueobject

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// MoneyPlaces - количество знаков после запятой во всех денежных суммах.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney округляет сумму до двух знаков (половина - от нуля).
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// NewPositiveAmount проверяет сумму операции и приводит её к денежной точности.
func NewPositiveAmount(d decimal.Decimal) (decimal.Decimal, error) {
	if !d.IsPositive() {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма должна быть положительной")
	}
	if !d.Equal(RoundMoney(d)) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "сумма не может содержать более двух знаков после запятой")
	}
	return d, nil
}

// NewPercentage проверяет, что процент лежит в диапазоне [0, 100].
func NewPercentage(p decimal.Decimal) (decimal.Decimal, error) {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return decimal.Zero, apperror.New(apperror.ErrCodeValidation, "процент возврата должен быть в диапазоне от 0 до 100")
	}
	return p, nil
}

// PercentOf возвращает round(amount * p / 100, 2).
func PercentOf(amount, p decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(p).Div(hundred))
}
