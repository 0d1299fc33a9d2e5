// Package pricing рассчитывает комиссию платформы и итоговую стоимость заказа.
// Все функции чистые: результат полностью определяется входными данными,
// поэтому расчёт можно повторить при разборе спора.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// Tier - уровень продавца, от которого зависит ставка комиссии.
type Tier string

const (
	TierNew      Tier = "new"
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

var (
	defaultFeeRate = decimal.RequireFromString("0.15")

	feeRates = map[Tier]decimal.Decimal{
		TierNew:      decimal.RequireFromString("0.15"),
		TierBronze:   decimal.RequireFromString("0.14"),
		TierSilver:   decimal.RequireFromString("0.13"),
		TierGold:     decimal.RequireFromString("0.12"),
		TierPlatinum: decimal.RequireFromString("0.10"),
	}
)

// FeeRate возвращает ставку комиссии. Неизвестный уровень получает максимальную ставку.
func FeeRate(tier Tier) decimal.Decimal {
	if rate, ok := feeRates[tier]; ok {
		return rate
	}
	return defaultFeeRate
}

// PlatformFee = round(base * rate(tier), 2).
func PlatformFee(base decimal.Decimal, tier Tier) decimal.Decimal {
	return valueobject.RoundMoney(base.Mul(FeeRate(tier)))
}

// Quote - снимок расчёта стоимости, сохраняемый в заказе.
type Quote struct {
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Tier        Tier            `json:"tier"`
	FeeRate     decimal.Decimal `json:"fee_rate"`
	BaseCost    decimal.Decimal `json:"base_cost"`
	PlatformFee decimal.Decimal `json:"platform_fee"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// Calculate считает стоимость заказа по цене услуги, количеству и уровню продавца.
func Calculate(unitPrice decimal.Decimal, quantity int, tier Tier) (Quote, error) {
	if quantity < 1 {
		return Quote{}, apperror.New(apperror.ErrCodeValidation, "количество должно быть не меньше 1")
	}
	if unitPrice.IsNegative() {
		return Quote{}, apperror.New(apperror.ErrCodeValidation, "цена услуги не может быть отрицательной")
	}

	base := valueobject.RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
	fee := PlatformFee(base, tier)

	return Quote{
		UnitPrice:   unitPrice,
		Quantity:    quantity,
		Tier:        tier,
		FeeRate:     FeeRate(tier),
		BaseCost:    base,
		PlatformFee: fee,
		TotalCost:   base.Add(fee),
	}, nil
}
