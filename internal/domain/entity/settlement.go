package entity

import (
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// Settlement - распределение эскроу по решению спора.
// BuyerRefund + SellerPayout + PlatformRetained == TotalCost.
type Settlement struct {
	Resolution       valueobject.ResolutionType
	RefundPercentage decimal.NullDecimal
	BuyerRefund      decimal.Decimal
	SellerPayout     decimal.Decimal
	PlatformRetained decimal.Decimal
}

// ComputeSettlement считает денежный итог спора.
// При частичном возврате сумма возврата считается от total_cost, а выплата продавцу - от base_cost:
// base_cost - total_cost*p/100. Часть комиссии в возврате ложится на продавца.
func ComputeSettlement(o *Order, resolution valueobject.ResolutionType, percentage *decimal.Decimal) (Settlement, error) {
	s := Settlement{Resolution: resolution}

	switch resolution {
	case valueobject.ResolutionFullRefund:
		s.BuyerRefund = o.TotalCost
		s.SellerPayout = decimal.Zero
	case valueobject.ResolutionFullPayment:
		s.BuyerRefund = decimal.Zero
		s.SellerPayout = o.BaseCost
	case valueobject.ResolutionPartialRefund:
		if percentage == nil {
			return Settlement{}, apperror.New(apperror.ErrCodeValidation, "для частичного возврата нужен процент возврата")
		}
		p, err := valueobject.NewPercentage(*percentage)
		if err != nil {
			return Settlement{}, err
		}
		s.RefundPercentage = decimal.NewNullDecimal(p)
		s.BuyerRefund = valueobject.PercentOf(o.TotalCost, p)
		s.SellerPayout = o.BaseCost.Sub(s.BuyerRefund)
		if s.SellerPayout.IsNegative() {
			return Settlement{}, apperror.Newf(apperror.ErrCodePolicyViolation,
				"возврат %s превышает стоимость работы продавца %s", s.BuyerRefund, o.BaseCost)
		}
	default:
		return Settlement{}, apperror.Newf(apperror.ErrCodeValidation, "неподдерживаемый тип решения %q", resolution)
	}

	s.PlatformRetained = o.TotalCost.Sub(s.BuyerRefund).Sub(s.SellerPayout)
	return s, nil
}
