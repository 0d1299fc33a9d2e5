package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/warmconnects-backend/internal/http/handlers/common"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/pricing"
	"github.com/ignatzorin/warmconnects-backend/internal/validation"
)

// PricingHandler показывает расчёт стоимости до оформления заказа.
type PricingHandler struct{}

func NewPricingHandler() *PricingHandler {
	return &PricingHandler{}
}

// Quote обрабатывает GET /pricing/quote?unit_price=&quantity=&tier=.
func (h *PricingHandler) Quote(c *gin.Context) {
	unitPrice, err := validation.ParseAmount(c.Query("unit_price"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "quantity должно быть целым числом"))
		return
	}
	if err := validation.ValidateQuantity(quantity); err != nil {
		common.Fail(c, err)
		return
	}

	quote, err := pricing.Calculate(unitPrice, quantity, pricing.Tier(c.DefaultQuery("tier", string(pricing.TierNew))))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
