package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	"github.com/ignatzorin/warmconnects-backend/internal/dto"
	"github.com/ignatzorin/warmconnects-backend/internal/http/handlers/common"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
	"github.com/ignatzorin/warmconnects-backend/internal/validation"
)

type OrderHandler struct {
	orders OrderUseCase
}

// NewOrderHandler создаёт новый хэндлер.
func NewOrderHandler(orders OrderUseCase) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder обрабатывает POST /orders.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.CreateOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}

	serviceID, err := common.ParseUUID("service_id", req.ServiceID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateQuantity(req.Quantity); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateLength("требования", req.Requirements, 0, validation.MaxRequirementsLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateOptionalURL("target_url", req.TargetURL); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		BuyerID:      actor.ID,
		ServiceID:    serviceID,
		Quantity:     req.Quantity,
		Requirements: strings.TrimSpace(req.Requirements),
		TargetURL:    trimmedOrNil(req.TargetURL),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// AcceptOrder обрабатывает POST /orders/:id/accept.
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	order, err := h.orders.AcceptOrder(c.Request.Context(), orderID, actor.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeclineOrder обрабатывает POST /orders/:id/decline.
func (h *OrderHandler) DeclineOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	// тело необязательное
	var req dto.DeclineOrderRequest
	if c.Request.ContentLength > 0 {
		if err := common.BindJSON(c, &req); err != nil {
			common.Fail(c, err)
			return
		}
	}
	if err := validation.ValidateLength("причина", req.Reason, 0, validation.MaxReasonLength); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.DeclineOrder(c.Request.Context(), orderID, actor.ID, strings.TrimSpace(req.Reason))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// DeliverOrder обрабатывает POST /orders/:id/deliver.
func (h *OrderHandler) DeliverOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.DeliverOrderRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateURL("proof_url", req.ProofURL); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateLength("описание", req.Description, 0, validation.MaxDescriptionLength); err != nil {
		common.Fail(c, err)
		return
	}
	if len(req.Screenshots) > validation.MaxProofScreenshotCount {
		common.Fail(c, apperror.Newf(apperror.ErrCodeValidation, "можно приложить не более %d скриншотов", validation.MaxProofScreenshotCount))
		return
	}
	for _, s := range req.Screenshots {
		if err := validation.ValidateURL("скриншот", s); err != nil {
			common.Fail(c, err)
			return
		}
	}

	order, err := h.orders.DeliverOrder(c.Request.Context(), orderID, actor.ID, entity.Proof{
		URL:         strings.TrimSpace(req.ProofURL),
		Description: strings.TrimSpace(req.Description),
		Screenshots: req.Screenshots,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// RequestRevision обрабатывает POST /orders/:id/request-revision.
func (h *OrderHandler) RequestRevision(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.RevisionRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateRequired("причина", req.Reason, validation.MaxReasonLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateLength("инструкции", req.Instructions, 0, validation.MaxDescriptionLength); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.RequestRevision(c.Request.Context(), orderID, actor.ID,
		strings.TrimSpace(req.Reason), strings.TrimSpace(req.Instructions))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ApproveOrder обрабатывает POST /orders/:id/approve.
func (h *OrderHandler) ApproveOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	order, err := h.orders.ApproveOrder(c.Request.Context(), orderID, actor.ID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GetOrder обрабатывает GET /orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	actor, orderID, ok := actorAndID(c)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(c.Request.Context(), orderID, actor.ID, actor.Role)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListBuyerOrders обрабатывает GET /orders/buyer.
func (h *OrderHandler) ListBuyerOrders(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	orders, err := h.orders.ListBuyerOrders(c.Request.Context(), actor.ID, c.Query("status"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(orders, limit, offset))
}

// ListSellerOrders обрабатывает GET /orders/seller.
func (h *OrderHandler) ListSellerOrders(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	orders, err := h.orders.ListSellerOrders(c.Request.Context(), actor.ID, c.Query("status"), limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(orders, limit, offset))
}

// actorAndID достаёт пользователя и :id. При ошибке она уже передана в ErrorHandler.
func actorAndID(c *gin.Context) (common.Actor, uuid.UUID, bool) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return common.Actor{}, uuid.Nil, false
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return common.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
