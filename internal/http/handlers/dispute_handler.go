package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/warmconnects-backend/internal/dto"
	"github.com/ignatzorin/warmconnects-backend/internal/http/handlers/common"
	"github.com/ignatzorin/warmconnects-backend/internal/service"
	"github.com/ignatzorin/warmconnects-backend/internal/validation"
)

// DisputeHandler обслуживает споры по заказам.
type DisputeHandler struct {
	disputes DisputeUseCase
}

func NewDisputeHandler(disputes DisputeUseCase) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// OpenDispute обрабатывает POST /disputes.
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	var req dto.OpenDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	orderID, err := common.ParseUUID("order_id", req.OrderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateRequired("причина", req.Reason, validation.MaxReasonLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateLength("описание", req.Description, 0, validation.MaxDescriptionLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateEvidence(req.Evidence); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), service.OpenDisputeInput{
		OrderID:     orderID,
		ActorID:     actor.ID,
		Type:        strings.TrimSpace(req.DisputeType),
		Reason:      strings.TrimSpace(req.Reason),
		Description: strings.TrimSpace(req.Description),
		Evidence:    req.Evidence,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// ListMyDisputes обрабатывает GET /disputes.
func (h *DisputeHandler) ListMyDisputes(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}

	limit, offset := common.GetPagination(c)
	disputes, err := h.disputes.ListForUser(c.Request.Context(), actor.ID, limit, offset)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(disputes, limit, offset))
}

// GetDispute обрабатывает GET /disputes/:id.
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c)
	if !ok {
		return
	}

	dispute, err := h.disputes.GetDispute(c.Request.Context(), disputeID, actor.ID, actor.Role)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Respond обрабатывает POST /disputes/:id/respond.
func (h *DisputeHandler) Respond(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.DisputeResponseRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateRequired("ответ", req.Response, validation.MaxResponseLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateEvidence(req.Evidence); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.Respond(c.Request.Context(), disputeID, actor.ID, strings.TrimSpace(req.Response), req.Evidence)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Appeal обрабатывает POST /disputes/:id/appeal.
func (h *DisputeHandler) Appeal(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.AppealRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateRequired("причина апелляции", req.Reason, validation.MaxReasonLength); err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateEvidence(req.Evidence); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.Appeal(c.Request.Context(), disputeID, actor.ID, strings.TrimSpace(req.Reason), req.Evidence)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}

// Mediate обрабатывает POST /disputes/:id/mediate. Роль проверяет RequireMediator.
func (h *DisputeHandler) Mediate(c *gin.Context) {
	actor, disputeID, ok := actorAndID(c)
	if !ok {
		return
	}

	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, &req); err != nil {
		common.Fail(c, err)
		return
	}
	percentage, err := validation.ParsePercentage(req.RefundPercentage)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if err := validation.ValidateLength("комментарий", req.Notes, 0, validation.MaxNotesLength); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.Resolve(c.Request.Context(), service.ResolveInput{
		DisputeID:        disputeID,
		MediatorID:       actor.ID,
		Resolution:       strings.TrimSpace(req.Resolution),
		RefundPercentage: percentage,
		Notes:            strings.TrimSpace(req.Notes),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dispute)
}
