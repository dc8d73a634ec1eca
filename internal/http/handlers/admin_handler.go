package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/dto"
	"github.com/davidmcguire/audio-app/internal/http/handlers/common"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/service"
	"github.com/davidmcguire/audio-app/internal/validation"
)

// AdminHandler предоставляет админский HTTP слой: споры и отчётность.
type AdminHandler struct {
	disputes *service.DisputeService
}

// NewAdminHandler создаёт новый хэндлер.
func NewAdminHandler(disputes *service.DisputeService) *AdminHandler {
	return &AdminHandler{disputes: disputes}
}

// ListDisputes обрабатывает GET /admin/disputes. Необязательный
// фильтр ?status= (pending, resolved, rejected).
func (h *AdminHandler) ListDisputes(c *gin.Context) {
	var status models.DisputeStatus
	if raw := c.Query("status"); raw != "" {
		status = models.DisputeStatus(raw)
		switch status {
		case models.DisputeStatusPending, models.DisputeStatusUnderReview,
			models.DisputeStatusResolved, models.DisputeStatusRejected:
		default:
			common.RespondBadRequest(c, "неизвестный статус спора: "+raw)
			return
		}
	}

	disputes, err := h.disputes.ListDisputes(c.Request.Context(), status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"disputes": disputes})
}

// ResolveDispute обрабатывает POST /admin/disputes/:id/resolve -
// претензия признана обоснованной, резолюция фиксируется, запись
// считается выполненной и средства уходят автору.
func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	h.adjudicate(c, h.disputes.Resolve)
}

// RejectDispute обрабатывает POST /admin/disputes/:id/reject -
// спор отклонён, средства уходят автору.
func (h *AdminHandler) RejectDispute(c *gin.Context) {
	h.adjudicate(c, h.disputes.RejectDispute)
}

// Stats обрабатывает GET /admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.disputes.Stats(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Revenue обрабатывает GET /admin/revenue?days=30.
func (h *AdminHandler) Revenue(c *gin.Context) {
	days := common.ParseIntQuery(c, "days", 30)
	if days < 1 || days > 365 {
		common.RespondBadRequest(c, "days должен быть от 1 до 365")
		return
	}

	totals, byMethod, daily, err := h.disputes.Revenue(c.Request.Context(), days)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RevenueResponse{
		Totals:   totals,
		ByMethod: byMethod,
		Daily:    daily,
	})
}

// adjudicate выполняет решение по спору с текстом резолюции.
func (h *AdminHandler) adjudicate(c *gin.Context, op func(ctx context.Context, requestID uuid.UUID, resolution string) (*models.AudioRequest, error)) {
	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateReason("резолюция", req.Resolution); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := op(c.Request.Context(), requestID, req.Resolution)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
