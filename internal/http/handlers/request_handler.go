package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/dto"
	"github.com/davidmcguire/audio-app/internal/http/handlers/common"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/service"
	"github.com/davidmcguire/audio-app/internal/validation"
)

// RequestHandler предоставляет HTTP слой жизненного цикла аудио-заявки.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler создаёт новый хэндлер.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Create обрабатывает POST /requests. Доступен и гостям: без токена
// обязателен requester_email.
func (h *RequestHandler) Create(c *gin.Context) {
	var req dto.CreateAudioRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	creatorID, err := uuid.Parse(req.CreatorID)
	if err != nil {
		common.RespondBadRequest(c, "creator_id должен быть UUID")
		return
	}

	pricingID, err := uuid.Parse(req.PricingOptionID)
	if err != nil {
		common.RespondBadRequest(c, "pricing_option_id должен быть UUID")
		return
	}

	if err := validation.ValidateDisplayName(req.RequesterName); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateRequestDetails(req.RequestDetails); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateOptionalField("повод", req.Occasion, validation.MaxOccasionLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateOptionalField("получатель", req.ForWhom, validation.MaxForWhomLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}
	if err := validation.ValidateOptionalField("произношение", req.Pronunciation, validation.MaxPronunciationLength); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	input := service.CreateRequestInput{
		RequesterName:   strings.TrimSpace(req.RequesterName),
		CreatorID:       creatorID,
		PricingOptionID: pricingID,
		PaymentMethod:   models.PaymentMethod(req.PaymentMethod),
		RequestDetails:  strings.TrimSpace(req.RequestDetails),
		Occasion:        req.Occasion,
		ForWhom:         req.ForWhom,
		Pronunciation:   req.Pronunciation,
		IsPublic:        req.IsPublic,
	}

	// Авторизованный пользователь становится заявителем; гость
	// обязан указать email для уведомлений.
	if userID, err := common.CurrentUserID(c); err == nil {
		input.RequesterID = &userID
	} else {
		if req.RequesterEmail == nil || *req.RequesterEmail == "" {
			common.RespondBadRequest(c, "requester_email обязателен для гостевых заявок")
			return
		}
		if err := validation.ValidateEmail(*req.RequesterEmail); err != nil {
			common.RespondBadRequest(c, err.Error())
			return
		}
		input.RequesterEmail = req.RequesterEmail
	}

	request, auth, err := h.requests.Create(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAudioRequestResponse(request, auth))
}

// Get обрабатывает GET /requests/:id. Заявку видят только её стороны.
func (h *RequestHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.requests.Get(c.Request.Context(), requestID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// ListMine обрабатывает GET /requests - заявки текущего заявителя.
func (h *RequestHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requests, err := h.requests.ListForRequester(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// ListIncoming обрабатывает GET /requests/incoming - заявки автора.
// Необязательный фильтр ?status=.
func (h *RequestHandler) ListIncoming(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var status models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		status = models.RequestStatus(raw)
		if _, ok := models.ValidRequestStatuses[status]; !ok {
			common.RespondBadRequest(c, "неизвестный статус: "+raw)
			return
		}
	}

	requests, err := h.requests.ListForCreator(c.Request.Context(), userID, status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

// Accept обрабатывает POST /requests/:id/accept - автор берёт заявку в работу.
func (h *RequestHandler) Accept(c *gin.Context) {
	h.lifecycle(c, h.requests.Accept)
}

// Start обрабатывает POST /requests/:id/start - автор приступил к записи.
func (h *RequestHandler) Start(c *gin.Context) {
	h.lifecycle(c, h.requests.Start)
}

// Deliver обрабатывает POST /requests/:id/deliver - автор сдаёт запись.
func (h *RequestHandler) Deliver(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.DeliverAudioRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateAudioURL(req.AudioURL); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.requests.Deliver(c.Request.Context(), requestID, userID, service.DeliverInput{
		AudioURL:      strings.TrimSpace(req.AudioURL),
		AudioDuration: req.AudioDuration,
		AudioFileSize: req.AudioFileSize,
		AudioFileName: req.AudioFileName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// Approve обрабатывает POST /requests/:id/approve - заявитель принимает
// работу, средства уходят автору.
func (h *RequestHandler) Approve(c *gin.Context) {
	h.lifecycle(c, h.requests.Approve)
}

// Reject обрабатывает POST /requests/:id/reject - заявитель отправляет
// запись на доработку.
func (h *RequestHandler) Reject(c *gin.Context) {
	h.withReason(c, "причина отклонения", h.requests.Reject)
}

// Dispute обрабатывает POST /requests/:id/dispute - заявитель открывает спор.
func (h *RequestHandler) Dispute(c *gin.Context) {
	h.withReason(c, "причина спора", h.requests.Dispute)
}

// Cancel обрабатывает POST /requests/:id/cancel - любая сторона отменяет
// заявку, пока средства не списаны.
func (h *RequestHandler) Cancel(c *gin.Context) {
	h.lifecycle(c, h.requests.Cancel)
}

// UpdateAction обрабатывает PUT /requests/:id/:action - исторический
// маршрут ответа автора на новую заявку. accepted принимает заявку,
// rejected отклоняет её до начала работы: заявка отменяется и резерв
// оплаты снимается.
func (h *RequestHandler) UpdateAction(c *gin.Context) {
	switch c.Param("action") {
	case "accepted":
		h.lifecycle(c, h.requests.Accept)
	case "rejected":
		h.lifecycle(c, h.requests.Cancel)
	default:
		common.RespondBadRequest(c, "неизвестное действие")
	}
}

// UpdateStatus обрабатывает POST /shoutouts/requests/:id/status -
// исторический маршрут смены статуса автором. Денежные переходы
// (approve, выпуск средств) через него недоступны.
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	switch models.RequestStatus(req.Status) {
	case models.RequestStatusAccepted:
		h.lifecycle(c, h.requests.Accept)
	case models.RequestStatusInProgress:
		h.lifecycle(c, h.requests.Start)
	case models.RequestStatusCancelled:
		h.lifecycle(c, h.requests.Cancel)
	default:
		common.RespondBadRequest(c, "недопустимый статус для этого маршрута")
	}
}

// lifecycle выполняет операцию вида (requestID, userID) -> request
// и отдаёт обновлённую заявку.
func (h *RequestHandler) lifecycle(c *gin.Context, op func(ctx context.Context, requestID, userID uuid.UUID) (*models.AudioRequest, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := op(c.Request.Context(), requestID, userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}

// withReason выполняет операцию, требующую текстовой причины.
func (h *RequestHandler) withReason(c *gin.Context, fieldName string, op func(ctx context.Context, requestID, userID uuid.UUID, reason string) (*models.AudioRequest, error)) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	requestID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := validation.ValidateReason(fieldName, req.Reason); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	request, err := op(c.Request.Context(), requestID, userID, strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, request)
}
