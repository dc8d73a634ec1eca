package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidmcguire/audio-app/internal/dto"
	"github.com/davidmcguire/audio-app/internal/http/handlers/common"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/service"
	"github.com/davidmcguire/audio-app/internal/validation"
)

// PricingHandler предоставляет HTTP слой для тарифов автора.
type PricingHandler struct {
	pricing *service.PricingService
}

// NewPricingHandler создаёт новый хэндлер.
func NewPricingHandler(pricing *service.PricingService) *PricingHandler {
	return &PricingHandler{pricing: pricing}
}

// Create обрабатывает POST /pricing-options.
func (h *PricingHandler) Create(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	var req dto.PricingOptionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	option, ok := h.buildOption(c, &req)
	if !ok {
		return
	}
	option.CreatorID = userID

	created, err := h.pricing.Create(c.Request.Context(), option)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Update обрабатывает PUT /pricing-options/:id.
func (h *PricingHandler) Update(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	optionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	var req dto.PricingOptionRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	option, ok := h.buildOption(c, &req)
	if !ok {
		return
	}
	option.ID = optionID
	option.CreatorID = userID

	updated, err := h.pricing.Update(c.Request.Context(), option)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// Delete обрабатывает DELETE /pricing-options/:id.
func (h *PricingHandler) Delete(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	optionID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.pricing.Delete(c.Request.Context(), optionID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "тариф удалён"})
}

// ListMine обрабатывает GET /pricing-options - все тарифы текущего автора,
// включая выключенные.
func (h *PricingHandler) ListMine(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, err.Error())
		return
	}

	options, err := h.pricing.ListByCreator(c.Request.Context(), userID, true)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pricing_options": options})
}

// GetOne обрабатывает GET /pricing-options/:id - публичная карточка
// тарифа, на неё ссылается форма создания заявки.
func (h *PricingHandler) GetOne(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	option, err := h.pricing.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if !option.IsActive {
		common.RespondError(c, http.StatusNotFound, "тариф не найден")
		return
	}

	c.JSON(http.StatusOK, option)
}

// ListByCreator обрабатывает GET /creators/:id/pricing-options - публичный
// список активных тарифов автора.
func (h *PricingHandler) ListByCreator(c *gin.Context) {
	creatorID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	options, err := h.pricing.ListByCreator(c.Request.Context(), creatorID, false)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"pricing_options": options})
}

// buildOption валидирует запрос и собирает модель тарифа.
func (h *PricingHandler) buildOption(c *gin.Context, req *dto.PricingOptionRequest) (*models.PricingOption, bool) {
	if err := validation.ValidatePricingTitle(req.Title); err != nil {
		common.RespondBadRequest(c, err.Error())
		return nil, false
	}

	if err := validation.ValidatePrice(req.Price); err != nil {
		common.RespondBadRequest(c, err.Error())
		return nil, false
	}

	if err := validation.ValidatePricingDescription(req.Description); err != nil {
		common.RespondBadRequest(c, err.Error())
		return nil, false
	}

	pricingType := req.Type
	if pricingType == "" {
		pricingType = models.PricingTypePersonal
	}
	if pricingType != models.PricingTypePersonal && pricingType != models.PricingTypeBusiness {
		common.RespondBadRequest(c, "тип тарифа должен быть personal или business")
		return nil, false
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	return &models.PricingOption{
		Title:        req.Title,
		Price:        req.Price,
		Type:         pricingType,
		Description:  req.Description,
		DeliveryTime: req.DeliveryTime,
		Features:     req.Features,
		Category:     req.Category,
		MaxDuration:  req.MaxDuration,
		IsActive:     isActive,
	}, true
}
