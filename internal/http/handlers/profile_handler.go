package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davidmcguire/audio-app/internal/dto"
	"github.com/davidmcguire/audio-app/internal/http/handlers/common"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/repository"
	"github.com/davidmcguire/audio-app/internal/service"
	"github.com/davidmcguire/audio-app/internal/validation"
)

// ProfileHandler отвечает за профиль и публичные карточки авторов.
type ProfileHandler struct {
	users   *repository.UserRepository
	pricing *service.PricingService
}

// NewProfileHandler создаёт экземпляр.
func NewProfileHandler(users *repository.UserRepository, pricing *service.PricingService) *ProfileHandler {
	return &ProfileHandler{users: users, pricing: pricing}
}

// GetMe возвращает профиль текущего пользователя.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		// Если профиль не найден, создаём дефолтный
		user, userErr := h.users.GetByID(c.Request.Context(), userID)
		if userErr != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "профиль не найден"})
			return
		}

		profile = &models.Profile{
			UserID:          userID,
			DisplayName:     user.Username,
			AcceptsRequests: user.Role == models.RoleCreator,
		}

		if err := h.users.UpsertProfile(c.Request.Context(), profile); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось создать профиль"})
			return
		}
	}

	c.JSON(http.StatusOK, profile)
}

// UpdateMe обновляет профиль и платёжные реквизиты текущего пользователя.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateDisplayName(req.DisplayName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateBio(req.Bio); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.PayPalEmail != nil && *req.PayPalEmail != "" {
		if err := validation.ValidateEmail(*req.PayPalEmail); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "paypal_email: " + err.Error()})
			return
		}
	}

	// Читаем текущий профиль, чтобы не затирать незаполненные поля.
	profile, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		profile = &models.Profile{UserID: userID}
	}

	profile.DisplayName = req.DisplayName
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.AcceptsRequests != nil {
		profile.AcceptsRequests = *req.AcceptsRequests
	}
	if req.StripeAccountID != nil {
		profile.StripeAccountID = req.StripeAccountID
	}
	if req.PayPalEmail != nil {
		profile.PayPalEmail = req.PayPalEmail
	}

	if err := h.users.UpsertProfile(c.Request.Context(), profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "не удалось обновить профиль"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// ListCreators обрабатывает GET /creators - публичный каталог авторов,
// принимающих заявки.
func (h *ProfileHandler) ListCreators(c *gin.Context) {
	limit, offset := common.GetPagination(c)

	creators, err := h.users.ListCreators(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"creators": creators,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetCreator обрабатывает GET /creators/:id - карточка автора
// с профилем и активными тарифами.
func (h *ProfileHandler) GetCreator(c *gin.Context) {
	creatorID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), creatorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "автор не найден"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if user.Role != models.RoleCreator {
		c.JSON(http.StatusNotFound, gin.H{"error": "автор не найден"})
		return
	}

	profile, err := h.users.GetProfile(c.Request.Context(), creatorID)
	if err != nil {
		profile = &models.Profile{UserID: creatorID, DisplayName: user.Username}
	}

	// Платёжные реквизиты наружу не отдаём.
	profile.StripeAccountID = nil
	profile.PayPalEmail = nil

	options, err := h.pricing.ListByCreator(c.Request.Context(), creatorID, false)
	if err != nil {
		options = []models.PricingOption{}
	}

	c.JSON(http.StatusOK, dto.CreatorResponse{
		User:           user,
		Profile:        profile,
		PricingOptions: options,
	})
}
