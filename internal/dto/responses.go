package dto

import (
	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/models"
)

// AudioRequestResponse represents an audio request together with the
// payment authorization the client needs to confirm the charge
type AudioRequestResponse struct {
	*models.AudioRequest
	Payment *gateway.Authorization `json:"payment,omitempty"`
}

// NewAudioRequestResponse creates an AudioRequestResponse from components
func NewAudioRequestResponse(req *models.AudioRequest, auth *gateway.Authorization) *AudioRequestResponse {
	return &AudioRequestResponse{
		AudioRequest: req,
		Payment:      auth,
	}
}

// CreatorResponse represents a creator's public card with their pricing
type CreatorResponse struct {
	User           *models.User           `json:"user"`
	Profile        *models.Profile        `json:"profile"`
	PricingOptions []models.PricingOption `json:"pricing_options"`
}

// RevenueResponse aggregates the admin revenue report
type RevenueResponse struct {
	Totals   *models.RevenueTotals    `json:"totals"`
	ByMethod []models.RevenueByMethod `json:"by_method"`
	Daily    []models.DailyRevenue    `json:"daily"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error string `json:"error"`
}
