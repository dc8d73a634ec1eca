package dto

// CreateAudioRequest represents the request to create an audio request.
// Guests supply requester_email instead of being authenticated.
type CreateAudioRequest struct {
	CreatorID       string  `json:"creator_id" binding:"required"`
	PricingOptionID string  `json:"pricing_option_id" binding:"required"`
	PaymentMethod   string  `json:"payment_method" binding:"required"`
	RequesterName   string  `json:"requester_name" binding:"required"`
	RequesterEmail  *string `json:"requester_email"`
	RequestDetails  string  `json:"request_details" binding:"required"`
	Occasion        *string `json:"occasion"`
	ForWhom         *string `json:"for_whom"`
	Pronunciation   *string `json:"pronunciation"`
	IsPublic        bool    `json:"is_public"`
}

// DeliverAudioRequest represents the metadata of a finished recording
type DeliverAudioRequest struct {
	AudioURL      string   `json:"audio_url" binding:"required"`
	AudioDuration *float64 `json:"audio_duration"`
	AudioFileSize *int64   `json:"audio_file_size"`
	AudioFileName *string  `json:"audio_file_name"`
}

// ResolveDisputeRequest represents the admin's resolution text
type ResolveDisputeRequest struct {
	Resolution string `json:"resolution" binding:"required"`
}

// PricingOptionRequest represents the request to create or update a pricing option
type PricingOptionRequest struct {
	Title        string   `json:"title" binding:"required"`
	Price        float64  `json:"price" binding:"required"`
	Type         string   `json:"type"`
	Description  string   `json:"description"`
	DeliveryTime int      `json:"delivery_time"`
	Features     []string `json:"features"`
	Category     string   `json:"category" binding:"required"`
	MaxDuration  *int     `json:"max_duration"`
	IsActive     *bool    `json:"is_active"`
}

// UpdateProfileRequest represents the request to update profile and payout settings
type UpdateProfileRequest struct {
	DisplayName     string  `json:"display_name" binding:"required"`
	Bio             *string `json:"bio"`
	AcceptsRequests *bool   `json:"accepts_requests"`
	StripeAccountID *string `json:"stripe_account_id"`
	PayPalEmail     *string `json:"paypal_email"`
}
