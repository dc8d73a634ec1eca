package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Категории тарифов
const (
	PricingCategoryShoutout         = "shoutout"
	PricingCategoryCustomEpisode    = "custom-episode"
	PricingCategoryExclusiveContent = "exclusive-content"
	PricingCategoryPersonalMessage  = "personal-message"
)

// ValidPricingCategories список валидных категорий тарифов
var ValidPricingCategories = map[string]struct{}{
	PricingCategoryShoutout:         {},
	PricingCategoryCustomEpisode:    {},
	PricingCategoryExclusiveContent: {},
	PricingCategoryPersonalMessage:  {},
}

// PricingOption — тариф автора, из которого снимается снимок цены
// при создании заявки.
type PricingOption struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	CreatorID    uuid.UUID      `db:"creator_id" json:"creator_id"`
	Title        string         `db:"title" json:"title"`
	Price        float64        `db:"price" json:"price"`
	Type         string         `db:"type" json:"type"`
	Description  string         `db:"description" json:"description"`
	DeliveryTime int            `db:"delivery_time" json:"delivery_time"`
	Features     pq.StringArray `db:"features" json:"features"`
	Category     string         `db:"category" json:"category"`
	MaxDuration  *int           `db:"max_duration" json:"max_duration,omitempty"`
	IsActive     bool           `db:"is_active" json:"is_active"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
