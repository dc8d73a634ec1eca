package models

import (
	"time"

	"github.com/google/uuid"
)

// AudioRequest описывает заявку на персональную аудиозапись.
// Заявитель может быть зарегистрированным пользователем (RequesterID)
// или гостем (RequesterEmail + RequesterName).
type AudioRequest struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RequesterID    *uuid.UUID `db:"requester_id" json:"requester_id,omitempty"`
	RequesterEmail *string    `db:"requester_email" json:"requester_email,omitempty"`
	RequesterName  string     `db:"requester_name" json:"requester_name"`
	CreatorID      uuid.UUID  `db:"creator_id" json:"creator_id"`

	// Снимок тарифа на момент создания. Дальнейшие изменения тарифа
	// у автора не влияют на уже открытые заявки.
	PricingOptionID uuid.UUID `db:"pricing_option_id" json:"pricing_option_id"`
	PricingTitle    string    `db:"pricing_title" json:"pricing_title"`
	PricingPrice    float64   `db:"pricing_price" json:"pricing_price"`
	PricingType     string    `db:"pricing_type" json:"pricing_type"`

	RequestDetails string  `db:"request_details" json:"request_details"`
	Occasion       *string `db:"occasion" json:"occasion,omitempty"`
	ForWhom        *string `db:"for_whom" json:"for_whom,omitempty"`
	Pronunciation  *string `db:"pronunciation" json:"pronunciation,omitempty"`
	IsPublic       bool    `db:"is_public" json:"is_public"`

	Status RequestStatus `db:"status" json:"status"`

	PaymentMethod   PaymentMethod `db:"payment_method" json:"payment_method"`
	PaymentIntentID string        `db:"payment_intent_id" json:"payment_intent_id"`
	PaymentStatus   PaymentStatus `db:"payment_status" json:"payment_status"`

	ExpectedDeliveryDate *time.Time `db:"expected_delivery_date" json:"expected_delivery_date,omitempty"`
	ReviewDeadline       *time.Time `db:"review_deadline" json:"review_deadline,omitempty"`
	CompletedDate        *time.Time `db:"completed_date" json:"completed_date,omitempty"`
	CancelledAt          *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`

	// Метаданные готовой записи. Заполняются, когда автор сдаёт работу.
	AudioURL      *string  `db:"audio_url" json:"audio_url,omitempty"`
	AudioDuration *float64 `db:"audio_duration" json:"audio_duration,omitempty"`
	AudioFileSize *int64   `db:"audio_file_size" json:"audio_file_size,omitempty"`
	AudioFileName *string  `db:"audio_file_name" json:"audio_file_name,omitempty"`

	RevisionCount   int     `db:"revision_count" json:"revision_count"`
	RejectionReason *string `db:"rejection_reason" json:"rejection_reason,omitempty"`

	DisputeReason     *string        `db:"dispute_reason" json:"dispute_reason,omitempty"`
	DisputeStatus     *DisputeStatus `db:"dispute_status" json:"dispute_status,omitempty"`
	DisputeResolution *string        `db:"dispute_resolution" json:"dispute_resolution,omitempty"`
	DisputeResolvedAt *time.Time     `db:"dispute_resolved_at" json:"dispute_resolved_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// IsReviewDeadlinePassed проверяет, истёк ли срок проверки.
func (r *AudioRequest) IsReviewDeadlinePassed(now time.Time) bool {
	if r.ReviewDeadline == nil {
		return false
	}
	return now.After(*r.ReviewDeadline)
}

// CanBeDisputed проверяет, может ли заявитель открыть спор:
// запись сдана на проверку и срок ещё не истёк.
func (r *AudioRequest) CanBeDisputed(now time.Time) bool {
	return r.Status == RequestStatusReadyForReview && !r.IsReviewDeadlinePassed(now)
}

// CanBeRevised проверяет, может ли автор сдать доработку.
func (r *AudioRequest) CanBeRevised() bool {
	return r.Status == RequestStatusRejected && r.RevisionCount < MaxRevisions
}

// HasDispute сообщает, открывался ли по заявке спор.
func (r *AudioRequest) HasDispute() bool {
	return r.DisputeStatus != nil
}

// IsRequester проверяет, что пользователь — заявитель.
// Гостевые заявки (без аккаунта) не имеют заявителя-пользователя.
func (r *AudioRequest) IsRequester(userID uuid.UUID) bool {
	return r.RequesterID != nil && *r.RequesterID == userID
}

// IsParticipant проверяет, что пользователь — сторона заявки.
func (r *AudioRequest) IsParticipant(userID uuid.UUID) bool {
	return r.CreatorID == userID || r.IsRequester(userID)
}
