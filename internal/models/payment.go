package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы платежей
const (
	PaymentRecordStatusCompleted = "completed"
	PaymentRecordStatusFailed    = "failed"
)

// Payment фиксирует факт списания и выплаты по заявке.
// Одна запись на каждый успешный выпуск средств; источник данных
// для admin-отчётов по выручке.
type Payment struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	RequestID     uuid.UUID     `db:"request_id" json:"request_id"`
	PaymentMethod PaymentMethod `db:"payment_method" json:"payment_method"`
	Amount        float64       `db:"amount" json:"amount"`
	PlatformFee   float64       `db:"platform_fee" json:"platform_fee"`
	CreatorAmount float64       `db:"creator_amount" json:"creator_amount"`
	TransferID    string        `db:"transfer_id" json:"transfer_id"`
	Status        string        `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}

// RevenueTotals — сводные показатели выручки платформы.
type RevenueTotals struct {
	TotalAmount        float64 `db:"total_amount" json:"total_amount"`
	TotalPlatformFee   float64 `db:"total_platform_fee" json:"total_platform_fee"`
	TotalCreatorAmount float64 `db:"total_creator_amount" json:"total_creator_amount"`
	Count              int     `db:"count" json:"count"`
}

// RevenueByMethod — выручка в разрезе платёжного метода.
type RevenueByMethod struct {
	PaymentMethod    PaymentMethod `db:"payment_method" json:"payment_method"`
	TotalAmount      float64       `db:"total_amount" json:"total_amount"`
	TotalPlatformFee float64       `db:"total_platform_fee" json:"total_platform_fee"`
	Count            int           `db:"count" json:"count"`
}

// DailyRevenue — выручка по дням.
type DailyRevenue struct {
	Day              string  `db:"day" json:"day"`
	TotalAmount      float64 `db:"total_amount" json:"total_amount"`
	TotalPlatformFee float64 `db:"total_platform_fee" json:"total_platform_fee"`
	Count            int     `db:"count" json:"count"`
}

// AdminStats — сводка для админской панели.
type AdminStats struct {
	TotalDisputes   int     `json:"total_disputes"`
	PendingDisputes int     `json:"pending_disputes"`
	TotalRequests   int     `json:"total_requests"`
	TotalRevenue    float64 `json:"total_revenue"`
}
