package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/davidmcguire/audio-app/internal/models"
)

// PaymentRepository отвечает за журнал платежей и отчёты по выручке.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository создаёт новый экземпляр.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create фиксирует выпуск средств по заявке. Уникальный индекс на
// request_id не даёт записать платёж дважды.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (request_id, payment_method, amount, platform_fee, creator_amount, transfer_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		payment.RequestID,
		payment.PaymentMethod,
		payment.Amount,
		payment.PlatformFee,
		payment.CreatorAmount,
		payment.TransferID,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return fmt.Errorf("payment repository: create %w", err)
	}
	return nil
}

// GetRevenueTotals возвращает сводную выручку за период.
// Нулевые границы означают "за всё время".
func (r *PaymentRepository) GetRevenueTotals(ctx context.Context, from, to time.Time) (*models.RevenueTotals, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0) AS total_amount,
		       COALESCE(SUM(platform_fee), 0) AS total_platform_fee,
		       COALESCE(SUM(creator_amount), 0) AS total_creator_amount,
		       COUNT(*) AS count
		FROM payments
		WHERE status = 'completed'
	`
	args := []interface{}{}
	argIndex := 1
	if !from.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, from)
		argIndex++
	}
	if !to.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", argIndex)
		args = append(args, to)
		argIndex++
	}

	var totals models.RevenueTotals
	if err := r.db.GetContext(ctx, &totals, query, args...); err != nil {
		return nil, fmt.Errorf("payment repository: revenue totals %w", err)
	}
	return &totals, nil
}

// GetRevenueByMethod возвращает выручку в разрезе платёжных методов.
func (r *PaymentRepository) GetRevenueByMethod(ctx context.Context) ([]models.RevenueByMethod, error) {
	query := `
		SELECT payment_method,
		       COALESCE(SUM(amount), 0) AS total_amount,
		       COALESCE(SUM(platform_fee), 0) AS total_platform_fee,
		       COUNT(*) AS count
		FROM payments
		WHERE status = 'completed'
		GROUP BY payment_method
		ORDER BY total_amount DESC
	`

	var rows []models.RevenueByMethod
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("payment repository: revenue by method %w", err)
	}
	return rows, nil
}

// GetDailyRevenue возвращает выручку по дням за последние days дней.
func (r *PaymentRepository) GetDailyRevenue(ctx context.Context, days int) ([]models.DailyRevenue, error) {
	if days <= 0 {
		days = 30
	}
	query := `
		SELECT TO_CHAR(DATE_TRUNC('day', created_at), 'YYYY-MM-DD') AS day,
		       COALESCE(SUM(amount), 0) AS total_amount,
		       COALESCE(SUM(platform_fee), 0) AS total_platform_fee,
		       COUNT(*) AS count
		FROM payments
		WHERE status = 'completed' AND created_at >= NOW() - ($1 || ' days')::interval
		GROUP BY DATE_TRUNC('day', created_at)
		ORDER BY day DESC
	`

	var rows []models.DailyRevenue
	if err := r.db.SelectContext(ctx, &rows, query, fmt.Sprintf("%d", days)); err != nil {
		return nil, fmt.Errorf("payment repository: daily revenue %w", err)
	}
	return rows, nil
}
