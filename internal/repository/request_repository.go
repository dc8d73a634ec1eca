package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/davidmcguire/audio-app/internal/models"
)

// RequestRepository отвечает за работу с аудио-заявками.
// Все смены статуса выполняются условными UPDATE: конкурирующий
// вызов увидит 0 затронутых строк и поймёт, что проиграл гонку.
type RequestRepository struct {
	db *sqlx.DB
}

// Ошибки уровня репозитория.
var (
	ErrRequestNotFound = errors.New("request not found")
	ErrStaleStatus     = errors.New("request status changed concurrently")
)

// NewRequestRepository создаёт новый экземпляр.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `
	id, requester_id, requester_email, requester_name, creator_id,
	pricing_option_id, pricing_title, pricing_price, pricing_type,
	request_details, occasion, for_whom, pronunciation, is_public,
	status, payment_method, payment_intent_id, payment_status,
	expected_delivery_date, review_deadline, completed_date, cancelled_at,
	audio_url, audio_duration, audio_file_size, audio_file_name,
	revision_count, rejection_reason,
	dispute_reason, dispute_status, dispute_resolution, dispute_resolved_at,
	created_at, updated_at
`

// Create сохраняет новую заявку со снимком тарифа. Идентификатор
// генерирует вызывающий: он нужен платёжному шлюзу до вставки строки.
func (r *RequestRepository) Create(ctx context.Context, req *models.AudioRequest) error {
	query := `
		INSERT INTO audio_requests (
			id, requester_id, requester_email, requester_name, creator_id,
			pricing_option_id, pricing_title, pricing_price, pricing_type,
			request_details, occasion, for_whom, pronunciation, is_public,
			status, payment_method, payment_intent_id, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		req.ID,
		req.RequesterID,
		req.RequesterEmail,
		req.RequesterName,
		req.CreatorID,
		req.PricingOptionID,
		req.PricingTitle,
		req.PricingPrice,
		req.PricingType,
		req.RequestDetails,
		req.Occasion,
		req.ForWhom,
		req.Pronunciation,
		req.IsPublic,
		req.Status,
		req.PaymentMethod,
		req.PaymentIntentID,
		req.PaymentStatus,
	).Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return fmt.Errorf("request repository: insert %w", err)
	}
	return nil
}

// GetByID возвращает заявку по идентификатору.
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRequest, error) {
	var req models.AudioRequest
	query := `SELECT ` + requestColumns + ` FROM audio_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("request repository: get by id %w", err)
	}
	return &req, nil
}

// UpdateStatus переводит заявку из from в to. Возвращает ErrStaleStatus,
// если заявка уже не в статусе from.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) error {
	query := `
		UPDATE audio_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	return r.execConditional(ctx, "update status", query, id, from, to)
}

// Accept переводит заявку в accepted и фиксирует ожидаемую дату сдачи.
func (r *RequestRepository) Accept(ctx context.Context, id uuid.UUID, expectedDelivery *time.Time) error {
	query := `
		UPDATE audio_requests
		SET status = $3, expected_delivery_date = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	return r.execConditional(ctx, "accept", query,
		id, models.RequestStatusPaymentAuthorized, models.RequestStatusAccepted, expectedDelivery)
}

// Deliver сохраняет метаданные записи, устанавливает срок проверки и
// переводит заявку в ready_for_review. Первая сдача идёт из in_progress,
// доработка — из rejected (с проверкой лимита правок).
func (r *RequestRepository) Deliver(ctx context.Context, req *models.AudioRequest, reviewDeadline time.Time) error {
	query := `
		UPDATE audio_requests
		SET status = $3,
		    audio_url = $4,
		    audio_duration = $5,
		    audio_file_size = $6,
		    audio_file_name = $7,
		    review_deadline = $8,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	err := r.execConditional(ctx, "deliver", query,
		req.ID, req.Status, models.RequestStatusReadyForReview,
		req.AudioURL, req.AudioDuration, req.AudioFileSize, req.AudioFileName,
		reviewDeadline)
	if err != nil {
		return err
	}
	req.Status = models.RequestStatusReadyForReview
	req.ReviewDeadline = &reviewDeadline
	return nil
}

// ClaimForRelease забирает заявку под выплату: условный переход
// ready_for_review -> approved. До шлюза доходит ровно один вызов,
// проигравшие гонку получают ErrStaleStatus.
func (r *RequestRepository) ClaimForRelease(ctx context.Context, id uuid.UUID) error {
	return r.UpdateStatus(ctx, id, models.RequestStatusReadyForReview, models.RequestStatusApproved)
}

// Complete закрывает заявку после перевода средств автору.
func (r *RequestRepository) Complete(ctx context.Context, id uuid.UUID, from models.RequestStatus, completedAt time.Time) error {
	query := `
		UPDATE audio_requests
		SET status = $3,
		    payment_status = $4,
		    completed_date = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	return r.execConditional(ctx, "complete", query,
		id, from, models.RequestStatusCompleted, models.PaymentStatusPaid, completedAt)
}

// Reject фиксирует запрос правок: причина, счётчик доработок, статус.
// Лимит правок проверяется в самом запросе, чтобы конкурентные отказы
// не перешагнули его.
func (r *RequestRepository) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE audio_requests
		SET status = $3,
		    rejection_reason = $4,
		    revision_count = revision_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND revision_count < $5
	`
	return r.execConditional(ctx, "reject", query,
		id, models.RequestStatusReadyForReview, models.RequestStatusRejected, reason, models.MaxRevisions)
}

// OpenDispute открывает спор: статус disputed, спор в статусе pending.
func (r *RequestRepository) OpenDispute(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE audio_requests
		SET status = $3,
		    dispute_reason = $4,
		    dispute_status = $5,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2 AND dispute_status IS NULL
	`
	return r.execConditional(ctx, "open dispute", query,
		id, models.RequestStatusReadyForReview, models.RequestStatusDisputed, reason, models.DisputeStatusPending)
}

// ResolveDispute закрывает спор решением администратора. Условие на
// pending гарантирует ровно одно решение по спору.
func (r *RequestRepository) ResolveDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus, resolution string, resolvedAt time.Time) error {
	query := `
		UPDATE audio_requests
		SET dispute_status = $2,
		    dispute_resolution = $3,
		    dispute_resolved_at = $4,
		    updated_at = NOW()
		WHERE id = $1 AND dispute_status = $5
	`
	return r.execConditional(ctx, "resolve dispute", query,
		id, outcome, resolution, resolvedAt, models.DisputeStatusPending)
}

// ReopenDispute возвращает спор в pending после неудачного списания:
// решение снято, спор можно рассмотреть повторно. Условие на outcome
// защищает от отката чужого, более свежего решения.
func (r *RequestRepository) ReopenDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus) error {
	query := `
		UPDATE audio_requests
		SET dispute_status = $2,
		    dispute_resolution = NULL,
		    dispute_resolved_at = NULL,
		    updated_at = NOW()
		WHERE id = $1 AND dispute_status = $3
	`
	return r.execConditional(ctx, "reopen dispute", query,
		id, models.DisputeStatusPending, outcome)
}

// Cancel отменяет заявку из статуса from.
func (r *RequestRepository) Cancel(ctx context.Context, id uuid.UUID, from models.RequestStatus, cancelledAt time.Time) error {
	query := `
		UPDATE audio_requests
		SET status = $3, cancelled_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`
	return r.execConditional(ctx, "cancel", query,
		id, from, models.RequestStatusCancelled, cancelledAt)
}

// ListDueForAutoRelease возвращает заявки с истёкшим сроком проверки.
// Спорные заявки сюда не попадают: открытие спора меняет статус.
func (r *RequestRepository) ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]models.AudioRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + requestColumns + `
		FROM audio_requests
		WHERE status = $1 AND review_deadline IS NOT NULL AND review_deadline < $2
		ORDER BY review_deadline
		LIMIT $3
	`
	var requests []models.AudioRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.RequestStatusReadyForReview, now, limit); err != nil {
		return nil, fmt.Errorf("request repository: list due for auto release %w", err)
	}
	return requests, nil
}

// ListByCreator возвращает заявки автора, опционально по статусу.
func (r *RequestRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, status models.RequestStatus) ([]models.AudioRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM audio_requests WHERE creator_id = $1`
	args := []interface{}{creatorID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	var requests []models.AudioRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("request repository: list by creator %w", err)
	}
	return requests, nil
}

// ListByRequester возвращает заявки пользователя-заявителя.
func (r *RequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.AudioRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM audio_requests
		WHERE requester_id = $1
		ORDER BY created_at DESC
	`
	var requests []models.AudioRequest
	if err := r.db.SelectContext(ctx, &requests, query, requesterID); err != nil {
		return nil, fmt.Errorf("request repository: list by requester %w", err)
	}
	return requests, nil
}

// ListDisputes возвращает заявки со спорами для админки.
// Пустой status означает все споры.
func (r *RequestRepository) ListDisputes(ctx context.Context, status models.DisputeStatus) ([]models.AudioRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM audio_requests WHERE dispute_status IS NOT NULL`
	args := []interface{}{}
	if status != "" {
		query += ` AND dispute_status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`

	var requests []models.AudioRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, fmt.Errorf("request repository: list disputes %w", err)
	}
	return requests, nil
}

// CountByStatus возвращает распределение заявок по статусам.
func (r *RequestRepository) CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error) {
	query := `SELECT status, COUNT(*) AS cnt FROM audio_requests GROUP BY status`

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("request repository: count by status %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RequestStatus]int)
	for rows.Next() {
		var status models.RequestStatus
		var cnt int
		if err := rows.Scan(&status, &cnt); err != nil {
			return nil, fmt.Errorf("request repository: scan count %w", err)
		}
		counts[status] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("request repository: count rows %w", err)
	}
	return counts, nil
}

// execConditional выполняет условный UPDATE и различает "заявки нет"
// и "заявка ушла в другой статус".
func (r *RequestRepository) execConditional(ctx context.Context, op, query string, id uuid.UUID, args ...interface{}) error {
	all := append([]interface{}{id}, args...)
	result, err := r.db.ExecContext(ctx, query, all...)
	if err != nil {
		return fmt.Errorf("request repository: %s %w", op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("request repository: %s rows affected %w", op, err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM audio_requests WHERE id = $1)`, id); err != nil {
			return fmt.Errorf("request repository: %s check exists %w", op, err)
		}
		if !exists {
			return ErrRequestNotFound
		}
		return ErrStaleStatus
	}
	return nil
}
