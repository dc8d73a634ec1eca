package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/davidmcguire/audio-app/internal/models"
)

// ErrPricingOptionNotFound возвращается, когда тариф не найден.
var ErrPricingOptionNotFound = errors.New("pricing option not found")

// PricingRepository отвечает за работу с тарифами авторов.
type PricingRepository struct {
	db *sqlx.DB
}

// NewPricingRepository создаёт новый экземпляр.
func NewPricingRepository(db *sqlx.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// Create сохраняет новый тариф.
func (r *PricingRepository) Create(ctx context.Context, option *models.PricingOption) error {
	query := `
		INSERT INTO pricing_options (creator_id, title, price, type, description, delivery_time, features, category, max_duration, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		option.CreatorID,
		option.Title,
		option.Price,
		option.Type,
		option.Description,
		option.DeliveryTime,
		pq.Array(option.Features),
		option.Category,
		option.MaxDuration,
		option.IsActive,
	).Scan(&option.ID, &option.CreatedAt, &option.UpdatedAt); err != nil {
		return fmt.Errorf("pricing repository: create %w", err)
	}
	return nil
}

// GetByID возвращает тариф по идентификатору.
func (r *PricingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PricingOption, error) {
	var option models.PricingOption
	query := `
		SELECT id, creator_id, title, price, type, description, delivery_time, features, category, max_duration, is_active, created_at, updated_at
		FROM pricing_options
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &option, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPricingOptionNotFound
		}
		return nil, fmt.Errorf("pricing repository: get by id %w", err)
	}
	return &option, nil
}

// ListByCreator возвращает тарифы автора. При activeOnly скрытые
// тарифы не попадают в выдачу.
func (r *PricingRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, activeOnly bool) ([]models.PricingOption, error) {
	query := `
		SELECT id, creator_id, title, price, type, description, delivery_time, features, category, max_duration, is_active, created_at, updated_at
		FROM pricing_options
		WHERE creator_id = $1
	`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY price`

	var options []models.PricingOption
	if err := r.db.SelectContext(ctx, &options, query, creatorID); err != nil {
		return nil, fmt.Errorf("pricing repository: list by creator %w", err)
	}
	return options, nil
}

// Update изменяет тариф автора. Чужой тариф изменить нельзя.
func (r *PricingRepository) Update(ctx context.Context, option *models.PricingOption) error {
	query := `
		UPDATE pricing_options
		SET title = $3,
		    price = $4,
		    type = $5,
		    description = $6,
		    delivery_time = $7,
		    features = $8,
		    category = $9,
		    max_duration = $10,
		    is_active = $11,
		    updated_at = NOW()
		WHERE id = $1 AND creator_id = $2
		RETURNING updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		option.ID,
		option.CreatorID,
		option.Title,
		option.Price,
		option.Type,
		option.Description,
		option.DeliveryTime,
		pq.Array(option.Features),
		option.Category,
		option.MaxDuration,
		option.IsActive,
	).Scan(&option.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPricingOptionNotFound
		}
		return fmt.Errorf("pricing repository: update %w", err)
	}
	return nil
}

// Delete удаляет тариф автора.
func (r *PricingRepository) Delete(ctx context.Context, id, creatorID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pricing_options WHERE id = $1 AND creator_id = $2`, id, creatorID)
	if err != nil {
		return fmt.Errorf("pricing repository: delete %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pricing repository: delete rows affected %w", err)
	}
	if rowsAffected == 0 {
		return ErrPricingOptionNotFound
	}
	return nil
}
