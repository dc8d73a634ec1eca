package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
	"github.com/davidmcguire/audio-app/internal/repository"
)

// PricingRepo описывает взаимодействие сервиса с хранилищем тарифов.
type PricingRepo interface {
	Create(ctx context.Context, option *models.PricingOption) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PricingOption, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, activeOnly bool) ([]models.PricingOption, error)
	Update(ctx context.Context, option *models.PricingOption) error
	Delete(ctx context.Context, id, creatorID uuid.UUID) error
}

// PricingService содержит бизнес-логику работы с тарифами авторов.
type PricingService struct {
	repo PricingRepo
}

// NewPricingService создаёт новый сервис тарифов.
func NewPricingService(repo PricingRepo) *PricingService {
	return &PricingService{repo: repo}
}

// Create добавляет тариф автору.
func (s *PricingService) Create(ctx context.Context, option *models.PricingOption) (*models.PricingOption, error) {
	if err := validatePricing(option); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, option); err != nil {
		return nil, err
	}
	return option, nil
}

// Update изменяет тариф автора. Изменение цены не влияет на уже
// открытые заявки: они держат снимок на момент создания.
func (s *PricingService) Update(ctx context.Context, option *models.PricingOption) (*models.PricingOption, error) {
	if err := validatePricing(option); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, option); err != nil {
		if errors.Is(err, repository.ErrPricingOptionNotFound) {
			return nil, apperror.ErrPricingOptionNotFound
		}
		return nil, err
	}
	return option, nil
}

// Delete удаляет тариф автора.
func (s *PricingService) Delete(ctx context.Context, id, creatorID uuid.UUID) error {
	if err := s.repo.Delete(ctx, id, creatorID); err != nil {
		if errors.Is(err, repository.ErrPricingOptionNotFound) {
			return apperror.ErrPricingOptionNotFound
		}
		return err
	}
	return nil
}

// Get возвращает тариф по идентификатору.
func (s *PricingService) Get(ctx context.Context, id uuid.UUID) (*models.PricingOption, error) {
	option, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPricingOptionNotFound) {
			return nil, apperror.ErrPricingOptionNotFound
		}
		return nil, err
	}
	return option, nil
}

// ListByCreator возвращает тарифы автора. Посетители видят только
// активные, сам автор — все.
func (s *PricingService) ListByCreator(ctx context.Context, creatorID uuid.UUID, includeInactive bool) ([]models.PricingOption, error) {
	return s.repo.ListByCreator(ctx, creatorID, !includeInactive)
}

func validatePricing(option *models.PricingOption) error {
	if option.Title == "" {
		return apperror.New(apperror.ErrCodeValidation, "название тарифа обязательно")
	}
	if option.Price <= 0 {
		return apperror.New(apperror.ErrCodeValidation, "цена должна быть положительной")
	}
	if option.Category != "" {
		if _, ok := models.ValidPricingCategories[option.Category]; !ok {
			return apperror.New(apperror.ErrCodeValidation, "неизвестная категория тарифа")
		}
	}
	return nil
}
