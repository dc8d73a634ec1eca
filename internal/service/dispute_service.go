package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
	"github.com/davidmcguire/audio-app/internal/repository"
)

// DisputeRequestRepo описывает операции хранилища, нужные для
// рассмотрения споров и админских отчётов.
type DisputeRequestRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRequest, error)
	ResolveDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus, resolution string, resolvedAt time.Time) error
	ReopenDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus) error
	Complete(ctx context.Context, id uuid.UUID, from models.RequestStatus, completedAt time.Time) error
	ListDisputes(ctx context.Context, status models.DisputeStatus) ([]models.AudioRequest, error)
	CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error)
}

// DisputePaymentOrchestrator выпускает средства по решению спора.
type DisputePaymentOrchestrator interface {
	Release(ctx context.Context, req *models.AudioRequest, destination string) (*models.Payment, error)
}

// RevenueRepo поставляет отчёты по выручке для админки.
type RevenueRepo interface {
	GetRevenueTotals(ctx context.Context, from, to time.Time) (*models.RevenueTotals, error)
	GetRevenueByMethod(ctx context.Context) ([]models.RevenueByMethod, error)
	GetDailyRevenue(ctx context.Context, days int) ([]models.DailyRevenue, error)
}

// DisputeService — админское рассмотрение споров и отчёты.
// Любой исход спора (решён или отклонён) выпускает средства автору:
// заявитель получил запись, автор выполнил работу.
type DisputeService struct {
	repo     DisputeRequestRepo
	revenue  RevenueRepo
	profiles ProfileGetter
	payments DisputePaymentOrchestrator
	notifier EventNotifier
	now      func() time.Time
}

// NewDisputeService создаёт сервис споров.
func NewDisputeService(repo DisputeRequestRepo, revenue RevenueRepo, profiles ProfileGetter, payments DisputePaymentOrchestrator, notifier EventNotifier) *DisputeService {
	return &DisputeService{
		repo:     repo,
		revenue:  revenue,
		profiles: profiles,
		payments: payments,
		notifier: notifier,
		now:      time.Now,
	}
}

// SetClock подменяет источник времени в тестах.
func (s *DisputeService) SetClock(now func() time.Time) {
	s.now = now
}

// Resolve закрывает спор в пользу заявителя (претензия признана).
func (s *DisputeService) Resolve(ctx context.Context, requestID uuid.UUID, resolution string) (*models.AudioRequest, error) {
	return s.adjudicate(ctx, requestID, models.DisputeStatusResolved, resolution, "dispute.resolved")
}

// RejectDispute закрывает спор в пользу автора (претензия отклонена).
func (s *DisputeService) RejectDispute(ctx context.Context, requestID uuid.UUID, resolution string) (*models.AudioRequest, error) {
	return s.adjudicate(ctx, requestID, models.DisputeStatusRejected, resolution, "dispute.rejected")
}

// adjudicate — общий путь решения спора: ровно одно решение на спор
// (условие на dispute_status = pending), затем выпуск средств и
// закрытие заявки.
func (s *DisputeService) adjudicate(ctx context.Context, requestID uuid.UUID, outcome models.DisputeStatus, resolution, event string) (*models.AudioRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return nil, apperror.ErrRequestNotFound
		}
		return nil, err
	}
	if !req.HasDispute() {
		return nil, apperror.ErrDisputeNotFound
	}
	if *req.DisputeStatus != models.DisputeStatusPending {
		return nil, apperror.ErrDisputeNotPending
	}

	profile, err := s.profiles.GetProfile(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	destination := profile.PayoutAccount(req.PaymentMethod)
	if destination == "" {
		return nil, apperror.ErrPayoutAccountMissing
	}

	resolvedAt := s.now()
	if err := s.repo.ResolveDispute(ctx, requestID, outcome, resolution, resolvedAt); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperror.ErrDisputeNotPending
		}
		return nil, err
	}
	req.DisputeStatus = &outcome
	req.DisputeResolution = &resolution
	req.DisputeResolvedAt = &resolvedAt

	if _, err := s.payments.Release(ctx, req, destination); err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Op == "capture" {
			// Списание не прошло, деньги не двигались: снимаем решение,
			// спор снова pending и его можно рассмотреть повторно.
			if revertErr := s.repo.ReopenDispute(ctx, requestID, outcome); revertErr != nil {
				logger.Log.WithError(revertErr).WithField("request_id", requestID).Error("Не удалось вернуть спор на рассмотрение")
			} else {
				pending := models.DisputeStatusPending
				req.DisputeStatus = &pending
				req.DisputeResolution = nil
				req.DisputeResolvedAt = nil
			}
		}
		return nil, err
	}

	completedAt := s.now()
	if err := s.repo.Complete(ctx, requestID, models.RequestStatusDisputed, completedAt); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperror.InvalidTransition(string(req.Status), "complete")
		}
		return nil, err
	}
	req.Status = models.RequestStatusCompleted
	req.PaymentStatus = models.PaymentStatusPaid
	req.CompletedDate = &completedAt

	if s.notifier != nil {
		s.notifier.NotifyRequestEvent(ctx, event, req)
	}
	return req, nil
}

// ListDisputes возвращает заявки со спорами, опционально по статусу.
func (s *DisputeService) ListDisputes(ctx context.Context, status models.DisputeStatus) ([]models.AudioRequest, error) {
	return s.repo.ListDisputes(ctx, status)
}

// Stats собирает сводку для админской панели.
func (s *DisputeService) Stats(ctx context.Context) (*models.AdminStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}

	disputes, err := s.repo.ListDisputes(ctx, "")
	if err != nil {
		return nil, err
	}
	pending := 0
	for _, d := range disputes {
		if d.DisputeStatus != nil && *d.DisputeStatus == models.DisputeStatusPending {
			pending++
		}
	}

	totals, err := s.revenue.GetRevenueTotals(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}

	return &models.AdminStats{
		TotalDisputes:   len(disputes),
		PendingDisputes: pending,
		TotalRequests:   total,
		TotalRevenue:    totals.TotalPlatformFee,
	}, nil
}

// Revenue возвращает отчёт по выручке: сводка, разрез по методам,
// динамика по дням.
func (s *DisputeService) Revenue(ctx context.Context, days int) (*models.RevenueTotals, []models.RevenueByMethod, []models.DailyRevenue, error) {
	totals, err := s.revenue.GetRevenueTotals(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, nil, nil, err
	}
	byMethod, err := s.revenue.GetRevenueByMethod(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	daily, err := s.revenue.GetDailyRevenue(ctx, days)
	if err != nil {
		return nil, nil, nil, err
	}
	return totals, byMethod, daily, nil
}
