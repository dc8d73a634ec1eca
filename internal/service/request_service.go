package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/goroutine"
	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
	"github.com/davidmcguire/audio-app/internal/repository"
)

// RequestRepo описывает взаимодействие сервиса с хранилищем заявок.
type RequestRepo interface {
	Create(ctx context.Context, req *models.AudioRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) error
	Accept(ctx context.Context, id uuid.UUID, expectedDelivery *time.Time) error
	Deliver(ctx context.Context, req *models.AudioRequest, reviewDeadline time.Time) error
	ClaimForRelease(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, from models.RequestStatus, completedAt time.Time) error
	Reject(ctx context.Context, id uuid.UUID, reason string) error
	OpenDispute(ctx context.Context, id uuid.UUID, reason string) error
	Cancel(ctx context.Context, id uuid.UUID, from models.RequestStatus, cancelledAt time.Time) error
	ListByCreator(ctx context.Context, creatorID uuid.UUID, status models.RequestStatus) ([]models.AudioRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.AudioRequest, error)
}

// PricingGetter возвращает тариф для снимка цены.
type PricingGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.PricingOption, error)
}

// ProfileGetter возвращает профиль с платёжными реквизитами.
type ProfileGetter interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// PaymentOrchestrator описывает платёжные операции, нужные заявкам.
type PaymentOrchestrator interface {
	Authorize(ctx context.Context, method models.PaymentMethod, amount float64, requestID string) (*gateway.Authorization, error)
	Release(ctx context.Context, req *models.AudioRequest, destination string) (*models.Payment, error)
	CancelAuthorization(ctx context.Context, req *models.AudioRequest) error
}

// EventNotifier рассылает события жизненного цикла заявки.
type EventNotifier interface {
	NotifyRequestEvent(ctx context.Context, event string, req *models.AudioRequest)
}

// CreateRequestInput — параметры новой заявки. RequesterID пуст для
// гостевой заявки, тогда обязательны email и имя.
type CreateRequestInput struct {
	RequesterID     *uuid.UUID
	RequesterEmail  *string
	RequesterName   string
	CreatorID       uuid.UUID
	PricingOptionID uuid.UUID
	PaymentMethod   models.PaymentMethod
	RequestDetails  string
	Occasion        *string
	ForWhom         *string
	Pronunciation   *string
	IsPublic        bool
}

// DeliverInput — метаданные готовой записи.
type DeliverInput struct {
	AudioURL      string
	AudioDuration *float64
	AudioFileSize *int64
	AudioFileName *string
}

// RequestService реализует жизненный цикл аудио-заявки: от создания
// с резервированием оплаты до выпуска средств автору или отмены.
type RequestService struct {
	repo         RequestRepo
	pricing      PricingGetter
	profiles     ProfileGetter
	payments     PaymentOrchestrator
	notifier     EventNotifier
	reviewWindow time.Duration
	now          func() time.Time
}

// NewRequestService создаёт сервис заявок.
func NewRequestService(repo RequestRepo, pricing PricingGetter, profiles ProfileGetter, payments PaymentOrchestrator, notifier EventNotifier, reviewWindow time.Duration) *RequestService {
	return &RequestService{
		repo:         repo,
		pricing:      pricing,
		profiles:     profiles,
		payments:     payments,
		notifier:     notifier,
		reviewWindow: reviewWindow,
		now:          time.Now,
	}
}

// SetClock подменяет источник времени в тестах.
func (s *RequestService) SetClock(now func() time.Time) {
	s.now = now
}

// Create создаёт заявку со снимком тарифа и резервирует оплату.
// Возвращает заявку и данные для подтверждения платежа на фронтенде.
func (s *RequestService) Create(ctx context.Context, input CreateRequestInput) (*models.AudioRequest, *gateway.Authorization, error) {
	if _, ok := models.ValidPaymentMethods[input.PaymentMethod]; !ok {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "неизвестный платёжный метод")
	}
	if input.RequesterID == nil && (input.RequesterEmail == nil || *input.RequesterEmail == "") {
		return nil, nil, apperror.New(apperror.ErrCodeValidation, "для гостевой заявки обязателен email")
	}

	option, err := s.pricing.GetByID(ctx, input.PricingOptionID)
	if err != nil {
		if errors.Is(err, repository.ErrPricingOptionNotFound) {
			return nil, nil, apperror.ErrPricingOptionNotFound
		}
		return nil, nil, err
	}
	if !option.IsActive || option.CreatorID != input.CreatorID {
		return nil, nil, apperror.ErrPricingOptionNotFound
	}

	profile, err := s.profiles.GetProfile(ctx, input.CreatorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, apperror.ErrUserNotFound
		}
		return nil, nil, err
	}
	if !profile.AcceptsRequests {
		return nil, nil, apperror.New(apperror.ErrCodeConflict, "автор сейчас не принимает заявки")
	}

	req := &models.AudioRequest{
		ID:              uuid.New(),
		RequesterID:     input.RequesterID,
		RequesterEmail:  input.RequesterEmail,
		RequesterName:   input.RequesterName,
		CreatorID:       input.CreatorID,
		PricingOptionID: option.ID,
		PricingTitle:    option.Title,
		PricingPrice:    option.Price,
		PricingType:     option.Type,
		RequestDetails:  input.RequestDetails,
		Occasion:        input.Occasion,
		ForWhom:         input.ForWhom,
		Pronunciation:   input.Pronunciation,
		IsPublic:        input.IsPublic,
		Status:          models.RequestStatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   models.PaymentStatusPending,
	}
	// Сначала резерв в шлюзе, потом строка в базе: если резерв не
	// встал, заявки не существует вовсе.
	auth, err := s.payments.Authorize(ctx, req.PaymentMethod, req.PricingPrice, req.ID.String())
	if err != nil {
		return nil, nil, err
	}
	req.Status = models.RequestStatusPaymentAuthorized
	req.PaymentIntentID = auth.IntentID

	if err := s.repo.Create(ctx, req); err != nil {
		// Строку сохранить не удалось, резерв надо снять, иначе
		// деньги останутся замороженными без заявки.
		if cancelErr := s.payments.CancelAuthorization(ctx, req); cancelErr != nil {
			logger.Log.WithError(cancelErr).WithField("request_id", req.ID).Error("Не удалось снять резерв несохранённой заявки")
		}
		return nil, nil, err
	}

	s.notifyAsync("request.created", req)
	return req, auth, nil
}

// Accept принимает заявку от лица автора.
func (s *RequestService) Accept(ctx context.Context, requestID, creatorID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.getOwnedByCreator(ctx, requestID, creatorID)
	if err != nil {
		return nil, err
	}

	var expected *time.Time
	if option, err := s.pricing.GetByID(ctx, req.PricingOptionID); err == nil && option.DeliveryTime > 0 {
		t := s.now().AddDate(0, 0, option.DeliveryTime)
		expected = &t
	}

	if err := s.repo.Accept(ctx, requestID, expected); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "accept")
	}
	req.Status = models.RequestStatusAccepted
	req.ExpectedDeliveryDate = expected

	s.notifyAsync("request.accepted", req)
	return req, nil
}

// Start переводит принятую заявку в работу.
func (s *RequestService) Start(ctx context.Context, requestID, creatorID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.getOwnedByCreator(ctx, requestID, creatorID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, requestID, models.RequestStatusAccepted, models.RequestStatusInProgress); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "start")
	}
	req.Status = models.RequestStatusInProgress
	return req, nil
}

// Deliver сдаёт запись на проверку. Первая сдача идёт из in_progress,
// повторная — из rejected, пока не исчерпан лимит доработок.
func (s *RequestService) Deliver(ctx context.Context, requestID, creatorID uuid.UUID, input DeliverInput) (*models.AudioRequest, error) {
	req, err := s.getOwnedByCreator(ctx, requestID, creatorID)
	if err != nil {
		return nil, err
	}
	if input.AudioURL == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "ссылка на запись обязательна")
	}

	switch req.Status {
	case models.RequestStatusInProgress:
	case models.RequestStatusRejected:
		if !req.CanBeRevised() {
			return nil, apperror.New(apperror.ErrCodeConflict, "лимит доработок исчерпан")
		}
	default:
		return nil, apperror.InvalidTransition(string(req.Status), "deliver")
	}

	req.AudioURL = &input.AudioURL
	req.AudioDuration = input.AudioDuration
	req.AudioFileSize = input.AudioFileSize
	req.AudioFileName = input.AudioFileName

	deadline := s.now().Add(s.reviewWindow)
	if err := s.repo.Deliver(ctx, req, deadline); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "deliver")
	}

	s.notifyAsync("request.ready", req)
	return req, nil
}

// Approve принимает работу от лица заявителя и выпускает средства.
func (s *RequestService) Approve(ctx context.Context, requestID, userID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.getForRequester(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	return s.release(ctx, req, "request.approved")
}

// AutoRelease выпускает средства по заявке с истёкшим сроком проверки.
// Вызывается планировщиком, проверка владельца не нужна.
func (s *RequestService) AutoRelease(ctx context.Context, req *models.AudioRequest) (*models.AudioRequest, error) {
	if !req.IsReviewDeadlinePassed(s.now()) {
		return nil, apperror.New(apperror.ErrCodeConflict, "срок проверки ещё не истёк")
	}
	return s.release(ctx, req, "request.auto_released")
}

// release проводит выпуск средств: реквизиты, захват заявки, списание
// и выплата, закрытие. Захват (ready_for_review -> approved) — точка
// взаимного исключения: до шлюза доходит ровно один вызов.
func (s *RequestService) release(ctx context.Context, req *models.AudioRequest, event string) (*models.AudioRequest, error) {
	profile, err := s.profiles.GetProfile(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	destination := profile.PayoutAccount(req.PaymentMethod)
	if destination == "" {
		// Заявка остаётся в ready_for_review: выпуск повторят после
		// настройки реквизитов.
		return nil, apperror.ErrPayoutAccountMissing
	}

	if err := s.repo.ClaimForRelease(ctx, req.ID); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "approve")
	}
	req.Status = models.RequestStatusApproved

	if _, err := s.payments.Release(ctx, req, destination); err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Op == "capture" {
			// Списание не прошло, деньги не двигались: возвращаем заявку
			// на проверку, выпуск можно повторить.
			if revertErr := s.repo.UpdateStatus(ctx, req.ID, models.RequestStatusApproved, models.RequestStatusReadyForReview); revertErr != nil {
				logger.Log.WithError(revertErr).WithField("request_id", req.ID).Error("Не удалось вернуть заявку на проверку")
			} else {
				req.Status = models.RequestStatusReadyForReview
			}
		}
		return nil, err
	}

	completedAt := s.now()
	if err := s.repo.Complete(ctx, req.ID, models.RequestStatusApproved, completedAt); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "complete")
	}
	req.Status = models.RequestStatusCompleted
	req.PaymentStatus = models.PaymentStatusPaid
	req.CompletedDate = &completedAt

	s.notifyAsync(event, req)
	return req, nil
}

// Reject запрашивает правки от лица заявителя.
func (s *RequestService) Reject(ctx context.Context, requestID, userID uuid.UUID, reason string) (*models.AudioRequest, error) {
	req, err := s.getForRequester(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина правок обязательна")
	}
	if req.RevisionCount >= models.MaxRevisions {
		return nil, apperror.New(apperror.ErrCodeConflict, "лимит доработок исчерпан: примите работу или откройте спор")
	}

	if err := s.repo.Reject(ctx, requestID, reason); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "reject")
	}
	req.Status = models.RequestStatusRejected
	req.RejectionReason = &reason
	req.RevisionCount++

	s.notifyAsync("request.rejected", req)
	return req, nil
}

// Dispute открывает спор от лица заявителя. Спор возможен только до
// истечения срока проверки.
func (s *RequestService) Dispute(ctx context.Context, requestID, userID uuid.UUID, reason string) (*models.AudioRequest, error) {
	req, err := s.getForRequester(ctx, requestID, userID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "причина спора обязательна")
	}
	if !req.CanBeDisputed(s.now()) {
		return nil, apperror.InvalidTransition(string(req.Status), "dispute")
	}

	if err := s.repo.OpenDispute(ctx, requestID, reason); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "dispute")
	}
	req.Status = models.RequestStatusDisputed
	req.DisputeReason = &reason
	pending := models.DisputeStatusPending
	req.DisputeStatus = &pending

	s.notifyAsync("request.disputed", req)
	return req, nil
}

// Cancel отменяет заявку. Доступно обеим сторонам, пока средства не
// списаны; резерв на шлюзе снимается.
func (s *RequestService) Cancel(ctx context.Context, requestID, userID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if !req.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	if !req.Status.CanTransitionTo(models.RequestStatusCancelled) {
		return nil, apperror.InvalidTransition(string(req.Status), "cancel")
	}

	if err := s.payments.CancelAuthorization(ctx, req); err != nil {
		return nil, err
	}

	cancelledAt := s.now()
	if err := s.repo.Cancel(ctx, requestID, req.Status, cancelledAt); err != nil {
		return nil, s.mapStatusErr(err, req.Status, "cancel")
	}
	req.Status = models.RequestStatusCancelled
	req.PaymentStatus = models.PaymentStatusRefunded
	req.CancelledAt = &cancelledAt

	s.notifyAsync("request.cancelled", req)
	return req, nil
}

// Get возвращает заявку для её участника.
func (s *RequestService) Get(ctx context.Context, requestID, userID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if !req.IsParticipant(userID) {
		return nil, apperror.ErrForbidden
	}
	return req, nil
}

// ListForCreator возвращает заявки автора, опционально по статусу.
func (s *RequestService) ListForCreator(ctx context.Context, creatorID uuid.UUID, status models.RequestStatus) ([]models.AudioRequest, error) {
	if status != "" {
		if _, ok := models.ValidRequestStatuses[status]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный статус")
		}
	}
	return s.repo.ListByCreator(ctx, creatorID, status)
}

// ListForRequester возвращает заявки пользователя-заявителя.
func (s *RequestService) ListForRequester(ctx context.Context, requesterID uuid.UUID) ([]models.AudioRequest, error) {
	return s.repo.ListByRequester(ctx, requesterID)
}

func (s *RequestService) getOwnedByCreator(ctx context.Context, requestID, creatorID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if req.CreatorID != creatorID {
		return nil, apperror.ErrForbidden
	}
	return req, nil
}

func (s *RequestService) getForRequester(ctx context.Context, requestID, userID uuid.UUID) (*models.AudioRequest, error) {
	req, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, s.mapNotFound(err)
	}
	if !req.IsRequester(userID) {
		return nil, apperror.ErrForbidden
	}
	return req, nil
}

func (s *RequestService) mapNotFound(err error) error {
	if errors.Is(err, repository.ErrRequestNotFound) {
		return apperror.ErrRequestNotFound
	}
	return err
}

func (s *RequestService) mapStatusErr(err error, current models.RequestStatus, action string) error {
	if errors.Is(err, repository.ErrStaleStatus) {
		return apperror.InvalidTransition(string(current), action)
	}
	if errors.Is(err, repository.ErrRequestNotFound) {
		return apperror.ErrRequestNotFound
	}
	return err
}

func (s *RequestService) notifyAsync(event string, req *models.AudioRequest) {
	if s.notifier == nil {
		return
	}
	snapshot := *req
	goroutine.SafeGo(func() {
		s.notifier.NotifyRequestEvent(context.Background(), event, &snapshot)
	})
}
