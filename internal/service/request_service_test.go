package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
	"github.com/davidmcguire/audio-app/internal/repository"
)

type mockRequestRepo struct {
	mock.Mock
}

func (m *mockRequestRepo) Create(ctx context.Context, req *models.AudioRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AudioRequest), args.Error(1)
}

func (m *mockRequestRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.RequestStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockRequestRepo) Accept(ctx context.Context, id uuid.UUID, expectedDelivery *time.Time) error {
	args := m.Called(ctx, id, expectedDelivery)
	return args.Error(0)
}

func (m *mockRequestRepo) Deliver(ctx context.Context, req *models.AudioRequest, reviewDeadline time.Time) error {
	args := m.Called(ctx, req, reviewDeadline)
	return args.Error(0)
}

func (m *mockRequestRepo) ClaimForRelease(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRequestRepo) Complete(ctx context.Context, id uuid.UUID, from models.RequestStatus, completedAt time.Time) error {
	args := m.Called(ctx, id, from, completedAt)
	return args.Error(0)
}

func (m *mockRequestRepo) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockRequestRepo) OpenDispute(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *mockRequestRepo) Cancel(ctx context.Context, id uuid.UUID, from models.RequestStatus, cancelledAt time.Time) error {
	args := m.Called(ctx, id, from, cancelledAt)
	return args.Error(0)
}

func (m *mockRequestRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID, status models.RequestStatus) ([]models.AudioRequest, error) {
	args := m.Called(ctx, creatorID, status)
	return args.Get(0).([]models.AudioRequest), args.Error(1)
}

func (m *mockRequestRepo) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.AudioRequest, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]models.AudioRequest), args.Error(1)
}

type mockPricingGetter struct {
	mock.Mock
}

func (m *mockPricingGetter) GetByID(ctx context.Context, id uuid.UUID) (*models.PricingOption, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PricingOption), args.Error(1)
}

type mockProfileGetter struct {
	mock.Mock
}

func (m *mockProfileGetter) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

type mockPaymentOrchestrator struct {
	mock.Mock
}

func (m *mockPaymentOrchestrator) Authorize(ctx context.Context, method models.PaymentMethod, amount float64, requestID string) (*gateway.Authorization, error) {
	args := m.Called(ctx, method, amount, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Authorization), args.Error(1)
}

func (m *mockPaymentOrchestrator) Release(ctx context.Context, req *models.AudioRequest, destination string) (*models.Payment, error) {
	args := m.Called(ctx, req, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockPaymentOrchestrator) CancelAuthorization(ctx context.Context, req *models.AudioRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func newRequestService(repo *mockRequestRepo, pricing *mockPricingGetter, profiles *mockProfileGetter, payments *mockPaymentOrchestrator) *RequestService {
	svc := NewRequestService(repo, pricing, profiles, payments, nil, 48*time.Hour)
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func stripePayout() *models.Profile {
	acct := "acct_123"
	return &models.Profile{AcceptsRequests: true, StripeAccountID: &acct}
}

func TestRequestService_Create_Success(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	optionID := uuid.New()
	requesterID := uuid.New()

	pricing.On("GetByID", ctx, optionID).Return(&models.PricingOption{
		ID:        optionID,
		CreatorID: creatorID,
		Title:     "Поздравление",
		Price:     50,
		Type:      models.PricingTypePersonal,
		IsActive:  true,
	}, nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	payments.On("Authorize", ctx, models.PaymentMethodStripe, float64(50), mock.AnythingOfType("string")).
		Return(&gateway.Authorization{IntentID: "pi_1", ClientSecret: "secret"}, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(req *models.AudioRequest) bool {
		// К моменту вставки заявка уже несёт резерв шлюза.
		return req.Status == models.RequestStatusPaymentAuthorized && req.PaymentIntentID == "pi_1"
	})).Return(nil)

	req, auth, err := svc.Create(ctx, CreateRequestInput{
		RequesterID:     &requesterID,
		RequesterName:   "Иван",
		CreatorID:       creatorID,
		PricingOptionID: optionID,
		PaymentMethod:   models.PaymentMethodStripe,
		RequestDetails:  "Поздравьте брата с юбилеем",
	})

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, req.ID)
	assert.Equal(t, models.RequestStatusPaymentAuthorized, req.Status)
	assert.Equal(t, "pi_1", req.PaymentIntentID)
	assert.Equal(t, "Поздравление", req.PricingTitle)
	assert.Equal(t, float64(50), req.PricingPrice)
	assert.Equal(t, "secret", auth.ClientSecret)
	repo.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestRequestService_Create_AuthorizeFails_NothingPersisted(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	optionID := uuid.New()
	email := "guest@example.com"

	pricing.On("GetByID", ctx, optionID).Return(&models.PricingOption{
		ID: optionID, CreatorID: creatorID, Price: 25, IsActive: true,
	}, nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	payments.On("Authorize", ctx, models.PaymentMethodStripe, float64(25), mock.AnythingOfType("string")).
		Return(nil, apperror.New(apperror.ErrCodeGateway, "карта отклонена"))

	_, _, err := svc.Create(ctx, CreateRequestInput{
		RequesterEmail:  &email,
		RequesterName:   "Гость",
		CreatorID:       creatorID,
		PricingOptionID: optionID,
		PaymentMethod:   models.PaymentMethodStripe,
		RequestDetails:  "Запись для подкаста",
	})

	assert.Error(t, err)
	// Отклонённый резерв не должен оставлять в базе даже отменённой
	// заявки: заказчик её больше не увидит в своём списке.
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Create_InsertFails_ReleasesHold(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	optionID := uuid.New()
	requesterID := uuid.New()

	pricing.On("GetByID", ctx, optionID).Return(&models.PricingOption{
		ID: optionID, CreatorID: creatorID, Price: 40, IsActive: true,
	}, nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	payments.On("Authorize", ctx, models.PaymentMethodStripe, float64(40), mock.AnythingOfType("string")).
		Return(&gateway.Authorization{IntentID: "pi_2"}, nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.AudioRequest")).
		Return(errors.New("insert failed"))
	payments.On("CancelAuthorization", ctx, mock.MatchedBy(func(req *models.AudioRequest) bool {
		return req.PaymentIntentID == "pi_2"
	})).Return(nil)

	_, _, err := svc.Create(ctx, CreateRequestInput{
		RequesterID:     &requesterID,
		RequesterName:   "Иван",
		CreatorID:       creatorID,
		PricingOptionID: optionID,
		PaymentMethod:   models.PaymentMethodStripe,
		RequestDetails:  "Запись для подкаста",
	})

	assert.Error(t, err)
	payments.AssertExpectations(t)
}

func TestRequestService_Create_InactivePricing(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	optionID := uuid.New()
	requesterID := uuid.New()

	pricing.On("GetByID", ctx, optionID).Return(&models.PricingOption{
		ID: optionID, CreatorID: creatorID, Price: 25, IsActive: false,
	}, nil)

	_, _, err := svc.Create(ctx, CreateRequestInput{
		RequesterID:     &requesterID,
		RequesterName:   "Иван",
		CreatorID:       creatorID,
		PricingOptionID: optionID,
		PaymentMethod:   models.PaymentMethodStripe,
		RequestDetails:  "Детали",
	})

	assert.ErrorIs(t, err, apperror.ErrPricingOptionNotFound)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestService_Deliver_SetsReviewDeadline(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	requestID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:        requestID,
		CreatorID: creatorID,
		Status:    models.RequestStatusInProgress,
	}, nil)
	wantDeadline := time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC)
	repo.On("Deliver", ctx, mock.AnythingOfType("*models.AudioRequest"), wantDeadline).Return(nil)

	req, err := svc.Deliver(ctx, requestID, creatorID, DeliverInput{AudioURL: "https://cdn.example.com/a.mp3"})

	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.mp3", *req.AudioURL)
	repo.AssertExpectations(t)
}

func TestRequestService_Deliver_RevisionLimitExhausted(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	creatorID := uuid.New()
	requestID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:            requestID,
		CreatorID:     creatorID,
		Status:        models.RequestStatusRejected,
		RevisionCount: models.MaxRevisions,
	}, nil)

	_, err := svc.Deliver(ctx, requestID, creatorID, DeliverInput{AudioURL: "https://cdn.example.com/a.mp3"})

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
}

func releasableRequest(requestID, requesterID, creatorID uuid.UUID, deadline time.Time) *models.AudioRequest {
	return &models.AudioRequest{
		ID:              requestID,
		RequesterID:     &requesterID,
		CreatorID:       creatorID,
		PricingPrice:    100,
		Status:          models.RequestStatusReadyForReview,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
		ReviewDeadline:  &deadline,
	}
}

func TestRequestService_Approve_ReleasesFunds(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	creatorID := uuid.New()
	deadline := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, creatorID, deadline), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ClaimForRelease", ctx, requestID).Return(nil)
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").
		Return(&models.Payment{CreatorAmount: 90, PlatformFee: 10}, nil)
	repo.On("Complete", ctx, requestID, models.RequestStatusApproved, mock.AnythingOfType("time.Time")).Return(nil)

	req, err := svc.Approve(ctx, requestID, requesterID)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, req.Status)
	assert.Equal(t, models.PaymentStatusPaid, req.PaymentStatus)
	assert.NotNil(t, req.CompletedDate)
	repo.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestRequestService_Approve_PayoutMissing_KeepsStatus(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	creatorID := uuid.New()
	deadline := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, creatorID, deadline), nil)
	// Реквизиты не настроены.
	profiles.On("GetProfile", ctx, creatorID).Return(&models.Profile{AcceptsRequests: true}, nil)

	_, err := svc.Approve(ctx, requestID, requesterID)

	assert.ErrorIs(t, err, apperror.ErrPayoutAccountMissing)
	// Заявка не захвачена: статус остаётся ready_for_review.
	repo.AssertNotCalled(t, "ClaimForRelease", mock.Anything, mock.Anything)
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Approve_LostRace(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	creatorID := uuid.New()
	deadline := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, creatorID, deadline), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	// Конкурирующий выпуск уже захватил заявку.
	repo.On("ClaimForRelease", ctx, requestID).Return(repository.ErrStaleStatus)

	_, err := svc.Approve(ctx, requestID, requesterID)

	assert.True(t, apperror.IsInvalidTransition(err))
	// До шлюза второй вызов не дошёл.
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Approve_CaptureFails_RevertsClaim(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	creatorID := uuid.New()
	deadline := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, creatorID, deadline), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ClaimForRelease", ctx, requestID).Return(nil)
	captureErr := apperror.Wrap(&gateway.Error{Op: "capture", StatusCode: 402, Message: "карта отклонена"},
		apperror.ErrCodeGateway, "не удалось списать оплату")
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").Return(nil, captureErr)
	repo.On("UpdateStatus", ctx, requestID, models.RequestStatusApproved, models.RequestStatusReadyForReview).Return(nil)

	req, err := svc.Approve(ctx, requestID, requesterID)

	assert.Error(t, err)
	assert.Nil(t, req)
	// Деньги не двигались: заявка возвращена на проверку и выпуск можно повторить.
	repo.AssertCalled(t, "UpdateStatus", ctx, requestID, models.RequestStatusApproved, models.RequestStatusReadyForReview)
	repo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Approve_TransferFails_StaysApproved(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	creatorID := uuid.New()
	deadline := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, creatorID, deadline), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ClaimForRelease", ctx, requestID).Return(nil)
	transferErr := apperror.Wrap(&gateway.Error{Op: "transfer", StatusCode: 500, Message: "временная ошибка"},
		apperror.ErrCodeGateway, "оплата списана, выплата автору не прошла")
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").Return(nil, transferErr)

	_, err := svc.Approve(ctx, requestID, requesterID)

	assert.Error(t, err)
	// Списание прошло: заявка остаётся в approved для ручной сверки.
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_AutoRelease_DeadlineNotPassed(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	requesterID := uuid.New()
	future := time.Date(2025, 6, 5, 12, 0, 0, 0, time.UTC)
	req := releasableRequest(uuid.New(), requesterID, uuid.New(), future)

	_, err := svc.AutoRelease(context.Background(), req)

	assert.Error(t, err)
	profiles.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestRequestService_Reject_RevisionCap(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:            requestID,
		RequesterID:   &requesterID,
		CreatorID:     uuid.New(),
		Status:        models.RequestStatusReadyForReview,
		RevisionCount: models.MaxRevisions,
	}, nil)

	_, err := svc.Reject(ctx, requestID, requesterID, "не тот тон")

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Reject", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Reject_IncrementsRevision(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:          requestID,
		RequesterID: &requesterID,
		CreatorID:   uuid.New(),
		Status:      models.RequestStatusReadyForReview,
	}, nil)
	repo.On("Reject", ctx, requestID, "слишком быстро").Return(nil)

	req, err := svc.Reject(ctx, requestID, requesterID, "слишком быстро")

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, req.Status)
	assert.Equal(t, 1, req.RevisionCount)
}

func TestRequestService_Dispute_AfterDeadline(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()
	past := time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

	repo.On("GetByID", ctx, requestID).Return(releasableRequest(requestID, requesterID, uuid.New(), past), nil)

	_, err := svc.Dispute(ctx, requestID, requesterID, "запись не о том")

	assert.True(t, apperror.IsInvalidTransition(err))
	repo.AssertNotCalled(t, "OpenDispute", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestService_Cancel_ReleasesAuthorization(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()
	requesterID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:              requestID,
		RequesterID:     &requesterID,
		CreatorID:       creatorID,
		Status:          models.RequestStatusAccepted,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	}, nil)
	payments.On("CancelAuthorization", ctx, mock.AnythingOfType("*models.AudioRequest")).Return(nil)
	repo.On("Cancel", ctx, requestID, models.RequestStatusAccepted, mock.AnythingOfType("time.Time")).Return(nil)

	req, err := svc.Cancel(ctx, requestID, creatorID)

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusCancelled, req.Status)
	assert.Equal(t, models.PaymentStatusRefunded, req.PaymentStatus)
	payments.AssertExpectations(t)
}

func TestRequestService_Cancel_AfterCompletion(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()
	requesterID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:          requestID,
		RequesterID: &requesterID,
		CreatorID:   creatorID,
		Status:      models.RequestStatusCompleted,
	}, nil)

	_, err := svc.Cancel(ctx, requestID, creatorID)

	assert.True(t, apperror.IsInvalidTransition(err))
	payments.AssertNotCalled(t, "CancelAuthorization", mock.Anything, mock.Anything)
}

func TestRequestService_Get_ForbiddenForStranger(t *testing.T) {
	repo := new(mockRequestRepo)
	pricing := new(mockPricingGetter)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newRequestService(repo, pricing, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	requesterID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:          requestID,
		RequesterID: &requesterID,
		CreatorID:   uuid.New(),
	}, nil)

	_, err := svc.Get(ctx, requestID, uuid.New())

	assert.ErrorIs(t, err, apperror.ErrForbidden)
}
