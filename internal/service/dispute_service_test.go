package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
)

type mockDisputeRepo struct {
	mock.Mock
}

func (m *mockDisputeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.AudioRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AudioRequest), args.Error(1)
}

func (m *mockDisputeRepo) ResolveDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus, resolution string, resolvedAt time.Time) error {
	args := m.Called(ctx, id, outcome, resolution, resolvedAt)
	return args.Error(0)
}

func (m *mockDisputeRepo) ReopenDispute(ctx context.Context, id uuid.UUID, outcome models.DisputeStatus) error {
	args := m.Called(ctx, id, outcome)
	return args.Error(0)
}

func (m *mockDisputeRepo) Complete(ctx context.Context, id uuid.UUID, from models.RequestStatus, completedAt time.Time) error {
	args := m.Called(ctx, id, from, completedAt)
	return args.Error(0)
}

func (m *mockDisputeRepo) ListDisputes(ctx context.Context, status models.DisputeStatus) ([]models.AudioRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]models.AudioRequest), args.Error(1)
}

func (m *mockDisputeRepo) CountByStatus(ctx context.Context) (map[models.RequestStatus]int, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[models.RequestStatus]int), args.Error(1)
}

type mockRevenueRepo struct {
	mock.Mock
}

func (m *mockRevenueRepo) GetRevenueTotals(ctx context.Context, from, to time.Time) (*models.RevenueTotals, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RevenueTotals), args.Error(1)
}

func (m *mockRevenueRepo) GetRevenueByMethod(ctx context.Context) ([]models.RevenueByMethod, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.RevenueByMethod), args.Error(1)
}

func (m *mockRevenueRepo) GetDailyRevenue(ctx context.Context, days int) ([]models.DailyRevenue, error) {
	args := m.Called(ctx, days)
	return args.Get(0).([]models.DailyRevenue), args.Error(1)
}

func newDisputeService(repo *mockDisputeRepo, revenue *mockRevenueRepo, profiles *mockProfileGetter, payments *mockPaymentOrchestrator) *DisputeService {
	svc := NewDisputeService(repo, revenue, profiles, payments, nil)
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func disputedRequest(requestID, creatorID uuid.UUID, disputeStatus models.DisputeStatus) *models.AudioRequest {
	reason := "запись не о том"
	return &models.AudioRequest{
		ID:              requestID,
		CreatorID:       creatorID,
		PricingPrice:    100,
		Status:          models.RequestStatusDisputed,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
		DisputeReason:   &reason,
		DisputeStatus:   &disputeStatus,
	}
}

func TestDisputeService_Resolve_PaysCreator(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(disputedRequest(requestID, creatorID, models.DisputeStatusPending), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ResolveDispute", ctx, requestID, models.DisputeStatusResolved, "претензия обоснована", mock.AnythingOfType("time.Time")).Return(nil)
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").
		Return(&models.Payment{CreatorAmount: 90, PlatformFee: 10}, nil)
	repo.On("Complete", ctx, requestID, models.RequestStatusDisputed, mock.AnythingOfType("time.Time")).Return(nil)

	req, err := svc.Resolve(ctx, requestID, "претензия обоснована")

	assert.NoError(t, err)
	assert.Equal(t, models.RequestStatusCompleted, req.Status)
	assert.Equal(t, models.DisputeStatusResolved, *req.DisputeStatus)
	assert.Equal(t, "претензия обоснована", *req.DisputeResolution)
	repo.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestDisputeService_RejectDispute_AlsoPaysCreator(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(disputedRequest(requestID, creatorID, models.DisputeStatusPending), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ResolveDispute", ctx, requestID, models.DisputeStatusRejected, "запись соответствует заявке", mock.AnythingOfType("time.Time")).Return(nil)
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").
		Return(&models.Payment{CreatorAmount: 90, PlatformFee: 10}, nil)
	repo.On("Complete", ctx, requestID, models.RequestStatusDisputed, mock.AnythingOfType("time.Time")).Return(nil)

	req, err := svc.RejectDispute(ctx, requestID, "запись соответствует заявке")

	assert.NoError(t, err)
	assert.Equal(t, models.DisputeStatusRejected, *req.DisputeStatus)
	assert.Equal(t, models.PaymentStatusPaid, req.PaymentStatus)
	payments.AssertExpectations(t)
}

func TestDisputeService_Resolve_CaptureFails_ReopensDispute(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(disputedRequest(requestID, creatorID, models.DisputeStatusPending), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(stripePayout(), nil)
	repo.On("ResolveDispute", ctx, requestID, models.DisputeStatusResolved, "претензия обоснована", mock.AnythingOfType("time.Time")).Return(nil)
	captureErr := apperror.Wrap(&gateway.Error{Op: "capture", StatusCode: 402, Message: "карта отклонена"},
		apperror.ErrCodeGateway, "не удалось списать оплату")
	payments.On("Release", ctx, mock.AnythingOfType("*models.AudioRequest"), "acct_123").Return(nil, captureErr)
	repo.On("ReopenDispute", ctx, requestID, models.DisputeStatusResolved).Return(nil)

	req, err := svc.Resolve(ctx, requestID, "претензия обоснована")

	assert.Error(t, err)
	assert.Nil(t, req)
	// Деньги не двигались: решение снято, спор снова pending и
	// администратор может рассмотреть его повторно.
	repo.AssertCalled(t, "ReopenDispute", ctx, requestID, models.DisputeStatusResolved)
	repo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_AlreadyAdjudicated(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(disputedRequest(requestID, uuid.New(), models.DisputeStatusResolved), nil)

	_, err := svc.Resolve(ctx, requestID, "повторное решение")

	assert.ErrorIs(t, err, apperror.ErrDisputeNotPending)
	payments.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Resolve_NoDispute(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(&models.AudioRequest{
		ID:     requestID,
		Status: models.RequestStatusReadyForReview,
	}, nil)

	_, err := svc.Resolve(ctx, requestID, "решение")

	assert.ErrorIs(t, err, apperror.ErrDisputeNotFound)
}

func TestDisputeService_Resolve_PayoutMissing(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	requestID := uuid.New()
	creatorID := uuid.New()

	repo.On("GetByID", ctx, requestID).Return(disputedRequest(requestID, creatorID, models.DisputeStatusPending), nil)
	profiles.On("GetProfile", ctx, creatorID).Return(&models.Profile{AcceptsRequests: true}, nil)

	_, err := svc.Resolve(ctx, requestID, "решение")

	assert.ErrorIs(t, err, apperror.ErrPayoutAccountMissing)
	// Спор остаётся pending до настройки реквизитов.
	repo.AssertNotCalled(t, "ResolveDispute", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDisputeService_Stats(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	pending := models.DisputeStatusPending
	resolved := models.DisputeStatusResolved

	repo.On("CountByStatus", ctx).Return(map[models.RequestStatus]int{
		models.RequestStatusCompleted: 7,
		models.RequestStatusDisputed:  2,
	}, nil)
	repo.On("ListDisputes", ctx, models.DisputeStatus("")).Return([]models.AudioRequest{
		{DisputeStatus: &pending},
		{DisputeStatus: &pending},
		{DisputeStatus: &resolved},
	}, nil)
	revenue.On("GetRevenueTotals", ctx, time.Time{}, time.Time{}).
		Return(&models.RevenueTotals{TotalPlatformFee: 123.45}, nil)

	stats, err := svc.Stats(ctx)

	assert.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDisputes)
	assert.Equal(t, 2, stats.PendingDisputes)
	assert.Equal(t, 9, stats.TotalRequests)
	assert.Equal(t, 123.45, stats.TotalRevenue)
}

func TestDisputeService_Revenue(t *testing.T) {
	repo := new(mockDisputeRepo)
	revenue := new(mockRevenueRepo)
	profiles := new(mockProfileGetter)
	payments := new(mockPaymentOrchestrator)
	svc := newDisputeService(repo, revenue, profiles, payments)

	ctx := context.Background()
	revenue.On("GetRevenueTotals", ctx, time.Time{}, time.Time{}).
		Return(&models.RevenueTotals{TotalPlatformFee: 10}, nil)
	revenue.On("GetRevenueByMethod", ctx).Return([]models.RevenueByMethod{
		{PaymentMethod: models.PaymentMethodStripe, TotalPlatformFee: 10},
	}, nil)
	revenue.On("GetDailyRevenue", ctx, 30).Return([]models.DailyRevenue{}, nil)

	totals, byMethod, daily, err := svc.Revenue(ctx, 30)

	assert.NoError(t, err)
	assert.Equal(t, float64(10), totals.TotalPlatformFee)
	assert.Len(t, byMethod, 1)
	assert.Empty(t, daily)
	revenue.AssertExpectations(t)
}
