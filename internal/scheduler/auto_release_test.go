package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
)

type mockDueLister struct {
	mock.Mock
}

func (m *mockDueLister) ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]models.AudioRequest, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AudioRequest), args.Error(1)
}

type mockReleaser struct {
	mock.Mock
}

func (m *mockReleaser) AutoRelease(ctx context.Context, req *models.AudioRequest) (*models.AudioRequest, error) {
	args := m.Called(ctx, req.ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AudioRequest), args.Error(1)
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func dueRequest(id uuid.UUID) models.AudioRequest {
	deadline := fixedNow().Add(-time.Hour)
	return models.AudioRequest{
		ID:             id,
		Status:         models.RequestStatusReadyForReview,
		ReviewDeadline: &deadline,
	}
}

func TestAutoRelease_RunOnce_ReleasesDueRequests(t *testing.T) {
	repo := new(mockDueLister)
	releaser := new(mockReleaser)
	sched := New(repo, releaser, time.Hour)
	sched.SetClock(fixedNow)

	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	repo.On("ListDueForAutoRelease", ctx, fixedNow(), 100).
		Return([]models.AudioRequest{dueRequest(first), dueRequest(second)}, nil)
	releaser.On("AutoRelease", ctx, first).Return(&models.AudioRequest{ID: first, Status: models.RequestStatusCompleted}, nil)
	releaser.On("AutoRelease", ctx, second).Return(&models.AudioRequest{ID: second, Status: models.RequestStatusCompleted}, nil)

	sched.RunOnce(ctx)

	repo.AssertExpectations(t)
	releaser.AssertExpectations(t)
}

func TestAutoRelease_RunOnce_PayoutMissingContinues(t *testing.T) {
	repo := new(mockDueLister)
	releaser := new(mockReleaser)
	sched := New(repo, releaser, time.Hour)
	sched.SetClock(fixedNow)

	ctx := context.Background()
	skipped := uuid.New()
	released := uuid.New()

	repo.On("ListDueForAutoRelease", ctx, fixedNow(), 100).
		Return([]models.AudioRequest{dueRequest(skipped), dueRequest(released)}, nil)
	// Нет реквизитов: заявка остаётся на проверке до следующего прохода.
	releaser.On("AutoRelease", ctx, skipped).Return(nil, apperror.ErrPayoutAccountMissing)
	releaser.On("AutoRelease", ctx, released).Return(&models.AudioRequest{ID: released}, nil)

	sched.RunOnce(ctx)

	releaser.AssertNumberOfCalls(t, "AutoRelease", 2)
}

func TestAutoRelease_RunOnce_LostRaceIsSilent(t *testing.T) {
	repo := new(mockDueLister)
	releaser := new(mockReleaser)
	sched := New(repo, releaser, time.Hour)
	sched.SetClock(fixedNow)

	ctx := context.Background()
	id := uuid.New()

	repo.On("ListDueForAutoRelease", ctx, fixedNow(), 100).
		Return([]models.AudioRequest{dueRequest(id)}, nil)
	// Заявитель принял работу между выборкой и выпуском.
	releaser.On("AutoRelease", ctx, id).Return(nil, apperror.InvalidTransition("completed", "approve"))

	sched.RunOnce(ctx)

	releaser.AssertExpectations(t)
}

func TestAutoRelease_RunOnce_ListFailure(t *testing.T) {
	repo := new(mockDueLister)
	releaser := new(mockReleaser)
	sched := New(repo, releaser, time.Hour)
	sched.SetClock(fixedNow)

	ctx := context.Background()
	repo.On("ListDueForAutoRelease", ctx, fixedNow(), 100).
		Return(nil, errors.New("db down"))

	sched.RunOnce(ctx)

	releaser.AssertNotCalled(t, "AutoRelease", mock.Anything, mock.Anything)
}

func TestAutoRelease_StopIsIdempotent(t *testing.T) {
	sched := New(new(mockDueLister), new(mockReleaser), time.Hour)

	sched.Stop()
	assert.NotPanics(t, func() { sched.Stop() })
}
