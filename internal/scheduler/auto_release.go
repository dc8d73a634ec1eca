package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/davidmcguire/audio-app/internal/goroutine"
	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
)

// DueLister возвращает заявки с истёкшим сроком проверки.
type DueLister interface {
	ListDueForAutoRelease(ctx context.Context, now time.Time, limit int) ([]models.AudioRequest, error)
}

// Releaser выпускает средства по просроченной заявке.
type Releaser interface {
	AutoRelease(ctx context.Context, req *models.AudioRequest) (*models.AudioRequest, error)
}

// AutoRelease — фоновый планировщик автовыпуска средств: раз в
// интервал забирает заявки, по которым заявитель не отреагировал за
// срок проверки, и переводит оплату авторам. Условный захват статуса
// в сервисе делает повторный проход по той же заявке безопасным.
type AutoRelease struct {
	repo     DueLister
	requests Releaser
	interval time.Duration
	batch    int
	now      func() time.Time

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped sync.Once
}

// New создаёт планировщик.
func New(repo DueLister, requests Releaser, interval time.Duration) *AutoRelease {
	return &AutoRelease{
		repo:     repo,
		requests: requests,
		interval: interval,
		batch:    100,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// SetClock подменяет источник времени в тестах.
func (a *AutoRelease) SetClock(now func() time.Time) {
	a.now = now
}

// Start запускает цикл планировщика в фоне.
func (a *AutoRelease) Start(ctx context.Context) {
	goroutine.SafeGo(func() {
		logger.Log.WithField("interval", a.interval.String()).Info("Планировщик автовыпуска запущен")
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.RunOnce(ctx)
			case <-a.stopCh:
				logger.Log.Info("Планировщик автовыпуска остановлен")
				return
			case <-ctx.Done():
				logger.Log.Info("Планировщик автовыпуска остановлен по контексту")
				return
			}
		}
	})
}

// Stop останавливает планировщик. Повторный вызов безопасен.
func (a *AutoRelease) Stop() {
	a.stopped.Do(func() {
		close(a.stopCh)
	})
}

// RunOnce выполняет один проход. Мьютекс не даёт проходам
// накладываться, если выпуск затянулся дольше интервала.
func (a *AutoRelease) RunOnce(ctx context.Context) {
	if !a.mu.TryLock() {
		logger.Log.Warn("Предыдущий проход автовыпуска ещё не завершён, пропускаем")
		return
	}
	defer a.mu.Unlock()

	due, err := a.repo.ListDueForAutoRelease(ctx, a.now(), a.batch)
	if err != nil {
		logger.Log.WithError(err).Error("Не удалось получить заявки для автовыпуска")
		return
	}
	if len(due) == 0 {
		return
	}
	logger.Log.WithField("count", len(due)).Info("Автовыпуск средств по просроченным заявкам")

	for i := range due {
		req := due[i]
		if _, err := a.requests.AutoRelease(ctx, &req); err != nil {
			// Отсутствие реквизитов оставляет заявку на проверке,
			// следующий проход попробует снова.
			if errors.Is(err, apperror.ErrPayoutAccountMissing) {
				logger.Log.WithField("request_id", req.ID).Warn("Автовыпуск отложен: у автора нет реквизитов")
				continue
			}
			if apperror.IsInvalidTransition(err) {
				// Заявку успели закрыть вручную между выборкой и выпуском.
				continue
			}
			logger.Log.WithError(err).WithField("request_id", req.ID).Error("Автовыпуск не прошёл")
		}
	}
}
