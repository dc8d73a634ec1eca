package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/mail"
	"github.com/davidmcguire/audio-app/internal/models"
)

// NotificationRepository описывает взаимодействие сервиса с хранилищем уведомлений.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
}

// UserEmailGetter возвращает пользователя для поиска почтового адреса.
type UserEmailGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// WSNotifier интерфейс для отправки WebSocket уведомлений.
type WSNotifier interface {
	BroadcastToUser(userID uuid.UUID, event string, data interface{}) error
}

// NotificationService рассылает события жизненного цикла заявки:
// запись в таблицу уведомлений, письмо и WebSocket-сообщение.
type NotificationService struct {
	repo   NotificationRepository
	users  UserEmailGetter
	sender mail.Sender
	hub    WSNotifier
}

// NewNotificationService создаёт новый сервис уведомлений.
// sender может быть nil: письма тогда не отправляются.
func NewNotificationService(repo NotificationRepository, users UserEmailGetter, sender mail.Sender) *NotificationService {
	return &NotificationService{repo: repo, users: users, sender: sender}
}

// SetHub устанавливает WebSocket hub для отправки уведомлений.
func (s *NotificationService) SetHub(hub WSNotifier) {
	s.hub = hub
}

// NotifyRequestEvent разносит событие заявки всем сторонам. Ошибки
// доставки логируются и не прерывают основной сценарий.
func (s *NotificationService) NotifyRequestEvent(ctx context.Context, event string, req *models.AudioRequest) {
	// Уведомление автору.
	s.notifyUser(ctx, req.CreatorID, event, req)

	// Уведомление заявителю: зарегистрированному — в личный кабинет,
	// гостю — только письмо.
	if req.RequesterID != nil {
		s.notifyUser(ctx, *req.RequesterID, event, req)
	}
	s.sendEmail(ctx, event, req)
}

func (s *NotificationService) notifyUser(ctx context.Context, userID uuid.UUID, event string, req *models.AudioRequest) {
	payload, err := json.Marshal(map[string]interface{}{
		"event":      event,
		"request_id": req.ID,
		"status":     req.Status,
	})
	if err != nil {
		logger.Log.WithError(err).Error("Не удалось сериализовать уведомление")
		return
	}

	n := &models.Notification{UserID: userID, Payload: payload}
	if err := s.repo.Create(ctx, n); err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Не удалось сохранить уведомление")
	}

	if s.hub != nil {
		if err := s.hub.BroadcastToUser(userID, event, req); err != nil {
			logger.Log.WithError(err).WithField("user_id", userID).Warn("Не удалось отправить WebSocket-уведомление")
		}
	}
}

func (s *NotificationService) sendEmail(ctx context.Context, event string, req *models.AudioRequest) {
	if s.sender == nil {
		return
	}

	to := s.requesterEmail(ctx, req)
	msg := mail.Make(event, req, to)
	if msg == nil {
		return
	}
	if err := s.sender.Send(msg); err != nil {
		logger.Log.WithError(err).WithField("request_id", req.ID).Error("Не удалось отправить письмо")
	}
}

// requesterEmail возвращает адрес заявителя: гостевой из заявки или
// адрес аккаунта.
func (s *NotificationService) requesterEmail(ctx context.Context, req *models.AudioRequest) string {
	if req.RequesterEmail != nil && *req.RequesterEmail != "" {
		return *req.RequesterEmail
	}
	if req.RequesterID == nil {
		return ""
	}
	user, err := s.users.GetByID(ctx, *req.RequesterID)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", *req.RequesterID).Warn("Не удалось получить адрес заявителя")
		return ""
	}
	return user.Email
}

// ListNotifications возвращает список уведомлений пользователя.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// MarkAsRead отмечает уведомление как прочитанное.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("notification service: %w", err)
	}
	return nil
}

// CountUnread возвращает количество непрочитанных уведомлений.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
