package gateway

import (
	"context"
	"fmt"
)

// Authorization — результат резервирования средств на стороне шлюза.
// ClientSecret передаётся фронтенду для подтверждения платежа.
type Authorization struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

// Client описывает платёжный шлюз с двухфазной оплатой:
// authorize резервирует средства, capture списывает, transfer
// выплачивает автору, cancel снимает резерв до списания.
type Client interface {
	Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Authorization, error)
	Capture(ctx context.Context, intentID string) (int64, error)
	Transfer(ctx context.Context, intentID, destination string, amountCents int64, currency string) (string, error)
	Cancel(ctx context.Context, intentID string) error
}

// Error — ошибка вызова платёжного шлюза.
type Error struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gateway: %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("gateway: %s: код %d: %s", e.Op, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
