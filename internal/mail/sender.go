package mail

import (
	"fmt"
	"net/smtp"

	"github.com/cenkalti/backoff/v4"
	"github.com/jordan-wright/email"

	"github.com/davidmcguire/audio-app/internal/logger"
)

// Sender отправляет письма.
type Sender interface {
	Send(msg *email.Email) error
}

// SMTPSender отправляет письма через SMTP с повторами при сбоях.
type SMTPSender struct {
	addr    string
	auth    smtp.Auth
	from    string
	backoff func() backoff.BackOff
}

// NewSMTPSender создаёт отправителя. При пустом host возвращается nil:
// уведомления по почте отключены.
func NewSMTPSender(host, port, user, password, from string) *SMTPSender {
	if host == "" {
		return nil
	}
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{
		addr:    host + ":" + port,
		auth:    auth,
		from:    from,
		backoff: newSimpleBackoff,
	}
}

// Send отправляет письмо, повторяя отправку при временных сбоях SMTP.
func (s *SMTPSender) Send(msg *email.Email) error {
	if msg.From == "" {
		msg.From = s.from
	}
	err := backoff.Retry(func() error {
		return msg.Send(s.addr, s.auth)
	}, s.backoff())
	if err != nil {
		return fmt.Errorf("отправка письма: %w", err)
	}
	logger.Log.WithField("to", msg.To).Info("Письмо отправлено")
	return nil
}

func newSimpleBackoff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
}
