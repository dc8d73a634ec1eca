package mail

import (
	"fmt"

	"github.com/jordan-wright/email"

	"github.com/davidmcguire/audio-app/internal/models"
)

// Make собирает письмо по событию жизненного цикла заказа.
// Неизвестное событие возвращает nil: писать нечего.
func Make(event string, req *models.AudioRequest, to string) *email.Email {
	if to == "" {
		return nil
	}
	subject, body := render(event, req)
	if subject == "" {
		return nil
	}
	return &email.Email{
		To:      []string{to},
		Subject: subject,
		Text:    []byte(body),
	}
}

func render(event string, req *models.AudioRequest) (string, string) {
	short := shortID(req.ID.String())
	switch event {
	case "request.created":
		return fmt.Sprintf("Заказ #%s создан", short),
			fmt.Sprintf("Ваш заказ на аудиозапись создан, оплата зарезервирована. Сумма: $%.2f.", req.PricingPrice)
	case "request.accepted":
		return fmt.Sprintf("Заказ #%s принят", short),
			"Автор принял ваш заказ и скоро приступит к работе."
	case "request.ready":
		return fmt.Sprintf("Заказ #%s готов к проверке", short),
			"Запись готова. У вас есть 48 часов, чтобы принять работу, запросить правки или открыть спор. Без ответа оплата будет переведена автору автоматически."
	case "request.approved":
		return fmt.Sprintf("Оплата по заказу #%s переведена", short),
			fmt.Sprintf("Работа принята, оплата переведена автору. Сумма: $%.2f.", req.PricingPrice)
	case "request.auto_released":
		return fmt.Sprintf("Заказ #%s закрыт автоматически", short),
			"Срок проверки истёк, оплата переведена автору автоматически."
	case "request.rejected":
		return fmt.Sprintf("По заказу #%s запрошены правки", short),
			fmt.Sprintf("Заказчик запросил правки: %s", deref(req.RejectionReason))
	case "request.disputed":
		return fmt.Sprintf("По заказу #%s открыт спор", short),
			"По заказу открыт спор. Администратор рассмотрит его и примет решение."
	case "dispute.resolved":
		return fmt.Sprintf("Спор по заказу #%s решён", short),
			fmt.Sprintf("Администратор рассмотрел спор. Решение: %s", deref(req.DisputeResolution))
	case "dispute.rejected":
		return fmt.Sprintf("Спор по заказу #%s отклонён", short),
			fmt.Sprintf("Администратор отклонил спор. Комментарий: %s", deref(req.DisputeResolution))
	case "request.cancelled":
		return fmt.Sprintf("Заказ #%s отменён", short),
			"Заказ отменён, резерв оплаты снят."
	}
	return "", ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
