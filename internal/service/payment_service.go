package service

import (
	"context"
	"fmt"
	"math"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/logger"
	"github.com/davidmcguire/audio-app/internal/models"
	"github.com/davidmcguire/audio-app/internal/pkg/apperror"
)

// PaymentRepository описывает журнал платежей.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
}

// PaymentService оркестрирует платёжные шлюзы: резервирование при
// создании заявки, списание и выплата при выпуске средств, снятие
// резерва при отмене. Суммы в заявках хранятся в долларах, шлюзы
// принимают центы.
type PaymentService struct {
	gateways   map[models.PaymentMethod]gateway.Client
	payments   PaymentRepository
	feePercent float64
	currency   string
}

// NewPaymentService создаёт новый платёжный сервис.
func NewPaymentService(gateways map[models.PaymentMethod]gateway.Client, payments PaymentRepository, feePercent float64, currency string) *PaymentService {
	return &PaymentService{
		gateways:   gateways,
		payments:   payments,
		feePercent: feePercent,
		currency:   currency,
	}
}

// Split делит сумму на комиссию платформы и долю автора.
// Комиссия округляется до цента в пользу автора.
func (s *PaymentService) Split(amount float64) (platformFee, creatorAmount float64) {
	platformFee = math.Floor(amount*s.feePercent) / 100
	creatorAmount = math.Round((amount-platformFee)*100) / 100
	return platformFee, creatorAmount
}

// Authorize резервирует сумму заявки на стороне шлюза.
func (s *PaymentService) Authorize(ctx context.Context, method models.PaymentMethod, amount float64, requestID string) (*gateway.Authorization, error) {
	client, err := s.gateway(method)
	if err != nil {
		return nil, err
	}

	auth, err := client.Authorize(ctx, toCents(amount), s.currency, map[string]string{"request_id": requestID})
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось зарезервировать оплату")
	}
	return auth, nil
}

// Release списывает резерв и выплачивает автору его долю.
// Если списание прошло, а выплата нет, возвращается ошибка с уже
// записанным фактом списания: заявка остаётся в approved и требует
// ручной сверки, повторный автоматический вызов недопустим.
func (s *PaymentService) Release(ctx context.Context, req *models.AudioRequest, destination string) (*models.Payment, error) {
	client, err := s.gateway(req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	if _, err := client.Capture(ctx, req.PaymentIntentID); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось списать оплату")
	}

	platformFee, creatorAmount := s.Split(req.PricingPrice)

	transferID, err := client.Transfer(ctx, req.PaymentIntentID, destination, toCents(creatorAmount), s.currency)
	if err != nil {
		logger.Log.WithError(err).WithField("request_id", req.ID).
			Error("Оплата списана, но выплата автору не прошла: требуется ручная сверка")
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "оплата списана, выплата автору не прошла")
	}

	payment := &models.Payment{
		RequestID:     req.ID,
		PaymentMethod: req.PaymentMethod,
		Amount:        req.PricingPrice,
		PlatformFee:   platformFee,
		CreatorAmount: creatorAmount,
		TransferID:    transferID,
		Status:        models.PaymentRecordStatusCompleted,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		// Деньги уже ушли, журнал догоним по данным шлюза.
		logger.Log.WithError(err).WithField("request_id", req.ID).
			Error("Выплата прошла, но запись о платеже не сохранена")
	}
	return payment, nil
}

// CancelAuthorization снимает резерв до списания. Отсутствие intent
// (оплата не дошла до шлюза) не считается ошибкой.
func (s *PaymentService) CancelAuthorization(ctx context.Context, req *models.AudioRequest) error {
	if req.PaymentIntentID == "" {
		return nil
	}
	client, err := s.gateway(req.PaymentMethod)
	if err != nil {
		return err
	}
	if err := client.Cancel(ctx, req.PaymentIntentID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeGateway, "не удалось снять резерв оплаты")
	}
	return nil
}

func (s *PaymentService) gateway(method models.PaymentMethod) (gateway.Client, error) {
	client, ok := s.gateways[method]
	if !ok || client == nil {
		return nil, apperror.New(apperror.ErrCodeBadRequest, fmt.Sprintf("платёжный метод %q не поддерживается", method))
	}
	return client, nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
