package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/davidmcguire/audio-app/internal/gateway"
	"github.com/davidmcguire/audio-app/internal/models"
)

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*gateway.Authorization, error) {
	args := m.Called(ctx, amountCents, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Authorization), args.Error(1)
}

func (m *mockGatewayClient) Capture(ctx context.Context, intentID string) (int64, error) {
	args := m.Called(ctx, intentID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockGatewayClient) Transfer(ctx context.Context, intentID, destination string, amountCents int64, currency string) (string, error) {
	args := m.Called(ctx, intentID, destination, amountCents, currency)
	return args.String(0), args.Error(1)
}

func (m *mockGatewayClient) Cancel(ctx context.Context, intentID string) error {
	args := m.Called(ctx, intentID)
	return args.Error(0)
}

type mockPaymentRepo struct {
	mock.Mock
}

func (m *mockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func newPaymentService(client *mockGatewayClient, repo *mockPaymentRepo) *PaymentService {
	return NewPaymentService(map[models.PaymentMethod]gateway.Client{
		models.PaymentMethodStripe: client,
	}, repo, 10, "usd")
}

func TestPaymentService_Split(t *testing.T) {
	svc := newPaymentService(new(mockGatewayClient), new(mockPaymentRepo))

	cases := []struct {
		amount  float64
		fee     float64
		creator float64
	}{
		{100, 10, 90},
		{9.99, 0.99, 9.00},
		{0.05, 0.00, 0.05},
		{49.95, 4.99, 44.96},
	}
	for _, tc := range cases {
		fee, creator := svc.Split(tc.amount)
		assert.Equal(t, tc.fee, fee, "комиссия от %v", tc.amount)
		assert.Equal(t, tc.creator, creator, "доля автора от %v", tc.amount)
	}
}

func TestPaymentService_Authorize(t *testing.T) {
	client := new(mockGatewayClient)
	svc := newPaymentService(client, new(mockPaymentRepo))

	ctx := context.Background()
	client.On("Authorize", ctx, int64(4995), "usd", map[string]string{"request_id": "req-1"}).
		Return(&gateway.Authorization{IntentID: "pi_1", ClientSecret: "secret"}, nil)

	auth, err := svc.Authorize(ctx, models.PaymentMethodStripe, 49.95, "req-1")

	assert.NoError(t, err)
	assert.Equal(t, "pi_1", auth.IntentID)
	client.AssertExpectations(t)
}

func TestPaymentService_Authorize_UnsupportedMethod(t *testing.T) {
	svc := newPaymentService(new(mockGatewayClient), new(mockPaymentRepo))

	_, err := svc.Authorize(context.Background(), models.PaymentMethodPayPal, 10, "req-1")

	assert.Error(t, err)
}

func TestPaymentService_Release_Success(t *testing.T) {
	client := new(mockGatewayClient)
	repo := new(mockPaymentRepo)
	svc := newPaymentService(client, repo)

	ctx := context.Background()
	req := &models.AudioRequest{
		ID:              uuid.New(),
		PricingPrice:    100,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	}

	client.On("Capture", ctx, "pi_1").Return(int64(10000), nil)
	client.On("Transfer", ctx, "pi_1", "acct_123", int64(9000), "usd").Return("tr_1", nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(nil)

	payment, err := svc.Release(ctx, req, "acct_123")

	assert.NoError(t, err)
	assert.Equal(t, float64(10), payment.PlatformFee)
	assert.Equal(t, float64(90), payment.CreatorAmount)
	assert.Equal(t, "tr_1", payment.TransferID)
	client.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestPaymentService_Release_CaptureFails(t *testing.T) {
	client := new(mockGatewayClient)
	svc := newPaymentService(client, new(mockPaymentRepo))

	ctx := context.Background()
	req := &models.AudioRequest{
		ID:              uuid.New(),
		PricingPrice:    100,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	}

	client.On("Capture", ctx, "pi_1").
		Return(int64(0), &gateway.Error{Op: "capture", StatusCode: 402, Message: "карта отклонена"})

	_, err := svc.Release(ctx, req, "acct_123")

	assert.Error(t, err)
	// Шлюзовая ошибка со стадией capture доступна через цепочку.
	var gwErr *gateway.Error
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "capture", gwErr.Op)
	client.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPaymentService_Release_TransferFails(t *testing.T) {
	client := new(mockGatewayClient)
	repo := new(mockPaymentRepo)
	svc := newPaymentService(client, repo)

	ctx := context.Background()
	req := &models.AudioRequest{
		ID:              uuid.New(),
		PricingPrice:    100,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	}

	client.On("Capture", ctx, "pi_1").Return(int64(10000), nil)
	client.On("Transfer", ctx, "pi_1", "acct_123", int64(9000), "usd").
		Return("", &gateway.Error{Op: "transfer", StatusCode: 500, Message: "временная ошибка"})

	_, err := svc.Release(ctx, req, "acct_123")

	assert.Error(t, err)
	var gwErr *gateway.Error
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "transfer", gwErr.Op)
	// Журнал не пишем: выплата не состоялась.
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPaymentService_Release_JournalFailureIsNotFatal(t *testing.T) {
	client := new(mockGatewayClient)
	repo := new(mockPaymentRepo)
	svc := newPaymentService(client, repo)

	ctx := context.Background()
	req := &models.AudioRequest{
		ID:              uuid.New(),
		PricingPrice:    50,
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	}

	client.On("Capture", ctx, "pi_1").Return(int64(5000), nil)
	client.On("Transfer", ctx, "pi_1", "acct_123", int64(4500), "usd").Return("tr_1", nil)
	repo.On("Create", ctx, mock.AnythingOfType("*models.Payment")).Return(errors.New("db down"))

	payment, err := svc.Release(ctx, req, "acct_123")

	// Деньги уже ушли, ошибка журнала только логируется.
	assert.NoError(t, err)
	assert.Equal(t, "tr_1", payment.TransferID)
}

func TestPaymentService_CancelAuthorization(t *testing.T) {
	client := new(mockGatewayClient)
	svc := newPaymentService(client, new(mockPaymentRepo))

	ctx := context.Background()
	client.On("Cancel", ctx, "pi_1").Return(nil)

	err := svc.CancelAuthorization(ctx, &models.AudioRequest{
		PaymentMethod:   models.PaymentMethodStripe,
		PaymentIntentID: "pi_1",
	})

	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPaymentService_CancelAuthorization_NoIntent(t *testing.T) {
	client := new(mockGatewayClient)
	svc := newPaymentService(client, new(mockPaymentRepo))

	err := svc.CancelAuthorization(context.Background(), &models.AudioRequest{
		PaymentMethod: models.PaymentMethodStripe,
	})

	assert.NoError(t, err)
	client.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
