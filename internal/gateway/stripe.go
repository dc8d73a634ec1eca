package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// StripeClient реализует Client поверх Stripe REST API.
// Резервирование делается через payment intent с ручным списанием
// (capture_method=manual), выплата автору — через transfers на
// подключённый аккаунт.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewStripeClient создаёт клиент Stripe.
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		baseURL:   defaultStripeBaseURL,
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type stripePaymentIntent struct {
	ID             string `json:"id"`
	ClientSecret   string `json:"client_secret"`
	Amount         int64  `json:"amount"`
	AmountReceived int64  `json:"amount_received"`
	Status         string `json:"status"`
}

type stripeTransfer struct {
	ID string `json:"id"`
}

type stripeErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Authorize резервирует средства без списания.
func (c *StripeClient) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Authorization, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("capture_method", "manual")
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent stripePaymentIntent
	if err := c.post(ctx, "authorize", "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}

	return &Authorization{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// Capture списывает зарезервированные средства.
func (c *StripeClient) Capture(ctx context.Context, intentID string) (int64, error) {
	var intent stripePaymentIntent
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/capture"
	if err := c.post(ctx, "capture", path, url.Values{}, &intent); err != nil {
		return 0, err
	}
	if intent.AmountReceived > 0 {
		return intent.AmountReceived, nil
	}
	return intent.Amount, nil
}

// Transfer выплачивает средства на подключённый аккаунт автора.
// transfer_group связывает выплату с исходным платежом.
func (c *StripeClient) Transfer(ctx context.Context, intentID, destination string, amountCents int64, currency string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("destination", destination)
	form.Set("transfer_group", intentID)

	var transfer stripeTransfer
	if err := c.post(ctx, "transfer", "/v1/transfers", form, &transfer); err != nil {
		return "", err
	}
	return transfer.ID, nil
}

// Cancel снимает резерв до списания.
func (c *StripeClient) Cancel(ctx context.Context, intentID string) error {
	path := "/v1/payment_intents/" + url.PathEscape(intentID) + "/cancel"
	return c.post(ctx, "cancel", path, url.Values{}, &stripePaymentIntent{})
}

// post выполняет form-encoded запрос к Stripe и декодирует ответ.
func (c *StripeClient) post(ctx context.Context, op, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Op: op, Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody stripeErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    errBody.Error.Message,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Cause: fmt.Errorf("декодирование ответа: %w", err)}
	}
	return nil
}
