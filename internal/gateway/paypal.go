package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultPayPalBaseURL = "https://api-m.paypal.com"

// PayPalClient реализует Client поверх PayPal REST API.
// Резервирование — заказ с intent=AUTHORIZE, списание — capture
// авторизации, выплата автору — Payouts на его email.
type PayPalClient struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalClient создаёт клиент PayPal.
func NewPayPalClient(clientID, clientSecret, baseURL string) *PayPalClient {
	if baseURL == "" {
		baseURL = defaultPayPalBaseURL
	}
	return &PayPalClient{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Authorizations []struct {
				ID string `json:"id"`
			} `json:"authorizations"`
			Captures []struct {
				ID     string       `json:"id"`
				Amount paypalAmount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalPayoutBatch struct {
	BatchHeader struct {
		PayoutBatchID string `json:"payout_batch_id"`
	} `json:"batch_header"`
}

// Authorize создаёт заказ с отложенным списанием. Идентификатор
// заказа используется как intent, подтверждение проходит на стороне
// клиента PayPal SDK.
func (c *PayPalClient) Authorize(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Authorization, error) {
	body := map[string]interface{}{
		"intent": "AUTHORIZE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": paypalAmount{
					CurrencyCode: strings.ToUpper(currency),
					Value:        centsToValue(amountCents),
				},
				"custom_id": metadata["request_id"],
			},
		},
	}

	var order paypalOrder
	if err := c.do(ctx, "authorize", http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return nil, err
	}

	// У PayPal нет client secret: фронтенд подтверждает заказ по его ID.
	return &Authorization{
		IntentID:     order.ID,
		ClientSecret: order.ID,
	}, nil
}

// Capture списывает средства по подтверждённому заказу.
func (c *PayPalClient) Capture(ctx context.Context, intentID string) (int64, error) {
	path := "/v2/checkout/orders/" + url.PathEscape(intentID) + "/capture"

	var order paypalOrder
	if err := c.do(ctx, "capture", http.MethodPost, path, map[string]interface{}{}, &order); err != nil {
		return 0, err
	}

	for _, unit := range order.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			return valueToCents(capture.Amount.Value), nil
		}
	}
	return 0, &Error{Op: "capture", Message: "в ответе нет сведений о списании"}
}

// Transfer выплачивает средства автору через Payouts.
func (c *PayPalClient) Transfer(ctx context.Context, intentID, destination string, amountCents int64, currency string) (string, error) {
	body := map[string]interface{}{
		"sender_batch_header": map[string]string{
			"sender_batch_id": "release-" + intentID,
		},
		"items": []map[string]interface{}{
			{
				"recipient_type": "EMAIL",
				"receiver":       destination,
				"amount": map[string]string{
					"currency": strings.ToUpper(currency),
					"value":    centsToValue(amountCents),
				},
				"sender_item_id": intentID,
			},
		},
	}

	var batch paypalPayoutBatch
	if err := c.do(ctx, "transfer", http.MethodPost, "/v1/payments/payouts", body, &batch); err != nil {
		return "", err
	}
	return batch.BatchHeader.PayoutBatchID, nil
}

// Cancel аннулирует авторизацию по заказу до списания.
func (c *PayPalClient) Cancel(ctx context.Context, intentID string) error {
	var order paypalOrder
	path := "/v2/checkout/orders/" + url.PathEscape(intentID)
	if err := c.do(ctx, "cancel", http.MethodGet, path, nil, &order); err != nil {
		return err
	}

	for _, unit := range order.PurchaseUnits {
		for _, auth := range unit.Payments.Authorizations {
			voidPath := "/v2/payments/authorizations/" + url.PathEscape(auth.ID) + "/void"
			return c.do(ctx, "cancel", http.MethodPost, voidPath, map[string]interface{}{}, nil)
		}
	}
	// Заказ без авторизации (клиент не подтвердил оплату) — снимать нечего.
	return nil
}

// do выполняет JSON-запрос к PayPal с актуальным access-токеном.
func (c *PayPalClient) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return &Error{Op: op, Cause: err}
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &Error{Op: op, Cause: err}
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Op: op, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		return &Error{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("%v", errBody["message"]),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, Cause: fmt.Errorf("декодирование ответа: %w", err)}
	}
	return nil
}

// token возвращает кэшированный access-токен, обновляя его при истечении.
func (c *PayPalClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("получение токена: код %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", err
	}

	c.accessToken = tokenResp.AccessToken
	// Обновляем токен чуть раньше фактического истечения.
	c.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

func centsToValue(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}

func valueToCents(value string) int64 {
	var dollars, cents int64
	if _, err := fmt.Sscanf(value, "%d.%d", &dollars, &cents); err != nil {
		fmt.Sscanf(value, "%d", &dollars)
	}
	return dollars*100 + cents
}
