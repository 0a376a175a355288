// Package paymentprovider содержит HTTP-клиентов платёжных провайдеров:
// Stripe (веб-оплата) и App Store (встроенные покупки).
// Криптографическая проверка чеков сюда не входит — клиенты только
// выполняют запросы к API провайдеров и разбирают ответы.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// StripeClient выполняет запросы к API Stripe.
type StripeClient struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewStripeClient создаёт новый клиент Stripe.
func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		secretKey:  secretKey,
		apiURL:     "https://api.stripe.com/v1",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// CheckoutSessionRequest описывает параметры создания Checkout-сессии.
type CheckoutSessionRequest struct {
	PriceID           string
	CustomerEmail     string
	ClientReferenceID string // user_uid, чтобы связать оплату с пользователем
	SuccessURL        string
	CancelURL         string
}

// CheckoutSessionResponse представляет ответ Stripe на создание Checkout-сессии.
type CheckoutSessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"` // Ссылка для перехода пользователя к оплате
}

// CreateCheckoutSession создаёт Checkout-сессию Stripe в режиме подписки.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, reqParams CheckoutSessionRequest) (*CheckoutSessionResponse, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", reqParams.PriceID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("customer_email", reqParams.CustomerEmail)
	form.Set("client_reference_id", reqParams.ClientReferenceID)
	form.Set("success_url", reqParams.SuccessURL)
	form.Set("cancel_url", reqParams.CancelURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var sessionResp CheckoutSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sessionResp); err != nil {
		return nil, err
	}
	return &sessionResp, nil
}
