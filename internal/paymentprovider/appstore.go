package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// AppStoreClient выполняет запросы к конечной точке verifyReceipt App Store.
type AppStoreClient struct {
	sharedSecret string
	verifyURL    string
	httpClient   *http.Client
}

// NewAppStoreClient создаёт новый клиент App Store.
func NewAppStoreClient(sharedSecret, verifyURL string) *AppStoreClient {
	return &AppStoreClient{
		sharedSecret: sharedSecret,
		verifyURL:    verifyURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// VerifyReceiptRequest представляет запрос на проверку чека.
type VerifyReceiptRequest struct {
	ReceiptData string `json:"receipt-data"` // base64-чек из приложения
	Password    string `json:"password"`     // shared secret приложения
}

// LatestReceiptInfo содержит данные последней покупки из ответа App Store.
// Даты приходят в миллисекундах unix-времени строками.
type LatestReceiptInfo struct {
	ProductID             string `json:"product_id"`
	OriginalTransactionID string `json:"original_transaction_id"`
	ExpiresDateMS         string `json:"expires_date_ms"`
	CancellationDateMS    string `json:"cancellation_date_ms,omitempty"`
}

// VerifyReceiptResponse представляет ответ App Store на проверку чека.
// Status == 0 означает валидный чек.
type VerifyReceiptResponse struct {
	Status            int                 `json:"status"`
	Environment       string              `json:"environment"`
	LatestReceiptInfo []LatestReceiptInfo `json:"latest_receipt_info"`
}

// VerifyReceipt отправляет чек на проверку в App Store.
func (c *AppStoreClient) VerifyReceipt(ctx context.Context, receiptData string) (*VerifyReceiptResponse, error) {
	body := VerifyReceiptRequest{
		ReceiptData: receiptData,
		Password:    c.sharedSecret,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("unexpected status: " + resp.Status)
	}

	var verifyResp VerifyReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return nil, err
	}
	return &verifyResp, nil
}
