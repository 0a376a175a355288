package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/Keen-VPN/vpn-backend-service/internal/config"
	"github.com/Keen-VPN/vpn-backend-service/internal/http/middlewarectx"
	"github.com/Keen-VPN/vpn-backend-service/internal/paymentprovider"
)

// MockStripeClient реализует интерфейс checkout.StripeClient
type MockStripeClient struct {
	mock.Mock
}

func (m *MockStripeClient) CreateCheckoutSession(ctx context.Context, req paymentprovider.CheckoutSessionRequest) (*paymentprovider.CheckoutSessionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.CheckoutSessionResponse), args.Error(1)
}

func TestCheckoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	cfg := config.Stripe{
		StripePriceID:      "price_123",
		CheckoutSuccessURL: "https://app.example/success",
		CheckoutCancelURL:  "https://app.example/cancel",
	}

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockStripeClient)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "успешное создание сессии",
			userUID: "user-uid-1",
			setupMock: func(m *MockStripeClient) {
				m.On("CreateCheckoutSession", mock.Anything, paymentprovider.CheckoutSessionRequest{
					PriceID:           "price_123",
					CustomerEmail:     "test@example.com",
					ClientReferenceID: "user-uid-1",
					SuccessURL:        "https://app.example/success",
					CancelURL:         "https://app.example/cancel",
				}).Return(&paymentprovider.CheckoutSessionResponse{
					ID:  "cs_test_1",
					URL: "https://checkout.stripe.com/pay/cs_test_1",
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"checkout_url":"https://checkout.stripe.com/pay/cs_test_1","session_id":"cs_test_1"}}`,
		},
		{
			name:           "отсутствует авторизация",
			userUID:        "",
			setupMock:      func(_ *MockStripeClient) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "stripe недоступен",
			userUID: "user-uid-1",
			setupMock: func(m *MockStripeClient) {
				m.On("CreateCheckoutSession", mock.Anything, mock.Anything).
					Return(nil, errors.New("connection refused")).Once()
			},
			expectedStatus: http.StatusBadGateway,
			expectedBody:   `{"status":"Error","error":"could not create checkout session"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stripeClient := new(MockStripeClient)
			tt.setupMock(stripeClient)

			handler := New(logger, stripeClient, cfg)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/checkout", nil)
			ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
			ctx = context.WithValue(ctx, middlewarectx.User, "test@example.com")
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			stripeClient.AssertExpectations(t)
		})
	}
}
