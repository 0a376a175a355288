package signin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	auth "github.com/Keen-VPN/vpn-backend-service/internal/services/auth"
)

// MockService реализует интерфейс signin.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) SignIn(ctx context.Context, identity models.ProviderIdentity) (string, string, *models.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(2) == nil {
		return args.String(0), args.String(1), nil, args.Error(3)
	}
	return args.String(0), args.String(1), args.Get(2).(*models.User), args.Error(3)
}

func TestSignInHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	identity := models.ProviderIdentity{
		Provider: "google",
		Subject:  "google-sub-123",
		Email:    "test@example.com",
	}
	testUser := &models.User{
		UID:   "user-uid-1",
		Email: "test@example.com",
		Role:  "user",
	}

	tests := []struct {
		name           string
		requestBody    any
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешный вход",
			requestBody: models.DummySignIn{
				Provider: "google",
				Subject:  "google-sub-123",
				Email:    "test@example.com",
			},
			setupMock: func(m *MockService) {
				m.On("SignIn", mock.Anything, identity).
					Return("jwt-token", "refresh-token", testUser, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"token":"jwt-token","refresh_token":"refresh-token","user_uid":"user-uid-1","email":"test@example.com"}}`,
		},
		{
			name: "неподдерживаемый провайдер",
			requestBody: models.DummySignIn{
				Provider: "github",
				Subject:  "sub",
				Email:    "test@example.com",
			},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Provider has unsupported value"}`,
		},
		{
			name:           "пустое тело запроса",
			requestBody:    models.DummySignIn{},
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field Provider is a required field, field Subject is a required field, field Email is a required field"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name: "учётная запись недавно удалена",
			requestBody: models.DummySignIn{
				Provider: "google",
				Subject:  "google-sub-123",
				Email:    "test@example.com",
			},
			setupMock: func(m *MockService) {
				m.On("SignIn", mock.Anything, identity).
					Return("", "", nil, auth.ErrAccountDeleted).Once()
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"status":"Error","error":"account was recently deleted"}`,
		},
		{
			name: "ошибка сервиса",
			requestBody: models.DummySignIn{
				Provider: "google",
				Subject:  "google-sub-123",
				Email:    "test@example.com",
			},
			setupMock: func(m *MockService) {
				m.On("SignIn", mock.Anything, identity).
					Return("", "", nil, errors.New("db error")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not sign in"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signin", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-id"))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
