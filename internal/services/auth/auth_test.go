package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	customjwt "github.com/Keen-VPN/vpn-backend-service/internal/lib/jwt"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/secret"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
	services "github.com/Keen-VPN/vpn-backend-service/internal/services/auth"
)

// Мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindOrCreateUser(ctx context.Context, identity models.ProviderIdentity) (*models.User, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *UserRepoMock) UpdateRefreshTokenHash(ctx context.Context, userUID, hash string) error {
	return m.Called(ctx, userUID, hash).Error(0)
}

func (m *UserRepoMock) DeleteUser(ctx context.Context, userUID string) (int, error) {
	args := m.Called(ctx, userUID)
	return args.Int(0), args.Error(1)
}

// Мок для BlacklistRepository
type BlacklistMock struct {
	mock.Mock
}

func (m *BlacklistMock) AddDeletedAccount(ctx context.Context, provider, providerSubject string) error {
	return m.Called(ctx, provider, providerSubject).Error(0)
}

func (m *BlacklistMock) IsAccountDeleted(ctx context.Context, provider, providerSubject string, window time.Duration) (bool, error) {
	args := m.Called(ctx, provider, providerSubject, window)
	return args.Bool(0), args.Error(1)
}

// Мок для jwt.Maker
type JwtMakerMock struct {
	mock.Mock
}

func (m *JwtMakerMock) GenerateToken(userUID, email, role string) (string, error) {
	args := m.Called(userUID, email, role)
	return args.String(0), args.Error(1)
}

func (m *JwtMakerMock) ParseToken(token string) (*customjwt.CustomClaims, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customjwt.CustomClaims), args.Error(1)
}

const retentionWindow = 30 * 24 * time.Hour

func TestAuthService_SignIn(t *testing.T) {
	identity := models.ProviderIdentity{
		Provider: "google",
		Subject:  "google-sub-123",
		Email:    "test@example.com",
	}
	testUser := &models.User{
		UID:             "user-uid-1",
		Email:           "test@example.com",
		Provider:        "google",
		ProviderSubject: "google-sub-123",
		Role:            "user",
	}

	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, b *BlacklistMock, j *JwtMakerMock)
		wantToken  string
		wantErr    bool
		errIs      error
	}{
		{
			name: "успешный вход через google",
			setupMocks: func(r *UserRepoMock, b *BlacklistMock, j *JwtMakerMock) {
				b.On("IsAccountDeleted", mock.Anything, "google", "google-sub-123", retentionWindow).
					Return(false, nil).Once()
				r.On("FindOrCreateUser", mock.Anything, identity).Return(testUser, nil).Once()
				j.On("GenerateToken", "user-uid-1", "test@example.com", "user").
					Return("jwt-token-123", nil).Once()
				r.On("UpdateRefreshTokenHash", mock.Anything, "user-uid-1", mock.AnythingOfType("string")).
					Return(nil).Once()
			},
			wantToken: "jwt-token-123",
			wantErr:   false,
		},
		{
			name: "личность из чёрного списка",
			setupMocks: func(_ *UserRepoMock, b *BlacklistMock, _ *JwtMakerMock) {
				b.On("IsAccountDeleted", mock.Anything, "google", "google-sub-123", retentionWindow).
					Return(true, nil).Once()
			},
			wantErr: true,
			errIs:   services.ErrAccountDeleted,
		},
		{
			name: "ошибка базы данных",
			setupMocks: func(r *UserRepoMock, b *BlacklistMock, _ *JwtMakerMock) {
				b.On("IsAccountDeleted", mock.Anything, "google", "google-sub-123", retentionWindow).
					Return(false, nil).Once()
				r.On("FindOrCreateUser", mock.Anything, identity).
					Return(nil, errors.New("db error")).Once()
			},
			wantErr: true,
		},
		{
			name: "ошибка генерации токена",
			setupMocks: func(r *UserRepoMock, b *BlacklistMock, j *JwtMakerMock) {
				b.On("IsAccountDeleted", mock.Anything, "google", "google-sub-123", retentionWindow).
					Return(false, nil).Once()
				r.On("FindOrCreateUser", mock.Anything, identity).Return(testUser, nil).Once()
				j.On("GenerateToken", "user-uid-1", "test@example.com", "user").
					Return("", errors.New("token error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			blacklist := new(BlacklistMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, blacklist, jwtMock, retentionWindow)

			tt.setupMocks(repo, blacklist, jwtMock)

			token, refresh, user, err := svc.SignIn(context.Background(), identity)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.NotEmpty(t, refresh)
				assert.Equal(t, testUser, user)
			}

			repo.AssertExpectations(t)
			blacklist.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	rawRefresh := "refresh-token-raw"
	hash, err := secret.GetHash(rawRefresh)
	require.NoError(t, err)

	testUser := &models.User{
		UID:              "user-uid-1",
		Email:            "test@example.com",
		Role:             "user",
		RefreshTokenHash: hash,
	}

	tests := []struct {
		name       string
		refresh    string
		setupMocks func(r *UserRepoMock, j *JwtMakerMock)
		wantToken  string
		wantErr    bool
		errIs      error
	}{
		{
			name:    "успешное обновление токенов",
			refresh: rawRefresh,
			setupMocks: func(r *UserRepoMock, j *JwtMakerMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").Return(testUser, nil).Once()
				j.On("GenerateToken", "user-uid-1", "test@example.com", "user").
					Return("new-jwt-token", nil).Once()
				r.On("UpdateRefreshTokenHash", mock.Anything, "user-uid-1", mock.AnythingOfType("string")).
					Return(nil).Once()
			},
			wantToken: "new-jwt-token",
			wantErr:   false,
		},
		{
			name:    "неверный refresh-токен",
			refresh: "wrong-token",
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").Return(testUser, nil).Once()
			},
			wantErr: true,
			errIs:   services.ErrInvalidRefreshToken,
		},
		{
			name:    "пользователь без refresh-токена",
			refresh: rawRefresh,
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").
					Return(&models.User{UID: "user-uid-1"}, nil).Once()
			},
			wantErr: true,
			errIs:   services.ErrInvalidRefreshToken,
		},
		{
			name:    "пользователь не найден",
			refresh: rawRefresh,
			setupMocks: func(r *UserRepoMock, _ *JwtMakerMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").
					Return(nil, errors.New("user not found")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(repo, new(BlacklistMock), jwtMock, retentionWindow)

			tt.setupMocks(repo, jwtMock)

			token, refresh, err := svc.Refresh(context.Background(), "user-uid-1", tt.refresh)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					assert.ErrorIs(t, err, tt.errIs)
				}
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
				assert.NotEmpty(t, refresh)
				assert.NotEqual(t, rawRefresh, refresh)
			}

			repo.AssertExpectations(t)
			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_ValidateToken(t *testing.T) {
	validClaims := &customjwt.CustomClaims{
		UserUID: "user-uid-1",
		Email:   "test@example.com",
		Role:    "user",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}

	tests := []struct {
		name       string
		token      string
		setupMocks func(j *JwtMakerMock)
		wantUser   *models.User
		wantRole   string
		wantValid  bool
		wantErr    bool
	}{
		{
			name:  "валидный токен",
			token: "valid-token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "valid-token").Return(validClaims, nil).Once()
			},
			wantUser: &models.User{
				UID:   "user-uid-1",
				Email: "test@example.com",
				Role:  "user",
			},
			wantRole:  "user",
			wantValid: true,
			wantErr:   false,
		},
		{
			name:  "невалидный токен",
			token: "invalid-token",
			setupMocks: func(j *JwtMakerMock) {
				j.On("ParseToken", "invalid-token").Return(nil, errors.New("invalid token")).Once()
			},
			wantUser:  nil,
			wantRole:  "",
			wantValid: false,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwtMock := new(JwtMakerMock)
			svc := services.NewAuthService(new(UserRepoMock), new(BlacklistMock), jwtMock, retentionWindow)

			tt.setupMocks(jwtMock)

			user, role, valid, err := svc.ValidateToken(context.Background(), tt.token)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantValid, valid)

			jwtMock.AssertExpectations(t)
		})
	}
}

func TestAuthService_DeleteAccount(t *testing.T) {
	testUser := &models.User{
		UID:             "user-uid-1",
		Provider:        "apple",
		ProviderSubject: "apple-sub-9",
	}

	tests := []struct {
		name       string
		setupMocks func(r *UserRepoMock, b *BlacklistMock)
		wantErr    bool
	}{
		{
			name: "успешное удаление",
			setupMocks: func(r *UserRepoMock, b *BlacklistMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").Return(testUser, nil).Once()
				b.On("AddDeletedAccount", mock.Anything, "apple", "apple-sub-9").Return(nil).Once()
				r.On("DeleteUser", mock.Anything, "user-uid-1").Return(1, nil).Once()
			},
			wantErr: false,
		},
		{
			name: "пользователь не найден",
			setupMocks: func(r *UserRepoMock, _ *BlacklistMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").
					Return(nil, errors.New("user not found")).Once()
			},
			wantErr: true,
		},
		{
			name: "ошибка записи в чёрный список",
			setupMocks: func(r *UserRepoMock, b *BlacklistMock) {
				r.On("GetUser", mock.Anything, "user-uid-1").Return(testUser, nil).Once()
				b.On("AddDeletedAccount", mock.Anything, "apple", "apple-sub-9").
					Return(errors.New("db error")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(UserRepoMock)
			blacklist := new(BlacklistMock)
			svc := services.NewAuthService(repo, blacklist, new(JwtMakerMock), retentionWindow)

			tt.setupMocks(repo, blacklist)

			err := svc.DeleteAccount(context.Background(), "user-uid-1")
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
			blacklist.AssertExpectations(t)
		})
	}
}
