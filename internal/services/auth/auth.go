// Package services содержит логику бизнес-уровня для входа через внешних
// провайдеров и управления учётными записями.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Keen-VPN/vpn-backend-service/internal/lib/jwt"
	"github.com/Keen-VPN/vpn-backend-service/internal/lib/secret"
	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// ErrAccountDeleted возвращается при попытке входа с личностью,
// учётная запись которой была недавно удалена.
var ErrAccountDeleted = errors.New("account was recently deleted")

// ErrInvalidRefreshToken возвращается, если refresh-токен не совпадает
// с сохранённым хэшем.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// FindOrCreateUser находит пользователя по личности провайдера или создаёт нового.
	FindOrCreateUser(ctx context.Context, identity models.ProviderIdentity) (*models.User, error)

	// GetUser возвращает пользователя по его UID.
	GetUser(ctx context.Context, userUID string) (*models.User, error)

	// UpdateRefreshTokenHash сохраняет bcrypt-хэш нового refresh-токена.
	UpdateRefreshTokenHash(ctx context.Context, userUID, hash string) error

	// DeleteUser удаляет пользователя и возвращает число удалённых строк.
	DeleteUser(ctx context.Context, userUID string) (int, error)
}

// BlacklistRepository описывает контракт для работы с удалёнными учётными записями.
type BlacklistRepository interface {
	// AddDeletedAccount помечает личность провайдера как удалённую.
	AddDeletedAccount(ctx context.Context, provider, providerSubject string) error

	// IsAccountDeleted сообщает, была ли личность удалена внутри окна хранения.
	IsAccountDeleted(ctx context.Context, provider, providerSubject string, window time.Duration) (bool, error)
}

// AuthService отвечает за вход через провайдеров, обновление и валидацию JWT
// и удаление учётных записей.
type AuthService struct {
	users           UserRepository
	blacklist       BlacklistRepository
	jwtMaker        jwt.Maker
	retentionWindow time.Duration
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, blacklist BlacklistRepository, jwtMaker jwt.Maker, retentionWindow time.Duration) *AuthService {
	return &AuthService{
		users:           users,
		blacklist:       blacklist,
		jwtMaker:        jwtMaker,
		retentionWindow: retentionWindow,
	}
}

// SignIn принимает уже проверенную личность провайдера, находит или создает
// пользователя и выдает пару токенов: JWT и refresh-токен. Личности из окна
// удалённых учётных записей отклоняются с ErrAccountDeleted.
func (s *AuthService) SignIn(ctx context.Context, identity models.ProviderIdentity) (token, refresh string, user *models.User, err error) {
	const op = "services.auth.SignIn"

	deleted, err := s.blacklist.IsAccountDeleted(ctx, identity.Provider, identity.Subject, s.retentionWindow)
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}
	if deleted {
		return "", "", nil, ErrAccountDeleted
	}

	user, err = s.users.FindOrCreateUser(ctx, identity)
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}

	token, refresh, err = s.issueTokens(ctx, user)
	if err != nil {
		return "", "", nil, fmt.Errorf("%s: %w", op, err)
	}
	return token, refresh, user, nil
}

// Refresh проверяет refresh-токен пользователя и выдает новую пару токенов.
// Старый refresh-токен после успешного обновления становится недействительным.
func (s *AuthService) Refresh(ctx context.Context, userUID, refreshToken string) (token, refresh string, err error) {
	const op = "services.auth.Refresh"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	if user.RefreshTokenHash == "" {
		return "", "", ErrInvalidRefreshToken
	}
	if err := secret.CompareHash(user.RefreshTokenHash, refreshToken); err != nil {
		return "", "", ErrInvalidRefreshToken
	}

	token, refresh, err = s.issueTokens(ctx, user)
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return token, refresh, nil
}

// ValidateToken проверяет JWT и возвращает информацию о пользователе, роль и признак валидности.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.User, string, bool, error) {
	claims, err := s.jwtMaker.ParseToken(token)
	if err != nil {
		return nil, "", false, err
	}
	user := &models.User{
		UID:   claims.UserUID,
		Email: claims.Email,
		Role:  claims.Role,
	}
	return user, claims.Role, true, nil
}

// DeleteAccount удаляет учётную запись и помечает личность провайдера
// удалённой, чтобы повторный вход не воссоздал её внутри окна хранения.
func (s *AuthService) DeleteAccount(ctx context.Context, userUID string) error {
	const op = "services.auth.DeleteAccount"

	user, err := s.users.GetUser(ctx, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// Сначала в чёрный список: если удаление строк не пройдет,
	// повторный вызов безопасен.
	if err := s.blacklist.AddDeletedAccount(ctx, user.Provider, user.ProviderSubject); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := s.users.DeleteUser(ctx, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// issueTokens выдает JWT и новый refresh-токен, сохраняя bcrypt-хэш последнего.
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (token, refresh string, err error) {
	token, err = s.jwtMaker.GenerateToken(user.UID, user.Email, user.Role)
	if err != nil {
		return "", "", err
	}
	refresh = uuid.NewString()
	hash, err := secret.GetHash(refresh)
	if err != nil {
		return "", "", err
	}
	if err := s.users.UpdateRefreshTokenHash(ctx, user.UID, hash); err != nil {
		return "", "", err
	}
	return token, refresh, nil
}
