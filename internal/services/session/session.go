// Package services содержит логику бизнес-уровня для учёта VPN-сессий.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// ErrSessionNotFound возвращается, если открытая сессия с таким ID не найдена.
var ErrSessionNotFound = errors.New("session not found")

// defaultListLimit ограничивает размер страницы списка сессий,
// если клиент не задал его сам.
const defaultListLimit = 50

// SessionRepository описывает контракт для работы с сессиями в базе данных.
type SessionRepository interface {
	// CreateSession сохраняет новую сессию и возвращает её ID.
	CreateSession(ctx context.Context, session models.Session) (string, error)

	// CloseSession фиксирует отключение и объём трафика, возвращает число закрытых строк.
	CloseSession(ctx context.Context, sessionID, userUID string, bytesIn, bytesOut int64) (int, error)

	// ListSessions возвращает страницу сессий пользователя, новые первыми.
	ListSessions(ctx context.Context, userUID string, limit, offset int) ([]*models.Session, error)

	// CountSessionStats возвращает агрегаты по всем сессиям пользователя.
	CountSessionStats(ctx context.Context, userUID string) (*models.SessionStats, error)
}

// SessionService отвечает за открытие, закрытие и просмотр VPN-сессий.
type SessionService struct {
	sessions SessionRepository
	log      *slog.Logger
}

// NewSessionService создает новый экземпляр SessionService.
func NewSessionService(sessions SessionRepository, log *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		log:      log,
	}
}

// Start открывает новую сессию и возвращает её ID.
func (s *SessionService) Start(ctx context.Context, userUID, serverLocation, clientIP string) (string, error) {
	const op = "services.session.Start"

	session := models.Session{
		ID:             uuid.NewString(),
		UserUID:        userUID,
		ServerLocation: serverLocation,
		ClientIP:       clientIP,
		ConnectedAt:    time.Now().UTC(),
	}
	id, err := s.sessions.CreateSession(ctx, session)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("vpn session started",
		slog.String("session_id", id),
		slog.String("server_location", serverLocation))
	return id, nil
}

// Stop закрывает открытую сессию пользователя и записывает объём трафика.
// Повторное закрытие той же сессии возвращает ErrSessionNotFound.
func (s *SessionService) Stop(ctx context.Context, sessionID, userUID string, bytesIn, bytesOut int64) error {
	const op = "services.session.Stop"

	closed, err := s.sessions.CloseSession(ctx, sessionID, userUID, bytesIn, bytesOut)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if closed == 0 {
		return ErrSessionNotFound
	}

	s.log.Info("vpn session stopped",
		slog.String("session_id", sessionID),
		slog.Int64("bytes_in", bytesIn),
		slog.Int64("bytes_out", bytesOut))
	return nil
}

// List возвращает страницу сессий пользователя, новые первыми.
func (s *SessionService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Session, error) {
	const op = "services.session.List"

	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	sessions, err := s.sessions.ListSessions(ctx, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// Stats возвращает агрегаты по всем сессиям пользователя.
func (s *SessionService) Stats(ctx context.Context, userUID string) (*models.SessionStats, error) {
	const op = "services.session.Stats"

	stats, err := s.sessions.CountSessionStats(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
