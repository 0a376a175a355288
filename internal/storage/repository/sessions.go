package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// CreateSession вставляет новую сессию VPN-подключения и возвращает её ID.
func (s *Storage) CreateSession(ctx context.Context, session models.Session) (string, error) {
	const op = "storage.CreateSession"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO sessions (id, user_uid, server_location, client_ip, connected_at)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id`
	var newID string
	err := s.DB.QueryRowContext(ctx, query,
		session.ID, session.UserUID, session.ServerLocation, session.ClientIP,
		session.ConnectedAt).Scan(&newID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// CloseSession завершает сессию: проставляет время отключения и счётчики байт.
// Возвращает количество изменённых строк; 0 означает, что открытой сессии
// с таким ID у пользователя нет.
func (s *Storage) CloseSession(ctx context.Context, sessionID, userUID string, bytesIn, bytesOut int64) (int, error) {
	const op = "storage.CloseSession"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE sessions
			  SET disconnected_at = NOW(),
			      bytes_in = $1,
			      bytes_out = $2
			  WHERE id = $3
			    AND user_uid = $4
			    AND disconnected_at IS NULL`
	result, err := s.DB.ExecContext(ctx, query, bytesIn, bytesOut, sessionID, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListSessions возвращает список сессий пользователя с пагинацией,
// начиная с самых свежих.
func (s *Storage) ListSessions(ctx context.Context, userUID string, limit, offset int) ([]*models.Session, error) {
	const op = "storage.ListSessions"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, server_location, COALESCE(client_ip, ''),
			      connected_at, disconnected_at, bytes_in, bytes_out
			  FROM sessions
			  WHERE user_uid = $1
			  ORDER BY connected_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Session
	for rows.Next() {
		var item models.Session
		var disconnectedAt sql.NullTime
		if err := rows.Scan(&item.ID, &item.UserUID, &item.ServerLocation, &item.ClientIP,
			&item.ConnectedAt, &disconnectedAt, &item.BytesIn, &item.BytesOut); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if disconnectedAt.Valid {
			item.DisconnectedAt = &disconnectedAt.Time
		}
		result = append(result, &item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// CountSessionStats подсчитывает агрегированную статистику сессий пользователя.
func (s *Storage) CountSessionStats(ctx context.Context, userUID string) (*models.SessionStats, error) {
	const op = "storage.CountSessionStats"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT COUNT(*), COALESCE(SUM(bytes_in), 0), COALESCE(SUM(bytes_out), 0)
			  FROM sessions
			  WHERE user_uid = $1`
	var stats models.SessionStats
	row := s.DB.QueryRowContext(ctx, query, userUID)
	if err := row.Scan(&stats.TotalSessions, &stats.TotalBytesIn, &stats.TotalBytesOut); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &stats, nil
}
