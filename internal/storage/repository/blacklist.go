package repository

import (
	"context"
	"fmt"
	"time"
)

// AddDeletedAccount записывает личность удалённого аккаунта в таблицу
// deleted_accounts. Таблица персистентная: в отличие от карты в памяти
// процесса она переживает рестарты и видна всем экземплярам сервиса.
func (s *Storage) AddDeletedAccount(ctx context.Context, provider, providerSubject string) error {
	const op = "storage.AddDeletedAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO deleted_accounts (provider, provider_subject, deleted_at)
			  VALUES ($1, $2, NOW())
			  ON CONFLICT (provider, provider_subject)
			  DO UPDATE SET deleted_at = NOW()`
	_, err := s.DB.ExecContext(ctx, query, provider, providerSubject)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// IsAccountDeleted проверяет, попадает ли личность в окно блокировки
// после удаления аккаунта.
func (s *Storage) IsAccountDeleted(ctx context.Context, provider, providerSubject string, window time.Duration) (bool, error) {
	const op = "storage.IsAccountDeleted"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM deleted_accounts
			      WHERE provider = $1
			        AND provider_subject = $2
			        AND deleted_at > NOW() - make_interval(secs => $3)
			  )`
	var exists bool
	err := s.DB.QueryRowContext(ctx, query, provider, providerSubject, window.Seconds()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// PurgeDeletedAccounts удаляет записи, вышедшие за окно блокировки.
func (s *Storage) PurgeDeletedAccounts(ctx context.Context, window time.Duration) (int, error) {
	const op = "storage.PurgeDeletedAccounts"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM deleted_accounts
			  WHERE deleted_at <= NOW() - make_interval(secs => $1)`
	result, err := s.DB.ExecContext(ctx, query, window.Seconds())
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
