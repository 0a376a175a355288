package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Keen-VPN/vpn-backend-service/internal/models"
)

// ErrSnapshotConflict возвращается, если условная запись снимка подписки
// не прошла: другой обработчик успел записать снимок первым.
var ErrSnapshotConflict = errors.New("subscription snapshot was modified concurrently")

// ErrUserNotFound возвращается, если пользователь не найден.
var ErrUserNotFound = errors.New("user not found")

// FindOrCreateUser возвращает пользователя по личности провайдера,
// создавая запись при первом входе. Новый пользователь получает роль user
// и снимок подписки со статусом inactive без даты окончания.
func (s *Storage) FindOrCreateUser(ctx context.Context, identity models.ProviderIdentity) (*models.User, error) {
	const op = "storage.FindOrCreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO users (email, provider, provider_subject, role, subscription_status)
			  VALUES ($1, $2, $3, 'user', 'inactive')
			  ON CONFLICT (provider, provider_subject)
			  DO UPDATE SET email = EXCLUDED.email
			  RETURNING uid, email, provider, provider_subject, role,
			      COALESCE(refresh_token_hash, ''), subscription_status,
			      subscription_period_end, COALESCE(subscription_customer_id, ''),
			      COALESCE(subscription_plan, ''), subscription_updated_at, created_at`
	row := s.DB.QueryRowContext(ctx, query, identity.Email, identity.Provider, identity.Subject)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUser возвращает пользователя по его UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	const op = "storage.GetUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, provider, provider_subject, role,
			      COALESCE(refresh_token_hash, ''), subscription_status,
			      subscription_period_end, COALESCE(subscription_customer_id, ''),
			      COALESCE(subscription_plan, ''), subscription_updated_at, created_at
			  FROM users
			  WHERE uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetSubscriptionSnapshot возвращает текущий снимок подписки пользователя.
func (s *Storage) GetSubscriptionSnapshot(ctx context.Context, userUID string) (*models.SubscriptionSnapshot, error) {
	const op = "storage.GetSubscriptionSnapshot"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT subscription_status, subscription_period_end,
			      COALESCE(subscription_customer_id, ''), COALESCE(subscription_plan, ''),
			      subscription_updated_at
			  FROM users
			  WHERE uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var snap models.SubscriptionSnapshot
	var periodEnd, updatedAt sql.NullTime
	if err := row.Scan(&snap.Status, &periodEnd, &snap.CustomerID, &snap.Plan, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if periodEnd.Valid {
		snap.PeriodEnd = &periodEnd.Time
	}
	if updatedAt.Valid {
		snap.UpdatedAt = updatedAt.Time
	}
	return &snap, nil
}

// UpdateSubscriptionSnapshot записывает новый снимок подписки при условии,
// что с момента чтения снимок не менялся: сравнение идёт по
// subscription_updated_at. При конфликте возвращается ErrSnapshotConflict,
// и вызывающая сторона перечитывает снимок и повторяет согласование.
func (s *Storage) UpdateSubscriptionSnapshot(ctx context.Context, userUID string, next models.SubscriptionSnapshot, prevUpdatedAt time.Time) error {
	const op = "storage.UpdateSubscriptionSnapshot"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	var prev any
	if !prevUpdatedAt.IsZero() {
		prev = prevUpdatedAt
	}

	query := `UPDATE users
			  SET subscription_status = $1,
			      subscription_period_end = $2,
			      subscription_customer_id = $3,
			      subscription_plan = $4,
			      subscription_updated_at = $5
			  WHERE uid = $6
			    AND subscription_updated_at IS NOT DISTINCT FROM $7`
	result, err := s.DB.ExecContext(ctx, query,
		next.Status, next.PeriodEnd, next.CustomerID, next.Plan, next.UpdatedAt,
		userUID, prev)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrSnapshotConflict)
	}
	return nil
}

// UpdateRefreshTokenHash сохраняет bcrypt-хэш refresh-токена пользователя.
func (s *Storage) UpdateRefreshTokenHash(ctx context.Context, userUID, hash string) error {
	const op = "storage.UpdateRefreshTokenHash"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE users
			  SET refresh_token_hash = $1
			  WHERE uid = $2`
	_, err := s.DB.ExecContext(ctx, query, hash, userUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// DeleteUser удаляет пользователя; сессии удаляются каскадно.
func (s *Storage) DeleteUser(ctx context.Context, userUID string) (int, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM users WHERE uid = $1`
	result, err := s.DB.ExecContext(ctx, query, userUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// FindSubscriptionsExpiringTomorrow находит пользователей, чей оплаченный
// период заканчивается завтра. Используется планировщиком уведомлений.
func (s *Storage) FindSubscriptionsExpiringTomorrow(ctx context.Context) ([]*models.User, error) {
	const op = "storage.FindSubscriptionsExpiringTomorrow"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT uid, email, provider, provider_subject, role,
			      COALESCE(refresh_token_hash, ''), subscription_status,
			      subscription_period_end, COALESCE(subscription_customer_id, ''),
			      COALESCE(subscription_plan, ''), subscription_updated_at, created_at
			  FROM users
		      WHERE subscription_status IN ('active', 'trialing')
		        AND subscription_period_end::DATE = CURRENT_DATE + INTERVAL '1 day'`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUserFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var periodEnd, updatedAt sql.NullTime
	if err := row.Scan(&u.UID, &u.Email, &u.Provider, &u.ProviderSubject, &u.Role,
		&u.RefreshTokenHash, &u.Subscription.Status, &periodEnd,
		&u.Subscription.CustomerID, &u.Subscription.Plan, &updatedAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if periodEnd.Valid {
		u.Subscription.PeriodEnd = &periodEnd.Time
	}
	if updatedAt.Valid {
		u.Subscription.UpdatedAt = updatedAt.Time
	}
	return u, nil
}

func scanUserFromRows(rows *sql.Rows) (*models.User, error) {
	u := &models.User{}
	var periodEnd, updatedAt sql.NullTime
	if err := rows.Scan(&u.UID, &u.Email, &u.Provider, &u.ProviderSubject, &u.Role,
		&u.RefreshTokenHash, &u.Subscription.Status, &periodEnd,
		&u.Subscription.CustomerID, &u.Subscription.Plan, &updatedAt, &u.CreatedAt); err != nil {
		return nil, err
	}
	if periodEnd.Valid {
		u.Subscription.PeriodEnd = &periodEnd.Time
	}
	if updatedAt.Valid {
		u.Subscription.UpdatedAt = updatedAt.Time
	}
	return u, nil
}
