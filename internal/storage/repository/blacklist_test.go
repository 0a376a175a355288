package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorage_DeletedAccounts(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	window := 30 * 24 * time.Hour

	t.Run("удалённый аккаунт попадает в окно блокировки", func(t *testing.T) {
		err := storage.AddDeletedAccount(ctx, "google", "subj-1")
		require.NoError(t, err)

		deleted, err := storage.IsAccountDeleted(ctx, "google", "subj-1", window)
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("неизвестная личность не заблокирована", func(t *testing.T) {
		deleted, err := storage.IsAccountDeleted(ctx, "google", "subj-unknown", window)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("запись вне окна не блокирует вход", func(t *testing.T) {
		err := storage.AddDeletedAccount(ctx, "apple", "subj-old")
		require.NoError(t, err)
		_, err = storage.DB.Exec(`UPDATE deleted_accounts
			SET deleted_at = NOW() - INTERVAL '31 days'
			WHERE provider = 'apple' AND provider_subject = 'subj-old'`)
		require.NoError(t, err)

		deleted, err := storage.IsAccountDeleted(ctx, "apple", "subj-old", window)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("повторное удаление обновляет время", func(t *testing.T) {
		err := storage.AddDeletedAccount(ctx, "apple", "subj-old")
		require.NoError(t, err)

		deleted, err := storage.IsAccountDeleted(ctx, "apple", "subj-old", window)
		require.NoError(t, err)
		assert.True(t, deleted)
	})
}

func TestStorage_PurgeDeletedAccounts(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	window := 30 * 24 * time.Hour

	require.NoError(t, storage.AddDeletedAccount(ctx, "google", "fresh"))
	require.NoError(t, storage.AddDeletedAccount(ctx, "google", "stale"))
	_, err := storage.DB.Exec(`UPDATE deleted_accounts
		SET deleted_at = NOW() - INTERVAL '31 days'
		WHERE provider_subject = 'stale'`)
	require.NoError(t, err)

	purged, err := storage.PurgeDeletedAccounts(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	deleted, err := storage.IsAccountDeleted(ctx, "google", "fresh", window)
	require.NoError(t, err)
	assert.True(t, deleted)
}
