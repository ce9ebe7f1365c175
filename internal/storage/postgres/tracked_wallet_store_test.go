package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/storage"
)

func TestTrackedWalletStore_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)

	store := NewTrackedWalletStore(pool)
	ctx := context.Background()

	added, err := store.Add(ctx, "0xabc", ptr("main"))
	require.NoError(t, err)
	assert.True(t, added.Active)
	require.NotNil(t, added.Name)
	assert.Equal(t, "main", *added.Name)

	_, err = store.Add(ctx, "0xdef", nil)
	require.NoError(t, err)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "0xabc", active[0].Wallet)

	require.NoError(t, store.Deactivate(ctx, "0xabc"))
	assert.ErrorIs(t, store.Deactivate(ctx, "0xabc"), storage.ErrNotFound)

	active, err = store.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "0xdef", active[0].Wallet)

	// Reactivation keeps id and previous name
	again, err := store.Add(ctx, "0xabc", nil)
	require.NoError(t, err)
	assert.Equal(t, added.ID, again.ID)
	assert.True(t, again.Active)
	require.NotNil(t, again.Name)
	assert.Equal(t, "main", *again.Name)
}

func TestTrackedWalletStore_GetNotFound(t *testing.T) {
	pool := setupTestDB(t)

	store := NewTrackedWalletStore(pool)
	_, err := store.Get(context.Background(), "0xnope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.Deactivate(context.Background(), "0xnope"), storage.ErrNotFound)
}
