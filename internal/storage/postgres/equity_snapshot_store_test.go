package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

func snapshotFor(wallet, date, equity string) *domain.EquitySnapshot {
	return &domain.EquitySnapshot{
		Wallet:           wallet,
		Date:             date,
		EquityUSD:        decimal.RequireFromString(equity),
		UnrealizedPnlUSD: decimal.RequireFromString("1.5"),
		AccountValue:     decimal.RequireFromString(equity),
		TotalMarginUsed:  decimal.RequireFromString("10"),
		PositionsCount:   2,
		SnapshotTime:     time.Date(2025, 1, 1, 23, 55, 0, 0, time.UTC),
	}
}

func TestEquitySnapshotStore_Upsert(t *testing.T) {
	pool := setupTestDB(t)

	store := NewEquitySnapshotStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, snapshotFor("0xabc", "2025-01-01", "1000.123456789")))

	got, err := store.Get(ctx, "0xabc", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got.Date)
	assert.True(t, got.EquityUSD.Equal(decimal.RequireFromString("1000.123456789")))
	assert.Equal(t, 2, got.PositionsCount)

	// Same (wallet, date) replaces values, keeps id
	require.NoError(t, store.Upsert(ctx, snapshotFor("0xabc", "2025-01-01", "900")))
	again, err := store.Get(ctx, "0xabc", "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.True(t, again.EquityUSD.Equal(decimal.NewFromInt(900)))
}

func TestEquitySnapshotStore_RangeAndLatest(t *testing.T) {
	pool := setupTestDB(t)

	store := NewEquitySnapshotStore(pool)
	ctx := context.Background()

	for _, snap := range []*domain.EquitySnapshot{
		snapshotFor("0xabc", "2025-01-03", "3"),
		snapshotFor("0xabc", "2025-01-01", "1"),
		snapshotFor("0xabc", "2025-01-05", "5"),
		snapshotFor("0xdef", "2025-01-02", "2"),
	} {
		require.NoError(t, store.Upsert(ctx, snap))
	}

	got, err := store.GetByRange(ctx, "0xabc", "2025-01-01", "2025-01-04")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-01-01", got[0].Date)
	assert.Equal(t, "2025-01-03", got[1].Date)

	latest, err := store.GetLatest(ctx, "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", latest.Date)
}

func TestEquitySnapshotStore_NotFound(t *testing.T) {
	pool := setupTestDB(t)

	store := NewEquitySnapshotStore(pool)
	ctx := context.Background()

	_, err := store.Get(ctx, "0xabc", "2025-01-01")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetLatest(ctx, "0xabc")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
