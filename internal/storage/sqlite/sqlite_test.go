package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), filepath.Join(t.TempDir(), "pnl.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pnl.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = NewTrackedWalletStore(db).Add(ctx, "0xabc", nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	w, err := NewTrackedWalletStore(db).Get(ctx, "0xabc")
	require.NoError(t, err)
	assert.True(t, w.Active)
}

func TestEquitySnapshotStore_DecimalRoundTrip(t *testing.T) {
	store := NewEquitySnapshotStore(openTestDB(t))
	ctx := context.Background()
	snapTime := time.Date(2025, 1, 2, 23, 55, 0, 0, time.UTC)

	snap := &domain.EquitySnapshot{
		Wallet:           "0xabc",
		Date:             "2025-01-02",
		EquityUSD:        decimal.RequireFromString("12345.678901234567"),
		UnrealizedPnlUSD: decimal.RequireFromString("-12.5"),
		AccountValue:     decimal.RequireFromString("12345.678901234567"),
		TotalMarginUsed:  decimal.RequireFromString("100"),
		PositionsCount:   3,
		SnapshotTime:     snapTime,
	}
	require.NoError(t, store.Upsert(ctx, snap))

	got, err := store.Get(ctx, "0xabc", "2025-01-02")
	require.NoError(t, err)
	assert.True(t, got.EquityUSD.Equal(snap.EquityUSD), "equity %s", got.EquityUSD)
	assert.True(t, got.UnrealizedPnlUSD.Equal(snap.UnrealizedPnlUSD))
	assert.Equal(t, 3, got.PositionsCount)
	assert.True(t, got.SnapshotTime.Equal(snapTime))

	snap.EquityUSD = decimal.NewFromInt(1)
	require.NoError(t, store.Upsert(ctx, snap))
	again, err := store.Get(ctx, "0xabc", "2025-01-02")
	require.NoError(t, err)
	assert.Equal(t, got.ID, again.ID)
	assert.True(t, again.EquityUSD.Equal(decimal.NewFromInt(1)))

	_, err = store.Get(ctx, "0xabc", "2025-01-03")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEquitySnapshotStore_Range(t *testing.T) {
	store := NewEquitySnapshotStore(openTestDB(t))
	ctx := context.Background()

	for _, date := range []string{"2025-01-05", "2025-01-01", "2025-01-03"} {
		require.NoError(t, store.Upsert(ctx, &domain.EquitySnapshot{
			Wallet: "0xabc", Date: date, EquityUSD: decimal.NewFromInt(1), SnapshotTime: time.Now(),
		}))
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

func TestTrackedWalletStore_Lifecycle(t *testing.T) {
	store := NewTrackedWalletStore(openTestDB(t))
	ctx := context.Background()

	name := "main"
	added, err := store.Add(ctx, "0xabc", &name)
	require.NoError(t, err)
	require.NotNil(t, added.Name)

	require.NoError(t, store.Deactivate(ctx, "0xabc"))
	assert.ErrorIs(t, store.Deactivate(ctx, "0xabc"), storage.ErrNotFound)

	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	again, err := store.Add(ctx, "0xabc", nil)
	require.NoError(t, err)
	assert.Equal(t, added.ID, again.ID)
	assert.True(t, again.Active)
	require.NotNil(t, again.Name)
	assert.Equal(t, "main", *again.Name)
}

func TestPnlCacheStore_Expiry(t *testing.T) {
	store := NewPnlCacheStore(openTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, &domain.PnlCacheEntry{
		Key: "k", Wallet: "0xabc", Start: "2025-01-01", End: "2025-01-10",
		Payload: []byte(`{}`), CreatedAt: now, ExpiresAt: now.Add(time.Minute),
	}))

	got, err := store.Get(ctx, "k", now)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{}`), got.Payload)

	_, err = store.Get(ctx, "k", now.Add(time.Minute))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	n, err := store.DeleteExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
