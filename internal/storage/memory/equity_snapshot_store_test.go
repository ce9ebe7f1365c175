package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

func testSnapshot(wallet, date, equity string) *domain.EquitySnapshot {
	return &domain.EquitySnapshot{
		Wallet:       wallet,
		Date:         date,
		EquityUSD:    decimal.RequireFromString(equity),
		AccountValue: decimal.RequireFromString(equity),
		SnapshotTime: time.Date(2025, 1, 1, 23, 55, 0, 0, time.UTC),
	}
}

func TestEquitySnapshotStore_UpsertAndGet(t *testing.T) {
	store := NewEquitySnapshotStore()
	ctx := context.Background()

	if err := store.Upsert(ctx, testSnapshot("0xa", "2025-01-01", "100")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	first, err := store.Get(ctx, "0xa", "2025-01-01")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	// same (wallet, date) replaces values but keeps identity
	if err := store.Upsert(ctx, testSnapshot("0xa", "2025-01-01", "150.5")); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	second, err := store.Get(ctx, "0xa", "2025-01-01")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !second.EquityUSD.Equal(decimal.RequireFromString("150.5")) {
		t.Errorf("EquityUSD mismatch: got %s, want 150.5", second.EquityUSD)
	}
	if second.ID != first.ID {
		t.Errorf("ID changed on upsert: %d -> %d", first.ID, second.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed on upsert")
	}
}

func TestEquitySnapshotStore_NotFound(t *testing.T) {
	store := NewEquitySnapshotStore()
	ctx := context.Background()

	if _, err := store.Get(ctx, "0xa", "2025-01-01"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetLatest(ctx, "0xa"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Upsert(ctx, &domain.EquitySnapshot{Wallet: "0xa"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestEquitySnapshotStore_RangeAndLatest(t *testing.T) {
	store := NewEquitySnapshotStore()
	ctx := context.Background()

	for _, s := range []*domain.EquitySnapshot{
		testSnapshot("0xa", "2025-01-03", "3"),
		testSnapshot("0xa", "2025-01-01", "1"),
		testSnapshot("0xa", "2025-01-05", "5"),
		testSnapshot("0xb", "2025-01-02", "99"),
	} {
		if err := store.Upsert(ctx, s); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
	}

	got, err := store.GetByRange(ctx, "0xa", "2025-01-01", "2025-01-04")
	if err != nil {
		t.Fatalf("GetByRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(got))
	}
	if got[0].Date != "2025-01-01" || got[1].Date != "2025-01-03" {
		t.Errorf("unexpected order: %s, %s", got[0].Date, got[1].Date)
	}

	latest, err := store.GetLatest(ctx, "0xa")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.Date != "2025-01-05" {
		t.Errorf("latest date mismatch: got %s, want 2025-01-05", latest.Date)
	}
}
