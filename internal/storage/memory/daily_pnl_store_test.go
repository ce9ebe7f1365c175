package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
)

func TestDailyPnlStore_LatestRunWins(t *testing.T) {
	store := NewDailyPnlStore()
	ctx := context.Background()
	t0 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	older := []*domain.DailyPnlRecord{
		{Wallet: "0xa", Date: "2025-01-01", RunID: "r1", ComputedAt: t0, NetPnl: decimal.NewFromInt(1)},
		{Wallet: "0xa", Date: "2025-01-02", RunID: "r1", ComputedAt: t0, NetPnl: decimal.NewFromInt(2)},
	}
	newer := []*domain.DailyPnlRecord{
		{Wallet: "0xa", Date: "2025-01-02", RunID: "r2", ComputedAt: t0.Add(time.Hour), NetPnl: decimal.NewFromInt(20)},
	}

	if err := store.InsertBulk(ctx, newer); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	if err := store.InsertBulk(ctx, older); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByWalletRange(ctx, "0xa", "2025-01-01", "2025-01-31")
	if err != nil {
		t.Fatalf("GetByWalletRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].RunID != "r1" || got[1].RunID != "r2" {
		t.Errorf("unexpected runs: %s, %s", got[0].RunID, got[1].RunID)
	}
	if !got[1].NetPnl.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected latest computation to win, got %s", got[1].NetPnl)
	}
}
