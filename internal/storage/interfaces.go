package storage

import (
	"context"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
)

// EquitySnapshotStore provides access to equity_snapshots storage.
type EquitySnapshotStore interface {
	// Upsert inserts a snapshot or replaces the one for the same (wallet, date).
	Upsert(ctx context.Context, s *domain.EquitySnapshot) error

	// Get retrieves the snapshot for (wallet, date). Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet, date string) (*domain.EquitySnapshot, error)

	// GetLatest retrieves the most recent snapshot by date. Returns ErrNotFound if none.
	GetLatest(ctx context.Context, wallet string) (*domain.EquitySnapshot, error)

	// GetByRange retrieves snapshots with date in [start, end], ordered by date ASC.
	GetByRange(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error)
}

// TrackedWalletStore provides access to tracked_wallets storage.
type TrackedWalletStore interface {
	// Add enrolls a wallet or reactivates a removed one. A nil name keeps the
	// previous name.
	Add(ctx context.Context, wallet string, name *string) (*domain.TrackedWallet, error)

	// Deactivate soft-deletes a wallet. Returns ErrNotFound if not exists or inactive.
	Deactivate(ctx context.Context, wallet string) error

	// Get retrieves a wallet regardless of status. Returns ErrNotFound if not exists.
	Get(ctx context.Context, wallet string) (*domain.TrackedWallet, error)

	// ListActive retrieves active wallets ordered by creation time ASC.
	ListActive(ctx context.Context) ([]*domain.TrackedWallet, error)
}

// PnlCacheStore provides access to the PnL response cache.
type PnlCacheStore interface {
	// Get retrieves an entry valid at now. Returns ErrNotFound if missing or expired.
	Get(ctx context.Context, key string, now time.Time) (*domain.PnlCacheEntry, error)

	// Put inserts or replaces an entry.
	Put(ctx context.Context, e *domain.PnlCacheEntry) error

	// DeleteExpired removes entries expired at now and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// DailyPnlStore provides access to the daily PnL history.
// Rows are versioned by computation; reads return the latest per (wallet, date).
type DailyPnlStore interface {
	// InsertBulk appends records of one or more computations.
	InsertBulk(ctx context.Context, records []*domain.DailyPnlRecord) error

	// GetByWalletRange retrieves the latest record per date in [start, end], ordered by date ASC.
	GetByWalletRange(ctx context.Context, wallet, start, end string) ([]*domain.DailyPnlRecord, error)
}
