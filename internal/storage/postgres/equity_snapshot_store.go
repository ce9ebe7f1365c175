package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// EquitySnapshotStore implements storage.EquitySnapshotStore using PostgreSQL.
type EquitySnapshotStore struct {
	pool *Pool
}

// NewEquitySnapshotStore creates a new EquitySnapshotStore.
func NewEquitySnapshotStore(pool *Pool) *EquitySnapshotStore {
	return &EquitySnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)

const snapshotColumns = `
	id, wallet, to_char(date, 'YYYY-MM-DD'), equity_usd, unrealized_pnl_usd,
	account_value, total_margin_used, positions_count, snapshot_time, created_at
`

// Upsert inserts a snapshot or replaces the one for the same (wallet, date).
func (s *EquitySnapshotStore) Upsert(ctx context.Context, snap *domain.EquitySnapshot) error {
	if snap == nil || snap.Wallet == "" || snap.Date == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO equity_snapshots (
			wallet, date, equity_usd, unrealized_pnl_usd, account_value,
			total_margin_used, positions_count, snapshot_time
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (wallet, date) DO UPDATE SET
			equity_usd = EXCLUDED.equity_usd,
			unrealized_pnl_usd = EXCLUDED.unrealized_pnl_usd,
			account_value = EXCLUDED.account_value,
			total_margin_used = EXCLUDED.total_margin_used,
			positions_count = EXCLUDED.positions_count,
			snapshot_time = EXCLUDED.snapshot_time
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Wallet,
		snap.Date,
		snap.EquityUSD,
		snap.UnrealizedPnlUSD,
		snap.AccountValue,
		snap.TotalMarginUsed,
		snap.PositionsCount,
		snap.SnapshotTime,
	)
	if err != nil {
		return storeErr("upsert equity snapshot", err)
	}
	return nil
}

// Get retrieves the snapshot for (wallet, date). Returns ErrNotFound if not exists.
func (s *EquitySnapshotStore) Get(ctx context.Context, wallet, date string) (*domain.EquitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM equity_snapshots
		WHERE wallet = $1 AND date = $2::date
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, wallet, date))
	if err != nil {
		return nil, storeErr("get equity snapshot", err)
	}
	return snap, nil
}

// GetLatest retrieves the most recent snapshot by date. Returns ErrNotFound if none.
func (s *EquitySnapshotStore) GetLatest(ctx context.Context, wallet string) (*domain.EquitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM equity_snapshots
		WHERE wallet = $1
		ORDER BY date DESC
		LIMIT 1
	`

	snap, err := scanSnapshot(s.pool.QueryRow(ctx, query, wallet))
	if err != nil {
		return nil, storeErr("get latest equity snapshot", err)
	}
	return snap, nil
}

// GetByRange retrieves snapshots with date in [start, end], ordered by date ASC.
func (s *EquitySnapshotStore) GetByRange(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM equity_snapshots
		WHERE wallet = $1 AND date >= $2::date AND date <= $3::date
		ORDER BY date ASC
	`

	rows, err := s.pool.Query(ctx, query, wallet, start, end)
	if err != nil {
		return nil, fmt.Errorf("get equity snapshots by range: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.EquitySnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equity snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity snapshot rows: %w", err)
	}
	return snaps, nil
}

// scanSnapshot scans a single row into an EquitySnapshot.
func scanSnapshot(row pgx.Row) (*domain.EquitySnapshot, error) {
	var snap domain.EquitySnapshot
	err := row.Scan(
		&snap.ID,
		&snap.Wallet,
		&snap.Date,
		&snap.EquityUSD,
		&snap.UnrealizedPnlUSD,
		&snap.AccountValue,
		&snap.TotalMarginUsed,
		&snap.PositionsCount,
		&snap.SnapshotTime,
		&snap.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}
