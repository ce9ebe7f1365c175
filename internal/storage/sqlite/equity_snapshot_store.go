package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// EquitySnapshotStore implements storage.EquitySnapshotStore on SQLite.
type EquitySnapshotStore struct {
	db  *DB
	now func() time.Time
}

// NewEquitySnapshotStore creates a new EquitySnapshotStore.
func NewEquitySnapshotStore(db *DB) *EquitySnapshotStore {
	return &EquitySnapshotStore{db: db, now: time.Now}
}

var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)

const snapshotColumns = `
	id, wallet, date, equity_usd, unrealized_pnl_usd, account_value,
	total_margin_used, positions_count, snapshot_time, created_at
`

// Upsert inserts a snapshot or replaces the one for the same (wallet, date).
func (s *EquitySnapshotStore) Upsert(ctx context.Context, snap *domain.EquitySnapshot) error {
	if snap == nil || snap.Wallet == "" || snap.Date == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO equity_snapshots (
			wallet, date, equity_usd, unrealized_pnl_usd, account_value,
			total_margin_used, positions_count, snapshot_time, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet, date) DO UPDATE SET
			equity_usd = excluded.equity_usd,
			unrealized_pnl_usd = excluded.unrealized_pnl_usd,
			account_value = excluded.account_value,
			total_margin_used = excluded.total_margin_used,
			positions_count = excluded.positions_count,
			snapshot_time = excluded.snapshot_time`,
		snap.Wallet, snap.Date,
		snap.EquityUSD.String(), snap.UnrealizedPnlUSD.String(), snap.AccountValue.String(),
		snap.TotalMarginUsed.String(), snap.PositionsCount,
		toMillis(snap.SnapshotTime), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert equity snapshot: %w", err)
	}
	return nil
}

// Get retrieves the snapshot for (wallet, date). Returns ErrNotFound if not exists.
func (s *EquitySnapshotStore) Get(ctx context.Context, wallet, date string) (*domain.EquitySnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM equity_snapshots WHERE wallet = ? AND date = ?`,
		wallet, date)
	return oneSnapshot(row, "get equity snapshot")
}

// GetLatest retrieves the most recent snapshot by date. Returns ErrNotFound if none.
func (s *EquitySnapshotStore) GetLatest(ctx context.Context, wallet string) (*domain.EquitySnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM equity_snapshots WHERE wallet = ? ORDER BY date DESC LIMIT 1`,
		wallet)
	return oneSnapshot(row, "get latest equity snapshot")
}

// GetByRange retrieves snapshots with date in [start, end], ordered by date ASC.
// Dates are ISO strings so lexical comparison is chronological.
func (s *EquitySnapshotStore) GetByRange(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM equity_snapshots
		WHERE wallet = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`,
		wallet, start, end)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func oneSnapshot(row rowScanner, op string) (*domain.EquitySnapshot, error) {
	snap, err := scanSnapshot(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// scanSnapshot scans one row. Decimal columns are TEXT and scan via decimal.Decimal's Scanner.
func scanSnapshot(row rowScanner) (*domain.EquitySnapshot, error) {
	var snap domain.EquitySnapshot
	var snapshotMs, createdMs int64
	err := row.Scan(
		&snap.ID, &snap.Wallet, &snap.Date,
		&snap.EquityUSD, &snap.UnrealizedPnlUSD, &snap.AccountValue, &snap.TotalMarginUsed,
		&snap.PositionsCount, &snapshotMs, &createdMs,
	)
	if err != nil {
		return nil, err
	}
	snap.SnapshotTime = fromMillis(snapshotMs)
	snap.CreatedAt = fromMillis(createdMs)
	return &snap, nil
}
