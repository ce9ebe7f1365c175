package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/pnl"
	"hyperliquid-pnl-lab/internal/storage"
)

// DailyPnlStore implements storage.DailyPnlStore using ClickHouse.
// The table is a ReplacingMergeTree(computed_at) so reads use FINAL.
type DailyPnlStore struct {
	conn *Conn
}

// NewDailyPnlStore creates a new DailyPnlStore.
func NewDailyPnlStore(conn *Conn) *DailyPnlStore {
	return &DailyPnlStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyPnlStore = (*DailyPnlStore)(nil)

// InsertBulk appends records in one batch.
func (s *DailyPnlStore) InsertBulk(ctx context.Context, records []*domain.DailyPnlRecord) error {
	if len(records) == 0 {
		return nil
	}

	dates := make([]time.Time, len(records))
	for i, r := range records {
		if r == nil || r.Wallet == "" {
			return storage.ErrInvalidInput
		}
		d, err := pnl.ParseDate(r.Date)
		if err != nil {
			return fmt.Errorf("%w: %v", storage.ErrInvalidInput, err)
		}
		dates[i] = d
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_pnl (
			wallet, date, run_id, computed_at,
			realized_pnl, unrealized_pnl, fees, funding, net_pnl,
			equity, equity_mode, perp_net, spot_net
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, r := range records {
		var equity *decimal.Decimal
		if r.Equity.Valid {
			e := r.Equity.Decimal
			equity = &e
		}
		err = batch.Append(
			r.Wallet, dates[i], r.RunID, r.ComputedAt.UTC(),
			r.RealizedPnl, r.UnrealizedPnl, r.Fees, r.Funding, r.NetPnl,
			equity, string(r.EquityMode), r.PerpNet, r.SpotNet,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWalletRange retrieves the latest record per date in [start, end], ordered by date ASC.
func (s *DailyPnlStore) GetByWalletRange(ctx context.Context, wallet, start, end string) ([]*domain.DailyPnlRecord, error) {
	query := `
		SELECT wallet, date, run_id, computed_at,
			realized_pnl, unrealized_pnl, fees, funding, net_pnl,
			equity, equity_mode, perp_net, spot_net
		FROM daily_pnl FINAL
		WHERE wallet = ? AND date >= toDate(?) AND date <= toDate(?)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, wallet, start, end)
	if err != nil {
		return nil, fmt.Errorf("query daily pnl: %w", err)
	}
	defer rows.Close()

	return scanDailyPnl(rows)
}

// scanDailyPnl scans multiple rows.
func scanDailyPnl(rows chRows) ([]*domain.DailyPnlRecord, error) {
	var records []*domain.DailyPnlRecord

	for rows.Next() {
		var r domain.DailyPnlRecord
		var date time.Time
		var equity *decimal.Decimal
		var mode string

		err := rows.Scan(
			&r.Wallet, &date, &r.RunID, &r.ComputedAt,
			&r.RealizedPnl, &r.UnrealizedPnl, &r.Fees, &r.Funding, &r.NetPnl,
			&equity, &mode, &r.PerpNet, &r.SpotNet,
		)
		if err != nil {
			return nil, fmt.Errorf("scan daily pnl row: %w", err)
		}

		r.Date = pnl.DateOf(date)
		r.EquityMode = domain.EquityMode(mode)
		if equity != nil {
			r.Equity = decimal.NewNullDecimal(*equity)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily pnl rows: %w", err)
	}

	return records, nil
}
