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

// TrackedWalletStore implements storage.TrackedWalletStore on SQLite.
type TrackedWalletStore struct {
	db  *DB
	now func() time.Time
}

// NewTrackedWalletStore creates a new TrackedWalletStore.
func NewTrackedWalletStore(db *DB) *TrackedWalletStore {
	return &TrackedWalletStore{db: db, now: time.Now}
}

var _ storage.TrackedWalletStore = (*TrackedWalletStore)(nil)

// Add enrolls a wallet or reactivates a removed one. A nil name keeps the previous name.
func (s *TrackedWalletStore) Add(ctx context.Context, wallet string, name *string) (*domain.TrackedWallet, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	now := toMillis(s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tracked_wallets (wallet, name, active, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (wallet) DO UPDATE SET
			name = COALESCE(excluded.name, tracked_wallets.name),
			active = 1,
			updated_at = excluded.updated_at`,
		wallet, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("add tracked wallet: %w", err)
	}
	return s.Get(ctx, wallet)
}

// Deactivate soft-deletes a wallet. Returns ErrNotFound if not exists or inactive.
func (s *TrackedWalletStore) Deactivate(ctx context.Context, wallet string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tracked_wallets SET active = 0, updated_at = ? WHERE wallet = ? AND active = 1`,
		toMillis(s.now()), wallet)
	if err != nil {
		return fmt.Errorf("deactivate tracked wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate tracked wallet: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a wallet regardless of status. Returns ErrNotFound if not exists.
func (s *TrackedWalletStore) Get(ctx context.Context, wallet string) (*domain.TrackedWallet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, wallet, name, active, created_at, updated_at
		FROM tracked_wallets WHERE wallet = ?`, wallet)

	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked wallet: %w", err)
	}
	return w, nil
}

// ListActive retrieves active wallets ordered by creation time ASC.
func (s *TrackedWalletStore) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet, name, active, created_at, updated_at
		FROM tracked_wallets WHERE active = 1
		ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list active wallets: %w", err)
	}
	defer rows.Close()

	var wallets []*domain.TrackedWallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked wallet row: %w", err)
		}
		wallets = append(wallets, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked wallet rows: %w", err)
	}
	return wallets, nil
}

func scanWallet(row rowScanner) (*domain.TrackedWallet, error) {
	var w domain.TrackedWallet
	var name sql.NullString
	var createdMs, updatedMs int64
	if err := row.Scan(&w.ID, &w.Wallet, &name, &w.Active, &createdMs, &updatedMs); err != nil {
		return nil, err
	}
	if name.Valid {
		n := name.String
		w.Name = &n
	}
	w.CreatedAt = fromMillis(createdMs)
	w.UpdatedAt = fromMillis(updatedMs)
	return &w, nil
}
