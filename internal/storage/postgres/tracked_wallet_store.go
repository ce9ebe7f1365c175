package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// TrackedWalletStore implements storage.TrackedWalletStore using PostgreSQL.
type TrackedWalletStore struct {
	pool *Pool
}

// NewTrackedWalletStore creates a new TrackedWalletStore.
func NewTrackedWalletStore(pool *Pool) *TrackedWalletStore {
	return &TrackedWalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TrackedWalletStore = (*TrackedWalletStore)(nil)

// Add enrolls a wallet or reactivates a removed one. A nil name keeps the previous name.
func (s *TrackedWalletStore) Add(ctx context.Context, wallet string, name *string) (*domain.TrackedWallet, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_wallets (wallet, name, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (wallet) DO UPDATE SET
			name = COALESCE(EXCLUDED.name, tracked_wallets.name),
			active = TRUE,
			updated_at = now()
		RETURNING id, wallet, name, active, created_at, updated_at
	`

	w, err := scanWallet(s.pool.QueryRow(ctx, query, wallet, name))
	if err != nil {
		return nil, storeErr("add tracked wallet", err)
	}
	return w, nil
}

// Deactivate soft-deletes a wallet. Returns ErrNotFound if not exists or inactive.
func (s *TrackedWalletStore) Deactivate(ctx context.Context, wallet string) error {
	query := `
		UPDATE tracked_wallets
		SET active = FALSE, updated_at = now()
		WHERE wallet = $1 AND active
	`

	tag, err := s.pool.Exec(ctx, query, wallet)
	if err != nil {
		return fmt.Errorf("deactivate tracked wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Get retrieves a wallet regardless of status. Returns ErrNotFound if not exists.
func (s *TrackedWalletStore) Get(ctx context.Context, wallet string) (*domain.TrackedWallet, error) {
	query := `
		SELECT id, wallet, name, active, created_at, updated_at
		FROM tracked_wallets
		WHERE wallet = $1
	`

	w, err := scanWallet(s.pool.QueryRow(ctx, query, wallet))
	if err != nil {
		return nil, storeErr("get tracked wallet", err)
	}
	return w, nil
}

// ListActive retrieves active wallets ordered by creation time ASC.
func (s *TrackedWalletStore) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	query := `
		SELECT id, wallet, name, active, created_at, updated_at
		FROM tracked_wallets
		WHERE active
		ORDER BY created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query)
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

// scanWallet scans a single row into a TrackedWallet.
func scanWallet(row pgx.Row) (*domain.TrackedWallet, error) {
	var w domain.TrackedWallet
	err := row.Scan(&w.ID, &w.Wallet, &w.Name, &w.Active, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
