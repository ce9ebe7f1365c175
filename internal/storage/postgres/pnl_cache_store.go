package postgres

import (
	"context"
	"fmt"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// PnlCacheStore implements storage.PnlCacheStore using PostgreSQL.
type PnlCacheStore struct {
	pool *Pool
}

// NewPnlCacheStore creates a new PnlCacheStore.
func NewPnlCacheStore(pool *Pool) *PnlCacheStore {
	return &PnlCacheStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PnlCacheStore = (*PnlCacheStore)(nil)

// Get retrieves an entry valid at now. Returns ErrNotFound if missing or expired.
func (s *PnlCacheStore) Get(ctx context.Context, key string, now time.Time) (*domain.PnlCacheEntry, error) {
	query := `
		SELECT cache_key, wallet, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
			payload, created_at, expires_at
		FROM pnl_cache
		WHERE cache_key = $1 AND expires_at > $2
	`

	var e domain.PnlCacheEntry
	err := s.pool.QueryRow(ctx, query, key, now).Scan(
		&e.Key, &e.Wallet, &e.Start, &e.End, &e.Payload, &e.CreatedAt, &e.ExpiresAt,
	)
	if err != nil {
		return nil, storeErr("get pnl cache entry", err)
	}
	return &e, nil
}

// Put inserts or replaces an entry.
func (s *PnlCacheStore) Put(ctx context.Context, e *domain.PnlCacheEntry) error {
	if e == nil || e.Key == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO pnl_cache (cache_key, wallet, start_date, end_date, payload, created_at, expires_at)
		VALUES ($1, $2, $3::date, $4::date, $5, $6, $7)
		ON CONFLICT (cache_key) DO UPDATE SET
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`

	_, err := s.pool.Exec(ctx, query, e.Key, e.Wallet, e.Start, e.End, e.Payload, e.CreatedAt, e.ExpiresAt)
	if err != nil {
		return storeErr("put pnl cache entry", err)
	}
	return nil
}

// DeleteExpired removes entries expired at now and returns how many were removed.
func (s *PnlCacheStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM pnl_cache WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired pnl cache entries: %w", err)
	}
	return tag.RowsAffected(), nil
}
