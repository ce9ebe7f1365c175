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

// PnlCacheStore implements storage.PnlCacheStore on SQLite.
type PnlCacheStore struct {
	db *DB
}

// NewPnlCacheStore creates a new PnlCacheStore.
func NewPnlCacheStore(db *DB) *PnlCacheStore {
	return &PnlCacheStore{db: db}
}

var _ storage.PnlCacheStore = (*PnlCacheStore)(nil)

// Get retrieves an entry valid at now. Returns ErrNotFound if missing or expired.
func (s *PnlCacheStore) Get(ctx context.Context, key string, now time.Time) (*domain.PnlCacheEntry, error) {
	var e domain.PnlCacheEntry
	var createdMs, expiresMs int64
	err := s.db.QueryRowContext(ctx, `
		SELECT cache_key, wallet, start_date, end_date, payload, created_at, expires_at
		FROM pnl_cache WHERE cache_key = ? AND expires_at > ?`,
		key, toMillis(now),
	).Scan(&e.Key, &e.Wallet, &e.Start, &e.End, &e.Payload, &createdMs, &expiresMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pnl cache entry: %w", err)
	}
	e.CreatedAt = fromMillis(createdMs)
	e.ExpiresAt = fromMillis(expiresMs)
	return &e, nil
}

// Put inserts or replaces an entry.
func (s *PnlCacheStore) Put(ctx context.Context, e *domain.PnlCacheEntry) error {
	if e == nil || e.Key == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pnl_cache (cache_key, wallet, start_date, end_date, payload, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Key, e.Wallet, e.Start, e.End, e.Payload, toMillis(e.CreatedAt), toMillis(e.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("put pnl cache entry: %w", err)
	}
	return nil
}

// DeleteExpired removes entries expired at now and returns how many were removed.
func (s *PnlCacheStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pnl_cache WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired pnl cache entries: %w", err)
	}
	return res.RowsAffected()
}
