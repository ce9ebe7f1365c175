package memory

import (
	"context"
	"sync"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// PnlCacheStore is an in-memory implementation of storage.PnlCacheStore.
type PnlCacheStore struct {
	mu      sync.RWMutex
	entries map[string]*domain.PnlCacheEntry
}

// NewPnlCacheStore creates a new in-memory PnL cache.
func NewPnlCacheStore() *PnlCacheStore {
	return &PnlCacheStore{
		entries: make(map[string]*domain.PnlCacheEntry),
	}
}

// Get retrieves an entry valid at now. Returns ErrNotFound if missing or expired.
func (s *PnlCacheStore) Get(_ context.Context, key string, now time.Time) (*domain.PnlCacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.ExpiresAt) {
		return nil, storage.ErrNotFound
	}
	return copyEntry(e), nil
}

// Put inserts or replaces an entry.
func (s *PnlCacheStore) Put(_ context.Context, e *domain.PnlCacheEntry) error {
	if e == nil || e.Key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[e.Key] = copyEntry(e)
	return nil
}

// DeleteExpired removes entries expired at now.
func (s *PnlCacheStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			delete(s.entries, key)
			n++
		}
	}
	return n, nil
}

func copyEntry(e *domain.PnlCacheEntry) *domain.PnlCacheEntry {
	eCopy := *e
	eCopy.Payload = append([]byte(nil), e.Payload...)
	return &eCopy
}

var _ storage.PnlCacheStore = (*PnlCacheStore)(nil)
