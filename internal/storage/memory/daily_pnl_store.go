package memory

import (
	"context"
	"sort"
	"sync"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// DailyPnlStore is an in-memory implementation of storage.DailyPnlStore.
// Mirrors ReplacingMergeTree(computed_at): the latest computation per (wallet, date) wins.
type DailyPnlStore struct {
	mu     sync.RWMutex
	latest map[string]*domain.DailyPnlRecord // keyed by wallet|date
}

// NewDailyPnlStore creates a new in-memory daily PnL history.
func NewDailyPnlStore() *DailyPnlStore {
	return &DailyPnlStore{
		latest: make(map[string]*domain.DailyPnlRecord),
	}
}

// InsertBulk appends records; older computations for the same day are superseded.
func (s *DailyPnlStore) InsertBulk(_ context.Context, records []*domain.DailyPnlRecord) error {
	for _, r := range records {
		if r == nil || r.Wallet == "" || r.Date == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		key := snapshotKey(r.Wallet, r.Date)
		if existing, ok := s.latest[key]; ok && existing.ComputedAt.After(r.ComputedAt) {
			continue
		}
		rCopy := *r
		s.latest[key] = &rCopy
	}
	return nil
}

// GetByWalletRange retrieves the latest record per date in [start, end], ordered by date ASC.
func (s *DailyPnlStore) GetByWalletRange(_ context.Context, wallet, start, end string) ([]*domain.DailyPnlRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyPnlRecord
	for _, r := range s.latest {
		if r.Wallet == wallet && r.Date >= start && r.Date <= end {
			rCopy := *r
			result = append(result, &rCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

var _ storage.DailyPnlStore = (*DailyPnlStore)(nil)
