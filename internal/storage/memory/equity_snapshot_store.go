package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// EquitySnapshotStore is an in-memory implementation of storage.EquitySnapshotStore.
type EquitySnapshotStore struct {
	mu     sync.RWMutex
	byKey  map[string]*domain.EquitySnapshot // keyed by wallet|date
	nextID int64
}

// NewEquitySnapshotStore creates a new in-memory equity snapshot store.
func NewEquitySnapshotStore() *EquitySnapshotStore {
	return &EquitySnapshotStore{
		byKey: make(map[string]*domain.EquitySnapshot),
	}
}

func snapshotKey(wallet, date string) string {
	return wallet + "|" + date
}

// Upsert inserts a snapshot or replaces the one for the same (wallet, date).
// ID and CreatedAt of the existing row are kept.
func (s *EquitySnapshotStore) Upsert(_ context.Context, snap *domain.EquitySnapshot) error {
	if snap == nil || snap.Wallet == "" || snap.Date == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snapshotKey(snap.Wallet, snap.Date)
	snapCopy := *snap
	if existing, ok := s.byKey[key]; ok {
		snapCopy.ID = existing.ID
		snapCopy.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		snapCopy.ID = s.nextID
		snapCopy.CreatedAt = time.Now().UTC()
	}
	s.byKey[key] = &snapCopy
	return nil
}

// Get retrieves the snapshot for (wallet, date). Returns ErrNotFound if not exists.
func (s *EquitySnapshotStore) Get(_ context.Context, wallet, date string) (*domain.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.byKey[snapshotKey(wallet, date)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	snapCopy := *snap
	return &snapCopy, nil
}

// GetLatest retrieves the most recent snapshot by date. Returns ErrNotFound if none.
func (s *EquitySnapshotStore) GetLatest(_ context.Context, wallet string) (*domain.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.EquitySnapshot
	for _, snap := range s.byKey {
		if snap.Wallet != wallet {
			continue
		}
		if latest == nil || snap.Date > latest.Date {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	snapCopy := *latest
	return &snapCopy, nil
}

// GetByRange retrieves snapshots with date in [start, end], ordered by date ASC.
func (s *EquitySnapshotStore) GetByRange(_ context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.EquitySnapshot
	for _, snap := range s.byKey {
		if snap.Wallet == wallet && snap.Date >= start && snap.Date <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)
