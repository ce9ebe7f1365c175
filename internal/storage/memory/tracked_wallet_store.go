package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/storage"
)

// TrackedWalletStore is an in-memory implementation of storage.TrackedWalletStore.
type TrackedWalletStore struct {
	mu       sync.RWMutex
	byWallet map[string]*domain.TrackedWallet
	nextID   int64
	now      func() time.Time
}

// NewTrackedWalletStore creates a new in-memory tracked wallet store.
func NewTrackedWalletStore() *TrackedWalletStore {
	return &TrackedWalletStore{
		byWallet: make(map[string]*domain.TrackedWallet),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Add enrolls a wallet or reactivates a removed one. A nil name keeps the previous name.
func (s *TrackedWalletStore) Add(_ context.Context, wallet string, name *string) (*domain.TrackedWallet, error) {
	if wallet == "" {
		return nil, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.byWallet[wallet]
	if !ok {
		s.nextID++
		w = &domain.TrackedWallet{ID: s.nextID, Wallet: wallet, CreatedAt: now}
		s.byWallet[wallet] = w
	}
	if name != nil {
		n := *name
		w.Name = &n
	}
	w.Active = true
	w.UpdatedAt = now

	return copyWallet(w), nil
}

// Deactivate soft-deletes a wallet. Returns ErrNotFound if not exists or inactive.
func (s *TrackedWalletStore) Deactivate(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.byWallet[wallet]
	if !ok || !w.Active {
		return storage.ErrNotFound
	}
	w.Active = false
	w.UpdatedAt = s.now()
	return nil
}

// Get retrieves a wallet regardless of status. Returns ErrNotFound if not exists.
func (s *TrackedWalletStore) Get(_ context.Context, wallet string) (*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byWallet[wallet]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyWallet(w), nil
}

// ListActive retrieves active wallets ordered by creation time ASC.
func (s *TrackedWalletStore) ListActive(_ context.Context) ([]*domain.TrackedWallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedWallet
	for _, w := range s.byWallet {
		if w.Active {
			result = append(result, copyWallet(w))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func copyWallet(w *domain.TrackedWallet) *domain.TrackedWallet {
	wCopy := *w
	if w.Name != nil {
		n := *w.Name
		wCopy.Name = &n
	}
	return &wCopy
}

var _ storage.TrackedWalletStore = (*TrackedWalletStore)(nil)
