package app

import (
	"context"
	"errors"
	"time"

	"hyperliquid-pnl-lab/internal/domain"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/storage"
)

// meter records query latency and failures. ErrNotFound is a normal outcome
// and is not counted as an error.
type meter struct {
	m  *observability.Metrics
	db string
}

func (mt meter) observe(op string, began time.Time, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	mt.m.RecordDBQuery(mt.db, op, time.Since(began).Seconds(), err)
}

type meteredSnapshots struct {
	next storage.EquitySnapshotStore
	meter
}

func (s *meteredSnapshots) Upsert(ctx context.Context, snap *domain.EquitySnapshot) error {
	began := time.Now()
	err := s.next.Upsert(ctx, snap)
	s.observe("snapshot_upsert", began, err)
	return err
}

func (s *meteredSnapshots) Get(ctx context.Context, wallet, date string) (*domain.EquitySnapshot, error) {
	began := time.Now()
	snap, err := s.next.Get(ctx, wallet, date)
	s.observe("snapshot_get", began, err)
	return snap, err
}

func (s *meteredSnapshots) GetLatest(ctx context.Context, wallet string) (*domain.EquitySnapshot, error) {
	began := time.Now()
	snap, err := s.next.GetLatest(ctx, wallet)
	s.observe("snapshot_latest", began, err)
	return snap, err
}

func (s *meteredSnapshots) GetByRange(ctx context.Context, wallet, start, end string) ([]*domain.EquitySnapshot, error) {
	began := time.Now()
	snaps, err := s.next.GetByRange(ctx, wallet, start, end)
	s.observe("snapshot_range", began, err)
	return snaps, err
}

type meteredWallets struct {
	next storage.TrackedWalletStore
	meter
}

func (s *meteredWallets) Add(ctx context.Context, wallet string, name *string) (*domain.TrackedWallet, error) {
	began := time.Now()
	w, err := s.next.Add(ctx, wallet, name)
	s.observe("wallet_add", began, err)
	return w, err
}

func (s *meteredWallets) Deactivate(ctx context.Context, wallet string) error {
	began := time.Now()
	err := s.next.Deactivate(ctx, wallet)
	s.observe("wallet_deactivate", began, err)
	return err
}

func (s *meteredWallets) Get(ctx context.Context, wallet string) (*domain.TrackedWallet, error) {
	began := time.Now()
	w, err := s.next.Get(ctx, wallet)
	s.observe("wallet_get", began, err)
	return w, err
}

func (s *meteredWallets) ListActive(ctx context.Context) ([]*domain.TrackedWallet, error) {
	began := time.Now()
	ws, err := s.next.ListActive(ctx)
	s.observe("wallet_list", began, err)
	return ws, err
}

type meteredCache struct {
	next storage.PnlCacheStore
	meter
}

func (s *meteredCache) Get(ctx context.Context, key string, now time.Time) (*domain.PnlCacheEntry, error) {
	began := time.Now()
	e, err := s.next.Get(ctx, key, now)
	s.observe("cache_get", began, err)
	return e, err
}

func (s *meteredCache) Put(ctx context.Context, e *domain.PnlCacheEntry) error {
	began := time.Now()
	err := s.next.Put(ctx, e)
	s.observe("cache_put", began, err)
	return err
}

func (s *meteredCache) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	began := time.Now()
	n, err := s.next.DeleteExpired(ctx, now)
	s.observe("cache_delete_expired", began, err)
	return n, err
}

type meteredHistory struct {
	next storage.DailyPnlStore
	meter
}

func (s *meteredHistory) InsertBulk(ctx context.Context, records []*domain.DailyPnlRecord) error {
	began := time.Now()
	err := s.next.InsertBulk(ctx, records)
	s.observe("history_insert", began, err)
	return err
}

func (s *meteredHistory) GetByWalletRange(ctx context.Context, wallet, start, end string) ([]*domain.DailyPnlRecord, error) {
	began := time.Now()
	rs, err := s.next.GetByWalletRange(ctx, wallet, start, end)
	s.observe("history_range", began, err)
	return rs, err
}

var (
	_ storage.EquitySnapshotStore = (*meteredSnapshots)(nil)
	_ storage.TrackedWalletStore  = (*meteredWallets)(nil)
	_ storage.PnlCacheStore       = (*meteredCache)(nil)
	_ storage.DailyPnlStore       = (*meteredHistory)(nil)
)
