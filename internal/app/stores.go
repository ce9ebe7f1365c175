// Package app assembles storage backends and services from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/config"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/storage"
	chstore "hyperliquid-pnl-lab/internal/storage/clickhouse"
	"hyperliquid-pnl-lab/internal/storage/memory"
	"hyperliquid-pnl-lab/internal/storage/migrations"
	pgstore "hyperliquid-pnl-lab/internal/storage/postgres"
	"hyperliquid-pnl-lab/internal/storage/sqlite"
)

// Stores holds the storage implementations selected by configuration.
type Stores struct {
	Backend   string
	Snapshots storage.EquitySnapshotStore
	Wallets   storage.TrackedWalletStore
	Cache     storage.PnlCacheStore
	History   storage.DailyPnlStore // nil when no history backend is configured

	closers []func() error
}

// Close releases all backend connections.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// OpenStores connects the configured backend, applies migrations and wraps
// each store with query metrics when m is non-nil.
func OpenStores(ctx context.Context, cfg config.StorageConfig, m *observability.Metrics, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Stores{Backend: cfg.Backend}

	switch cfg.Backend {
	case config.BackendMemory:
		s.Snapshots = memory.NewEquitySnapshotStore()
		s.Wallets = memory.NewTrackedWalletStore()
		s.Cache = memory.NewPnlCacheStore()
		s.History = memory.NewDailyPnlStore()

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." && cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		s.Snapshots = sqlite.NewEquitySnapshotStore(db)
		s.Wallets = sqlite.NewTrackedWalletStore(db)
		s.Cache = sqlite.NewPnlCacheStore(db)
		logger.Info("sqlite storage ready", zap.String("path", cfg.SQLitePath))

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		s.Snapshots = pgstore.NewEquitySnapshotStore(pool)
		s.Wallets = pgstore.NewTrackedWalletStore(pool)
		s.Cache = pgstore.NewPnlCacheStore(pool)
		logger.Info("postgres storage ready")

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("clickhouse history: %w", err)
		}
		s.closers = append(s.closers, conn.Close)
		s.History = chstore.NewDailyPnlStore(conn)
		logger.Info("clickhouse pnl history enabled")
	}

	if m != nil {
		s.instrument(m)
	}
	return s, nil
}

// instrument wraps every store with query metrics labelled by backend.
func (s *Stores) instrument(m *observability.Metrics) {
	s.Snapshots = &meteredSnapshots{next: s.Snapshots, meter: meter{m: m, db: s.Backend}}
	s.Wallets = &meteredWallets{next: s.Wallets, meter: meter{m: m, db: s.Backend}}
	s.Cache = &meteredCache{next: s.Cache, meter: meter{m: m, db: s.Backend}}
	if s.History != nil {
		db := s.Backend
		if _, ok := s.History.(*chstore.DailyPnlStore); ok {
			db = "clickhouse"
		}
		s.History = &meteredHistory{next: s.History, meter: meter{m: m, db: db}}
	}
}
