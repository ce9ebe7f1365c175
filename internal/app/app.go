package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/config"
	"hyperliquid-pnl-lab/internal/hyperliquid"
	"hyperliquid-pnl-lab/internal/observability"
	"hyperliquid-pnl-lab/internal/snapshot"
	"hyperliquid-pnl-lab/internal/walletpnl"
)

// App bundles the venue client, stores and services built from a Config.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Metrics   *observability.Metrics
	Info      hyperliquid.InfoClient
	Stores    *Stores
	PnL       *walletpnl.Service
	Snapshots *snapshot.Service
}

// Metrics returns the metrics set and gatherer for namespace. The default
// namespace uses the process-wide registry.
func Metrics(namespace string) (*observability.Metrics, prometheus.Gatherer) {
	if namespace == "" || namespace == observability.DefaultNamespace {
		return observability.DefaultMetrics, prometheus.DefaultGatherer
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return observability.NewMetrics(namespace, reg), reg
}

// New builds an App. A nil m disables metrics.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, m *observability.Metrics) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	stores, err := OpenStores(ctx, cfg.Storage, m, logger.Named("storage"))
	if err != nil {
		return nil, err
	}

	opts := []hyperliquid.ClientOption{
		hyperliquid.WithTimeout(cfg.Hyperliquid.Timeout),
		hyperliquid.WithMaxRetries(cfg.Hyperliquid.MaxRetries),
		hyperliquid.WithBackoff(cfg.Hyperliquid.RetryDelay, 0),
	}
	if m != nil {
		opts = append(opts, hyperliquid.WithObserver(func(infoType string, elapsed time.Duration, err error) {
			m.RecordUpstreamCall(infoType, elapsed.Seconds(), err)
		}))
	}
	info := hyperliquid.NewHTTPClient(cfg.Hyperliquid.APIURL, opts...)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Info:    info,
		Stores:  stores,
		PnL: walletpnl.New(walletpnl.Options{
			Client:       info,
			Snapshots:    stores.Snapshots,
			Cache:        stores.Cache,
			History:      stores.History,
			CacheTTL:     cfg.PnL.CacheTTL,
			MaxRangeDays: cfg.PnL.MaxRangeDays,
			Logger:       logger.Named("walletpnl"),
			Metrics:      m,
		}),
		Snapshots: snapshot.New(snapshot.Options{
			Client:    info,
			Snapshots: stores.Snapshots,
			Wallets:   stores.Wallets,
			Logger:    logger.Named("snapshot"),
			Metrics:   m,
		}),
	}, nil
}

// Close releases storage connections.
func (a *App) Close() error {
	return a.Stores.Close()
}

// SeedWallets tracks the wallets listed in configuration.
func (a *App) SeedWallets(ctx context.Context, seeds []config.WalletSeed) error {
	if len(seeds) == 0 {
		return nil
	}
	wallets := make(map[string]string, len(seeds))
	for _, s := range seeds {
		wallets[s.Wallet] = s.Name
	}
	if err := a.Snapshots.Seed(ctx, wallets); err != nil {
		return fmt.Errorf("seed tracked wallets: %w", err)
	}
	a.Logger.Info("tracked wallets seeded", zap.Int("count", len(seeds)))
	return nil
}

// Scheduler builds the snapshot scheduler from configuration.
func (a *App) Scheduler() (*snapshot.Scheduler, error) {
	hour, minute, err := a.Config.Snapshots.DailyTime()
	if err != nil {
		return nil, err
	}
	return snapshot.NewScheduler(snapshot.SchedulerOptions{
		Capturer:    a.Snapshots,
		DailyHour:   hour,
		DailyMinute: minute,
		Hourly:      a.Config.Snapshots.Hourly,
		Logger:      a.Logger.Named("scheduler"),
	}), nil
}

// LiveWatcher connects the account stream and builds a live watcher.
// The returned stream must be closed by the caller.
func (a *App) LiveWatcher(ctx context.Context) (*snapshot.LiveWatcher, hyperliquid.AccountStream, error) {
	wsCfg := hyperliquid.DefaultWSConfig()
	wsCfg.Logger = a.Logger.Named("ws")
	if a.Metrics != nil {
		wsCfg.OnReconnect = a.Metrics.WSReconnects.Inc
	}
	stream, err := hyperliquid.NewWSClient(ctx, a.Config.Hyperliquid.WSURL, &wsCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect account stream: %w", err)
	}
	w := snapshot.NewLiveWatcher(snapshot.LiveWatcherOptions{
		Stream:      stream,
		Recorder:    a.Snapshots,
		MinInterval: a.Config.Snapshots.LiveMinInterval,
		Logger:      a.Logger.Named("live"),
	})
	return w, stream, nil
}

// errNoBackend is returned for commands that need data to outlive the process.
var errNoBackend = errors.New("command requires a persistent storage backend")

// RequirePersistent fails for the in-memory backend.
func (a *App) RequirePersistent() error {
	if a.Stores.Backend == config.BackendMemory {
		return errNoBackend
	}
	return nil
}
