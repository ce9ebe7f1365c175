// Package main runs the PnL API server together with the snapshot scheduler,
// the live account watcher and the config reloader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/api"
	"hyperliquid-pnl-lab/internal/app"
	"hyperliquid-pnl-lab/internal/config"
	"hyperliquid-pnl-lab/internal/logging"
	"hyperliquid-pnl-lab/internal/tracing"
)

var version = "dev"

// cachePurgeInterval is how often expired PnL cache entries are removed.
const cachePurgeInterval = time.Hour

// Server holds all components of the service.
type Server struct {
	configPath string
	cfg        config.Config
	logger     *logging.Logger
	app        *app.App
	api        *api.Server
}

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "env file: %v\n", err)
		os.Exit(1)
	}

	configPath := flag.String("config", os.Getenv("PNL_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Pretty:      cfg.Tracing.Pretty,
	}); err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	server := &Server{configPath: *configPath, cfg: cfg, logger: logger}

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
			logger.Error("graceful shutdown timed out, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if terr := tracing.Shutdown(shutdownCtx); terr != nil {
		logger.Warn("tracing shutdown", zap.Error(terr))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// Run starts every component and blocks until ctx is done or one fails.
func (s *Server) Run(ctx context.Context) error {
	m, gatherer := app.Metrics(s.cfg.Metrics.Namespace)

	a, err := app.New(ctx, s.cfg, s.logger.Logger, m)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			s.logger.Warn("close stores", zap.Error(err))
		}
	}()
	s.app = a

	if err := a.SeedWallets(ctx, s.cfg.Snapshots.Wallets); err != nil {
		s.logger.Warn("seed wallets", zap.Error(err))
	}

	s.api = api.NewServer(api.Options{
		Addr:      s.cfg.Server.Addr,
		PnL:       a.PnL,
		Snapshots: a.Snapshots,
		Metrics:   m,
		Gatherer:  gatherer,
		Logger:    s.logger.Named("api").Logger,
		Version:   version,
		Backend:   a.Stores.Backend,
	})
	if err := s.api.Start(ctx); err != nil {
		return fmt.Errorf("start api: %w", err)
	}
	defer s.shutdownAPI()

	errCh := make(chan error, 4)

	if s.cfg.Snapshots.Enabled {
		sched, err := a.Scheduler()
		if err != nil {
			return err
		}
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("snapshot scheduler: %w", err)
			}
		}()
	}

	if s.cfg.Snapshots.Live {
		watcher, stream, err := a.LiveWatcher(ctx)
		if err != nil {
			return err
		}
		defer stream.Close()
		s.api.SetLiveWatching(watcher.Watching)
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("live watcher: %w", err)
			}
		}()
	}

	if s.configPath != "" {
		w, err := config.NewWatcher(s.configPath, s.cfg, s.reload, s.logger.Named("config").Logger)
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	go s.purgeCache(ctx)

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		s.logger.Debug("sd_notify", zap.Error(err))
	}
	s.logger.Info("server started",
		zap.String("addr", s.cfg.Server.Addr),
		zap.String("backend", a.Stores.Backend),
		zap.Bool("snapshots", s.cfg.Snapshots.Enabled),
		zap.Bool("live", s.cfg.Snapshots.Live),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (s *Server) shutdownAPI() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.api.Shutdown(ctx); err != nil {
		s.logger.Warn("api shutdown", zap.Error(err))
	}
}

// reload applies the settings that can change without a restart.
func (s *Server) reload(cfg config.Config) {
	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		s.logger.Warn("apply log level", zap.Error(err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.app.SeedWallets(ctx, cfg.Snapshots.Wallets); err != nil {
		s.logger.Warn("reseed wallets", zap.Error(err))
	}
}

func (s *Server) purgeCache(ctx context.Context) {
	ticker := time.NewTicker(cachePurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.app.PnL.PurgeExpiredCache(ctx)
			if err != nil {
				s.logger.Warn("purge pnl cache", zap.Error(err))
				continue
			}
			if n > 0 {
				s.logger.Debug("pnl cache purged", zap.Int64("entries", n))
			}
		}
	}
}
