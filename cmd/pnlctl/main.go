// Command pnlctl computes wallet PnL reports and manages tracked wallets and
// equity snapshots from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hyperliquid-pnl-lab/internal/app"
	"hyperliquid-pnl-lab/internal/config"
	"hyperliquid-pnl-lab/internal/logging"
)

// rootConfig carries the persistent flags shared by all subcommands.
type rootConfig struct {
	ConfigPath string
	Backend    string
	LogLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rc := &rootConfig{}

	cmd := &cobra.Command{
		Use:           "pnlctl",
		Short:         "HyperLiquid wallet PnL and equity snapshot tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", os.Getenv("PNL_CONFIG"), "path to YAML config file")
	cmd.PersistentFlags().StringVar(&rc.Backend, "backend", "", "storage backend override (memory, sqlite, postgres)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "warn", "log level")

	cmd.AddCommand(
		newPnlCmd(rc),
		newHistoryCmd(rc),
		newSnapshotCmd(rc),
		newTrackCmd(rc),
		newMigrateCmd(rc),
	)
	return cmd
}

// load reads configuration with the command-line overrides applied.
func (rc *rootConfig) load() (config.Config, error) {
	if err := config.LoadEnvFile(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(rc.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if rc.Backend != "" {
		cfg.Storage.Backend = rc.Backend
	}
	if rc.LogLevel != "" {
		cfg.Logging.Level = rc.LogLevel
	}
	cfg.Logging.Format = "console"
	return cfg, cfg.Validate()
}

// withApp builds the application, runs fn and releases storage.
func (rc *rootConfig) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := rc.load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger.Logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close stores", zap.Error(err))
		}
	}()
	return fn(a)
}
