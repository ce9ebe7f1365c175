// Package config loads runtime configuration from YAML, .env and environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hyperliquid-pnl-lab/internal/logging"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Config holds the main runtime configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Hyperliquid HyperliquidConfig `yaml:"hyperliquid"`
	Storage     StorageConfig     `yaml:"storage"`
	PnL         PnLConfig         `yaml:"pnl"`
	Snapshots   SnapshotsConfig   `yaml:"snapshots"`
	Logging     logging.Config    `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type HyperliquidConfig struct {
	APIURL     string        `yaml:"api_url"`
	WSURL      string        `yaml:"ws_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory, sqlite, postgres
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"` // optional daily PnL history
}

type PnLConfig struct {
	MaxRangeDays int           `yaml:"max_range_days"`
	CacheTTL     time.Duration `yaml:"cache_ttl"` // 0 disables the response cache
}

// SnapshotsConfig controls scheduled and live equity capture.
type SnapshotsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DailyAt         string        `yaml:"daily_at"` // HH:MM UTC
	Hourly          bool          `yaml:"hourly"`
	Live            bool          `yaml:"live"`
	LiveMinInterval time.Duration `yaml:"live_min_interval"`
	Wallets         []WalletSeed  `yaml:"wallets"`
}

// WalletSeed is a wallet tracked from configuration.
type WalletSeed struct {
	Wallet string `yaml:"wallet"`
	Name   string `yaml:"name"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Pretty      bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":3000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Hyperliquid: HyperliquidConfig{
			APIURL:     "https://api.hyperliquid.xyz",
			WSURL:      "wss://api.hyperliquid.xyz/ws",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			RetryDelay: 500 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend:    BackendSQLite,
			SQLitePath: "data/pnl.db",
		},
		PnL: PnLConfig{
			MaxRangeDays: 365,
			CacheTTL:     24 * time.Hour,
		},
		Snapshots: SnapshotsConfig{
			Enabled:         true,
			DailyAt:         "23:55",
			Hourly:          true,
			LiveMinInterval: 5 * time.Minute,
		},
		Logging: logging.DefaultConfig(),
		Tracing: TracingConfig{
			ServiceName: "hyperliquid-pnl",
		},
		Metrics: MetricsConfig{
			Namespace: "hyperliquid_pnl",
		},
	}
}

// LoadEnvFile loads variables from .env files when present.
// Existing environment variables are not overridden.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %s: %w", p, err)
		}
	}
	return nil
}

// Load reads YAML config from path over the defaults, applies env overrides
// and validates. An empty path uses defaults and env only.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		cfg.Server.Addr = ":" + v
	}
	if v, ok := get("HYPERLIQUID_API_URL"); ok {
		cfg.Hyperliquid.APIURL = strings.TrimSuffix(v, "/info")
	}
	if v, ok := get("HYPERLIQUID_WS_URL"); ok {
		cfg.Hyperliquid.WSURL = v
	}
	if v, ok := get("STORAGE_BACKEND"); ok {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v, ok := get("POSTGRES_DSN"); ok {
		cfg.Storage.PostgresDSN = v
	}
	if v, ok := get("CLICKHOUSE_DSN"); ok {
		cfg.Storage.ClickhouseDSN = v
	}
	if v, ok := get("SQLITE_PATH"); ok {
		cfg.Storage.SQLitePath = v
	}
	if v, ok := get("PNL_CACHE_TTL"); ok {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PNL_CACHE_TTL must be minutes: %w", err)
		}
		cfg.PnL.CacheTTL = time.Duration(minutes) * time.Minute
	}
	if v, ok := get("MAX_RANGE_DAYS"); ok {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_RANGE_DAYS: %w", err)
		}
		cfg.PnL.MaxRangeDays = days
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v, ok := get("LOG_FORMAT"); ok {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v, ok := get("TRACING_ENABLED"); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRACING_ENABLED: %w", err)
		}
		cfg.Tracing.Enabled = enabled
	}
	return nil
}

// Validate ensures required fields are present and consistent.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Hyperliquid.APIURL == "" {
		return errors.New("hyperliquid.api_url is required")
	}
	if c.Hyperliquid.MaxRetries < 0 {
		return errors.New("hyperliquid.max_retries must be >= 0")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return errors.New("storage.sqlite_path is required for sqlite backend")
		}
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for postgres backend")
		}
	default:
		return fmt.Errorf("storage.backend %q must be one of memory, sqlite, postgres", c.Storage.Backend)
	}
	if c.PnL.MaxRangeDays < 0 {
		return errors.New("pnl.max_range_days must be >= 0")
	}
	if c.PnL.CacheTTL < 0 {
		return errors.New("pnl.cache_ttl must be >= 0")
	}
	if _, _, err := c.Snapshots.DailyTime(); err != nil {
		return err
	}
	if c.Snapshots.Live && c.Snapshots.LiveMinInterval <= 0 {
		return errors.New("snapshots.live_min_interval must be > 0 when live capture is on")
	}
	for i, w := range c.Snapshots.Wallets {
		if w.Wallet == "" {
			return fmt.Errorf("snapshots.wallets[%d].wallet is required", i)
		}
	}
	return nil
}

// DailyTime parses DailyAt into hour and minute.
func (s SnapshotsConfig) DailyTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", s.DailyAt)
	if err != nil {
		return 0, 0, fmt.Errorf("snapshots.daily_at %q must be HH:MM: %w", s.DailyAt, err)
	}
	return t.Hour(), t.Minute(), nil
}
