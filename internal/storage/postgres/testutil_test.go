package postgres

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	sharedOnce sync.Once
	sharedPool *Pool
	sharedErr  error
	container  *tcpostgres.PostgresContainer
)

// TestMain terminates the shared container after the package tests finish.
func TestMain(m *testing.M) {
	code := m.Run()
	if sharedPool != nil {
		sharedPool.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
	os.Exit(code)
}

// setupTestDB returns a pool on a migrated database with all tables emptied.
// One container serves the whole package.
func setupTestDB(t *testing.T) *Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests skipped in -short mode")
	}

	sharedOnce.Do(func() { sharedPool, sharedErr = startContainer() })
	require.NoError(t, sharedErr, "start postgres")

	_, err := sharedPool.Exec(context.Background(),
		`TRUNCATE equity_snapshots, tracked_wallets, pnl_cache RESTART IDENTITY`)
	require.NoError(t, err, "truncate tables")
	return sharedPool
}

func startContainer() (*Pool, error) {
	ctx := context.Background()

	c, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("pnl"),
		tcpostgres.WithUsername("pnl"),
		tcpostgres.WithPassword("pnl"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, err
	}
	container = c

	dsn, err := c.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(ctx, dsn, WithMaxConns(4))
	if err != nil {
		return nil, err
	}
	if err := applySchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// applySchema executes the SQL files of the migrations package directly,
// which cannot be imported here without a cycle.
func applySchema(ctx context.Context, pool *Pool) error {
	dir := filepath.Join("..", "migrations", "postgres")
	files, err := fs.Glob(os.DirFS(dir), "*.sql")
	if err != nil {
		return err
	}
	for _, f := range files {
		raw, err := os.ReadFile(filepath.Join(dir, f))
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(raw)); err != nil {
			return err
		}
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
