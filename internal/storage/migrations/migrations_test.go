package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	input := `
-- header comment
CREATE TABLE a (x Int32);

-- second; with a semicolon in the comment
CREATE TABLE b (y String DEFAULT 'a;b', z String DEFAULT 'it''s')
ENGINE = MergeTree ORDER BY y;
`
	stmts, err := statements(input)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x Int32)", stmts[0])
	assert.Contains(t, stmts[1], "'a;b'")
	assert.Contains(t, stmts[1], "'it''s'")
	assert.Contains(t, stmts[1], "ENGINE = MergeTree")
}

func TestStatements_UnterminatedQuote(t *testing.T) {
	_, err := statements(`SELECT 'open;`)
	assert.ErrorIs(t, err, errUnterminatedQuote)
}

func TestLoad_OrdersAndSkipsEmpty(t *testing.T) {
	fsys := fstest.MapFS{
		"db/002_b.sql":  {Data: []byte("CREATE TABLE b (y INT);")},
		"db/001_a.sql":  {Data: []byte("CREATE TABLE a (x INT);")},
		"db/003_c.sql":  {Data: []byte("-- nothing yet\n")},
		"db/readme.txt": {Data: []byte("ignored")},
	}
	ms, err := load(fsys, "db")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "001_a", ms[0].Version)
	assert.Equal(t, "002_b", ms[1].Version)

	left := pending(ms, map[string]bool{"001_a": true})
	require.Len(t, left, 1)
	assert.Equal(t, "002_b", left[0].Version)
}

func TestClickhouseDatabase(t *testing.T) {
	db, err := clickhouseDatabase("clickhouse://default:@localhost:9000/pnl")
	require.NoError(t, err)
	assert.Equal(t, "pnl", db)

	_, err = clickhouseDatabase("clickhouse://localhost:9000")
	assert.Error(t, err)

	_, err = clickhouseDatabase("clickhouse://localhost:9000/pnl;drop")
	assert.Error(t, err)
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	for _, tc := range []struct {
		dir  string
		load func() ([]Migration, error)
	}{
		{"postgres", func() ([]Migration, error) { return load(PostgresFS, "postgres") }},
		{"sqlite", func() ([]Migration, error) { return load(SQLiteFS, "sqlite") }},
		{"clickhouse", func() ([]Migration, error) { return load(ClickhouseFS, "clickhouse") }},
	} {
		ms, err := tc.load()
		require.NoError(t, err, tc.dir)
		assert.NotEmpty(t, ms, tc.dir)
	}
}

func TestRunSQLiteMigrations_RecordsVersions(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "pnl.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, RunSQLiteMigrations(ctx, db))
	require.NoError(t, RunSQLiteMigrations(ctx, db))

	for _, table := range []string{"equity_snapshots", "tracked_wallets", "pnl_cache"} {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 3, n)
}
