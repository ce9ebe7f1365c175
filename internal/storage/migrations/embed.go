// Package migrations applies the embedded schema of each storage backend and
// records applied versions in a schema_migrations table.
package migrations

import "embed"

var (
	//go:embed postgres/*.sql
	PostgresFS embed.FS

	//go:embed sqlite/*.sql
	SQLiteFS embed.FS

	//go:embed clickhouse/*.sql
	ClickhouseFS embed.FS
)
