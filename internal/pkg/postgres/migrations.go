package postgres

import "embed"

// MigrationsFS holds the embedded PostgreSQL migrations.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
