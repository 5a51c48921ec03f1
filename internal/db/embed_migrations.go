package db

import "embed"

// MigrationFS holds the SQL migrations applied by cmd/migrate and AUTO_MIGRATE.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
