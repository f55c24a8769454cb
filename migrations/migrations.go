package migrations

import "embed"

// MigrationFiles holds the SQL migrations applied by the tern migrator
// at startup.
//
//go:embed *.sql
var MigrationFiles embed.FS
