// Package migrations embeds SQL migration files into the binary.
//
// This allows devicekit to run migrations without needing the SQL files
// present on the filesystem - they're compiled into the executable.
package migrations

import "embed"

// FS holds every *.up.sql file at its root. Pass it to database.DB.Migrate.
//
//go:embed *.sql
var FS embed.FS
