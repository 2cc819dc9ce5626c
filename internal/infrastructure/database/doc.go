// Package database opens the devicekit SQLite file and applies schema
// migrations.
//
// The connection runs in WAL mode with a busy timeout. Migrations are
// "*.up.sql" files applied once each in filename order and recorded in
// schema_migrations; they only ever add tables or nullable columns.
//
//	db, err := database.Open(cfg.Database)
//	...
//	applied, err := db.Migrate(ctx, migrations.FS)
package database
