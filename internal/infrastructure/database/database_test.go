package database

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/devicekit/internal/infrastructure/config"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

func TestOpen_CreatesDirectoryAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "devicekit.db")

	db, err := Open(config.DatabaseConfig{Path: path, WALMode: true, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}

	// Force the file into existence.
	if _, err := db.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestOpen_WALMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wal.db")
	db, err := Open(config.DatabaseConfig{Path: path, WALMode: true, BusyTimeout: 1})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close() //nolint:errcheck // Test cleanup

	mode, err := db.JournalMode(context.Background())
	if err != nil {
		t.Fatalf("JournalMode() error = %v", err)
	}
	if mode != "wal" {
		t.Errorf("JournalMode() = %q, want wal", mode)
	}
}

func TestDSN(t *testing.T) {
	got := dsn(config.DatabaseConfig{Path: "/var/lib/devicekit.db", BusyTimeout: 5})
	if !strings.HasPrefix(got, "file:/var/lib/devicekit.db?") {
		t.Errorf("dsn() = %q", got)
	}
	for _, want := range []string{"_busy_timeout=5000", "_foreign_keys=on"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn() = %q, missing %s", got, want)
		}
	}
	if strings.Contains(got, "_journal_mode") {
		t.Errorf("dsn() = %q, journal mode set without WAL", got)
	}
}

func TestOpenMemory_Path(t *testing.T) {
	if got := openTestDB(t).Path(); got != MemoryPath {
		t.Errorf("Path() = %q, want %q", got, MemoryPath)
	}
}

func TestOpen_InvalidDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Open(config.DatabaseConfig{Path: filepath.Join(blocker, "db.sqlite")})
	if err == nil {
		t.Error("Open() expected error when parent is a file")
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	db.Close() //nolint:errcheck // closing early on purpose
	if err := db.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() on closed db should fail")
	}
}
