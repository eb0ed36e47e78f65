package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ivghost/ragtool/internal/infra/sqlite"
)

// TestMigrate_RunsAllMigrations verifies that MigrateUp records every embedded file.
func TestMigrate_RunsAllMigrations(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	if err := sqlite.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("MigrateUp() error = %v; want nil", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("SELECT COUNT(*) FROM schema_migrations error = %v", err)
	}
	if count != 2 {
		t.Errorf("schema_migrations has %d rows after MigrateUp; want 2", count)
	}
}

// TestMigrate_Idempotent verifies that running MigrateUp twice does not fail.
func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	ctx := context.Background()
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		t.Fatalf("MigrateUp() first run error = %v; want nil", err)
	}
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		t.Fatalf("MigrateUp() second run error = %v; want nil (idempotent)", err)
	}
}

func TestMigrate_TablesCreated(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	if err := sqlite.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	assertTableExists(t, db, "analysis_run")
	assertTableExists(t, db, "chunk_outcome")
}

// TestMigrate_StatusConstraint verifies that unknown run statuses are rejected.
func TestMigrate_StatusConstraint(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	if err := sqlite.MigrateUp(context.Background(), db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	_, err := db.Exec(`
		INSERT INTO analysis_run (id, mode, status, provider, started_at)
		VALUES ('run-1', 'full', 'exploded', 'ollama', datetime('now'))
	`)
	if err == nil {
		t.Error("insert with unknown status succeeded; want CHECK constraint error")
	}

	_, err = db.Exec(`
		INSERT INTO analysis_run (id, mode, status, provider, started_at)
		VALUES ('run-2', 'full', 'cancelled', 'ollama', datetime('now'))
	`)
	if err != nil {
		t.Errorf("insert with cancelled status error = %v; want nil", err)
	}
}

func TestMigrate_Version(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	ctx := context.Background()
	if err := sqlite.MigrateUp(ctx, db); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	version, err := sqlite.MigrationVersion(ctx, db)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 2 {
		t.Errorf("MigrationVersion() = %d; want 2", version)
	}
}

func TestMigrationVersion_NoMigrations(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	version, err := sqlite.MigrationVersion(context.Background(), db)
	if err != nil {
		t.Fatalf("MigrationVersion() error = %v", err)
	}
	if version != 0 {
		t.Errorf("MigrationVersion() on fresh DB = %d; want 0", version)
	}
}

func TestMigrate_CancelledContext(t *testing.T) {
	t.Parallel()

	db := openFileDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sqlite.MigrateUp(ctx, db); err == nil {
		t.Error("MigrateUp() with cancelled context = nil; want error")
	}
}

// assertTableExists fails the test if the given table doesn't exist in the DB.
func assertTableExists(t *testing.T, db *sql.DB, tableName string) {
	t.Helper()

	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&name)

	if errors.Is(err, sql.ErrNoRows) {
		t.Errorf("table %q not found in sqlite_master after MigrateUp", tableName)
		return
	}
	if err != nil {
		t.Fatalf("assertTableExists(%q) query error = %v", tableName, err)
	}
}
