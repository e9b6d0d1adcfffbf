package sqlitemigrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func TestApplyRunsMigrationsInOrder(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"0002_seed.sql":   {Data: []byte("INSERT INTO widgets (name) VALUES ('anvil');")},
		"0001_schema.sql": {Data: []byte("CREATE TABLE widgets (name TEXT PRIMARY KEY);")},
	}

	if err := Apply(sqlDB, migrationFS, "."); err != nil {
		t.Fatalf("apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(1) FROM widgets").Scan(&count); err != nil {
		t.Fatalf("count widgets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 widget, got %d", count)
	}
}

func TestApplyIsIdempotent(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"0001_schema.sql": {Data: []byte("CREATE TABLE widgets (name TEXT PRIMARY KEY);")},
		"0002_seed.sql":   {Data: []byte("INSERT INTO widgets (name) VALUES ('anvil');")},
	}

	if err := Apply(sqlDB, migrationFS, "."); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if err := Apply(sqlDB, migrationFS, "."); err != nil {
		t.Fatalf("second apply: %v", err)
	}

	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(1) FROM widgets").Scan(&count); err != nil {
		t.Fatalf("count widgets: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected seed applied once, got %d rows", count)
	}
}

func TestApplySkipsEmptyFiles(t *testing.T) {
	sqlDB := openTestDB(t)
	migrationFS := fstest.MapFS{
		"0001_empty.sql": {Data: []byte("   \n")},
	}

	if err := Apply(sqlDB, migrationFS, "."); err != nil {
		t.Fatalf("apply: %v", err)
	}
}
