package waloy_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/pkg/waloy"
)

func TestDefaultConfig(t *testing.T) {
	cfg := waloy.DefaultConfig()

	if cfg.Prefix != "waloy" {
		t.Errorf("Prefix = %v, want waloy", cfg.Prefix)
	}
	if cfg.Compression != "zstd" {
		t.Errorf("Compression = %v, want zstd", cfg.Compression)
	}
}

func TestOpen_MissingBucketFails(t *testing.T) {
	dir := t.TempDir()
	cfg := waloy.DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "app.db")

	_, err := waloy.Open(context.Background(), cfg)
	if err == nil {
		t.Fatal("Open() expected error for missing S3 bucket, got nil")
	}
}

func TestOpen_WithFakeObjectStore(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	seedSQLiteFile(t, dbPath)

	store := objectstore.NewFake(func() int64 { return 1_700_000_000_000 })

	cfg := waloy.DefaultConfig()
	cfg.DBPath = dbPath
	cfg.S3.Bucket = "unused-because-of-fake"
	cfg.RetentionDuration = 0

	w, err := waloy.Open(context.Background(), cfg, waloy.WithObjectStore(store))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}

	ctx := context.Background()
	if err := w.SyncWAL(ctx); err != nil {
		t.Errorf("SyncWAL() error: %v", err)
	}
	stats := w.Stats()
	if stats.Generation == "" {
		t.Error("Stats().Generation is empty after Open")
	}

	if err := w.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error: %v", err)
	}
	if err := w.Shutdown(ctx); err != waloy.ErrAlreadyClosed {
		t.Errorf("second Shutdown() = %v, want ErrAlreadyClosed", err)
	}
}

// seedSQLiteFile creates a minimal WAL-mode database file at path so
// Open's sqlite.Open/BeginReadTxn have something real to attach to.
func seedSQLiteFile(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("seed sqlite: open: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("seed sqlite: journal_mode: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatalf("seed sqlite: create table: %v", err)
	}
	if _, err := db.Exec("INSERT INTO t (v) VALUES ('seed')"); err != nil {
		t.Fatalf("seed sqlite: insert: %v", err)
	}
}
