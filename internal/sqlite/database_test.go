package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	setup, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer setup.Close()
	if _, err := setup.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("set journal_mode: %v", err)
	}
	if _, err := setup.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return path
}

func TestOpen_ReadTxnPinsWAL(t *testing.T) {
	path := newTestDB(t)

	db, err := Open(path, 5*time.Second, 3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	txn, err := db.BeginReadTxn(ctx)
	if err != nil {
		t.Fatalf("BeginReadTxn: %v", err)
	}

	writer, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open writer: %v", err)
	}
	defer writer.Close()
	if _, err := writer.Exec("INSERT INTO t (v) VALUES ('a')"); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := txn.End(ctx); err != nil {
		t.Fatalf("End: %v", err)
	}
}

func TestOpen_Checkpointer(t *testing.T) {
	path := newTestDB(t)

	db, err := Open(path, 5*time.Second, 3)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Checkpointer().TruncateCheckpoint(ctx); err != nil {
		t.Fatalf("TruncateCheckpoint on idle db: %v", err)
	}
}

func TestOpen_Path(t *testing.T) {
	path := newTestDB(t)
	db, err := Open(path, time.Second, 1)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}
