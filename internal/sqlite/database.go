package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/waloy/waloy/internal/ports"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// Database opens the two connections the engine needs against one on-disk
// SQLite database: a dedicated connection for the long-lived read
// transaction, and a separate connection reserved for checkpoint PRAGMAs.
// They are deliberately not the same *sql.DB pool entry, since a single
// connection cannot hold a read transaction open while also issuing
// PRAGMA wal_checkpoint against itself.
type Database struct {
	path          string
	readDB        *sql.DB
	checkpointDB  *sql.DB
	busyTimeout   time.Duration
	maxRetries    int
}

// Open opens both connections against path. busyTimeout is passed to
// SQLite's busy_timeout pragma on the checkpoint connection; maxRetries
// bounds additional application-level retry on SQLITE_BUSY.
func Open(path string, busyTimeout time.Duration, maxRetries int) (*Database, error) {
	readDB, err := sql.Open("sqlite3", dsn(path, busyTimeout))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open read connection: %w", err)
	}
	readDB.SetMaxOpenConns(1)

	checkpointDB, err := sql.Open("sqlite3", dsn(path, busyTimeout))
	if err != nil {
		readDB.Close()
		return nil, fmt.Errorf("sqlite: open checkpoint connection: %w", err)
	}
	checkpointDB.SetMaxOpenConns(1)

	if _, err := readDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		readDB.Close()
		checkpointDB.Close()
		return nil, fmt.Errorf("sqlite: set journal_mode=WAL: %w", err)
	}
	if _, err := readDB.Exec("PRAGMA wal_autocheckpoint=0"); err != nil {
		readDB.Close()
		checkpointDB.Close()
		return nil, fmt.Errorf("sqlite: disable auto-checkpoint: %w", err)
	}

	return &Database{
		path:         path,
		readDB:       readDB,
		checkpointDB: checkpointDB,
		busyTimeout:  busyTimeout,
		maxRetries:   maxRetries,
	}, nil
}

func dsn(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds())
}

func (d *Database) Path() string { return d.path }

// BeginReadTxn checks out a single dedicated *sql.Conn from the read pool
// and issues BEGIN and a trivial query to force lock acquisition on it,
// matching the read side of an ordinary reader: the transaction stays
// open (pinning the WAL) until End is called. BEGIN and COMMIT must run
// on the same physical connection — database/sql's pool gives no such
// guarantee across independent ExecContext calls against a *sql.DB, so
// the connection is pinned via Conn for the lifetime of the transaction.
func (d *Database) BeginReadTxn(ctx context.Context) (ports.ReadTxn, error) {
	conn, err := d.readDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: checkout read connection: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: BEGIN: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT 1 FROM sqlite_master LIMIT 1"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		conn.Close()
		return nil, fmt.Errorf("sqlite: force read lock: %w", err)
	}
	return readTxnHandle{conn: conn}, nil
}

// Checkpointer returns the checkpoint-side handle.
func (d *Database) Checkpointer() ports.Checkpointer {
	return checkpointerHandle{db: d.checkpointDB, maxRetries: d.maxRetries}
}

func (d *Database) Close() error {
	err1 := d.readDB.Close()
	err2 := d.checkpointDB.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// readTxnHandle implements ports.ReadTxn over the single *sql.Conn
// BeginReadTxn pinned; COMMIT must run on that same connection, and the
// connection is released back to the pool once End returns.
type readTxnHandle struct {
	conn *sql.Conn
}

func (r readTxnHandle) End(ctx context.Context) error {
	if r.conn == nil {
		return nil
	}
	_, commitErr := r.conn.ExecContext(ctx, "COMMIT")
	closeErr := r.conn.Close()
	if commitErr != nil {
		return fmt.Errorf("sqlite: COMMIT: %w", commitErr)
	}
	if closeErr != nil {
		return fmt.Errorf("sqlite: release read connection: %w", closeErr)
	}
	return nil
}

// checkpointerHandle implements ports.Checkpointer.
type checkpointerHandle struct {
	db         *sql.DB
	maxRetries int
}

// checkpointResult mirrors the three integers PRAGMA wal_checkpoint
// reports: whether it had to give up because of a busy reader/writer, the
// number of WAL frames, and how many were checkpointed.
type checkpointResult struct {
	busy         int
	logFrames    int
	checkpointed int
}

func (c checkpointerHandle) TruncateCheckpoint(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		row := c.db.QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
		var res checkpointResult
		if err := row.Scan(&res.busy, &res.logFrames, &res.checkpointed); err != nil {
			lastErr = fmt.Errorf("sqlite: wal_checkpoint: %w", err)
			continue
		}
		if res.busy == 0 {
			return nil
		}
		lastErr = fmt.Errorf("sqlite: wal_checkpoint(TRUNCATE) reported busy=%d (attempt %d/%d)",
			res.busy, attempt+1, c.maxRetries+1)
	}
	return lastErr
}
