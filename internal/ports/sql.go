package ports

import "context"

// ReadTxn is the long-lived read transaction the engine holds open against
// the live database for its entire life. Holding it open is what pins the
// WAL: SQLite cannot checkpoint past a page a live reader might still need,
// so the WAL only grows until the engine explicitly ends this transaction
// as part of Checkpoint.
type ReadTxn interface {
	// End commits (releases) the read transaction. Safe to call once.
	End(ctx context.Context) error
}

// Checkpointer is the write-capable connection used only for
// PRAGMA wal_checkpoint(TRUNCATE) during Engine.Checkpoint. It is kept
// separate from the read-transaction connection because a single
// connection cannot both hold a read transaction open and issue a
// checkpoint against it.
type Checkpointer interface {
	// TruncateCheckpoint runs PRAGMA wal_checkpoint(TRUNCATE) and returns
	// an error unless SQLite reports busy==0.
	TruncateCheckpoint(ctx context.Context) error
}

// SQLDatabase opens the read transaction and checkpoint connections the
// engine needs against one on-disk SQLite database.
type SQLDatabase interface {
	BeginReadTxn(ctx context.Context) (ReadTxn, error)
	Checkpointer() Checkpointer
	// Path returns the on-disk path of the main database file.
	Path() string
	Close() error
}
