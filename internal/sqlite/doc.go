// Package sqlite provides the two SQL-engine connections the replication
// engine needs against one on-disk database: a long-lived connection
// holding an open read transaction (which pins the WAL against
// checkpointing) and a separate write-capable connection used only to
// issue PRAGMA wal_checkpoint(TRUNCATE).
package sqlite
