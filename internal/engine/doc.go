// Package engine implements the replication engine: it holds the
// long-lived read transaction against a live SQLite database, owns the
// current generation, drives sync cycles on host request, detects WAL
// discontinuities, performs checkpoints, and rotates generations. The
// engine spawns no goroutines of its own — every operation runs to
// completion (or returns ErrBusy) on the calling goroutine, so the host
// is free to schedule it however it likes.
package engine
