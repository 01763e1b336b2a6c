// Package confwatch watches a waloy TOML config file for changes and
// hot-applies the tunables safe to change on a running engine: snapshot
// interval, retention duration, compact threshold, compact target count,
// and max retries. db_path, the s3 block, prefix, compression, and the
// encryption key are fixed at open; a change to one of those is logged
// and otherwise ignored.
package confwatch
