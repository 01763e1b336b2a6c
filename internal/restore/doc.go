// Package restore reconstructs a database directory from a generation
// stored under an S3 prefix: either the latest generation (Restore) or the
// generation and segment cutoff that covers a requested point in time
// (RestoreToTime), per spec.md §4.5.
package restore
