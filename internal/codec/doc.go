// Package codec implements the write-side compress-then-encrypt and
// read-side detect-then-decode byte pipeline applied to every snapshot and
// WAL segment before it leaves the process. Compression and encryption are
// each optional and independently toggled; detection on read is by leading
// magic bytes so an old, uncompressed generation and a new, encrypted one
// can be read by the same code path.
package codec
