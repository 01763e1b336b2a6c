package engine

import "github.com/waloy/waloy/internal/ports"

// walState is the in-memory record of the last-observed WAL header plus
// the last-synced file size, per spec.md §3's "WAL header state".
type walState struct {
	lastOffset int64
	haveSalt   bool
	salt1      uint32
	salt2      uint32
}

// discontinuous reports whether the current header/size indicate the WAL
// was reset (salt changed) or truncated (file shrank below lastOffset)
// since walState was last updated — the two conditions
// _examples/original_source/src/manager.rs's check_wal_discontinuity
// tests, ported directly: a shrink below a nonzero remembered offset, or
// a salt pair differing from a previously captured one. Neither
// condition fires before any salt has ever been captured.
func (s walState) discontinuous(header ports.WALHeader, size int64) bool {
	if s.lastOffset > 0 && size < s.lastOffset {
		return true
	}
	if s.haveSalt && (header.Salt1 != s.salt1 || header.Salt2 != s.salt2) {
		return true
	}
	return false
}
