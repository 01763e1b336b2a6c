package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/waloy/waloy/internal/ports"
)

// fakeWALFile is an in-memory stand-in for the live *-wal file, letting
// tests drive WAL growth, salt rotation, and truncation without a real
// SQLite process behind it.
type fakeWALFile struct {
	mu   sync.Mutex
	data []byte
}

// newFakeWALFile returns a fake seeded with a 32-byte header carrying the
// given salts and page size.
func newFakeWALFile(pageSize, salt1, salt2 uint32) *fakeWALFile {
	return &fakeWALFile{data: makeWALHeader(pageSize, salt1, salt2)}
}

func makeWALHeader(pageSize, salt1, salt2 uint32) []byte {
	h := make([]byte, 32)
	binary.BigEndian.PutUint32(h[0:], 0x377f0682)
	binary.BigEndian.PutUint32(h[4:], 3007000)
	binary.BigEndian.PutUint32(h[8:], pageSize)
	binary.BigEndian.PutUint32(h[12:], 1)
	binary.BigEndian.PutUint32(h[16:], salt1)
	binary.BigEndian.PutUint32(h[20:], salt2)
	return h
}

func (f *fakeWALFile) Size() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.data)), nil
}

func (f *fakeWALFile) Header() (ports.WALHeader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data) < 32 {
		return ports.WALHeader{}, fmt.Errorf("fake wal: short header")
	}
	return ports.WALHeader{
		PageSize: binary.BigEndian.Uint32(f.data[8:]),
		Salt1:    binary.BigEndian.Uint32(f.data[16:]),
		Salt2:    binary.BigEndian.Uint32(f.data[20:]),
	}, nil
}

func (f *fakeWALFile) ReadRange(from, to int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if from < 0 || to > int64(len(f.data)) || from > to {
		return nil, fmt.Errorf("fake wal: range [%d,%d) out of bounds (len %d)", from, to, len(f.data))
	}
	out := make([]byte, to-from)
	copy(out, f.data[from:to])
	return out, nil
}

func (f *fakeWALFile) Close() error { return nil }

// appendFrame simulates SQLite appending n bytes of frame data to the WAL.
func (f *fakeWALFile) appendFrame(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, n)
	for i := range frame {
		frame[i] = byte(i)
	}
	f.data = append(f.data, frame...)
}

// rotate simulates SQLite restarting the WAL after an external checkpoint:
// new salts, frames discarded.
func (f *fakeWALFile) rotate(salt1, salt2 uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = makeWALHeader(4096, salt1, salt2)
}

// truncateToHeader simulates the engine's own TRUNCATE checkpoint: the file
// shrinks back to just the header, salts unchanged (SQLite reuses the WAL
// file object across a checkpoint it did not have to fully restart).
func (f *fakeWALFile) truncateToHeader() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data) >= 32 {
		f.data = f.data[:32]
	}
}

// fakeReadTxn is a no-op ports.ReadTxn.
type fakeReadTxn struct{}

func (fakeReadTxn) End(context.Context) error { return nil }

// fakeCheckpointer runs an injected side effect (typically truncating the
// paired fakeWALFile) in place of PRAGMA wal_checkpoint(TRUNCATE).
type fakeCheckpointer struct {
	fn func() error
}

func (c fakeCheckpointer) TruncateCheckpoint(ctx context.Context) error {
	if c.fn == nil {
		return nil
	}
	return c.fn()
}

// fakeSQLDatabase is an in-memory ports.SQLDatabase. Checkpointing is
// modeled by the injected onCheckpoint hook so tests can make the WAL
// fake's state track what a real checkpoint would do.
type fakeSQLDatabase struct {
	path         string
	onCheckpoint func() error
	beginErr     error
}

func (d *fakeSQLDatabase) BeginReadTxn(ctx context.Context) (ports.ReadTxn, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	return fakeReadTxn{}, nil
}

func (d *fakeSQLDatabase) Checkpointer() ports.Checkpointer {
	return fakeCheckpointer{fn: d.onCheckpoint}
}

func (d *fakeSQLDatabase) Path() string { return d.path }
func (d *fakeSQLDatabase) Close() error { return nil }
