package walfile

import (
	"io"
	"os"

	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/ports"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern; internal/domain.CheckModuleVersions gates Open on
// them so a stale walfile package can't silently misparse a newer header
// layout.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// File implements ports.WALFile against a *-wal path on disk. It keeps its
// own *os.File open for the engine's lifetime rather than reopening per
// call, matching the teacher's IndexReader, which holds its .wal.gz handle
// open across Next calls.
type File struct {
	f *os.File
}

// Open opens the WAL file at path for reading. The file need not exist yet
// (a database with no pending WAL activity has none); callers should treat
// os.IsNotExist specially rather than through this constructor.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &File{f: f}, nil
}

func (w *File) Size() (int64, error) {
	fi, err := w.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (w *File) Header() (ports.WALHeader, error) {
	buf, err := preadSection(w.f, 0, HeaderSize)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ports.WALHeader{}, &domain.CorruptionError{What: "wal header", Err: err}
	}
	if err != nil {
		return ports.WALHeader{}, err
	}
	return ParseHeader(buf)
}

func (w *File) ReadRange(from, to int64) ([]byte, error) {
	if to < from {
		return nil, io.ErrUnexpectedEOF
	}
	return preadSection(w.f, from, to-from)
}

func (w *File) Close() error {
	return w.f.Close()
}

// preadSection reads exactly length bytes starting at off, independent of
// the file's current seek position — the engine and any concurrent Size/
// Header caller must not interfere with each other.
func preadSection(f *os.File, off, length int64) ([]byte, error) {
	sr := io.NewSectionReader(f, off, length)
	buf := make([]byte, length)
	if _, err := io.ReadFull(sr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
