package walfile

import (
	"encoding/binary"
	"fmt"

	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/ports"
)

// HeaderSize is the fixed length of the SQLite WAL header in bytes.
const HeaderSize = 32

// Layout of the 32-byte WAL header, per the SQLite file format:
//
//	offset 0:  magic number (4 bytes, big- or little-endian variant)
//	offset 4:  file format version (4 bytes)
//	offset 8:  page size (4 bytes)
//	offset 12: checkpoint sequence number (4 bytes)
//	offset 16: salt-1 (4 bytes)
//	offset 20: salt-2 (4 bytes)
//	offset 24: checksum-1 (4 bytes)
//	offset 28: checksum-2 (4 bytes)
const (
	offsetPageSize        = 8
	offsetCheckpointSeqNo = 12
	offsetSalt1           = 16
	offsetSalt2           = 20
)

// ParseHeader parses a 32-byte SQLite WAL header. The magic number is not
// validated against a fixed endianness constant: both known magic values
// (0x377f0682 and 0x377f0683) are accepted, since the engine only cares
// about salts and page size, not the checksum byte order they imply.
func ParseHeader(data []byte) (ports.WALHeader, error) {
	if len(data) < HeaderSize {
		return ports.WALHeader{}, &domain.CorruptionError{
			What: "wal header",
			Err:  errShortHeader(len(data)),
		}
	}
	return ports.WALHeader{
		PageSize:        binary.BigEndian.Uint32(data[offsetPageSize:]),
		CheckpointSeqNo: binary.BigEndian.Uint32(data[offsetCheckpointSeqNo:]),
		Salt1:           binary.BigEndian.Uint32(data[offsetSalt1:]),
		Salt2:           binary.BigEndian.Uint32(data[offsetSalt2:]),
	}, nil
}

func errShortHeader(n int) error {
	return fmt.Errorf("wal header truncated: got %d bytes, want %d", n, HeaderSize)
}
