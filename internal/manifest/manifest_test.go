package manifest

import (
	"testing"

	"github.com/waloy/waloy/internal/domain"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := domain.NewManifest("abc123", 1000)
	m.AddSegment(domain.Segment{Index: 0, Offset: 0, Length: 100, CompressedLength: 60, CreatedAtMs: 1001, Key: "p/abc123/wal/0"})
	m.AddSegment(domain.Segment{Index: 1, Offset: 100, Length: 50, CompressedLength: 30, CreatedAtMs: 1002, Key: "p/abc123/wal/1"})

	data, err := Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.GenerationID != m.GenerationID || len(got.Segments) != 2 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Segments[1].Offset != 100 {
		t.Errorf("Segments[1].Offset = %d, want 100", got.Segments[1].Offset)
	}
}

func TestDecode_ToleratesExtraFields(t *testing.T) {
	data := []byte(`{"generation_id":"g1","created_at_ms":5,"snapshot_size":10,"snapshot_compressed_size":8,"segments":[],"future_field":"ignored"}`)
	m, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m.GenerationID != "g1" {
		t.Errorf("GenerationID = %q, want g1", m.GenerationID)
	}
}

func TestDecode_MalformedJSONFails(t *testing.T) {
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestKeyLayout(t *testing.T) {
	prefix := "backups/mydb"
	gen := "deadbeef"

	if got, want := LatestKey(prefix), "backups/mydb/latest"; got != want {
		t.Errorf("LatestKey = %q, want %q", got, want)
	}
	if got, want := SnapshotKey(prefix, gen), "backups/mydb/deadbeef/snapshot"; got != want {
		t.Errorf("SnapshotKey = %q, want %q", got, want)
	}
	if got, want := ManifestKey(prefix, gen), "backups/mydb/deadbeef/manifest.json"; got != want {
		t.Errorf("ManifestKey = %q, want %q", got, want)
	}
	if got, want := SegmentKey(prefix, gen, 0), "backups/mydb/deadbeef/wal/0"; got != want {
		t.Errorf("SegmentKey(0) = %q, want %q", got, want)
	}
	if got, want := SegmentKey(prefix, gen, 42), "backups/mydb/deadbeef/wal/42"; got != want {
		t.Errorf("SegmentKey(42) = %q, want %q", got, want)
	}
}
