package domain

// Segment is an immutable slice of the logical WAL belonging to one
// generation. It is stored as object key
// "{prefix}/{generation}/wal/{index}".
type Segment struct {
	Index             int    `json:"index"`
	Offset            int64  `json:"offset"`
	Length            int64  `json:"length"`
	CompressedLength  int64  `json:"compressed_length"`
	CreatedAtMs       int64  `json:"created_at_ms"`
	Key               string `json:"key"`
}

// End returns the offset one past the last byte covered by the segment.
func (s Segment) End() int64 { return s.Offset + s.Length }

// Manifest is the JSON document persisted at
// "{prefix}/{generation}/manifest.json". It is authoritative over object
// listing for ordering and boundary resolution within a generation.
type Manifest struct {
	GenerationID           string    `json:"generation_id"`
	CreatedAtMs            int64     `json:"created_at_ms"`
	SnapshotSize           int64     `json:"snapshot_size"`
	SnapshotCompressedSize int64     `json:"snapshot_compressed_size"`
	Segments               []Segment `json:"segments"`
}

// NewManifest returns an empty manifest for a freshly created generation.
func NewManifest(generationID string, createdAtMs int64) Manifest {
	return Manifest{GenerationID: generationID, CreatedAtMs: createdAtMs}
}

// NextIndex returns the index the next segment appended to this manifest
// must use: one past the last segment's index, or 0 for an empty manifest.
// Segment indices are consecutive integers; a live generation's start at 0,
// while a compacted manifest's continue past the indices they replaced.
func (m Manifest) NextIndex() int {
	if len(m.Segments) == 0 {
		return 0
	}
	return m.Segments[len(m.Segments)-1].Index + 1
}

// NextOffset returns the logical WAL offset immediately following the last
// segment, or 0 for an empty manifest.
func (m Manifest) NextOffset() int64 {
	if len(m.Segments) == 0 {
		return 0
	}
	last := m.Segments[len(m.Segments)-1]
	return last.End()
}

// AddSegment appends a segment record, panicking if it would violate the
// consecutive-index or contiguous-offset invariants — a programming error,
// never a runtime condition triggerable by external input. The first
// segment of a manifest fixes the starting index and offset (a live
// generation's first segment starts just past the WAL header); every later
// segment must follow on directly from the one before it.
func (m *Manifest) AddSegment(seg Segment) {
	if len(m.Segments) > 0 {
		if seg.Index != m.NextIndex() {
			panic("domain: manifest segment index out of order")
		}
		if seg.Offset != m.NextOffset() {
			panic("domain: manifest segment offset discontinuous")
		}
	}
	m.Segments = append(m.Segments, seg)
}

// LastSegmentCreatedAtMs returns the creation timestamp of the last segment,
// or the manifest's own creation timestamp if it has no segments — the
// timestamp retention compares against.
func (m Manifest) LastSegmentCreatedAtMs() int64 {
	if len(m.Segments) == 0 {
		return m.CreatedAtMs
	}
	return m.Segments[len(m.Segments)-1].CreatedAtMs
}

// TotalSegmentBytes sums the uncompressed lengths of every segment.
func (m Manifest) TotalSegmentBytes() int64 {
	var total int64
	for _, s := range m.Segments {
		total += s.Length
	}
	return total
}
