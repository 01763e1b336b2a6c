package domain

import "time"

// Stats is a point-in-time, by-value copy of the engine's counters. It is
// never shared by reference with an observer.
type Stats struct {
	Generation         string
	GenerationCount     uint64
	SyncCount           uint64
	BytesUploaded       uint64
	ErrorCount          uint64
	LastErrorMessage    string
	LastSyncAt          time.Time
	LastSnapshotAt      time.Time
}

// Tracker is the mutable counterpart Stats snapshots from. It has no
// exported fields so callers cannot race on partial updates; Snapshot is
// the only way to observe it.
type Tracker struct {
	generation       string
	generationCount  uint64
	syncCount        uint64
	bytesUploaded    uint64
	errorCount       uint64
	lastErrorMessage string
	lastSyncAt       time.Time
	lastSnapshotAt   time.Time
}

// NewTracker returns a Tracker seeded with the initial generation.
func NewTracker(generationID string) *Tracker {
	return &Tracker{generation: generationID, generationCount: 1}
}

// RecordSync records a successful sync_wal upload of n bytes.
func (t *Tracker) RecordSync(n int, at time.Time) {
	t.syncCount++
	t.bytesUploaded += uint64(n)
	t.lastSyncAt = at
}

// RecordSnapshot records a successful snapshot upload of n bytes.
func (t *Tracker) RecordSnapshot(n int, at time.Time) {
	t.bytesUploaded += uint64(n)
	t.lastSnapshotAt = at
}

// RecordNewGeneration records a rotation to a fresh generation.
func (t *Tracker) RecordNewGeneration(generationID string) {
	t.generation = generationID
	t.generationCount++
}

// RecordError records a surfaced error for observability.
func (t *Tracker) RecordError(err error) {
	t.errorCount++
	if err != nil {
		t.lastErrorMessage = err.Error()
	}
}

// Snapshot copies the current counters out by value.
func (t *Tracker) Snapshot() Stats {
	return Stats{
		Generation:       t.generation,
		GenerationCount:  t.generationCount,
		SyncCount:        t.syncCount,
		BytesUploaded:    t.bytesUploaded,
		ErrorCount:       t.errorCount,
		LastErrorMessage: t.lastErrorMessage,
		LastSyncAt:       t.lastSyncAt,
		LastSnapshotAt:   t.lastSnapshotAt,
	}
}
