package manifest

import (
	"fmt"
	"path"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern; a mismatch here means two engine builds could
// disagree about the key layout for the same prefix.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// LatestKey returns the object key holding the current generation id.
func LatestKey(prefix string) string {
	return path.Join(prefix, "latest")
}

// SnapshotKey returns the object key for a generation's full database
// snapshot.
func SnapshotKey(prefix, generationID string) string {
	return path.Join(prefix, generationID, "snapshot")
}

// ManifestKey returns the object key for a generation's manifest document.
func ManifestKey(prefix, generationID string) string {
	return path.Join(prefix, generationID, "manifest.json")
}

// SegmentKey returns the object key for one WAL segment within a
// generation, as a plain decimal index per the bit-exact key layout
// ("wal/0", "wal/1", ...). The manifest, not lexicographic key order, is
// authoritative for segment ordering.
func SegmentKey(prefix, generationID string, index int) string {
	return path.Join(prefix, generationID, "wal", fmt.Sprintf("%d", index))
}

// GenerationPrefix returns the key prefix under which every object of one
// generation lives, for use with ObjectStore.List when deleting or
// compacting a generation.
func GenerationPrefix(prefix, generationID string) string {
	return path.Join(prefix, generationID) + "/"
}
