package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/waloy/waloy/internal/codec"
	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/manifest"
	"github.com/waloy/waloy/internal/ports"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// Restore materializes the current generation named by {prefix}/latest at
// destPath: the snapshot becomes the database file, and every segment,
// concatenated in index order, becomes destPath's WAL. Opening destPath
// with the SQL engine triggers automatic WAL replay and produces a
// consistent database. Its signature matches engine.Restorer, so it can be
// wired directly into engine.Dependencies for auto-restore-on-Open.
func Restore(ctx context.Context, store ports.ObjectStore, pipeline codec.Pipeline, prefix, destPath string) error {
	genID, err := manifest.ReadLatest(ctx, store, prefix)
	if err != nil {
		return err
	}
	m, err := manifest.Read(ctx, store, prefix, genID)
	if err != nil {
		return fmt.Errorf("restore: read manifest for generation %s: %w", genID, err)
	}
	return materialize(ctx, store, pipeline, prefix, destPath, genID, m, len(m.Segments))
}

// RestoreToTime materializes the database as it stood at tsMs (unix
// millis). It lists every generation under prefix, chooses the one whose
// lifetime brackets tsMs (falling back to the most recent generation
// started at or before tsMs), and restores only the segments created at or
// before tsMs — an inclusive upper bound, so among segments sharing a
// timestamp the later one is kept. Fails with domain.ErrNoBackupAtTime if
// no generation began at or before tsMs.
func RestoreToTime(ctx context.Context, store ports.ObjectStore, pipeline codec.Pipeline, prefix, destPath string, tsMs int64) error {
	genID, m, cutoff, err := planPointInTime(ctx, store, prefix, tsMs)
	if err != nil {
		return err
	}
	return materialize(ctx, store, pipeline, prefix, destPath, genID, m, cutoff)
}

// planPointInTime implements spec.md §4.5's restore_to_time selection
// rule: prefer a generation g with created_at_ms <= ts_ms whose last
// segment's created_at_ms >= ts_ms (ts_ms falls within its lifetime);
// among generations satisfying that, the most recently started one wins.
// If none brackets ts_ms, fall back to the eligible generation (created at
// or before ts_ms) with the largest creation time. The segment cutoff
// within the chosen generation is the count of segments with
// created_at_ms <= ts_ms, taken in manifest order — segments are appended
// in nondecreasing timestamp order, so this is also the last such
// segment's position in the manifest + 1.
func planPointInTime(ctx context.Context, store ports.ObjectStore, prefix string, tsMs int64) (string, domain.Manifest, int, error) {
	ids, err := manifest.ListGenerationIDs(ctx, store, prefix)
	if err != nil {
		return "", domain.Manifest{}, 0, err
	}

	var eligible []domain.Manifest
	for _, id := range ids {
		m, err := manifest.Read(ctx, store, prefix, id)
		if err != nil {
			continue // an unreadable generation is skipped, not fatal
		}
		if m.CreatedAtMs <= tsMs {
			eligible = append(eligible, m)
		}
	}
	if len(eligible) == 0 {
		return "", domain.Manifest{}, 0, domain.ErrNoBackupAtTime
	}

	var chosen *domain.Manifest
	for i := range eligible {
		m := &eligible[i]
		if m.LastSegmentCreatedAtMs() >= tsMs && (chosen == nil || m.CreatedAtMs > chosen.CreatedAtMs) {
			chosen = m
		}
	}
	if chosen == nil {
		chosen = &eligible[0]
		for i := range eligible {
			if eligible[i].CreatedAtMs > chosen.CreatedAtMs {
				chosen = &eligible[i]
			}
		}
	}

	cutoff := 0
	for i, seg := range chosen.Segments {
		if seg.CreatedAtMs <= tsMs {
			cutoff = i + 1
		}
	}
	return chosen.GenerationID, *chosen, cutoff, nil
}

// materialize downloads the snapshot and the first segCount segments of
// generation genID, decodes them through pipeline, and writes destPath and
// destPath-wal.
func materialize(ctx context.Context, store ports.ObjectStore, pipeline codec.Pipeline, prefix, destPath, genID string, m domain.Manifest, segCount int) error {
	encodedSnapshot, err := getWithRetry(ctx, store, manifest.SnapshotKey(prefix, genID))
	if err != nil {
		return fmt.Errorf("restore: get snapshot for generation %s: %w", genID, err)
	}
	snapshot, err := pipeline.Decode(encodedSnapshot)
	if err != nil {
		return fmt.Errorf("restore: decode snapshot for generation %s: %w", genID, err)
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("restore: create destination directory: %w", err)
		}
	}
	if err := os.WriteFile(destPath, snapshot, 0o644); err != nil {
		return fmt.Errorf("restore: write database file: %w", err)
	}

	if segCount > len(m.Segments) {
		segCount = len(m.Segments)
	}
	var wal []byte
	for i := 0; i < segCount; i++ {
		seg := m.Segments[i]
		encoded, err := getWithRetry(ctx, store, seg.Key)
		if err != nil {
			return fmt.Errorf("restore: get segment %d of generation %s: %w", seg.Index, genID, err)
		}
		decoded, err := pipeline.Decode(encoded)
		if err != nil {
			return fmt.Errorf("restore: decode segment %d of generation %s: %w", seg.Index, genID, err)
		}
		wal = append(wal, decoded...)
	}
	if len(wal) > 0 {
		if err := os.WriteFile(destPath+"-wal", wal, 0o644); err != nil {
			return fmt.Errorf("restore: write wal file: %w", err)
		}
	}
	return nil
}
