package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/waloy/waloy/internal/codec"
	"github.com/waloy/waloy/internal/ports"
)

// Planner is the CLI-facing restore entry point: like Restore/RestoreToTime,
// but downloads through a staging directory first and prunes abandoned
// runs afterward, so an operator repeatedly probing --at timestamps does
// not accumulate unbounded partial downloads. The engine's own
// auto-restore-on-Open never goes through Planner — it calls the plain
// Restore function directly, since it restores exactly once per Open and
// has no operator repeatedly re-invoking it.
type Planner struct {
	Store    ports.ObjectStore
	Pipeline codec.Pipeline
	Prefix   string

	// StagingDir holds one subdirectory per restore run. Empty disables
	// staging: Restore/RestoreToTime write directly to destPath.
	StagingDir string
	Cleanup    CleanupConfig
}

// Restore materializes the current generation at destPath.
func (p *Planner) Restore(ctx context.Context, destPath string) error {
	return p.run(ctx, destPath, func(stagePath string) error {
		return Restore(ctx, p.Store, p.Pipeline, p.Prefix, stagePath)
	})
}

// RestoreToTime materializes the database as of tsMs at destPath.
func (p *Planner) RestoreToTime(ctx context.Context, destPath string, tsMs int64) error {
	return p.run(ctx, destPath, func(stagePath string) error {
		return RestoreToTime(ctx, p.Store, p.Pipeline, p.Prefix, stagePath, tsMs)
	})
}

func (p *Planner) run(ctx context.Context, destPath string, do func(stagePath string) error) error {
	if p.StagingDir == "" {
		return do(destPath)
	}

	runID := uuid.NewString()
	runDir := filepath.Join(p.StagingDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("restore: create staging run directory: %w", err)
	}

	stagePath := filepath.Join(runDir, filepath.Base(destPath))
	if err := do(stagePath); err != nil {
		os.RemoveAll(runDir)
		return err
	}

	if dir := filepath.Dir(destPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			os.RemoveAll(runDir)
			return fmt.Errorf("restore: create destination directory: %w", err)
		}
	}
	if err := os.Rename(stagePath, destPath); err != nil {
		os.RemoveAll(runDir)
		return fmt.Errorf("restore: move staged database into place: %w", err)
	}
	if _, err := os.Stat(stagePath + "-wal"); err == nil {
		os.Rename(stagePath+"-wal", destPath+"-wal")
	}
	os.RemoveAll(runDir)

	if err := pruneStaging(p.StagingDir, p.Cleanup); err != nil {
		return fmt.Errorf("restore: prune staging directory: %w", err)
	}
	return nil
}
