package waloy

import (
	"context"
	"fmt"

	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/engine"
	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/internal/ports"
	"github.com/waloy/waloy/internal/restore"
	"github.com/waloy/waloy/internal/sqlite"
	"github.com/waloy/waloy/internal/walfile"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// Re-exported sentinel errors, so an embedder never needs to import
// internal/domain to use errors.Is against them.
var (
	ErrBusy                     = domain.ErrBusy
	ErrAlreadyClosed            = domain.ErrAlreadyClosed
	ErrNoBackupAtTime           = domain.ErrNoBackupAtTime
	ErrNoLatest                 = domain.ErrNoLatest
	ErrCompactCurrentGeneration = domain.ErrCompactCurrentGeneration
	ErrInvalidConfig            = domain.ErrInvalidConfig
)

// CompactionResult reports one generation's segment count before and
// after compaction.
type CompactionResult = engine.CompactionResult

// Tunables is the subset of Config safe to change on a running Waloy
// without invalidating already-shipped data.
type Tunables = engine.Tunables

// Stats is a snapshot of replication counters.
type Stats = domain.Stats

// Waloy is one handle over one SQLite database file and one S3 bucket
// prefix. There is no package-level mutable state, and Waloy owns no
// background goroutine: every method is a synchronous call the embedder
// schedules on its own loop.
type Waloy struct {
	eng    *engine.Engine
	sql    *sqlite.Database
	store  ports.ObjectStore
	prefix string
}

// Open builds every adapter Config names (an S3 client unless
// WithObjectStore overrides it, a SQLite read/checkpoint connection
// pair, and a WAL file reader), auto-restores if configured and the
// database is missing, and returns a ready-to-drive Waloy.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Waloy, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		s3Store, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("waloy: build object store: %w", err)
		}
		store = s3Store
	}

	db, err := sqlite.Open(cfg.DBPath, cfg.BusyTimeout, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("waloy: open sqlite: %w", err)
	}

	engCfg := engine.Config{
		DBPath: cfg.DBPath,
		S3: objectstore.Config{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		},
		Prefix:             cfg.Prefix,
		Compression:        cfg.Compression,
		EncryptionKey:      cfg.EncryptionKey,
		AutoRestore:        cfg.AutoRestore,
		SnapshotInterval:   cfg.SnapshotInterval,
		RetentionDuration:  cfg.RetentionDuration,
		CompactThreshold:   cfg.CompactThreshold,
		CompactTargetCount: cfg.CompactTargetCount,
		BusyTimeout:        cfg.BusyTimeout,
		MaxRetries:         cfg.MaxRetries,
		LoadGate: engine.LoadGateConfig{
			Enabled:   cfg.LoadGateEnabled,
			Threshold: cfg.LoadGateThreshold,
		},
		Logger: o.logger,
	}

	deps := engine.Dependencies{
		Store: store,
		SQL:   db,
		OpenWALFile: func(path string) (ports.WALFile, error) {
			return walfile.Open(path)
		},
		Restore: restore.Restore,
	}

	eng, err := engine.Open(ctx, engCfg, deps)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Waloy{eng: eng, sql: db, store: store, prefix: cfg.Prefix}, nil
}

// SyncWAL ships every WAL byte written since the last call. See
// internal/engine.Engine.SyncWAL.
func (w *Waloy) SyncWAL(ctx context.Context) error { return w.eng.SyncWAL(ctx) }

// MaybeSnapshot checkpoints and starts a fresh generation if the current
// one has exceeded Config.SnapshotInterval. Returns whether it did.
func (w *Waloy) MaybeSnapshot(ctx context.Context) (bool, error) { return w.eng.MaybeSnapshot(ctx) }

// Checkpoint forces a checkpoint and starts a fresh generation
// regardless of age.
func (w *Waloy) Checkpoint(ctx context.Context) error { return w.eng.Checkpoint(ctx) }

// EnforceRetention deletes whole generations older than
// Config.RetentionDuration, never the current one.
func (w *Waloy) EnforceRetention(ctx context.Context) (int, error) {
	return w.eng.EnforceRetention(ctx)
}

// Compact fuses contiguous segments in every eligible non-current
// generation.
func (w *Waloy) Compact(ctx context.Context) ([]CompactionResult, error) { return w.eng.Compact(ctx) }

// CompactGeneration compacts exactly one named generation, bypassing
// Config.CompactThreshold.
func (w *Waloy) CompactGeneration(ctx context.Context, genID string) (CompactionResult, error) {
	return w.eng.CompactGeneration(ctx, genID)
}

// UpdateTunables applies new values for the subset of Config safe to
// change without reopening.
func (w *Waloy) UpdateTunables(t Tunables) error { return w.eng.UpdateTunables(t) }

// LoadGateOK reports whether the embedder should proceed with a sync
// cycle right now, per Config.LoadGateEnabled/LoadGateThreshold. Waloy
// never consults this internally.
func (w *Waloy) LoadGateOK() bool { return w.eng.LoadGateOK() }

// Stats returns a snapshot of replication counters.
func (w *Waloy) Stats() Stats { return w.eng.Stats() }

// Shutdown flushes any unsynced WAL bytes, releases the pinning read
// transaction, and closes the WAL and SQLite handles.
func (w *Waloy) Shutdown(ctx context.Context) error {
	err := w.eng.Shutdown(ctx)
	if closeErr := w.sql.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
