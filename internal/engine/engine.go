package engine

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waloy/waloy/internal/codec"
	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/manifest"
	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/internal/ports"
	"github.com/waloy/waloy/internal/walfile"
)

// Version and MinCompatibleVersion follow the teacher's per-package
// semver-floor pattern.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)

// walHeaderSize is the fixed size of a SQLite WAL file header; the first
// segment of a generation starts just past it, never at byte zero.
const walHeaderSize = 32

// Restorer materializes a database at destPath from the given prefix,
// used by Open when auto-restore is enabled. Its concrete implementation
// lives in internal/restore; engine only depends on the function shape to
// avoid an import cycle (restore has no reason to depend on engine).
type Restorer func(ctx context.Context, store ports.ObjectStore, pipeline codec.Pipeline, prefix, destPath string) error

// Dependencies are the concrete adapters an Engine is built from. Engine
// itself only ever calls through these interfaces, never a concrete type,
// so tests substitute objectstore.Fake and an in-memory SQLDatabase/WALFile
// without touching real S3 or SQLite.
type Dependencies struct {
	Store       ports.ObjectStore
	SQL         ports.SQLDatabase
	OpenWALFile func(path string) (ports.WALFile, error)
	Restore     Restorer
}

// Engine is one handle over one database, per spec.md §9's "one handle per
// database, owned by the host" — there is no package-level mutable state.
type Engine struct {
	cfg  Config
	deps Dependencies

	pipeline codec.Pipeline
	logger   ports.Logger
	gate     *loadGate
	back     *backoff

	// mu is the non-reentrant guard: at most one of SyncWAL, Checkpoint,
	// EnforceRetention, Compact, Shutdown may be in flight at a time.
	mu sync.Mutex

	state        State
	generationID string
	man          domain.Manifest
	stats        *domain.Tracker
	wal          walState
	walFile      ports.WALFile
	readTxn      ports.ReadTxn
}

// Open initializes an Engine: auto-restoring if configured and the
// database is missing, opening the read connection, beginning the pinning
// read transaction, taking an initial snapshot, and installing the first
// generation.
func Open(ctx context.Context, cfg Config, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	compression, err := codec.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}

	if err := domain.CheckModuleVersions(
		domain.ModuleVersion{Name: "engine", Version: Version, MinVersion: MinCompatibleVersion},
		domain.ModuleVersion{Name: "codec", Version: codec.Version, MinVersion: codec.MinCompatibleVersion},
		domain.ModuleVersion{Name: "manifest", Version: manifest.Version, MinVersion: manifest.MinCompatibleVersion},
		domain.ModuleVersion{Name: "objectstore", Version: objectstore.Version, MinVersion: objectstore.MinCompatibleVersion},
		domain.ModuleVersion{Name: "walfile", Version: walfile.Version, MinVersion: walfile.MinCompatibleVersion},
	); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}

	if cfg.AutoRestore {
		if _, statErr := os.Stat(cfg.DBPath); os.IsNotExist(statErr) {
			logger.Info("engine: database missing, auto-restoring", ports.String("db_path", cfg.DBPath))
			pipeline := codec.NewPipeline(compression, cfg.EncryptionKey)
			if deps.Restore == nil {
				return nil, fmt.Errorf("engine: auto_restore enabled but no Restorer configured")
			}
			if err := deps.Restore(ctx, deps.Store, pipeline, cfg.Prefix, cfg.DBPath); err != nil {
				return nil, fmt.Errorf("engine: auto-restore: %w", err)
			}
		}
	}

	e := &Engine{
		cfg:      cfg,
		deps:     deps,
		pipeline: codec.NewPipeline(compression, cfg.EncryptionKey),
		logger:   logger,
		gate:     newLoadGate(cfg.LoadGate, logger),
		back:     newBackoff(200*time.Millisecond, 30*time.Second),
		state:    Replicating,
	}

	walFile, err := deps.OpenWALFile(walPath(cfg.DBPath))
	if err != nil {
		return nil, fmt.Errorf("engine: open wal file: %w", err)
	}
	e.walFile = walFile

	readTxn, err := deps.SQL.BeginReadTxn(ctx)
	if err != nil {
		walFile.Close()
		return nil, fmt.Errorf("engine: begin read transaction: %w", err)
	}
	e.readTxn = readTxn

	if err := e.captureWALState(); err != nil {
		e.readTxn.End(ctx)
		e.walFile.Close()
		return nil, err
	}

	genID, err := newGenerationID()
	if err != nil {
		e.readTxn.End(ctx)
		e.walFile.Close()
		return nil, err
	}
	e.generationID = genID
	e.man = domain.NewManifest(genID, nowMs())
	e.stats = domain.NewTracker(genID)

	if err := e.takeSnapshot(ctx); err != nil {
		e.readTxn.End(ctx)
		e.walFile.Close()
		return nil, fmt.Errorf("engine: initial snapshot: %w", err)
	}

	return e, nil
}

func walPath(dbPath string) string { return dbPath + "-wal" }

// newGenerationID returns a 32-hex-character random identifier: a v4 UUID
// with its hyphens stripped, matching the "typically a 32-hex random
// identifier" form generations are keyed by.
func newGenerationID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("engine: generate generation id: %w", err)
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// captureWALState reads the current header and size into e.wal without
// treating the first read as a discontinuity — there is nothing to
// compare against yet.
func (e *Engine) captureWALState() error {
	size, err := e.walFile.Size()
	if err != nil {
		return fmt.Errorf("engine: stat wal file: %w", err)
	}
	if size == 0 {
		e.wal = walState{}
		return nil
	}
	header, err := e.walFile.Header()
	if err != nil {
		return err
	}
	e.wal = walState{lastOffset: size, haveSalt: true, salt1: header.Salt1, salt2: header.Salt2}
	return nil
}

// SyncWAL ships any WAL bytes appended since the last sync as one new
// segment, per spec.md §4.1.
func (e *Engine) SyncWAL(ctx context.Context) error {
	if !e.mu.TryLock() {
		return domain.ErrBusy
	}
	defer e.mu.Unlock()
	return e.syncWALLocked(ctx)
}

func (e *Engine) syncWALLocked(ctx context.Context) error {
	if e.state == Closed {
		return domain.ErrAlreadyClosed
	}

	size, err := e.walFile.Size()
	if err != nil {
		return fmt.Errorf("engine: stat wal file: %w", err)
	}

	header, err := e.walFile.Header()
	if err != nil {
		// An empty or header-only WAL is a legitimate no-op, not corruption.
		if size == 0 {
			return nil
		}
		return err
	}

	if e.wal.discontinuous(header, size) {
		e.logger.Warn("engine: wal discontinuity detected, rotating generation")
		return e.checkpointLocked(ctx)
	}

	return e.shipNewWAL(ctx, header, size)
}

// shipNewWAL uploads whatever WAL bytes have accrued since the last sync,
// given an already-read header/size pair known not to be discontinuous. It
// never itself checks for discontinuity, so checkpointLocked can call it as
// a pre-checkpoint flush without risking recursing back into itself through
// syncWALLocked's discontinuity branch.
func (e *Engine) shipNewWAL(ctx context.Context, header ports.WALHeader, size int64) error {
	if !e.wal.haveSalt {
		e.wal.haveSalt = true
		e.wal.salt1, e.wal.salt2 = header.Salt1, header.Salt2
		// The snapshot just taken already reflects the database as of an
		// empty WAL; the 32-byte header itself is not new data to ship.
		if e.wal.lastOffset == 0 && size >= walHeaderSize {
			e.wal.lastOffset = walHeaderSize
		}
	}

	if size <= e.wal.lastOffset {
		return nil // no-op: nothing new since the last sync
	}

	raw, err := e.walFile.ReadRange(e.wal.lastOffset, size)
	if err != nil {
		return fmt.Errorf("engine: read wal range: %w", err)
	}

	encoded, err := e.pipeline.Encode(raw)
	if err != nil {
		return err
	}

	index := e.man.NextIndex()
	key := manifest.SegmentKey(e.cfg.Prefix, e.generationID, index)
	if err := e.putWithRetry(ctx, key, encoded); err != nil {
		return err
	}

	now := nowMs()
	e.man.AddSegment(domain.Segment{
		Index:            index,
		Offset:           e.wal.lastOffset,
		Length:           int64(len(raw)),
		CompressedLength: int64(len(encoded)),
		CreatedAtMs:      now,
		Key:              key,
	})

	if err := e.uploadManifest(ctx); err != nil {
		return err
	}

	e.wal.lastOffset = size
	e.stats.RecordSync(len(encoded), time.UnixMilli(now))
	return nil
}

// MaybeSnapshot performs a Checkpoint if the current generation has lived
// longer than the configured snapshot interval.
func (e *Engine) MaybeSnapshot(ctx context.Context) (bool, error) {
	if !e.mu.TryLock() {
		return false, domain.ErrBusy
	}
	defer e.mu.Unlock()

	if e.cfg.SnapshotInterval <= 0 {
		return false, nil
	}
	age := time.Since(time.UnixMilli(e.man.CreatedAtMs))
	if age < e.cfg.SnapshotInterval {
		return false, nil
	}
	if err := e.checkpointLocked(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Checkpoint forces a new generation: flush, release the read
// transaction, TRUNCATE-checkpoint, snapshot, rotate.
func (e *Engine) Checkpoint(ctx context.Context) error {
	if !e.mu.TryLock() {
		return domain.ErrBusy
	}
	defer e.mu.Unlock()
	return e.checkpointLocked(ctx)
}

func (e *Engine) checkpointLocked(ctx context.Context) error {
	if e.state == Closed {
		return domain.ErrAlreadyClosed
	}

	if size, err := e.walFile.Size(); err == nil && size > 0 {
		if header, herr := e.walFile.Header(); herr == nil && !e.wal.discontinuous(header, size) {
			if err := e.shipNewWAL(ctx, header, size); err != nil {
				e.logger.Warn("engine: pre-checkpoint sync failed", ports.Err(err))
			}
		}
	}

	e.state = Checkpointing

	if err := e.readTxn.End(ctx); err != nil {
		e.state = Replicating
		return fmt.Errorf("engine: release read transaction: %w", err)
	}

	if err := e.deps.SQL.Checkpointer().TruncateCheckpoint(ctx); err != nil {
		e.logger.Error("engine: checkpoint failed, remaining on previous generation", ports.Err(err))
		if reErr := e.reacquireReadTxn(ctx); reErr != nil {
			return fmt.Errorf("engine: checkpoint failed (%v) and could not reacquire read transaction: %w", err, reErr)
		}
		return fmt.Errorf("engine: wal_checkpoint: %w", err)
	}

	newGenID, err := newGenerationID()
	if err != nil {
		if reErr := e.reacquireReadTxn(ctx); reErr != nil {
			return reErr
		}
		return err
	}

	prevGenID := e.generationID
	e.generationID = newGenID
	e.man = domain.NewManifest(newGenID, nowMs())

	if err := e.takeSnapshot(ctx); err != nil {
		// The partial generation is abandoned: latest was never updated,
		// so it cannot be mistaken for valid. Restore the previous
		// generation id and fall back to it.
		e.generationID = prevGenID
		if reErr := e.reacquireReadTxn(ctx); reErr != nil {
			return fmt.Errorf("engine: snapshot failed (%v) and could not reacquire read transaction: %w", err, reErr)
		}
		return fmt.Errorf("engine: snapshot during checkpoint: %w", err)
	}

	if err := e.reacquireReadTxn(ctx); err != nil {
		return err
	}

	e.stats.RecordNewGeneration(newGenID)
	e.state = Replicating
	e.logger.Info("engine: checkpoint complete", ports.String("generation", newGenID))
	return nil
}

func (e *Engine) reacquireReadTxn(ctx context.Context) error {
	readTxn, err := e.deps.SQL.BeginReadTxn(ctx)
	if err != nil {
		return fmt.Errorf("engine: reacquire read transaction: %w", err)
	}
	e.readTxn = readTxn
	if err := e.captureWALState(); err != nil {
		return err
	}
	e.state = Replicating
	return nil
}

// takeSnapshot reads the full database file, PUTs it plus an empty
// manifest, and updates the latest pointer — the commit point for the
// current generation.
func (e *Engine) takeSnapshot(ctx context.Context) error {
	raw, err := os.ReadFile(e.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("engine: read database file: %w", err)
	}
	encoded, err := e.pipeline.Encode(raw)
	if err != nil {
		return err
	}

	snapshotKey := manifest.SnapshotKey(e.cfg.Prefix, e.generationID)
	if err := e.putWithRetry(ctx, snapshotKey, encoded); err != nil {
		return err
	}

	e.man.SnapshotSize = int64(len(raw))
	e.man.SnapshotCompressedSize = int64(len(encoded))
	if err := e.uploadManifest(ctx); err != nil {
		return err
	}

	latestKey := manifest.LatestKey(e.cfg.Prefix)
	if err := e.putWithRetry(ctx, latestKey, []byte(e.generationID)); err != nil {
		return err
	}

	e.wal = walState{}
	if e.stats != nil {
		e.stats.RecordSnapshot(len(encoded), time.UnixMilli(nowMs()))
	}
	return nil
}

func (e *Engine) uploadManifest(ctx context.Context) error {
	data, err := manifest.Encode(e.man)
	if err != nil {
		return err
	}
	return e.putWithRetry(ctx, manifest.ManifestKey(e.cfg.Prefix, e.generationID), data)
}

// withRetry retries op with exponential backoff up to cfg.MaxRetries
// times, per spec.md §7's S3(transport) policy for idempotent operations
// (PUT, GET, DELETE). desc names the operation for the final error.
func (e *Engine) withRetry(ctx context.Context, desc string, op func() error) error {
	e.back.Reset()
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.back.Next()):
			}
		}
		if err := op(); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	e.stats.RecordError(lastErr)
	return fmt.Errorf("engine: %s failed after %d attempts: %w", desc, e.cfg.MaxRetries+1, lastErr)
}

// putWithRetry retries a PUT with exponential backoff.
func (e *Engine) putWithRetry(ctx context.Context, key string, body []byte) error {
	return e.withRetry(ctx, fmt.Sprintf("put %s", key), func() error {
		return e.deps.Store.Put(ctx, key, body)
	})
}

// getWithRetry retries a GET with exponential backoff.
func (e *Engine) getWithRetry(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := e.withRetry(ctx, fmt.Sprintf("get %s", key), func() error {
		d, err := e.deps.Store.Get(ctx, key)
		if err != nil {
			return err
		}
		data = d
		return nil
	})
	return data, err
}

// deleteWithRetry retries a DELETE with exponential backoff.
func (e *Engine) deleteWithRetry(ctx context.Context, key string) error {
	return e.withRetry(ctx, fmt.Sprintf("delete %s", key), func() error {
		return e.deps.Store.Delete(ctx, key)
	})
}

// Shutdown flushes pending WAL bytes, releases the read transaction, and
// marks the engine terminated. A call on an already closed engine returns
// domain.ErrAlreadyClosed, like every other operation after Shutdown.
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.mu.TryLock() {
		return domain.ErrBusy
	}
	defer e.mu.Unlock()

	if e.state == Closed {
		return domain.ErrAlreadyClosed
	}

	if err := e.syncWALLocked(ctx); err != nil {
		e.logger.Warn("engine: final sync before shutdown failed", ports.Err(err))
	}
	if err := e.readTxn.End(ctx); err != nil {
		e.logger.Warn("engine: release read transaction on shutdown failed", ports.Err(err))
	}
	if err := e.walFile.Close(); err != nil {
		e.logger.Warn("engine: close wal file on shutdown failed", ports.Err(err))
	}

	e.state = Closed
	return nil
}

// Stats returns a snapshot of the engine's counters.
func (e *Engine) Stats() domain.Stats {
	if e.stats == nil {
		return domain.Stats{}
	}
	return e.stats.Snapshot()
}

// LoadGateOK reports whether the host should proceed with a sync cycle
// right now, per the configured LoadGateConfig. The engine never consults
// this internally.
func (e *Engine) LoadGateOK() bool { return e.gate.OK() }

// Tunables is the subset of Config safe to change on a running Engine:
// none of it affects the wire layout, generation identity, or crypto, so
// applying a new value never invalidates data already shipped. DBPath,
// S3, Prefix, Compression, and EncryptionKey are fixed at Open.
type Tunables struct {
	SnapshotInterval   time.Duration
	RetentionDuration  time.Duration
	CompactThreshold   int
	CompactTargetCount int
	MaxRetries         int
}

// UpdateTunables applies t to the running engine's configuration. It
// returns domain.ErrBusy if another mutating operation is in flight,
// matching every other Engine method's non-reentrant contract.
func (e *Engine) UpdateTunables(t Tunables) error {
	if !e.mu.TryLock() {
		return domain.ErrBusy
	}
	defer e.mu.Unlock()

	if e.state == Closed {
		return domain.ErrAlreadyClosed
	}

	e.cfg.SnapshotInterval = t.SnapshotInterval
	e.cfg.RetentionDuration = t.RetentionDuration
	e.cfg.CompactThreshold = t.CompactThreshold
	e.cfg.CompactTargetCount = t.CompactTargetCount
	e.cfg.MaxRetries = t.MaxRetries
	return nil
}

func nowMs() int64 { return time.Now().UnixMilli() }
