package engine

import (
	"fmt"
	"time"

	"github.com/waloy/waloy/internal/codec"
	"github.com/waloy/waloy/internal/domain"
	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/internal/ports"
)

// Config configures one Engine instance against one database file and one
// S3 prefix. Every field maps to a recognized configuration option in
// spec.md §6.
type Config struct {
	// DBPath is the filesystem path to the SQLite database file.
	DBPath string

	// S3 addresses the bucket the engine ships segments to.
	S3 objectstore.Config
	// Prefix is the key prefix within the bucket under which every
	// generation, manifest, and the latest pointer live.
	Prefix string

	// Compression selects the compression stage of the codec pipeline.
	Compression string // "none" | "lz4" | "zstd"
	// EncryptionKey, if non-empty, enables the encryption stage.
	EncryptionKey string

	// AutoRestore materializes a database from the configured prefix at
	// Open if DBPath does not exist.
	AutoRestore bool

	// SnapshotInterval is how long a generation may live before
	// MaybeSnapshot forces a checkpoint.
	SnapshotInterval time.Duration
	// RetentionDuration bounds how long a non-current generation is kept;
	// zero disables retention entirely.
	RetentionDuration time.Duration

	// CompactThreshold is the segment count a non-current generation must
	// exceed before Compact will act on it.
	CompactThreshold int
	// CompactTargetCount is the number of roughly-equal parts Compact
	// re-splits a generation's segments into.
	CompactTargetCount int

	// BusyTimeout is passed to SQLite's busy_timeout pragma and bounds how
	// long PRAGMA wal_checkpoint waits for contending connections.
	BusyTimeout time.Duration
	// MaxRetries bounds both checkpoint-busy retries and S3 transport
	// retries for idempotent operations.
	MaxRetries int

	// LoadGate configures the advisory load gate that LoadGateOK reports
	// on; the engine itself never consults it. Off by default.
	LoadGate LoadGateConfig

	Logger ports.Logger
}

// DefaultConfig returns a Config with the same conservative defaults the
// teacher applies across its own DefaultConfig: short retry budgets, a
// bounded snapshot interval, resource gating off.
func DefaultConfig() Config {
	return Config{
		Compression:        "zstd",
		SnapshotInterval:   10 * time.Minute,
		RetentionDuration:  7 * 24 * time.Hour,
		CompactThreshold:   64,
		CompactTargetCount: 4,
		BusyTimeout:        5 * time.Second,
		MaxRetries:         5,
		LoadGate:           DefaultLoadGateConfig(),
		Logger:             ports.NoopLogger{},
	}
}

// Validate checks Config for the invalid combinations Open must reject
// before doing any I/O.
func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("engine: db_path is required: %w", domain.ErrInvalidConfig)
	}
	if c.S3.Bucket == "" {
		return fmt.Errorf("engine: s3.bucket is required: %w", domain.ErrInvalidConfig)
	}
	if _, err := codec.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("engine: %v: %w", err, domain.ErrInvalidConfig)
	}
	if c.CompactThreshold < 2 {
		return fmt.Errorf("engine: compact_threshold must be at least 2: %w", domain.ErrInvalidConfig)
	}
	if c.CompactTargetCount < 1 {
		return fmt.Errorf("engine: compact_target_count must be at least 1: %w", domain.ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("engine: max_retries must not be negative: %w", domain.ErrInvalidConfig)
	}
	return nil
}
