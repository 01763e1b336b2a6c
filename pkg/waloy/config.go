package waloy

import "time"

// S3Config addresses the bucket a Waloy instance replicates into.
type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Config configures one Waloy instance against one database file and one
// bucket prefix. It mirrors internal/engine.Config's public surface, kept
// as its own type so pkg/waloy never forces an embedder to import an
// internal package.
type Config struct {
	// DBPath is the filesystem path to the SQLite database file.
	DBPath string

	S3     S3Config
	Prefix string

	// Compression selects the codec pipeline's compression stage:
	// "none", "lz4", or "zstd".
	Compression string
	// EncryptionKey, if non-empty, enables AES-256-GCM with an
	// Argon2id-derived key.
	EncryptionKey string

	// AutoRestore materializes DBPath from Prefix at Open if it is
	// missing.
	AutoRestore bool

	SnapshotInterval   time.Duration
	RetentionDuration  time.Duration
	CompactThreshold   int
	CompactTargetCount int

	BusyTimeout time.Duration
	MaxRetries  int

	LoadGateEnabled   bool
	LoadGateThreshold float64
}

// DefaultConfig returns conservative defaults suitable for a first run.
func DefaultConfig() Config {
	return Config{
		Prefix:             "waloy",
		Compression:        "zstd",
		SnapshotInterval:   10 * time.Minute,
		RetentionDuration:  7 * 24 * time.Hour,
		CompactThreshold:   64,
		CompactTargetCount: 4,
		BusyTimeout:        5 * time.Second,
		MaxRetries:         5,
		LoadGateThreshold:  0.85,
	}
}
