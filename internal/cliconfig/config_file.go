package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly, exactly the teacher's internal/cliconfig/config_file.go
// pattern.
type FileConfig struct {
	DBPath string `toml:"db_path"`

	S3Endpoint  string `toml:"s3_endpoint"`
	S3Region    string `toml:"s3_region"`
	S3Bucket    string `toml:"s3_bucket"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	Prefix      string `toml:"prefix"`

	SyncInterval      string `toml:"sync_interval"`
	SnapshotInterval  string `toml:"snapshot_interval"`
	RetentionDuration string `toml:"retention_duration"`

	CompactThreshold   int `toml:"compact_threshold"`
	CompactTargetCount int `toml:"compact_target_count"`
	MaxRetries         int `toml:"max_retries"`
	ChunkSize          int `toml:"chunk_size"`

	AutoRestore   *bool  `toml:"auto_restore"`
	Compression   string `toml:"compression"`
	EncryptionKey string `toml:"encryption_key"`

	BusyTimeout string `toml:"busy_timeout"`
	StagingDir  string `toml:"staging_dir"`

	LoadGateEnabled   *bool   `toml:"load_gate_enabled"`
	LoadGateThreshold float64 `toml:"load_gate_threshold"`
}

// LoadFileConfig reads and parses a TOML config file from path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.waloy/config.toml if the user's home
// directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".waloy", "config.toml")
	}
	return ""
}

// FileExists reports whether a file exists at path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// ApplyFileConfig applies configuration from a file to cfg, respecting
// flags already set (changed).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("db-path", fc.DBPath, &cfg.DBPath)
	s.setString("s3-endpoint", fc.S3Endpoint, &cfg.S3Endpoint)
	s.setString("s3-region", fc.S3Region, &cfg.S3Region)
	s.setString("s3-bucket", fc.S3Bucket, &cfg.S3Bucket)
	s.setString("s3-access-key", fc.S3AccessKey, &cfg.S3AccessKey)
	s.setString("s3-secret-key", fc.S3SecretKey, &cfg.S3SecretKey)
	s.setString("prefix", fc.Prefix, &cfg.Prefix)
	s.setString("compression", fc.Compression, &cfg.Compression)
	s.setString("encryption-key", fc.EncryptionKey, &cfg.EncryptionKey)
	s.setString("staging-dir", fc.StagingDir, &cfg.StagingDir)

	if err := s.setDuration("sync-interval", fc.SyncInterval, &cfg.SyncInterval); err != nil {
		return err
	}
	if err := s.setDuration("snapshot-interval", fc.SnapshotInterval, &cfg.SnapshotInterval); err != nil {
		return err
	}
	if err := s.setDuration("retention-duration", fc.RetentionDuration, &cfg.RetentionDuration); err != nil {
		return err
	}
	if err := s.setDuration("busy-timeout", fc.BusyTimeout, &cfg.BusyTimeout); err != nil {
		return err
	}

	s.setInt("compact-threshold", fc.CompactThreshold, &cfg.CompactThreshold)
	s.setInt("compact-target-count", fc.CompactTargetCount, &cfg.CompactTargetCount)
	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)
	s.setInt("chunk-size", fc.ChunkSize, &cfg.ChunkSize)

	s.setFloat("load-gate-threshold", fc.LoadGateThreshold, &cfg.LoadGateThreshold)

	s.setBool("auto-restore", fc.AutoRestore, &cfg.AutoRestore)
	s.setBool("load-gate-enabled", fc.LoadGateEnabled, &cfg.LoadGateEnabled)

	return nil
}
