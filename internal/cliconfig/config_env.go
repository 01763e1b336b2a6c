package cliconfig

import "os"

// ApplyEnvConfig applies configuration from WALOY_* environment variables
// to cfg, respecting flags already set (changed). Returns an error if any
// environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("db-path", os.Getenv("WALOY_DB_PATH"), &cfg.DBPath)
	s.setString("s3-endpoint", os.Getenv("WALOY_S3_ENDPOINT"), &cfg.S3Endpoint)
	s.setString("s3-region", os.Getenv("WALOY_S3_REGION"), &cfg.S3Region)
	s.setString("s3-bucket", os.Getenv("WALOY_S3_BUCKET"), &cfg.S3Bucket)
	s.setString("s3-access-key", os.Getenv("WALOY_S3_ACCESS_KEY"), &cfg.S3AccessKey)
	s.setString("s3-secret-key", os.Getenv("WALOY_S3_SECRET_KEY"), &cfg.S3SecretKey)
	s.setString("prefix", os.Getenv("WALOY_PREFIX"), &cfg.Prefix)
	s.setString("compression", os.Getenv("WALOY_COMPRESSION"), &cfg.Compression)
	s.setString("encryption-key", os.Getenv("WALOY_ENCRYPTION_KEY"), &cfg.EncryptionKey)
	s.setString("staging-dir", os.Getenv("WALOY_STAGING_DIR"), &cfg.StagingDir)

	if err := s.setDuration("sync-interval", os.Getenv("WALOY_SYNC_INTERVAL"), &cfg.SyncInterval); err != nil {
		return err
	}
	if err := s.setDuration("snapshot-interval", os.Getenv("WALOY_SNAPSHOT_INTERVAL"), &cfg.SnapshotInterval); err != nil {
		return err
	}
	if err := s.setDuration("retention-duration", os.Getenv("WALOY_RETENTION_DURATION"), &cfg.RetentionDuration); err != nil {
		return err
	}
	if err := s.setDuration("busy-timeout", os.Getenv("WALOY_BUSY_TIMEOUT"), &cfg.BusyTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("compact-threshold", os.Getenv("WALOY_COMPACT_THRESHOLD"), &cfg.CompactThreshold); err != nil {
		return err
	}
	if err := s.setIntFromString("compact-target-count", os.Getenv("WALOY_COMPACT_TARGET_COUNT"), &cfg.CompactTargetCount); err != nil {
		return err
	}
	if err := s.setIntFromString("max-retries", os.Getenv("WALOY_MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("chunk-size", os.Getenv("WALOY_CHUNK_SIZE"), &cfg.ChunkSize); err != nil {
		return err
	}

	if err := s.setFloatFromString("load-gate-threshold", os.Getenv("WALOY_LOAD_GATE_THRESHOLD"), &cfg.LoadGateThreshold); err != nil {
		return err
	}

	s.setBoolFromString("auto-restore", os.Getenv("WALOY_AUTO_RESTORE"), &cfg.AutoRestore)
	s.setBoolFromString("load-gate-enabled", os.Getenv("WALOY_LOAD_GATE_ENABLED"), &cfg.LoadGateEnabled)

	return nil
}
