package cliconfig

import (
	"github.com/waloy/waloy/internal/engine"
	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/internal/ports"
)

// ToEngineConfig converts a fully-layered CLI Config into engine.Config.
func (c Config) ToEngineConfig(logger ports.Logger) engine.Config {
	return engine.Config{
		DBPath: c.DBPath,
		S3: objectstore.Config{
			Endpoint:  c.S3Endpoint,
			Region:    c.S3Region,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
		},
		Prefix:             c.Prefix,
		Compression:        c.Compression,
		EncryptionKey:      c.EncryptionKey,
		AutoRestore:        c.AutoRestore,
		SnapshotInterval:   c.SnapshotInterval,
		RetentionDuration:  c.RetentionDuration,
		CompactThreshold:   c.CompactThreshold,
		CompactTargetCount: c.CompactTargetCount,
		BusyTimeout:        c.BusyTimeout,
		MaxRetries:         c.MaxRetries,
		LoadGate: engine.LoadGateConfig{
			Enabled:   c.LoadGateEnabled,
			Threshold: c.LoadGateThreshold,
		},
		Logger: logger,
	}
}
