package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Prefix != "waloy" {
		t.Errorf("Prefix = %v, want waloy", cfg.Prefix)
	}
	if cfg.SyncInterval != 2*time.Second {
		t.Errorf("SyncInterval = %v, want 2s", cfg.SyncInterval)
	}
	if cfg.Compression != "zstd" {
		t.Errorf("Compression = %v, want zstd", cfg.Compression)
	}
	if cfg.ChunkSize != 8<<20 {
		t.Errorf("ChunkSize = %v, want 8MB", cfg.ChunkSize)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() on defaults alone expected error (missing db-path/bucket/prefix would need setting)")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name: "valid minimal config",
			config: Config{
				DBPath:             "/tmp/db.sqlite",
				S3Bucket:           "bucket",
				Prefix:             "waloy",
				SyncInterval:       time.Second,
				CompactThreshold:   2,
				CompactTargetCount: 1,
			},
			wantErr: false,
		},
		{
			name: "missing db path",
			config: Config{
				S3Bucket:           "bucket",
				Prefix:             "waloy",
				SyncInterval:       time.Second,
				CompactThreshold:   2,
				CompactTargetCount: 1,
			},
			wantErr: true,
		},
		{
			name: "missing bucket",
			config: Config{
				DBPath:             "/tmp/db.sqlite",
				Prefix:             "waloy",
				SyncInterval:       time.Second,
				CompactThreshold:   2,
				CompactTargetCount: 1,
			},
			wantErr: true,
		},
		{
			name: "non-positive sync interval",
			config: Config{
				DBPath:             "/tmp/db.sqlite",
				S3Bucket:           "bucket",
				Prefix:             "waloy",
				SyncInterval:       0,
				CompactThreshold:   2,
				CompactTargetCount: 1,
			},
			wantErr: true,
		},
		{
			name: "compact threshold too small",
			config: Config{
				DBPath:             "/tmp/db.sqlite",
				S3Bucket:           "bucket",
				Prefix:             "waloy",
				SyncInterval:       time.Second,
				CompactThreshold:   1,
				CompactTargetCount: 1,
			},
			wantErr: true,
		},
		{
			name: "negative max retries",
			config: Config{
				DBPath:             "/tmp/db.sqlite",
				S3Bucket:           "bucket",
				Prefix:             "waloy",
				SyncInterval:       time.Second,
				CompactThreshold:   2,
				CompactTargetCount: 1,
				MaxRetries:         -1,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate() expected error but got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}
