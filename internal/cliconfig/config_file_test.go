package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				DBPath:            "/test/db.sqlite",
				S3Bucket:          "test-bucket",
				SnapshotInterval:  "5m",
				LoadGateThreshold: 0.8,
				CompactThreshold:  16,
				LoadGateEnabled:   &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				DBPath:            "/test/db.sqlite",
				S3Bucket:          "test-bucket",
				SnapshotInterval:  5 * time.Minute,
				LoadGateThreshold: 0.8,
				CompactThreshold:  16,
				LoadGateEnabled:   true,
			},
			wantErr: false,
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				DBPath:   "/config/db.sqlite",
				S3Bucket: "config-bucket",
			},
			changed: map[string]bool{"db-path": true},
			initial: Config{
				DBPath:   "/flag/db.sqlite",
				S3Bucket: "flag-bucket",
			},
			expected: Config{
				DBPath:   "/flag/db.sqlite", // unchanged because flag was set
				S3Bucket: "config-bucket",
			},
			wantErr: false,
		},
		{
			name: "invalid duration returns error",
			fileConfig: FileConfig{
				SyncInterval: "not-a-duration",
			},
			changed:  map[string]bool{},
			initial:  Config{},
			expected: Config{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}

			if cfg.DBPath != tt.expected.DBPath {
				t.Errorf("DBPath = %v, want %v", cfg.DBPath, tt.expected.DBPath)
			}
			if cfg.S3Bucket != tt.expected.S3Bucket {
				t.Errorf("S3Bucket = %v, want %v", cfg.S3Bucket, tt.expected.S3Bucket)
			}
			if cfg.SnapshotInterval != tt.expected.SnapshotInterval {
				t.Errorf("SnapshotInterval = %v, want %v", cfg.SnapshotInterval, tt.expected.SnapshotInterval)
			}
			if cfg.LoadGateThreshold != tt.expected.LoadGateThreshold {
				t.Errorf("LoadGateThreshold = %v, want %v", cfg.LoadGateThreshold, tt.expected.LoadGateThreshold)
			}
			if cfg.CompactThreshold != tt.expected.CompactThreshold {
				t.Errorf("CompactThreshold = %v, want %v", cfg.CompactThreshold, tt.expected.CompactThreshold)
			}
			if cfg.LoadGateEnabled != tt.expected.LoadGateEnabled {
				t.Errorf("LoadGateEnabled = %v, want %v", cfg.LoadGateEnabled, tt.expected.LoadGateEnabled)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.toml")

	tomlContent := `
db_path = "/tmp/db.sqlite"
s3_bucket = "test-bucket"
snapshot_interval = "5m"
load_gate_threshold = 0.8
compact_threshold = 16
load_gate_enabled = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.DBPath != "/tmp/db.sqlite" {
		t.Errorf("DBPath = %v, want /tmp/db.sqlite", fc.DBPath)
	}
	if fc.S3Bucket != "test-bucket" {
		t.Errorf("S3Bucket = %v, want test-bucket", fc.S3Bucket)
	}
	if fc.SnapshotInterval != "5m" {
		t.Errorf("SnapshotInterval = %v, want 5m", fc.SnapshotInterval)
	}
	if fc.LoadGateThreshold != 0.8 {
		t.Errorf("LoadGateThreshold = %v, want 0.8", fc.LoadGateThreshold)
	}
	if fc.CompactThreshold != 16 {
		t.Errorf("CompactThreshold = %v, want 16", fc.CompactThreshold)
	}
	if fc.LoadGateEnabled == nil || *fc.LoadGateEnabled != true {
		t.Errorf("LoadGateEnabled = %v, want true", fc.LoadGateEnabled)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
root = "/test"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".waloy") {
		t.Errorf("DefaultConfigPath() = %v, should contain .waloy", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
