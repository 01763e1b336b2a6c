package confwatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waloy/waloy/internal/engine"
)

func waitForTunables(t *testing.T, w *Watcher, want func(engine.Tunables) bool) engine.Tunables {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last engine.Tunables
	for time.Now().Before(deadline) {
		last = w.Tunables()
		if want(last) {
			return last
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for expected tunables, last = %+v", last)
	return last
}

func TestWatcher_AppliesInitialFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `
snapshot_interval = "5m"
retention_duration = "48h"
compact_threshold = 32
compact_target_count = 4
max_retries = 3
`)

	w := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	got := waitForTunables(t, w, func(t engine.Tunables) bool { return t.SnapshotInterval == 5*time.Minute })

	if got.RetentionDuration != 48*time.Hour {
		t.Errorf("RetentionDuration = %v, want 48h", got.RetentionDuration)
	}
	if got.CompactThreshold != 32 {
		t.Errorf("CompactThreshold = %v, want 32", got.CompactThreshold)
	}
	if got.MaxRetries != 3 {
		t.Errorf("MaxRetries = %v, want 3", got.MaxRetries)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `retention_duration = "24h"`)

	w := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitForTunables(t, w, func(t engine.Tunables) bool { return t.RetentionDuration == 24*time.Hour })

	writeConfig(t, path, `retention_duration = "72h"`)
	waitForTunables(t, w, func(t engine.Tunables) bool { return t.RetentionDuration == 72*time.Hour })
}

func TestWatcher_IgnoresUnrelatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `retention_duration = "24h"`)

	w := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitForTunables(t, w, func(t engine.Tunables) bool { return t.RetentionDuration == 24*time.Hour })

	writeConfig(t, filepath.Join(dir, "unrelated.toml"), `retention_duration = "1h"`)
	time.Sleep(50 * time.Millisecond)

	if got := w.Tunables(); got.RetentionDuration != 24*time.Hour {
		t.Errorf("RetentionDuration = %v, want unchanged 24h (unrelated file should not trigger reload)", got.RetentionDuration)
	}
}

func TestWatcher_KeepsPreviousValueOnUnsetField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeConfig(t, path, `
retention_duration = "24h"
max_retries = 5
`)

	w := New(Config{Path: path, DebounceDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	waitForTunables(t, w, func(t engine.Tunables) bool { return t.MaxRetries == 5 })

	// A rewrite that omits max_retries should not reset it to zero.
	writeConfig(t, path, `retention_duration = "12h"`)
	got := waitForTunables(t, w, func(t engine.Tunables) bool { return t.RetentionDuration == 12*time.Hour })

	if got.MaxRetries != 5 {
		t.Errorf("MaxRetries = %v, want unchanged 5", got.MaxRetries)
	}
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
