package confwatch

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/waloy/waloy/internal/cliconfig"
	"github.com/waloy/waloy/internal/engine"
	"github.com/waloy/waloy/internal/ports"
)

// immutableFields are logged, never applied, when they change in the
// watched file: db_path, the s3 block, prefix, compression, and the
// encryption key are fixed for the lifetime of an open engine.
var immutableFields = []string{
	"db_path", "s3_endpoint", "s3_region", "s3_bucket", "s3_access_key",
	"s3_secret_key", "prefix", "compression", "encryption_key",
}

// Watcher debounces filesystem change events on one config file and
// republishes its safe-to-change-live tunables into an atomic pointer a
// host's own sync loop reads each cycle, in the same debounce-then-act
// shape the teacher's plugins/configwatcher/plugin.go uses for app.toml
// and config.toml. Unlike the teacher's plugin, this package never
// reaches into the engine itself — it has no notion of one; the host
// loop decides when and how to apply a new snapshot.
type Watcher struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	logger        ports.Logger
	tunables      atomic.Pointer[engine.Tunables]
	lastFile      cliconfig.FileConfig

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config configures a Watcher.
type Config struct {
	// Path is the config file to watch. Only events for its exact
	// basename, within its directory, are considered (fsnotify only
	// watches directories, never a single file, so the directory is
	// derived from Path).
	Path string
	// DebounceDelay coalesces a burst of writes (many editors save via
	// write-then-rename) into one reload. Default: 200ms.
	DebounceDelay time.Duration
	// Initial is applied until the first successful file load; callers
	// pass the tunables already layered from flags/env at startup.
	Initial engine.Tunables
	Logger  ports.Logger
}

// New builds a Watcher. It does not start watching until Start is called.
func New(cfg Config) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 200 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	w := &Watcher{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		logger:        logger,
	}
	initial := cfg.Initial
	w.tunables.Store(&initial)
	return w
}

// Tunables returns the most recently loaded snapshot. Safe for
// concurrent use; the host's run loop calls this once per cycle.
func (w *Watcher) Tunables() engine.Tunables {
	return *w.tunables.Load()
}

// Start begins watching in a background goroutine. Cancel ctx or call
// Stop to end it.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	// Load whatever is on disk right now before waiting for a change.
	w.reload()

	w.wg.Add(1)
	go w.loop(watchCtx, watcher)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	name := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("confwatch: watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *Watcher) reload() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("confwatch: reload failed", ports.String("path", w.path), ports.Err(err))
		return
	}

	w.mu.Lock()
	prev := w.lastFile
	w.lastFile = fc
	w.mu.Unlock()

	warnImmutableChange(w.logger, prev, fc)

	current := w.Tunables()
	t := engine.Tunables{
		SnapshotInterval:   parseDurationOr(fc.SnapshotInterval, current.SnapshotInterval),
		RetentionDuration:  parseDurationOr(fc.RetentionDuration, current.RetentionDuration),
		CompactThreshold:   orInt(fc.CompactThreshold, current.CompactThreshold),
		CompactTargetCount: orInt(fc.CompactTargetCount, current.CompactTargetCount),
		MaxRetries:         orInt(fc.MaxRetries, current.MaxRetries),
	}
	w.tunables.Store(&t)
	w.logger.Info("confwatch: tunables reloaded")
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func orInt(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func warnImmutableChange(logger ports.Logger, prev, next cliconfig.FileConfig) {
	changed := map[string][2]string{
		"db_path":        {prev.DBPath, next.DBPath},
		"s3_endpoint":    {prev.S3Endpoint, next.S3Endpoint},
		"s3_region":      {prev.S3Region, next.S3Region},
		"s3_bucket":      {prev.S3Bucket, next.S3Bucket},
		"s3_access_key":  {prev.S3AccessKey, next.S3AccessKey},
		"s3_secret_key":  {prev.S3SecretKey, next.S3SecretKey},
		"prefix":         {prev.Prefix, next.Prefix},
		"compression":    {prev.Compression, next.Compression},
		"encryption_key": {prev.EncryptionKey, next.EncryptionKey},
	}
	for _, field := range immutableFields {
		pair := changed[field]
		if pair[0] != "" && pair[0] != pair[1] {
			logger.Warn("confwatch: ignoring change to immutable field",
				ports.String("field", field))
		}
	}
}
