package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/waloy/waloy/internal/adapters/log"
	"github.com/waloy/waloy/internal/cliconfig"
	"github.com/waloy/waloy/internal/codec"
	"github.com/waloy/waloy/internal/confwatch"
	"github.com/waloy/waloy/internal/manifest"
	"github.com/waloy/waloy/internal/objectstore"
	"github.com/waloy/waloy/internal/restore"
	"github.com/waloy/waloy/pkg/waloy"
)

const helpBanner = `
 █     █░ ▄▄▄       ██▓     ▒█████ ▓██   ██▓
▓█░ █ ░█░▒████▄    ▓██▒    ▒██▒  ██▒▒██  ██▒
▒█░ █ ░█ ▒██  ▀█▄  ▒██░    ▒██░  ██▒ ▒██ ██░
░█░ █ ░█ ░██▄▄▄▄██ ▒██░    ▒██   ██░ ░ ▐██▓░
░░██▒██▓  ▓█   ▓██▒░██████▒░ ████▓▒░ ░ ██▒▓░
░ ▓░▒ ▒   ▒▒   ▓▒█░░ ▒░▓  ░░ ▒░▒░▒░   ██▒▒▒
`

const helpDescription = `
Continuously replicate a live SQLite WAL to S3-compatible object storage.

Highlights:
  - Ships WAL bytes as they're written, without ever taking a write lock.
  - Configure via file, env, or flags, layered file -> env -> flag.
  - Restores the latest generation or any point in time from the shipped log.
  - Hot-reloads snapshot/retention/compaction tunables without a restart.
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  waloy run --db-path /var/lib/app/app.db --s3-bucket backups
  waloy restore --at 2024-01-15T00:00:00Z ./restored.db
  waloy generations
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "waloy",
		Short:   "Continuously replicate a live SQLite WAL to S3-compatible storage",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
	}

	// changed is populated by PersistentPreRunE on every subcommand
	// before its own flags are visited, so file/env layering respects
	// whichever flags the operator actually passed on this invocation.
	var changed map[string]bool
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		changed = map[string]bool{}
		cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

		cfgFile := cfgPath
		if cfgFile == "" {
			cfgFile = cliconfig.DefaultConfigPath()
		}
		if cfgFile != "" && cliconfig.FileExists(cfgFile) {
			fc, err := cliconfig.LoadFileConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
				return err
			}
		}
		if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
			return err
		}
		return nil
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.waloy/config.toml)")
	registerConfigFlags(root, &cfg)

	root.AddCommand(
		newRunCommand(&cfg, &cfgPath, log),
		newRestoreCommand(&cfg),
		newGenerationsCommand(&cfg),
		newInspectCommand(&cfg),
		newCompactCommand(&cfg, log),
		newRetainCommand(&cfg, log),
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("waloy")
		os.Exit(1)
	}
}

func registerConfigFlags(cmd *cobra.Command, cfg *cliconfig.Config) {
	f := cmd.PersistentFlags()
	f.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the SQLite database file")
	f.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "S3-compatible endpoint URL")
	f.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "S3 region")
	f.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "S3 bucket name")
	f.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "S3 access key")
	f.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "S3 secret key")
	f.StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "key prefix within the bucket")
	f.StringVar(&cfg.Compression, "compression", cfg.Compression, "compression codec: none, lz4, zstd")
	f.StringVar(&cfg.EncryptionKey, "encryption-key", cfg.EncryptionKey, "passphrase enabling AES-256-GCM encryption")
	f.StringVar(&cfg.StagingDir, "staging-dir", cfg.StagingDir, "staging directory for restore downloads (disables staging if empty)")

	f.DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "how often `run` ships unsynced WAL bytes")
	f.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", cfg.SnapshotInterval, "max age of a generation before a fresh checkpoint")
	f.DurationVar(&cfg.RetentionDuration, "retention-duration", cfg.RetentionDuration, "how long a non-current generation is kept (0 disables)")
	f.DurationVar(&cfg.BusyTimeout, "busy-timeout", cfg.BusyTimeout, "SQLite busy_timeout")

	f.IntVar(&cfg.CompactThreshold, "compact-threshold", cfg.CompactThreshold, "segment count a generation must exceed before bulk compact acts on it")
	f.IntVar(&cfg.CompactTargetCount, "compact-target-count", cfg.CompactTargetCount, "number of parts compact re-splits a generation into")
	f.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "retry budget for checkpoint-busy and S3 transport errors")
	f.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "accepted and layered like other settings but not passed to the replicator; each SyncWAL ships all new WAL bytes as one segment")

	f.BoolVar(&cfg.AutoRestore, "auto-restore", cfg.AutoRestore, "materialize the database from S3 at open if db-path is missing")
	f.BoolVar(&cfg.LoadGateEnabled, "load-gate-enabled", cfg.LoadGateEnabled, "delay sync cycles under heavy goroutine load")
	f.Float64Var(&cfg.LoadGateThreshold, "load-gate-threshold", cfg.LoadGateThreshold, "goroutine-count fraction above which the load gate holds back a cycle")
}

func toWaloyConfig(cfg cliconfig.Config) waloy.Config {
	return waloy.Config{
		DBPath: cfg.DBPath,
		S3: waloy.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		Prefix:             cfg.Prefix,
		Compression:        cfg.Compression,
		EncryptionKey:      cfg.EncryptionKey,
		AutoRestore:        cfg.AutoRestore,
		SnapshotInterval:   cfg.SnapshotInterval,
		RetentionDuration:  cfg.RetentionDuration,
		CompactThreshold:   cfg.CompactThreshold,
		CompactTargetCount: cfg.CompactTargetCount,
		BusyTimeout:        cfg.BusyTimeout,
		MaxRetries:         cfg.MaxRetries,
		LoadGateEnabled:    cfg.LoadGateEnabled,
		LoadGateThreshold:  cfg.LoadGateThreshold,
	}
}

// newRunCommand drives the sync loop. Per spec.md §5, the engine spawns no
// background tasks of its own; every tick here is a synchronous call this
// loop schedules, exactly the pattern pkg/waloy's doc.go documents.
func newRunCommand(cfg *cliconfig.Config, cfgPath *string, log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Continuously ship WAL bytes and drive snapshot/retention/compaction on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := logAdapter.NewZerologAdapterWithLogger(log)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			w, err := waloy.Open(ctx, toWaloyConfig(*cfg), waloy.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}

			watchPath := *cfgPath
			if watchPath == "" {
				watchPath = cliconfig.DefaultConfigPath()
			}
			watcher := confwatch.New(confwatch.Config{
				Path: watchPath,
				Initial: waloy.Tunables{
					SnapshotInterval:   cfg.SnapshotInterval,
					RetentionDuration:  cfg.RetentionDuration,
					CompactThreshold:   cfg.CompactThreshold,
					CompactTargetCount: cfg.CompactTargetCount,
					MaxRetries:         cfg.MaxRetries,
				},
				Logger: logger,
			})
			if watchPath != "" && cliconfig.FileExists(watchPath) {
				if err := watcher.Start(ctx); err != nil {
					log.Warn().Err(err).Msg("confwatch: failed to start, tunables will not hot-reload")
				} else {
					defer watcher.Stop()
				}
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			ticker := time.NewTicker(cfg.SyncInterval)
			defer ticker.Stop()

			retainTicker := time.NewTicker(1 * time.Hour)
			defer retainTicker.Stop()

			log.Info().Str("db_path", cfg.DBPath).Str("bucket", cfg.S3Bucket).Msg("waloy: run started")

			for {
				select {
				case <-sigCh:
					log.Info().Msg("waloy: received signal, stopping")
					return w.Shutdown(context.Background())

				case <-ticker.C:
					if err := w.UpdateTunables(watcher.Tunables()); err != nil && err != waloy.ErrBusy {
						log.Warn().Err(err).Msg("waloy: apply reloaded tunables")
					}
					if !w.LoadGateOK() {
						continue
					}
					if err := w.SyncWAL(ctx); err != nil {
						log.Error().Err(err).Msg("waloy: sync failed")
						continue
					}
					if snapshotted, err := w.MaybeSnapshot(ctx); err != nil {
						log.Error().Err(err).Msg("waloy: snapshot check failed")
					} else if snapshotted {
						log.Info().Msg("waloy: started a fresh generation")
					}

				case <-retainTicker.C:
					if removed, err := w.EnforceRetention(ctx); err != nil {
						log.Error().Err(err).Msg("waloy: retention sweep failed")
					} else if removed > 0 {
						log.Info().Int("generations_removed", removed).Msg("waloy: retention sweep")
					}
					if results, err := w.Compact(ctx); err != nil {
						log.Error().Err(err).Msg("waloy: compaction sweep failed")
					} else {
						for _, r := range results {
							log.Info().Str("generation", r.GenerationID).
								Int("segments_before", r.SegmentsBefore).
								Int("segments_after", r.SegmentsAfter).
								Msg("waloy: compacted generation")
						}
					}
				}
			}
		},
	}
}

func newRestoreCommand(cfg *cliconfig.Config) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "restore <dest>",
		Short: "Materialize a database from S3 at dest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			planner, err := newPlanner(*cfg)
			if err != nil {
				return err
			}
			dest := args[0]
			ctx := context.Background()

			if at == "" {
				if err := planner.Restore(ctx, dest); err != nil {
					return fmt.Errorf("restore: %w", err)
				}
				fmt.Printf("restored latest generation to %s\n", dest)
				return nil
			}

			tsMs, err := parseTimestamp(at)
			if err != nil {
				return err
			}
			if err := planner.RestoreToTime(ctx, dest, tsMs); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Printf("restored generation as of %s to %s\n", at, dest)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "restore as of this point in time (RFC3339 or unix milliseconds)")
	return cmd
}

// parseTimestamp accepts either an RFC3339 timestamp or a raw unix
// millisecond integer, matching spec.md §6's "<rfc3339|unix-ms>".
func parseTimestamp(s string) (int64, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("invalid --at value %q: not RFC3339 or unix milliseconds", s)
	}
	return t.UnixMilli(), nil
}

func newGenerationsCommand(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "generations",
		Short: "List every generation under the configured prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(*cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()

			ids, err := manifest.ListGenerationIDs(ctx, store, cfg.Prefix)
			if err != nil {
				return fmt.Errorf("generations: %w", err)
			}
			latest, err := manifest.ReadLatest(ctx, store, cfg.Prefix)
			if err != nil && !errors.Is(err, waloy.ErrNoLatest) {
				return fmt.Errorf("generations: read latest: %w", err)
			}

			fmt.Printf("generations (%d):\n", len(ids))
			for _, id := range ids {
				marker := ""
				if id == latest {
					marker = " (latest)"
				}
				m, err := manifest.Read(ctx, store, cfg.Prefix, id)
				if err != nil {
					fmt.Printf("  %s%s\n", id, marker)
					continue
				}
				fmt.Printf("  %s%s  created=%d  segments=%d\n", id, marker, m.CreatedAtMs, len(m.Segments))
			}
			return nil
		},
	}
}

func newInspectCommand(cfg *cliconfig.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [gen-id]",
		Short: "Dump one generation's manifest (defaults to latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(*cfg)
			if err != nil {
				return err
			}
			ctx := context.Background()

			genID := ""
			if len(args) == 1 {
				genID = args[0]
			} else {
				genID, err = manifest.ReadLatest(ctx, store, cfg.Prefix)
				if err != nil {
					return fmt.Errorf("inspect: %w", err)
				}
			}

			m, err := manifest.Read(ctx, store, cfg.Prefix, genID)
			if err != nil {
				return fmt.Errorf("inspect: %w", err)
			}

			fmt.Printf("generation: %s\n", m.GenerationID)
			fmt.Printf("created: %dms\n", m.CreatedAtMs)
			fmt.Printf("snapshot size: %d (compressed %d)\n", m.SnapshotSize, m.SnapshotCompressedSize)
			fmt.Printf("segments: %d\n", len(m.Segments))
			for _, seg := range m.Segments {
				fmt.Printf("  [%08d] offset=%d length=%d compressed=%d created=%dms key=%s\n",
					seg.Index, seg.Offset, seg.Length, seg.CompressedLength, seg.CreatedAtMs, seg.Key)
			}
			return nil
		},
	}
}

func newCompactCommand(cfg *cliconfig.Config, log zerolog.Logger) *cobra.Command {
	var genID string

	cmd := &cobra.Command{
		Use:   "compact",
		Short: "Fuse contiguous WAL segments into fewer, larger ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logAdapter.NewZerologAdapterWithLogger(log)
			w, err := waloy.Open(context.Background(), toWaloyConfig(*cfg), waloy.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer w.Shutdown(context.Background())

			ctx := context.Background()
			if genID != "" {
				result, err := w.CompactGeneration(ctx, genID)
				if err != nil {
					return fmt.Errorf("compact: %w", err)
				}
				fmt.Printf("compacted %s: %d -> %d segments\n", result.GenerationID, result.SegmentsBefore, result.SegmentsAfter)
				return nil
			}

			results, err := w.Compact(ctx)
			if err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			for _, r := range results {
				fmt.Printf("compacted %s: %d -> %d segments\n", r.GenerationID, r.SegmentsBefore, r.SegmentsAfter)
			}
			if len(results) == 0 {
				fmt.Println("no generation exceeded compact-threshold")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&genID, "generation", "", "compact only this generation, ignoring compact-threshold")
	return cmd
}

func newRetainCommand(cfg *cliconfig.Config, log zerolog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "retain",
		Short: "Delete whole generations older than retention-duration",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logAdapter.NewZerologAdapterWithLogger(log)
			w, err := waloy.Open(context.Background(), toWaloyConfig(*cfg), waloy.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("open: %w", err)
			}
			defer w.Shutdown(context.Background())

			removed, err := w.EnforceRetention(context.Background())
			if err != nil {
				return fmt.Errorf("retain: %w", err)
			}
			fmt.Printf("removed %d generation(s)\n", removed)
			return nil
		},
	}
}

func newStore(cfg cliconfig.Config) (*objectstore.Store, error) {
	return objectstore.New(objectstore.Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
}

func newPlanner(cfg cliconfig.Config) (*restore.Planner, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	compression, err := codec.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return &restore.Planner{
		Store:      store,
		Pipeline:   codec.NewPipeline(compression, cfg.EncryptionKey),
		Prefix:     cfg.Prefix,
		StagingDir: cfg.StagingDir,
		Cleanup:    restore.DefaultCleanupConfig(),
	}, nil
}
