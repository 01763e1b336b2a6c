// Package waloy provides an embeddable SQLite WAL replicator: it ships a
// live WAL-mode database's write-ahead log to an S3-compatible bucket as
// it grows, and can materialize a full or point-in-time copy back from
// there.
//
// # Basic Usage
//
//	cfg := waloy.DefaultConfig()
//	cfg.DBPath = "/var/lib/myapp/data.db"
//	cfg.S3 = waloy.S3Config{
//	    Bucket: "my-backups",
//	    Region: "us-east-1",
//	}
//	cfg.Prefix = "myapp"
//
//	w, err := waloy.Open(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Shutdown(ctx)
//
//	for range time.Tick(2 * time.Second) {
//	    if err := w.SyncWAL(ctx); err != nil && err != waloy.ErrBusy {
//	        log.Printf("sync failed: %v", err)
//	    }
//	}
//
// Waloy owns no background goroutine of its own: SyncWAL, MaybeSnapshot,
// Checkpoint, EnforceRetention, and Compact are all synchronous calls the
// host schedules on its own loop, per the same "host drives, library
// reacts" shape as [Waloy.LoadGateOK] is meant to gate.
//
// # Dependency Injection
//
// For testing, inject a custom object store via [WithObjectStore]
// instead of talking to a real bucket.
package waloy
