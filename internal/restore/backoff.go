package restore

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/waloy/waloy/internal/ports"
)

// backoff produces exponentially increasing, jittered delays. Duplicated
// here rather than shared with internal/engine, matching the teacher's own
// per-package backoff copies (internal/agent/backoff.go,
// internal/app/backoff.go, pkg/lifecycle/backoff.go).
type backoff struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

func newBackoff(base, max time.Duration) *backoff { return &backoff{base: base, max: max} }

func (b *backoff) Next() time.Duration {
	if b.cur <= 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
		if b.cur > b.max {
			b.cur = b.max
		}
	}
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(b.cur) * jitter)
}

func (b *backoff) Reset() { b.cur = 0 }

// defaultMaxRetries mirrors engine.DefaultConfig's MaxRetries: Restore and
// RestoreToTime match engine.Restorer's fixed signature, so they have no
// caller-supplied retry budget to thread through.
const defaultMaxRetries = 5

// getWithRetry retries store.Get with exponential backoff, per spec.md §7's
// S3(transport) policy for idempotent operations (PUT, GET, DELETE).
func getWithRetry(ctx context.Context, store ports.ObjectStore, key string) ([]byte, error) {
	back := newBackoff(200*time.Millisecond, 30*time.Second)
	var lastErr error
	for attempt := 0; attempt <= defaultMaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(back.Next()):
			}
		}
		data, err := store.Get(ctx, key)
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}
	return nil, fmt.Errorf("restore: get %s failed after %d attempts: %w", key, defaultMaxRetries+1, lastErr)
}
