package engine

import (
	"runtime"

	"github.com/waloy/waloy/internal/ports"
)

// LoadGateConfig configures load-based backpressure on sync cycles. It is
// off by default; hosts embedding the engine into a latency-sensitive
// process can turn it on to skip a sync cycle under heavy goroutine load
// rather than block their own scheduler on an S3 round trip.
type LoadGateConfig struct {
	Enabled   bool
	Threshold float64 // approximate load fraction (0.0-1.0) above which SyncWAL is skipped
}

// DefaultLoadGateConfig returns gating disabled; the host must opt in.
func DefaultLoadGateConfig() LoadGateConfig {
	return LoadGateConfig{Enabled: false, Threshold: 0.85}
}

// loadGate reports whether the caller should proceed with a sync cycle
// right now. Unlike the engine's mutex, this is advisory: the host polls
// it and decides for itself whether to call SyncWAL at all. The engine
// never consults it internally, since the engine spawns no scheduling
// loop of its own.
type loadGate struct {
	enabled   bool
	threshold float64
	logger    ports.Logger
}

func newLoadGate(cfg LoadGateConfig, logger ports.Logger) *loadGate {
	return &loadGate{enabled: cfg.Enabled, threshold: cfg.Threshold, logger: logger}
}

// goroutinesPerCPUAtFullLoad is a rough heuristic mapping goroutine count
// to CPU load; it needs no OS-specific instrumentation, at the cost of
// being an approximation.
const goroutinesPerCPUAtFullLoad = 12.0

// OK reports whether current load is low enough to proceed.
func (g *loadGate) OK() bool {
	if !g.enabled {
		return true
	}

	numGoroutines := runtime.NumGoroutine()
	numCPU := runtime.NumCPU()
	if numCPU <= 0 {
		numCPU = 1
	}

	approxLoad := (float64(numGoroutines) / float64(numCPU)) / goroutinesPerCPUAtFullLoad
	if approxLoad > 1.0 {
		approxLoad = 1.0
	}

	if approxLoad > g.threshold {
		if g.logger != nil {
			g.logger.Debug("engine: load gate delaying sync",
				ports.Int("goroutines", numGoroutines),
				ports.Int("cpus", numCPU),
				ports.Float64("approx_load", approxLoad),
				ports.Float64("threshold", g.threshold))
		}
		return false
	}
	return true
}
