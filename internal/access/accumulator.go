// Package access implements batched memory access tracking: small
// per-access increments are accumulated in memory and flushed to the
// catalog in bulk, rather than issuing a write per search hit.
package access

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

const (
	// incrementPerAccess is added to an id's accumulator on every access.
	incrementPerAccess = 0.1
	// flushThreshold triggers an eager flush for an id once its
	// accumulated weight crosses this value, instead of waiting for the
	// periodic/shutdown flush.
	flushThreshold = 0.5
)

// Flusher persists accumulated access weights to the catalog.
type Flusher func(ctx context.Context, accumulated map[int64]float64) error

// Accumulator batches per-memory access counts in memory, flushing either
// when an id's accumulated weight crosses flushThreshold or when Flush is
// called explicitly (periodic tick, or shutdown).
type Accumulator struct {
	mu    sync.Mutex
	acc   map[int64]float64
	flush Flusher
}

// NewAccumulator builds an Accumulator backed by flush.
func NewAccumulator(flush Flusher) *Accumulator {
	return &Accumulator{acc: make(map[int64]float64), flush: flush}
}

// Track records a single access to a memory id. Non-positive ids are
// rejected: the catalog never assigns them, so tracking one would either be
// a caller bug or a deliberately malformed id.
func (a *Accumulator) Track(ctx context.Context, id int64) {
	if id <= 0 {
		return
	}
	a.mu.Lock()
	a.acc[id] += incrementPerAccess
	crossed := a.acc[id] >= flushThreshold
	a.mu.Unlock()

	if crossed {
		a.Flush(ctx)
	}
}

// TrackMultiple records accesses for a batch of ids, filtering out any
// non-integer or non-positive identifiers the caller might have passed
// through from an untyped source.
func (a *Accumulator) TrackMultiple(ctx context.Context, ids []int64) {
	for _, id := range ids {
		a.Track(ctx, id)
	}
}

// Flush persists all pending accumulated weights and clears them. Failures
// are logged, never returned: access tracking is best-effort bookkeeping,
// not a correctness-critical write path.
func (a *Accumulator) Flush(ctx context.Context) {
	a.mu.Lock()
	if len(a.acc) == 0 {
		a.mu.Unlock()
		return
	}
	pending := a.acc
	a.acc = make(map[int64]float64)
	a.mu.Unlock()

	if err := a.flush(ctx, pending); err != nil {
		slog.Error("access accumulator flush failed", slog.Any("error", err), slog.Int("ids", len(pending)))
	}
}

// WatchShutdown flushes pending access counts on SIGINT/SIGTERM, returning
// a cancel function the caller should defer. Mirrors the server's own
// graceful-shutdown signal wiring.
func (a *Accumulator) WatchShutdown(ctx context.Context) (stop context.CancelFunc) {
	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCtx.Done()
		a.Flush(context.Background())
	}()
	return cancel
}
