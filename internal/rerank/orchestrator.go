package rerank

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/devalexanderdaza/memoryd/internal/async"
)

const (
	defaultCacheSize     = 500
	defaultCacheTTL      = 5 * time.Minute
	defaultLatencyWindow = 100
	// defaultP95BudgetMs is the latency ceiling above which the orchestrator
	// auto-disables reranking and falls back to the wrapped candidate order.
	defaultP95BudgetMs = 500
	// defaultMaxCandidates matches the rerank contract's max_candidates=20.
	defaultMaxCandidates = 20
)

type cacheEntry struct {
	results []Result
	at      time.Time
}

// Orchestrator wraps a Reranker with a bounded result cache and a rolling
// P95 latency tracker that auto-disables reranking when the underlying
// provider becomes too slow to be worth the round trip.
type Orchestrator struct {
	inner         Reranker
	cache         *lru.Cache[string, cacheEntry]
	cacheTTL      time.Duration
	maxCandidates int

	mu        sync.Mutex
	latencies []time.Duration
	window    int
	p95Budget time.Duration
	disabled  bool
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithMaxCandidates truncates the candidate set passed to the inner
// reranker (cross-encoders degrade quickly past ~50-100 documents).
func WithMaxCandidates(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.maxCandidates = n }
}

// WithP95Budget sets the latency ceiling that triggers auto-disable.
func WithP95Budget(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.p95Budget = d }
}

// NewOrchestrator wraps inner with caching and latency-based auto-disable.
func NewOrchestrator(inner Reranker, opts ...OrchestratorOption) *Orchestrator {
	cache, _ := lru.New[string, cacheEntry](defaultCacheSize)
	o := &Orchestrator{
		inner:         inner,
		cache:         cache,
		cacheTTL:      defaultCacheTTL,
		maxCandidates: defaultMaxCandidates,
		window:        defaultLatencyWindow,
		p95Budget:     defaultP95BudgetMs * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rerank serves from cache when fresh, otherwise calls the inner reranker
// (unless auto-disabled by sustained high latency) and records the call's
// latency into the rolling window.
func (o *Orchestrator) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Result, error) {
	if len(candidates) > o.maxCandidates {
		candidates = candidates[:o.maxCandidates]
	}

	key := cacheKey(query, candidates)
	if entry, ok := o.cache.Get(key); ok && time.Since(entry.at) < o.cacheTTL {
		return truncate(entry.results, topK), nil
	}

	if o.isDisabled() {
		return NoOpReranker{}.Rerank(ctx, query, candidates, topK)
	}

	// Bound the call at 2x the P95 budget so one slow request can't stall a
	// search well past the point auto-disable would have skipped it anyway.
	start := time.Now()
	results, err := async.WithTimeout(ctx, 2*o.p95Budget, func(ctx context.Context) ([]Result, error) {
		return o.inner.Rerank(ctx, query, candidates, 0)
	})
	elapsed := time.Since(start)
	o.recordLatency(elapsed)
	if err != nil {
		return nil, err
	}

	o.evictIfFull()
	o.cache.Add(key, cacheEntry{results: results, at: time.Now()})

	return truncate(results, topK), nil
}

func (o *Orchestrator) Available(ctx context.Context) bool {
	if o.isDisabled() {
		return false
	}
	return o.inner.Available(ctx)
}

func (o *Orchestrator) Close() error { return o.inner.Close() }

// evictIfFull drops the oldest 10% of cache entries when at capacity,
// keeping the cache from thrashing on a single large eviction storm.
func (o *Orchestrator) evictIfFull() {
	if o.cache.Len() < defaultCacheSize {
		return
	}
	evictN := defaultCacheSize / 10
	if evictN < 1 {
		evictN = 1
	}
	for i := 0; i < evictN; i++ {
		o.cache.RemoveOldest()
	}
}

// recordLatency appends to the rolling window and recomputes the P95,
// disabling future inner-reranker calls once the budget is breached.
func (o *Orchestrator) recordLatency(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.latencies = append(o.latencies, d)
	if len(o.latencies) > o.window {
		o.latencies = o.latencies[len(o.latencies)-o.window:]
	}

	if len(o.latencies) < o.window {
		return
	}

	sorted := append([]time.Duration(nil), o.latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted))*0.95) - 1
	if idx < 0 {
		idx = 0
	}
	p95 := sorted[idx]

	o.disabled = p95 > o.p95Budget
}

func (o *Orchestrator) isDisabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.disabled
}

func truncate(results []Result, topK int) []Result {
	if topK > 0 && topK < len(results) {
		return results[:topK]
	}
	return results
}

// cacheKey is the SHA-256 of the query plus the ordered candidate ids, per
// the rerank contract's cache-key definition.
func cacheKey(query string, candidates []Candidate) string {
	var b strings.Builder
	b.WriteString(query)
	for _, c := range candidates {
		b.WriteByte('\x00')
		b.WriteString(c.ID)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var _ Reranker = (*Orchestrator)(nil)
