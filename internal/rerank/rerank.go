// Package rerank defines the reranking capability seam: an optional
// cross-encoder-shaped second pass over a candidate set, with a bounded
// cache, latency-based auto-disable, and length-penalty post-processing.
// Concrete network-facing providers are out of scope; only NoOpReranker and
// the deterministic LocalReranker ship here.
package rerank

import "context"

// Candidate is a single item eligible for reranking.
type Candidate struct {
	ID       string
	Document string
}

// Result is a single reranked outcome, referencing the candidate's original
// position so callers can recover any metadata keyed by index.
type Result struct {
	ID    string
	Index int
	Score float64
}

// Reranker scores and reorders candidates by relevance to a query.
type Reranker interface {
	// Rerank returns results sorted by score descending. topK == 0 means
	// return all candidates.
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Result, error)

	// Available reports whether the reranker is currently usable.
	Available(ctx context.Context) bool

	// Close releases any held resources.
	Close() error
}

// NoOpReranker preserves input order, assigning strictly decreasing scores
// so downstream consumers that sort by score see no change.
type NoOpReranker struct{}

func (NoOpReranker) Rerank(_ context.Context, _ string, candidates []Candidate, topK int) ([]Result, error) {
	results := make([]Result, len(candidates))
	for i, c := range candidates {
		results[i] = Result{ID: c.ID, Index: i, Score: 1.0 - float64(i)*0.001}
	}
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (NoOpReranker) Available(_ context.Context) bool { return true }
func (NoOpReranker) Close() error                     { return nil }

var _ Reranker = NoOpReranker{}
