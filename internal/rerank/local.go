package rerank

import (
	"context"
	"sort"
	"strings"

	"github.com/devalexanderdaza/memoryd/internal/rank"
)

// LocalReranker is a deterministic placeholder used when
// CROSS_ENCODER_PROVIDER=local is configured without a real cross-encoder
// available. It scores candidates by query-term overlap and a length
// penalty; it never claims network-quality reranking.
type LocalReranker struct{}

// NewLocalReranker constructs the local heuristic reranker.
func NewLocalReranker() *LocalReranker { return &LocalReranker{} }

func (r *LocalReranker) Rerank(_ context.Context, query string, candidates []Candidate, topK int) ([]Result, error) {
	queryTerms := uniqueTerms(query)

	results := make([]Result, len(candidates))
	for i, c := range candidates {
		overlap := termOverlapScore(queryTerms, c.Document)
		penalty := rank.LengthPenalty(len(strings.Fields(c.Document)))
		results[i] = Result{ID: c.ID, Index: i, Score: overlap * penalty}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Index < results[j].Index
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (r *LocalReranker) Available(_ context.Context) bool { return true }
func (r *LocalReranker) Close() error                     { return nil }

func uniqueTerms(q string) map[string]bool {
	terms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(q)) {
		terms[t] = true
	}
	return terms
}

// termOverlapScore is the fraction of query terms found in the document,
// case-insensitively.
func termOverlapScore(queryTerms map[string]bool, document string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	lowerDoc := strings.ToLower(document)
	hits := 0
	for t := range queryTerms {
		if strings.Contains(lowerDoc, t) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTerms))
}

var _ Reranker = (*LocalReranker)(nil)
