// Package rank fuses and re-orders candidate memories from the vector,
// lexical, and related-memory-graph sources into a single ranked list.
package rank

import (
	"sort"
	"strconv"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// Source names one of the three retrieval channels RRFFusion combines.
type Source string

const (
	SourceVector Source = "vector"
	SourceBM25   Source = "bm25"
	SourceGraph  Source = "graph"
)

// DefaultRRFConstant is the standard RRF smoothing parameter, k=60.
const DefaultRRFConstant = 60

// graphBoost multiplies the graph source's per-rank contribution: a memory
// surfaced by traversing another memory's related-memory list is a stronger
// signal than an equally-ranked lexical or vector hit.
const graphBoost = 1.5

// convergenceBonus multiplies the summed score when a memory is surfaced by
// two or more sources, applied once as an explicit multiplicative factor so
// the 10% figure is exact rather than an artifact of missing-rank math.
const convergenceBonus = 1.10

// FusedResult is one memory's combined ranking across sources.
type FusedResult struct {
	ID           int64
	RRFScore     float64
	Sources      []Source
	SourceCount  int
	SourceRanks  map[Source]int
	SourceScores map[Source]float64
}

// RRFFusion implements Reciprocal Rank Fusion over up to three ranked lists.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates an RRFFusion with the default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates an RRFFusion with a custom k; k<=0 resets to the default.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// GraphResult is one hit surfaced via related-memory graph traversal,
// ranked by descending similarity before being passed to Fuse.
type GraphResult struct {
	ID    int64
	Score float64
}

// Fuse combines vector, BM25, and graph results into one ranked list.
// BM25Result.DocID is expected to be the decimal string form of a memory id;
// non-numeric ids are skipped rather than causing the whole fusion to fail.
func (f *RRFFusion) Fuse(vector []*store.VectorResult, bm25 []*store.BM25Result, graph []GraphResult) []*FusedResult {
	scores := make(map[int64]*FusedResult)

	get := func(id int64) *FusedResult {
		r, ok := scores[id]
		if !ok {
			r = &FusedResult{ID: id, SourceRanks: make(map[Source]int), SourceScores: make(map[Source]float64)}
			scores[id] = r
		}
		return r
	}

	for rank, v := range vector {
		r := get(v.ID)
		r.SourceRanks[SourceVector] = rank + 1
		r.SourceScores[SourceVector] = float64(v.Score)
		r.RRFScore += 1.0 / float64(f.K+rank+1)
	}

	for rank, b := range bm25 {
		id, err := strconv.ParseInt(b.DocID, 10, 64)
		if err != nil {
			continue
		}
		r := get(id)
		r.SourceRanks[SourceBM25] = rank + 1
		r.SourceScores[SourceBM25] = b.Score
		r.RRFScore += 1.0 / float64(f.K+rank+1)
	}

	for rank, g := range graph {
		r := get(g.ID)
		r.SourceRanks[SourceGraph] = rank + 1
		r.SourceScores[SourceGraph] = g.Score
		r.RRFScore += graphBoost / float64(f.K+rank+1)
	}

	results := make([]*FusedResult, 0, len(scores))
	for _, r := range scores {
		r.SourceCount = len(r.SourceRanks)
		if r.SourceCount >= 2 {
			r.RRFScore *= convergenceBonus
		}
		for src := range r.SourceRanks {
			r.Sources = append(r.Sources, src)
		}
		sort.Slice(r.Sources, func(i, j int) bool { return r.Sources[i] < r.Sources[j] })
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return f.less(results[i], results[j]) })
	f.normalize(results)
	return results
}

// less orders by: higher RRF score, more contributing sources, higher BM25
// score (exact-match indicator), then ascending id for determinism.
func (f *RRFFusion) less(a, b *FusedResult) bool {
	if a.RRFScore != b.RRFScore {
		return a.RRFScore > b.RRFScore
	}
	if a.SourceCount != b.SourceCount {
		return a.SourceCount > b.SourceCount
	}
	if a.SourceScores[SourceBM25] != b.SourceScores[SourceBM25] {
		return a.SourceScores[SourceBM25] > b.SourceScores[SourceBM25]
	}
	return a.ID < b.ID
}

func (f *RRFFusion) normalize(results []*FusedResult) {
	if len(results) == 0 {
		return
	}
	max := results[0].RRFScore
	if max == 0 {
		return
	}
	for _, r := range results {
		r.RRFScore /= max
	}
}
