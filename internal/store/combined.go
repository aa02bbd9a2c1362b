package store

import (
	"context"
	"sort"
)

// CombinedIndex is the combined lexical search: the hand-rolled BM25 index
// and the Bleve FTS passthrough each rank the corpus independently over the
// same documents, and their result lists are max-normalized, merged by the
// mean of the two normalized scores, and resorted, with a tie-break
// preference for documents both engines surfaced. A document only one
// engine returns is scored as absent (0) from the other, so genuine
// agreement between the two outranks a single strong opinion.
type CombinedIndex struct {
	bm25 BM25Index
	fts  BM25Index
}

// NewCombinedIndex composes a hand-rolled BM25 index with an FTS passthrough
// index behind the single BM25Index interface the runtime depends on.
func NewCombinedIndex(bm25, fts BM25Index) *CombinedIndex {
	return &CombinedIndex{bm25: bm25, fts: fts}
}

// Index writes docs to both engines.
func (c *CombinedIndex) Index(ctx context.Context, docs []*Document) error {
	if err := c.bm25.Index(ctx, docs); err != nil {
		return err
	}
	return c.fts.Index(ctx, docs)
}

// Delete removes docIDs from both engines.
func (c *CombinedIndex) Delete(ctx context.Context, docIDs []string) error {
	if err := c.bm25.Delete(ctx, docIDs); err != nil {
		return err
	}
	return c.fts.Delete(ctx, docIDs)
}

type combinedEntry struct {
	docID        string
	bm25Norm     float64
	ftsNorm      float64
	inBoth       bool
	matchedTerms []string
}

// Search runs both engines and merges their result lists.
func (c *CombinedIndex) Search(ctx context.Context, query string, limit int) ([]*BM25Result, error) {
	bm25Results, err := c.bm25.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	ftsResults, err := c.fts.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	bm25Max := maxBM25Score(bm25Results)
	ftsMax := maxBM25Score(ftsResults)

	entries := make(map[string]*combinedEntry, len(bm25Results)+len(ftsResults))
	for _, r := range bm25Results {
		e := entries[r.DocID]
		if e == nil {
			e = &combinedEntry{docID: r.DocID}
			entries[r.DocID] = e
		}
		if bm25Max > 0 {
			e.bm25Norm = r.Score / bm25Max
		}
		e.matchedTerms = append(e.matchedTerms, r.MatchedTerms...)
	}
	for _, r := range ftsResults {
		e := entries[r.DocID]
		if e == nil {
			e = &combinedEntry{docID: r.DocID}
			entries[r.DocID] = e
		} else {
			e.inBoth = true
		}
		if ftsMax > 0 {
			e.ftsNorm = r.Score / ftsMax
		}
		e.matchedTerms = append(e.matchedTerms, r.MatchedTerms...)
	}

	merged := make([]*combinedEntry, 0, len(entries))
	for _, e := range entries {
		merged = append(merged, e)
	}

	sort.Slice(merged, func(i, j int) bool {
		mi := (merged[i].bm25Norm + merged[i].ftsNorm) / 2
		mj := (merged[j].bm25Norm + merged[j].ftsNorm) / 2
		if mi != mj {
			return mi > mj
		}
		if merged[i].inBoth != merged[j].inBoth {
			return merged[i].inBoth
		}
		return merged[i].docID < merged[j].docID
	})

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	results := make([]*BM25Result, 0, len(merged))
	for _, e := range merged {
		results = append(results, &BM25Result{
			DocID:        e.docID,
			Score:        (e.bm25Norm + e.ftsNorm) / 2,
			MatchedTerms: dedupTerms(e.matchedTerms),
		})
	}
	return results, nil
}

func maxBM25Score(results []*BM25Result) float64 {
	var max float64
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	return max
}

func dedupTerms(terms []string) []string {
	if len(terms) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// AllIDs reports the hand-rolled index's document set; both engines are
// always written and deleted together, so they cover the same documents.
func (c *CombinedIndex) AllIDs() ([]string, error) {
	return c.bm25.AllIDs()
}

// Stats reports the hand-rolled index's corpus statistics, since only it
// tracks term counts and average document length.
func (c *CombinedIndex) Stats() *IndexStats {
	return c.bm25.Stats()
}

// Save is a no-op: both engines rebuild from the catalog at startup.
func (c *CombinedIndex) Save(path string) error {
	return nil
}

// Load is a no-op: both engines rebuild from the catalog at startup.
func (c *CombinedIndex) Load(path string) error {
	return nil
}

// Close closes both engines, returning the first error encountered.
func (c *CombinedIndex) Close() error {
	err := c.bm25.Close()
	if ftsErr := c.fts.Close(); ftsErr != nil && err == nil {
		err = ftsErr
	}
	return err
}

var _ BM25Index = (*CombinedIndex)(nil)
