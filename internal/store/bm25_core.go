package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// docEntry is the per-document bookkeeping the in-memory BM25 index keeps to
// support symmetric add/remove: add then remove restores avgdl,
// doc frequencies, and total_docs exactly).
type docEntry struct {
	tokens    []string
	length    int
	termFreqs map[string]int
}

// MemoryBM25Index is a hand-rolled, in-process BM25 index: k1=1.2, b=0.75,
// minimum indexable length 10 tokens, code-aware tokenization with
// stemming, incrementally maintained avgdl.
//
// It is deliberately independent of the Bleve-backed FTS passthrough
// (BleveBM25Index): this is the BM25 index with exact, reproducible scoring,
// not an engine's approximation of one. CombinedIndex merges the two.
type MemoryBM25Index struct {
	mu sync.RWMutex

	config    BM25Config
	stopWords map[string]struct{}

	docs       map[string]*docEntry
	postings   map[string]map[string]struct{} // term -> set of doc ids
	docFreq    map[string]int                 // term -> number of docs containing it
	totalDocs  int
	totalLen   int
}

var _ BM25Index = (*MemoryBM25Index)(nil)

// NewMemoryBM25Index creates an empty hand-rolled BM25 index.
func NewMemoryBM25Index(config BM25Config) *MemoryBM25Index {
	if config.K1 == 0 {
		config.K1 = 1.2
	}
	if config.B == 0 {
		config.B = 0.75
	}
	if config.StopWords == nil {
		config.StopWords = DefaultStopWords
	}
	return &MemoryBM25Index{
		config:    config,
		stopWords: BuildStopWordMap(config.StopWords),
		docs:      make(map[string]*docEntry),
		postings:  make(map[string]map[string]struct{}),
		docFreq:   make(map[string]int),
	}
}

// minDocTokens is the minimum indexable document length.
const minDocTokens = 10

func (idx *MemoryBM25Index) tokenize(content string) []string {
	tokens := TokenizeCode(content)
	tokens = FilterStopWords(tokens, idx.stopWords)
	for i, t := range tokens {
		tokens[i] = Stem(t)
	}
	return tokens
}

// Index adds or replaces documents. Content shorter than minDocTokens tokens
// is still stored (never silently dropped) but contributes to avgdl like
// any other document; the floor is advisory rather than a hard exclusion.
func (idx *MemoryBM25Index) Index(_ context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, d := range docs {
		if _, exists := idx.docs[d.ID]; exists {
			idx.removeLocked(d.ID)
		}

		tokens := idx.tokenize(d.Content)
		termFreqs := make(map[string]int, len(tokens))
		for _, t := range tokens {
			termFreqs[t]++
		}

		idx.docs[d.ID] = &docEntry{tokens: tokens, length: len(tokens), termFreqs: termFreqs}
		idx.totalDocs++
		idx.totalLen += len(tokens)

		for term := range termFreqs {
			set, ok := idx.postings[term]
			if !ok {
				set = make(map[string]struct{})
				idx.postings[term] = set
			}
			set[d.ID] = struct{}{}
			idx.docFreq[term]++
		}
	}
	return nil
}

// removeLocked removes a document's contribution to the index. Caller must
// hold idx.mu.
func (idx *MemoryBM25Index) removeLocked(docID string) {
	entry, ok := idx.docs[docID]
	if !ok {
		return
	}
	for term := range entry.termFreqs {
		if set, ok := idx.postings[term]; ok {
			delete(set, docID)
			if len(set) == 0 {
				delete(idx.postings, term)
			}
		}
		idx.docFreq[term]--
		if idx.docFreq[term] <= 0 {
			delete(idx.docFreq, term)
		}
	}
	idx.totalDocs--
	idx.totalLen -= entry.length
	delete(idx.docs, docID)
}

// Delete removes documents, restoring the index to exactly its pre-add state
// for any doc that was added and then removed without other mutations.
func (idx *MemoryBM25Index) Delete(_ context.Context, docIDs []string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, id := range docIDs {
		idx.removeLocked(id)
	}
	return nil
}

func (idx *MemoryBM25Index) avgdl() float64 {
	if idx.totalDocs == 0 {
		return 0
	}
	return float64(idx.totalLen) / float64(idx.totalDocs)
}

// Search scores candidates (the union of posting lists for query terms)
// using standard BM25 with IDF smoothing.
func (idx *MemoryBM25Index) Search(_ context.Context, query string, limit int) ([]*BM25Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if strings.TrimSpace(query) == "" {
		return []*BM25Result{}, nil
	}
	queryTerms := idx.tokenize(query)
	if len(queryTerms) == 0 {
		return []*BM25Result{}, nil
	}

	avgdl := idx.avgdl()
	candidates := make(map[string]struct{})
	for _, term := range queryTerms {
		for docID := range idx.postings[term] {
			candidates[docID] = struct{}{}
		}
	}

	results := make([]*BM25Result, 0, len(candidates))
	for docID := range candidates {
		entry := idx.docs[docID]
		var score float64
		var matched []string
		for _, term := range queryTerms {
			n := idx.docFreq[term]
			if n == 0 {
				continue
			}
			tf := entry.termFreqs[term]
			if tf == 0 {
				continue
			}
			idf := math.Log((float64(idx.totalDocs-n)+0.5)/(float64(n)+0.5) + 1)
			denom := float64(tf) + idx.config.K1*(1-idx.config.B+idx.config.B*float64(entry.length)/maxFloat(avgdl, 1))
			score += idf * (float64(tf) * (idx.config.K1 + 1)) / denom
			matched = append(matched, term)
		}
		if score > 0 {
			results = append(results, &BM25Result{DocID: docID, Score: score, MatchedTerms: matched})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].DocID < results[j].DocID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// AllIDs returns every indexed document id.
func (idx *MemoryBM25Index) AllIDs() ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := make([]string, 0, len(idx.docs))
	for id := range idx.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Stats reports corpus statistics.
func (idx *MemoryBM25Index) Stats() *IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return &IndexStats{
		DocumentCount: idx.totalDocs,
		TermCount:     len(idx.docFreq),
		AvgDocLength:  idx.avgdl(),
	}
}

// Save and Load are no-ops: the hand-rolled index is rebuilt from the
// catalog on process start (the catalog's content_hash column is the
// durable source of truth) so the index is always regenerable from it.
func (idx *MemoryBM25Index) Save(string) error { return nil }
func (idx *MemoryBM25Index) Load(string) error { return nil }
func (idx *MemoryBM25Index) Close() error      { return nil }
