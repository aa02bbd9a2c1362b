package runtime

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/memcache"
	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/query"
	"github.com/devalexanderdaza/memoryd/internal/rank"
	"github.com/devalexanderdaza/memoryd/internal/rerank"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// searchCandidate is a fused result resolved against the catalog, carrying
// the ranking inputs derived from it through the rest of the pipeline.
type searchCandidate struct {
	memory     *store.Memory
	fused      *rank.FusedResult
	rankable   rank.Rankable
	lenPenalty float64
}

// defaultLimit is the default page size when a caller omits one.
const defaultLimit = 10

// lexicalFanout is how many lexical/vector candidates are pulled before
// fusion and filtering narrow the set back down to the caller's limit.
const lexicalFanout = 4

// SearchRequest is the memory_search operation's input.
type SearchRequest struct {
	Query                 string
	Concepts               []string // mutually exclusive with Query; 2-5 concept texts, AND-combined
	Limit                  int
	SpecFolder             string
	IncludeContent         bool
	Anchors                []string
	Tier                   store.ImportanceTier
	ContextType            store.ContextType
	IncludeConstitutional  bool
}

// SearchResultItem is one ranked memory in a SearchResult.
type SearchResultItem struct {
	Memory           *store.Memory
	Similarity       float64
	EffImportance    float64
	IsConstitutional bool
	Sources          []rank.Source
	SourceCount      int
}

// SearchResult is the memory_search operation's output.
type SearchResult struct {
	Results    []SearchResultItem
	Intent     query.Intent
	Confidence float64
	Truncated  bool
}

// Search implements the hybrid retrieval pipeline: query expansion, vector
// + lexical + related-memory-graph candidate generation, RRF fusion,
// optional reranking, intent-aware smart ranking, length penalty,
// diversification, and constitutional-memory prelude.
func (rt *Runtime) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	if req.Query == "" && len(req.Concepts) == 0 {
		return nil, memerr.New(memerr.CodeQueryEmpty, "query or concepts is required", nil)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	queryTexts := req.Concepts
	primaryText := req.Query
	if len(queryTexts) == 0 {
		queryTexts = []string{req.Query}
	} else if primaryText == "" {
		primaryText = strings.Join(queryTexts, " ")
	}

	classification := rt.classifier.Classify(primaryText)
	weights := rank.DefaultWeights
	if override, ok := query.WeightsFor(classification.Intent); ok {
		weights = rank.Weights{Similarity: override.Similarity, Recency: override.Recency, Popularity: override.Popularity}
	}

	vectorHits, err := rt.vectorSearchMulti(ctx, queryTexts, limit*lexicalFanout)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeSearchFailed, err)
	}

	lexicalQuery := primaryText
	if rt.cfg.EnableFuzzyMatch {
		lexicalQuery = rt.expander.Expand(primaryText)
	}
	var bm25Hits []*store.BM25Result
	if rt.cfg.EnableBM25 {
		bm25Hits, err = rt.lexical.Search(ctx, lexicalQuery, limit*lexicalFanout)
		if err != nil {
			return nil, memerr.Wrap(memerr.CodeSearchFailed, err)
		}
	}

	graphHits := rt.graphCandidates(ctx, vectorHits, bm25Hits)

	var fused []*rank.FusedResult
	if rt.cfg.EnableRRFFusion {
		fused = rt.fusion.Fuse(vectorHits, bm25Hits, graphHits)
	} else {
		fused = fuseVectorOnly(vectorHits)
	}

	nowTS := now()
	candidates := make([]searchCandidate, 0, len(fused))
	for _, f := range fused {
		m, err := rt.catalog.GetMemory(ctx, f.ID)
		if err != nil {
			continue
		}
		if !rt.passesFilters(m, req, nowTS) {
			continue
		}
		tokenCount := len(m.Content) / 4
		candidates = append(candidates, searchCandidate{
			memory: m,
			fused:  f,
			rankable: rank.Rankable{
				ID:            m.ID,
				Similarity:    f.RRFScore,
				UpdatedAt:     m.UpdatedAt,
				AccessCount:   m.AccessCount,
				EffImportance: m.EffectiveImportance(nowTS),
			},
			lenPenalty: rank.LengthPenalty(tokenCount),
		})
	}

	scored := make([]struct {
		idx   int
		score float64
	}, len(candidates))
	for i, c := range candidates {
		scored[i] = struct {
			idx   int
			score float64
		}{i, rt.smartRanker.ScoreWeighted(c.rankable, nowTS, weights) * c.lenPenalty}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		a, b := candidates[scored[i].idx], candidates[scored[j].idx]
		if a.rankable.EffImportance != b.rankable.EffImportance {
			return a.rankable.EffImportance > b.rankable.EffImportance
		}
		return a.memory.ID < b.memory.ID
	})

	ordered := make([]searchCandidate, len(scored))
	scoreByID := make(map[int64]float64, len(scored))
	for i, s := range scored {
		ordered[i] = candidates[s.idx]
		scoreByID[ordered[i].memory.ID] = s.score
	}

	ordered = rt.rerankTop(ctx, primaryText, ordered, scoreByID)

	diversifyItems := make([]rank.DiversifyItem, len(ordered))
	for i, c := range ordered {
		diversifyItems[i] = rank.DiversifyItem{
			ID:         c.memory.ID,
			Relevance:  scoreByID[c.memory.ID],
			SpecFolder: c.memory.SpecFolder,
			Date:       c.memory.UpdatedAt.Format("2006-01-02"),
		}
	}
	diversified := rt.diversifier.Diversify(diversifyItems, limit)

	byID := make(map[int64]searchCandidate, len(ordered))
	for _, c := range ordered {
		byID[c.memory.ID] = c
	}

	truncated := len(diversified) < len(ordered)
	results := make([]SearchResultItem, 0, len(diversified))
	accessIDs := make([]int64, 0, len(diversified))
	for _, d := range diversified {
		c, ok := byID[d.ID]
		if !ok {
			continue
		}
		m := c.memory
		if !req.IncludeContent {
			copyM := *m
			copyM.Content = ""
			m = &copyM
		}
		results = append(results, SearchResultItem{
			Memory:        m,
			Similarity:    c.fused.SourceScores[rank.SourceVector],
			EffImportance: c.rankable.EffImportance,
			Sources:       c.fused.Sources,
			SourceCount:   c.fused.SourceCount,
		})
		accessIDs = append(accessIDs, c.memory.ID)
	}

	if req.IncludeConstitutional {
		constItems, constTruncated, err := rt.constitutionalItems(ctx, req)
		if err == nil {
			results = append(constItems, results...)
			truncated = truncated || constTruncated
		}
	}

	rt.accumulator.TrackMultiple(ctx, accessIDs)

	return &SearchResult{Results: results, Intent: classification.Intent, Confidence: classification.Confidence, Truncated: truncated}, nil
}

// vectorSearchMulti embeds each query text and, for multi-concept (AND)
// search, keeps only candidates present in every concept's result set,
// scoring them by the average similarity across concepts.
func (rt *Runtime) vectorSearchMulti(ctx context.Context, queryTexts []string, k int) ([]*store.VectorResult, error) {
	perConcept := make([]map[int64]float32, 0, len(queryTexts))
	for _, text := range queryTexts {
		emb, err := rt.embedder.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		hits, err := rt.vector.Search(ctx, emb, k)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]float32, len(hits))
		for _, h := range hits {
			m[h.ID] = h.Score
		}
		perConcept = append(perConcept, m)
	}

	if len(perConcept) == 1 {
		out := make([]*store.VectorResult, 0, len(perConcept[0]))
		for id, score := range perConcept[0] {
			out = append(out, &store.VectorResult{ID: id, Score: score})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
		return out, nil
	}

	var out []*store.VectorResult
	for id, score := range perConcept[0] {
		sum := float64(score)
		matchedAll := true
		for _, other := range perConcept[1:] {
			s, ok := other[id]
			if !ok {
				matchedAll = false
				break
			}
			sum += float64(s)
		}
		if matchedAll {
			out = append(out, &store.VectorResult{ID: id, Score: float32(sum / float64(len(perConcept)))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// graphCandidates surfaces related-memory hits from the top vector/lexical
// candidates' adjacency lists, ordered by descending stored similarity.
func (rt *Runtime) graphCandidates(ctx context.Context, vector []*store.VectorResult, bm25 []*store.BM25Result) []rank.GraphResult {
	const seedLimit = 10
	seen := make(map[int64]bool)
	var out []rank.GraphResult

	addSeed := func(id int64) {
		m, err := rt.catalog.GetMemory(ctx, id)
		if err != nil {
			return
		}
		for _, rel := range m.RelatedMemories {
			if seen[rel.ID] {
				continue
			}
			seen[rel.ID] = true
			out = append(out, rank.GraphResult{ID: rel.ID, Score: rel.Similarity})
		}
	}

	for i, v := range vector {
		if i >= seedLimit {
			break
		}
		addSeed(v.ID)
	}
	for i, b := range bm25 {
		if i >= seedLimit {
			break
		}
		if id, err := strconv.ParseInt(b.DocID, 10, 64); err == nil {
			addSeed(id)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// fuseVectorOnly is the RRF-disabled fallback: vector hits ordered as-is,
// wrapped in FusedResult so downstream ranking stages stay uniform.
func fuseVectorOnly(vector []*store.VectorResult) []*rank.FusedResult {
	out := make([]*rank.FusedResult, 0, len(vector))
	for _, v := range vector {
		out = append(out, &rank.FusedResult{
			ID:           v.ID,
			RRFScore:     float64(v.Score) / 100,
			Sources:      []rank.Source{rank.SourceVector},
			SourceCount:  1,
			SourceScores: map[rank.Source]float64{rank.SourceVector: float64(v.Score)},
		})
	}
	return out
}

// passesFilters applies the result-eligibility rules: searchable
// (not deprecated/expired), matching spec folder/tier/context type/anchor
// when requested, and excluding the constitutional tier from general
// results (it is always prepended separately).
func (rt *Runtime) passesFilters(m *store.Memory, req SearchRequest, nowTS time.Time) bool {
	if !m.IsSearchable(nowTS) {
		return false
	}
	if req.Tier != "" {
		if m.ImportanceTier != req.Tier {
			return false
		}
	} else if m.ImportanceTier == store.TierConstitutional {
		return false
	}
	if req.SpecFolder != "" && m.SpecFolder != req.SpecFolder {
		return false
	}
	if req.ContextType != "" && m.ContextType != req.ContextType {
		return false
	}
	if len(req.Anchors) > 0 {
		found := false
		for _, a := range req.Anchors {
			if a == m.AnchorID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// rerankTop runs the bounded top slice of candidates through the reranker
// orchestrator, replacing their relative order when it succeeds and leaving
// the smart-ranked order untouched (including on error) otherwise.
func (rt *Runtime) rerankTop(ctx context.Context, queryText string, ordered []searchCandidate, scoreByID map[int64]float64) []searchCandidate {
	if len(ordered) == 0 {
		return ordered
	}
	top := ordered
	rest := ordered[:0:0]
	if len(ordered) > rt.cfg.MaxRerankCandidates {
		top = ordered[:rt.cfg.MaxRerankCandidates]
		rest = ordered[rt.cfg.MaxRerankCandidates:]
	}

	rcs := make([]rerank.Candidate, len(top))
	for i, c := range top {
		rcs[i] = rerank.Candidate{ID: strconv.FormatInt(c.memory.ID, 10), Document: c.memory.Title + "\n" + c.memory.Content}
	}
	results, err := rt.reranker.Rerank(ctx, queryText, rcs, 0)
	if err != nil || len(results) != len(top) {
		return ordered
	}

	byID := make(map[int64]searchCandidate, len(top))
	for _, c := range top {
		byID[c.memory.ID] = c
	}
	reordered := make([]searchCandidate, 0, len(ordered))
	for _, r := range results {
		id, err := strconv.ParseInt(r.ID, 10, 64)
		if err != nil {
			continue
		}
		if c, ok := byID[id]; ok {
			reordered = append(reordered, c)
			scoreByID[id] = r.Score
		}
	}
	return append(reordered, rest...)
}

// constitutionalItems loads the always-surface constitutional set,
// optionally scoped to spec_folder, budgets it to ~2000 tokens/~20
// memories, and marks every item as constitutional and unconditionally
// relevant.
func (rt *Runtime) constitutionalItems(ctx context.Context, req SearchRequest) ([]SearchResultItem, bool, error) {
	memories, err := rt.constCache.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	if req.SpecFolder != "" {
		scoped := make([]*store.Memory, 0, len(memories))
		for _, m := range memories {
			if m.SpecFolder == req.SpecFolder {
				scoped = append(scoped, m)
			}
		}
		memories = scoped
	}
	budgeted, truncated := memcache.Budgeted(memories)

	items := make([]SearchResultItem, 0, len(budgeted))
	for _, m := range budgeted {
		mm := m
		if !req.IncludeContent {
			copyM := *m
			copyM.Content = ""
			mm = &copyM
		}
		items = append(items, SearchResultItem{
			Memory:           mm,
			Similarity:       1.0,
			EffImportance:    m.EffectiveImportance(now()),
			IsConstitutional: true,
		})
	}
	return items, truncated, nil
}

// MatchTriggers implements memory_match_triggers: substring matching of a
// prompt against every memory's trigger phrases, ranked by total matched
// phrase length then effective importance.
func (rt *Runtime) MatchTriggers(ctx context.Context, prompt string, limit int) ([]*store.Memory, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	memories, err := rt.catalog.AllMemories(ctx)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeDBQueryFailed, err)
	}

	lowerPrompt := strings.ToLower(prompt)
	nowTS := now()

	type hit struct {
		m          *store.Memory
		matchedLen int
	}
	var hits []hit
	for _, m := range memories {
		if !m.IsSearchable(nowTS) || len(m.TriggerPhrases) == 0 {
			continue
		}
		matched := 0
		for _, phrase := range m.TriggerPhrases {
			if phrase == "" {
				continue
			}
			if strings.Contains(lowerPrompt, strings.ToLower(phrase)) {
				matched += len(phrase)
			}
		}
		if matched > 0 {
			hits = append(hits, hit{m: m, matchedLen: matched})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].matchedLen != hits[j].matchedLen {
			return hits[i].matchedLen > hits[j].matchedLen
		}
		ei, ej := hits[i].m.EffectiveImportance(nowTS), hits[j].m.EffectiveImportance(nowTS)
		if ei != ej {
			return ei > ej
		}
		return hits[i].m.ID < hits[j].m.ID
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]*store.Memory, len(hits))
	ids := make([]int64, len(hits))
	for i, h := range hits {
		out[i] = h.m
		ids[i] = h.m.ID
	}
	rt.accumulator.TrackMultiple(ctx, ids)
	return out, nil
}
