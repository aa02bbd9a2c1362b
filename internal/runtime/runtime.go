// Package runtime wires the catalog, vector index, lexical index, caches,
// and ranking stages into the operations the MCP shim exposes: search,
// save/update/delete/validate, index scanning, and checkpoint management.
// It is the single place that knows how all the independently-testable
// internal/* packages compose into spec-shaped behavior.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/access"
	"github.com/devalexanderdaza/memoryd/internal/catalog"
	"github.com/devalexanderdaza/memoryd/internal/catalogwatch"
	"github.com/devalexanderdaza/memoryd/internal/embedding"
	"github.com/devalexanderdaza/memoryd/internal/memcache"
	"github.com/devalexanderdaza/memoryd/internal/memconfig"
	"github.com/devalexanderdaza/memoryd/internal/query"
	"github.com/devalexanderdaza/memoryd/internal/rank"
	"github.com/devalexanderdaza/memoryd/internal/rerank"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// Runtime owns every long-lived collaborator the memory service's
// operations are built from, and is safe for concurrent use: the catalog
// serializes its own writes, and the index/cache collaborators are each
// internally synchronized.
type Runtime struct {
	cfg    memconfig.Config
	logger *slog.Logger

	catalog  *catalog.Catalog
	vector   store.VectorStore
	lexical  store.BM25Index
	embedder embedding.Provider
	reranker rerank.Reranker

	constCache  *memcache.ConstitutionalCache
	queryCache  *memcache.QueryCache[*SearchResult]
	accumulator *access.Accumulator

	expander    *query.Expander
	classifier  *query.Classifier
	fusion      *rank.RRFFusion
	smartRanker *rank.SmartRanker
	diversifier *rank.Diversifier

	watcher     *catalogwatch.Watcher
	watchCancel context.CancelFunc

	profile embedding.Profile

	indexMu sync.RWMutex // guards the vector/lexical indexes during a full rebuild
}

// Open constructs a Runtime: opens the catalog at cfg's resolved DB path,
// builds the vector and lexical indexes sized to the active embedding
// profile, wires caching/ranking collaborators, and rebuilds the in-process
// indexes from whatever the catalog already holds (a fresh DB rebuilds to
// nothing; a reopened one recovers its working set without re-embedding).
func Open(ctx context.Context, cfg memconfig.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := resolveDBPath(cfg)
	cat, err := catalog.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	embedder := embedding.NewStaticProvider()
	if cfg.EmbeddingsProvider != "" && cfg.EmbeddingsProvider != "static" {
		logger.Warn("no network embedding provider is wired in this build, falling back to the static provider",
			slog.String("configured_provider", cfg.EmbeddingsProvider))
	}
	profile := embedding.Profile{
		Provider:  embedder.Name(),
		Model:     "static-hash-v1",
		Dimension: embedder.Dimension(),
	}

	vector, err := store.NewHNSWStore(store.DefaultVectorStoreConfig(profile.Dimension))
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	lexical := newLexicalIndex(logger)

	var inner rerank.Reranker = rerank.NoOpReranker{}
	orchestrator := rerank.NewOrchestrator(inner,
		rerank.WithMaxCandidates(cfg.MaxRerankCandidates),
		rerank.WithP95Budget(cfg.RerankP95Threshold),
	)

	accumulator := access.NewAccumulator(func(ctx context.Context, accumulated map[int64]float64) error {
		return cat.FlushAccessCounts(ctx, accumulated)
	})

	constCache := memcache.NewConstitutionalCache(func(ctx context.Context) ([]*store.Memory, error) {
		return cat.MemoriesByTier(ctx, store.TierConstitutional)
	}, cat.DBPath())

	rt := &Runtime{
		cfg:         cfg,
		logger:      logger,
		catalog:     cat,
		vector:      vector,
		lexical:     lexical,
		embedder:    embedder,
		reranker:    orchestrator,
		constCache:  constCache,
		queryCache:  memcache.NewQueryCache[*SearchResult](0),
		accumulator: accumulator,
		expander:    query.NewExpander(query.WithTypoCorrection(cfg.EnableFuzzyMatch)),
		classifier:  query.NewClassifier(),
		fusion:      rank.NewRRFFusion(),
		smartRanker: rank.NewSmartRanker(),
		diversifier: rank.NewDiversifier(),
		profile:     profile,
	}

	if err := rt.rebuildIndexes(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("rebuild indexes: %w", err)
	}

	if dbPath != "" {
		watchCtx, cancel := context.WithCancel(context.Background())
		w, err := catalogwatch.New(watchCtx, dbPath, func() {
			constCache.Invalidate()
			rt.queryCache.Purge()
		})
		if err != nil {
			logger.Warn("catalog file watch unavailable, caches will only invalidate on TTL", slog.Any("error", err))
			cancel()
		} else {
			rt.watcher = w
			rt.watchCancel = cancel
		}
	}

	return rt, nil
}

// newLexicalIndex builds the combined lexical search: the hand-rolled BM25
// index plus the Bleve FTS passthrough, merged by store.CombinedIndex. Both
// engines rebuild from the catalog at startup, so there is nothing to
// persist to disk; if the FTS engine fails to construct, the runtime
// degrades gracefully to BM25-only rather than failing to open.
func newLexicalIndex(logger *slog.Logger) store.BM25Index {
	config := store.DefaultBM25Config()
	bm25 := store.NewMemoryBM25Index(config)

	fts, err := store.NewBleveBM25Index("", config)
	if err != nil {
		logger.Warn("fts passthrough index unavailable, falling back to BM25-only lexical search",
			slog.Any("error", err))
		return bm25
	}
	return store.NewCombinedIndex(bm25, fts)
}

// resolveDBPath applies the persisted layout: MEMORY_DB_PATH wins outright,
// otherwise MEMORY_DB_DIR is joined with the default filename, otherwise
// cfg.DBPath (itself already defaulted) is used as-is.
func resolveDBPath(cfg memconfig.Config) string {
	if cfg.DBDir != "" {
		return filepath.Join(cfg.DBDir, filepath.Base(cfg.DBPath))
	}
	return cfg.DBPath
}

// rebuildIndexes reloads every memory with a successful embedding into the
// vector index and every searchable memory's text into the lexical index.
// The catalog is the source of truth; the in-process indexes are caches
// over it rebuilt wholesale here and incrementally in Save/Update/Delete.
func (rt *Runtime) rebuildIndexes(ctx context.Context) error {
	rt.indexMu.Lock()
	defer rt.indexMu.Unlock()

	memories, err := rt.catalog.AllMemories(ctx)
	if err != nil {
		return fmt.Errorf("list memories: %w", err)
	}

	var ids []int64
	var vectors [][]float32
	docs := make([]*store.Document, 0, len(memories))

	for _, m := range memories {
		if m.ImportanceTier == store.TierDeprecated {
			continue
		}
		if m.EmbeddingStatus == store.EmbeddingSuccess {
			vec, ok, err := rt.catalog.GetEmbedding(ctx, m.ID)
			if err != nil {
				return fmt.Errorf("load embedding for memory %d: %w", m.ID, err)
			}
			if ok {
				ids = append(ids, m.ID)
				vectors = append(vectors, vec)
			}
		}
		docs = append(docs, lexicalDocument(m))
	}

	if len(ids) > 0 {
		if err := rt.vector.Add(ctx, ids, vectors); err != nil {
			return fmt.Errorf("populate vector index: %w", err)
		}
	}
	if len(docs) > 0 {
		if err := rt.lexical.Index(ctx, docs); err != nil {
			return fmt.Errorf("populate lexical index: %w", err)
		}
	}
	return nil
}

// lexicalDocument builds the BM25-searchable text for a memory: title,
// trigger phrases, and content concatenated so a query can hit any of them.
func lexicalDocument(m *store.Memory) *store.Document {
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteString("\n")
	b.WriteString(strings.Join(m.TriggerPhrases, " "))
	b.WriteString("\n")
	b.WriteString(m.Content)
	return &store.Document{ID: strconv.FormatInt(m.ID, 10), Content: b.String()}
}

// pathAllowed reports whether path falls under one of the configured
// allow-listed read roots.
func (rt *Runtime) pathAllowed(path string) bool {
	clean := filepath.ToSlash(path)
	for _, root := range rt.cfg.AllowedPaths {
		root = filepath.ToSlash(root)
		root = strings.TrimPrefix(root, "./")
		trimmed := strings.TrimPrefix(clean, "./")
		if strings.HasPrefix(trimmed, root) {
			return true
		}
	}
	return false
}

// now is a seam over time.Now so search/decay logic can be driven from
// deterministic inputs in tests without depending on wall-clock timing.
var now = time.Now

// Close flushes pending access counts, stops the file watcher, and closes
// every owned resource. Safe to call once after Open succeeds.
func (rt *Runtime) Close() error {
	rt.accumulator.Flush(context.Background())

	if rt.watchCancel != nil {
		rt.watchCancel()
	}
	if rt.watcher != nil {
		_ = rt.watcher.Close()
	}

	var errs []error
	if err := rt.reranker.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.lexical.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.catalog.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close runtime: %v", errs)
	}
	return nil
}
