package runtime

import (
	"context"

	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// CreateCheckpoint snapshots the catalog's current memories (optionally
// scoped to one spec folder) under name.
func (rt *Runtime) CreateCheckpoint(ctx context.Context, name, specFolder, gitBranch string, metadata map[string]string) (*store.Checkpoint, error) {
	cp, err := rt.catalog.CreateCheckpoint(ctx, name, specFolder, gitBranch, metadata)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeCheckpointCreateFailed, err)
	}
	return cp, nil
}

// ListCheckpoints lists known checkpoints, optionally scoped to one spec
// folder.
func (rt *Runtime) ListCheckpoints(ctx context.Context, specFolder string) ([]*store.Checkpoint, error) {
	cps, err := rt.catalog.ListCheckpoints(ctx, specFolder)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeDBQueryFailed, err)
	}
	return cps, nil
}

// DeleteCheckpoint removes a checkpoint by name.
func (rt *Runtime) DeleteCheckpoint(ctx context.Context, name string) error {
	if err := rt.catalog.DeleteCheckpoint(ctx, name); err != nil {
		return memerr.Wrap(memerr.CodeDBTransactionFailed, err)
	}
	return nil
}

// RestoreCheckpoint restores a named checkpoint's memories into the catalog
// and then rebuilds the in-process vector/lexical indexes, since a restore
// mutates the database directly and bypasses the incremental index-update
// path Save/Update/Delete use.
func (rt *Runtime) RestoreCheckpoint(ctx context.Context, name string, clearExisting, reinsertMemories bool) (*store.RestoreResult, error) {
	result, err := rt.catalog.RestoreCheckpoint(ctx, name, clearExisting, reinsertMemories)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeCheckpointRestoreFailed, err)
	}

	rt.indexMu.Lock()
	if ids := rt.vector.AllIDs(); len(ids) > 0 {
		_ = rt.vector.Delete(ctx, ids)
	}
	if docIDs, err := rt.lexical.AllIDs(); err == nil && len(docIDs) > 0 {
		_ = rt.lexical.Delete(ctx, docIDs)
	}
	rt.indexMu.Unlock()

	if err := rt.rebuildIndexes(ctx); err != nil {
		return result, memerr.Wrap(memerr.CodeSearchFailed, err)
	}

	rt.constCache.Invalidate()
	rt.queryCache.Purge()

	return result, nil
}

// HealthReport surfaces memory_health's fields: a /healthz-shaped status
// for the MCP shim and any operator tooling.
type HealthReport struct {
	DBPath          string
	SchemaVersion   int
	ActiveProvider  string
	ActiveDimension int
	TotalMemories   int
	ByTier          map[store.ImportanceTier]int
	EmbeddingPending int
	EmbeddingSuccess int
	EmbeddingFailed  int
	RerankerDisabled bool
}

// Health reports the runtime's current operating state.
func (rt *Runtime) Health(ctx context.Context) (*HealthReport, error) {
	stats, err := rt.catalog.GetStats(ctx)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeDBQueryFailed, err)
	}

	disabled := !rt.reranker.Available(ctx)

	return &HealthReport{
		DBPath:           rt.catalog.DBPath(),
		SchemaVersion:    stats.SchemaVersion,
		ActiveProvider:   rt.profile.Provider,
		ActiveDimension:  rt.profile.Dimension,
		TotalMemories:    stats.TotalMemories,
		ByTier:           stats.ByTier,
		EmbeddingPending: stats.EmbeddingPending,
		EmbeddingSuccess: stats.EmbeddingSuccess,
		EmbeddingFailed:  stats.EmbeddingFailed,
		RerankerDisabled: disabled,
	}, nil
}

// VerifyIntegrity delegates to the catalog's orphan/missing-embedding scan.
func (rt *Runtime) VerifyIntegrity(ctx context.Context, autoClean bool) (*store.IntegrityReport, error) {
	report, err := rt.catalog.VerifyIntegrity(ctx, autoClean)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeDBQueryFailed, err)
	}
	return report, nil
}
