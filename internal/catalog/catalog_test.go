package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestOpen_OnDiskAppliesWriterLock(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")

	c1, err := Open(path)
	require.NoError(t, err)
	defer c1.Close()

	_, err = Open(path)
	assert.Error(t, err, "second Open on the same path should fail to acquire the writer lock")
}

func TestIndexMemory_RoundTrip(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	m := &store.Memory{
		SpecFolder:  "auth",
		FilePath:    "auth/overview.md",
		Title:       "Auth overview",
		Content:     "JWT refresh tokens rotate every 15 minutes.",
		ContentHash: "abc123",
		MemoryType:  store.MemorySemantic,
	}
	id, err := c.IndexMemory(ctx, m, []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.NotZero(t, id)

	got, err := c.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Auth overview", got.Title)
	assert.Equal(t, store.EmbeddingSuccess, got.EmbeddingStatus)
	assert.Equal(t, store.TierNormal, got.ImportanceTier)

	vec, ok, err := c.GetEmbedding(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3}, vec, 1e-6)
}

func TestIndexMemory_DuplicateIdentityRejected(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	m := &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", ContentHash: "h1"}
	_, err := c.IndexMemory(ctx, m, nil)
	require.NoError(t, err)

	dup := &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", ContentHash: "h2"}
	_, err = c.IndexMemory(ctx, dup, nil)
	assert.Error(t, err, "(spec_folder, file_path, anchor_id) must be unique")
}

func TestUpdateMemory_RecordsHistory(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	m := &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", Content: "v1", ContentHash: "h1"}
	id, err := c.IndexMemory(ctx, m, nil)
	require.NoError(t, err)

	m.ID = id
	m.Content = "v2"
	m.ContentHash = "h2"
	require.NoError(t, c.UpdateMemory(ctx, m))

	got, err := c.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	assert.Equal(t, "h2", got.ContentHash)
}

func TestDeleteMemory_CascadesEmbedding(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	m := &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", ContentHash: "h1"}
	id, err := c.IndexMemory(ctx, m, []float32{1, 2, 3})
	require.NoError(t, err)

	require.NoError(t, c.DeleteMemory(ctx, id))
	_, err = c.GetMemory(ctx, id)
	assert.Error(t, err)

	_, ok, err := c.GetEmbedding(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok, "embedding should be cascade-deleted with its memory")
}

func TestDeleteMemoryByPath_RemovesAllAnchors(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", AnchorID: "intro", ContentHash: "h1"}, nil)
	require.NoError(t, err)
	_, err = c.IndexMemory(ctx, &store.Memory{SpecFolder: "auth", FilePath: "auth/a.md", AnchorID: "detail", ContentHash: "h2"}, nil)
	require.NoError(t, err)

	require.NoError(t, c.DeleteMemoryByPath(ctx, "auth", "auth/a.md"))

	memories, err := c.GetMemoriesByFolder(ctx, "auth")
	require.NoError(t, err)
	assert.Empty(t, memories)
}

func TestUpdateConfidence_ClampsAndCounts(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "x.md", ContentHash: "h", Confidence: 0.98}, nil)
	require.NoError(t, err)

	conf, count, err := c.UpdateConfidence(ctx, id, true)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.LessOrEqual(t, conf, 1.0)

	conf, count, err = c.UpdateConfidence(ctx, id, false)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.GreaterOrEqual(t, conf, 0.0)
}

func TestFlushAccessCounts_AppliesBatch(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id1, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "a.md", ContentHash: "h1"}, nil)
	require.NoError(t, err)
	id2, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "b.md", ContentHash: "h2"}, nil)
	require.NoError(t, err)

	require.NoError(t, c.FlushAccessCounts(ctx, map[int64]float64{id1: 0.6, id2: 1.2}))

	m1, err := c.GetMemory(ctx, id1)
	require.NoError(t, err)
	m2, err := c.GetMemory(ctx, id2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m1.AccessCount)
	assert.Equal(t, int64(1), m2.AccessCount)
}

func TestCheckpoint_CreateListRestoreDelete(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "auth", FilePath: "a.md", Content: "original", ContentHash: "h1"}, []float32{1, 2})
	require.NoError(t, err)

	cp, err := c.CreateCheckpoint(ctx, "before-refactor", "auth", "main", map[string]string{"note": "pre-refactor"})
	require.NoError(t, err)
	assert.Equal(t, 1, cp.MemoryCount)
	assert.Equal(t, 1, cp.EmbeddingCount)

	checkpoints, err := c.ListCheckpoints(ctx, "auth")
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "before-refactor", checkpoints[0].Name)

	// Mutate, then restore.
	m, err := c.GetMemory(ctx, id)
	require.NoError(t, err)
	m.Content = "mutated"
	m.ContentHash = "h2"
	require.NoError(t, c.UpdateMemory(ctx, m))

	result, err := c.RestoreCheckpoint(ctx, "before-refactor", false, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.EmbeddingsRestored)

	restored, err := c.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", restored.Content)

	require.NoError(t, c.DeleteCheckpoint(ctx, "before-refactor"))
	checkpoints, err = c.ListCheckpoints(ctx, "auth")
	require.NoError(t, err)
	assert.Empty(t, checkpoints)
}

func TestRestoreCheckpoint_ClearExistingDeprecatesUnseen(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "auth", FilePath: "keep.md", ContentHash: "h1"}, nil)
	require.NoError(t, err)
	_, err = c.CreateCheckpoint(ctx, "snap", "auth", "", nil)
	require.NoError(t, err)

	newID, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "auth", FilePath: "new.md", ContentHash: "h2"}, nil)
	require.NoError(t, err)

	result, err := c.RestoreCheckpoint(ctx, "snap", true, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deprecated)

	deprecated, err := c.GetMemory(ctx, newID)
	require.NoError(t, err)
	assert.Equal(t, store.TierDeprecated, deprecated.ImportanceTier)
}

func TestVerifyIntegrity_CleansOrphansAndMissing(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	id, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "a.md", ContentHash: "h1"}, []float32{1, 2})
	require.NoError(t, err)

	// Force a torn state: embedding row with no owning memory.
	_, err = c.db.Exec(`INSERT INTO embeddings (memory_id, dims, vector) VALUES (?, 2, ?)`, id+100, encodeVector([]float32{1, 2}))
	require.NoError(t, err)
	// And a memory claiming success with no embedding row.
	_, err = c.db.Exec(`UPDATE memories SET embedding_status = 'success' WHERE id = ?`, id)
	require.NoError(t, err)
	_, err = c.db.Exec(`DELETE FROM embeddings WHERE memory_id = ?`, id)
	require.NoError(t, err)

	report, err := c.VerifyIntegrity(ctx, true)
	require.NoError(t, err)
	assert.Contains(t, report.OrphanEmbeddings, id+100)
	assert.Contains(t, report.MissingEmbeddings, id)
	assert.True(t, report.Cleaned)

	got, err := c.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, store.EmbeddingPending, got.EmbeddingStatus)
}

func TestGetStats_CountsByTierAndEmbeddingStatus(t *testing.T) {
	c := openTestCatalog(t)
	ctx := context.Background()

	_, err := c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "a.md", ContentHash: "h1", ImportanceTier: store.TierCritical}, []float32{1})
	require.NoError(t, err)
	_, err = c.IndexMemory(ctx, &store.Memory{SpecFolder: "x", FilePath: "b.md", ContentHash: "h2"}, nil)
	require.NoError(t, err)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMemories)
	assert.Equal(t, 1, stats.ByTier[store.TierCritical])
	assert.Equal(t, 1, stats.ByTier[store.TierNormal])
	assert.Equal(t, 1, stats.EmbeddingSuccess)
	assert.Equal(t, 1, stats.EmbeddingPending)
}
