package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCombinedIndex(t *testing.T) *CombinedIndex {
	t.Helper()
	bm25 := NewMemoryBM25Index(DefaultBM25Config())
	fts, err := NewBleveBM25Index("", DefaultBM25Config())
	require.NoError(t, err)
	t.Cleanup(func() { _ = fts.Close() })
	return NewCombinedIndex(bm25, fts)
}

func TestCombinedIndex_SearchFindsDocumentBothEnginesAgreeOn(t *testing.T) {
	idx := newTestCombinedIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "1", Content: "user authentication flow handles JWT refresh tokens for login"},
		{ID: "2", Content: "database migration script for adding indexes"},
	}))

	results, err := idx.Search(ctx, "authentication JWT refresh", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "1", results[0].DocID)
}

func TestCombinedIndex_BothEnginesAgreeingOutranksSingleEngineHit(t *testing.T) {
	idx := newTestCombinedIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "both", Content: "routing tables configure the network path for every packet"},
		{ID: "single", Content: "routing"},
	}))

	results, err := idx.Search(ctx, "routing tables network", 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "both", results[0].DocID)
}

func TestCombinedIndex_DeleteRemovesFromBothEngines(t *testing.T) {
	idx := newTestCombinedIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, []*Document{
		{ID: "1", Content: "ephemeral deletable marker phrase"},
	}))
	require.NoError(t, idx.Delete(ctx, []string{"1"}))

	results, err := idx.Search(ctx, "ephemeral deletable marker phrase", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCombinedIndex_EmptyResultsFromBothEnginesReturnsEmpty(t *testing.T) {
	idx := newTestCombinedIndex(t)
	results, err := idx.Search(context.Background(), "nothing indexed yet", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
