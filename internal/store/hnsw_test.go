package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}

func TestHNSWStore_AddAndSearchFindsNearest(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []int64{1, 2, 3}, [][]float32{
		unitVector(8, 0),
		unitVector(8, 1),
		unitVector(8, 2),
	}))

	results, err := s.Search(ctx, unitVector(8, 0), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].ID)
}

func TestHNSWStore_DimensionMismatchRejected(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	ctx := context.Background()

	err = s.Add(ctx, []int64{1}, [][]float32{unitVector(4, 0)})
	require.Error(t, err)
	assert.IsType(t, ErrDimensionMismatch{}, err)

	_, err = s.Search(ctx, unitVector(4, 0), 1)
	require.Error(t, err)
	assert.IsType(t, ErrDimensionMismatch{}, err)
}

func TestHNSWStore_ReplaceOrphansOldKeyNotNewID(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []int64{1}, [][]float32{unitVector(8, 0)}))
	require.NoError(t, s.Add(ctx, []int64{1}, [][]float32{unitVector(8, 3)}))

	assert.Equal(t, 1, s.Count())
	assert.True(t, s.Contains(1))

	stats := s.Stats()
	assert.Equal(t, 1, stats.ValidIDs)
	assert.Equal(t, 1, stats.Orphans)
}

func TestHNSWStore_DeleteRemovesFromLiveSet(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, []int64{1, 2}, [][]float32{unitVector(8, 0), unitVector(8, 1)}))
	require.NoError(t, s.Delete(ctx, []int64{1}))

	assert.False(t, s.Contains(1))
	assert.True(t, s.Contains(2))
	assert.Equal(t, 1, s.Count())
}

func TestHNSWStore_SearchOnEmptyGraphReturnsEmpty(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	results, err := s.Search(context.Background(), unitVector(8, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHNSWStore_ClosedStoreRejectsOperations(t *testing.T) {
	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.Error(t, s.Add(ctx, []int64{1}, [][]float32{unitVector(8, 0)}))
	_, err = s.Search(ctx, unitVector(8, 0), 1)
	assert.Error(t, err)
	assert.Error(t, s.Delete(ctx, []int64{1}))
	assert.Equal(t, 0, s.Count())
	assert.False(t, s.Contains(1))
}

func TestHNSWStore_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.Add(ctx, []int64{10, 20}, [][]float32{unitVector(8, 0), unitVector(8, 1)}))
	require.NoError(t, s.Save(path))

	_, err = os.Stat(path)
	require.NoError(t, err)
	_, err = os.Stat(path + ".meta")
	require.NoError(t, err)

	loaded, err := NewHNSWStore(DefaultVectorStoreConfig(8))
	require.NoError(t, err)
	require.NoError(t, loaded.Load(path))

	assert.True(t, loaded.Contains(10))
	assert.True(t, loaded.Contains(20))
	assert.Equal(t, 2, loaded.Count())
}
