package memcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

func TestConstitutionalCache_LoadsOnce(t *testing.T) {
	calls := 0
	loader := func(_ context.Context) ([]*store.Memory, error) {
		calls++
		return []*store.Memory{{ID: 1, Content: "always surface this"}}, nil
	}

	c := NewConstitutionalCache(loader, "")
	_, err := c.Get(context.Background())
	require.NoError(t, err)
	_, err = c.Get(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestConstitutionalCache_InvalidateForcesReload(t *testing.T) {
	calls := 0
	loader := func(_ context.Context) ([]*store.Memory, error) {
		calls++
		return []*store.Memory{{ID: int64(calls)}}, nil
	}

	c := NewConstitutionalCache(loader, "")
	first, _ := c.Get(context.Background())
	c.Invalidate()
	second, _ := c.Get(context.Background())

	assert.NotEqual(t, first[0].ID, second[0].ID)
}

func TestConstitutionalCache_ReloadsOnMtimeChange(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	require.NoError(t, writeFile(dbPath, "v1"))

	calls := 0
	loader := func(_ context.Context) ([]*store.Memory, error) {
		calls++
		return []*store.Memory{{ID: int64(calls)}}, nil
	}

	c := NewConstitutionalCache(loader, dbPath)
	_, err := c.Get(context.Background())
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, writeFile(dbPath, "v2 longer content to bump mtime"))

	_, err = c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBudgeted_AlwaysIncludesFirstOversizedMemory(t *testing.T) {
	huge := &store.Memory{ID: 1, Content: stringOfLen(tokenBudget * charsPerToken * 2)}
	result, truncated := Budgeted([]*store.Memory{huge})
	assert.True(t, truncated)
	require.Len(t, result, 1)
	assert.Equal(t, int64(1), result[0].ID)
}

func TestBudgeted_StopsAtMemoryCountCap(t *testing.T) {
	var memories []*store.Memory
	for i := 0; i < memoryBudget+5; i++ {
		memories = append(memories, &store.Memory{ID: int64(i), Content: "short"})
	}
	result, truncated := Budgeted(memories)
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(result), memoryBudget)
}

func TestQueryCache_SetAndGet(t *testing.T) {
	c := NewQueryCache[string](10)
	c.Set("k", "v")
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestQueryCache_MissForUnknownKey(t *testing.T) {
	c := NewQueryCache[string](10)
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
