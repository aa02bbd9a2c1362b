package access

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulator_FlushesAtThreshold(t *testing.T) {
	var mu sync.Mutex
	var flushed map[int64]float64
	calls := 0

	a := NewAccumulator(func(_ context.Context, accumulated map[int64]float64) error {
		mu.Lock()
		defer mu.Unlock()
		flushed = accumulated
		calls++
		return nil
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		a.Track(ctx, 42)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls)
	assert.InDelta(t, 0.5, flushed[42], 0.001)
}

func TestAccumulator_IgnoresNonPositiveIDs(t *testing.T) {
	calls := 0
	a := NewAccumulator(func(_ context.Context, _ map[int64]float64) error {
		calls++
		return nil
	})
	a.Track(context.Background(), 0)
	a.Track(context.Background(), -1)
	assert.Equal(t, 0, calls)
}

func TestAccumulator_ExplicitFlushClearsPending(t *testing.T) {
	var got map[int64]float64
	a := NewAccumulator(func(_ context.Context, accumulated map[int64]float64) error {
		got = accumulated
		return nil
	})

	ctx := context.Background()
	a.Track(ctx, 7)
	a.Flush(ctx)

	require.NotNil(t, got)
	assert.InDelta(t, 0.1, got[7], 0.001)

	got = nil
	a.Flush(ctx)
	assert.Nil(t, got)
}

func TestAccumulator_FlushErrorIsLoggedNotPanicked(t *testing.T) {
	a := NewAccumulator(func(_ context.Context, _ map[int64]float64) error {
		return assert.AnError
	})
	ctx := context.Background()
	a.Track(ctx, 1)
	assert.NotPanics(t, func() { a.Flush(ctx) })
}
