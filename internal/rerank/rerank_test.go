package rerank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoOpReranker_PreservesOrder(t *testing.T) {
	r := NoOpReranker{}
	candidates := []Candidate{{ID: "a", Document: "alpha"}, {ID: "b", Document: "beta"}}
	results, err := r.Rerank(context.Background(), "q", candidates, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestNoOpReranker_RespectsTopK(t *testing.T) {
	r := NoOpReranker{}
	candidates := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	results, err := r.Rerank(context.Background(), "q", candidates, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestLocalReranker_RanksTermOverlapHigher(t *testing.T) {
	r := NewLocalReranker()
	candidates := []Candidate{
		{ID: "low", Document: "totally unrelated text about gardening"},
		{ID: "high", Document: "config database connection pooling guide"},
	}
	results, err := r.Rerank(context.Background(), "database connection config", candidates, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].ID)
}

func TestOrchestrator_CachesResults(t *testing.T) {
	o := NewOrchestrator(NewLocalReranker())
	candidates := []Candidate{{ID: "a", Document: "config database"}}

	first, err := o.Rerank(context.Background(), "database", candidates, 0)
	require.NoError(t, err)

	second, err := o.Rerank(context.Background(), "database", candidates, 0)
	require.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestOrchestrator_AutoDisablesAfterSlowWindow(t *testing.T) {
	slow := &slowReranker{delay: 10 * time.Millisecond}
	o := NewOrchestrator(slow, WithP95Budget(1*time.Millisecond))
	o.window = 3

	for i := 0; i < 3; i++ {
		candidates := []Candidate{{ID: "distinct", Document: "x"}}
		_, err := o.Rerank(context.Background(), "q"+string(rune('a'+i)), candidates, 0)
		require.NoError(t, err)
	}

	assert.True(t, o.isDisabled())
}

type slowReranker struct {
	delay time.Duration
}

func (s *slowReranker) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Result, error) {
	time.Sleep(s.delay)
	return NoOpReranker{}.Rerank(ctx, query, candidates, topK)
}

func (s *slowReranker) Available(_ context.Context) bool { return true }
func (s *slowReranker) Close() error                     { return nil }
