package rank

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyScore_Buckets(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 1.0, recencyScore(now.Add(-3*24*time.Hour), now))
	assert.Equal(t, 0.8, recencyScore(now.Add(-10*24*time.Hour), now))
	assert.Equal(t, 0.5, recencyScore(now.Add(-90*24*time.Hour), now))
}

func TestPopularityScore_CapsAtOne(t *testing.T) {
	assert.Equal(t, 0.3, popularityScore(3))
	assert.Equal(t, 1.0, popularityScore(50))
}

func TestSmartRanker_Score_WeightsSumCorrectly(t *testing.T) {
	s := NewSmartRanker()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	r := Rankable{Similarity: 1.0, UpdatedAt: now, AccessCount: 10}
	assert.InDelta(t, 1.0, s.Score(r, now), 1e-9)
}

func TestSmartRanker_Rank_OrdersByCompositeThenImportanceThenID(t *testing.T) {
	s := NewSmartRanker()
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	items := []Rankable{
		{ID: 2, Similarity: 0.5, UpdatedAt: now, AccessCount: 0},
		{ID: 1, Similarity: 0.9, UpdatedAt: now, AccessCount: 10},
	}
	ranked := s.Rank(items, now)
	assert.Equal(t, int64(1), ranked[0].ID)
}

func TestLengthPenalty_ClampedRange(t *testing.T) {
	assert.Equal(t, 0.8, LengthPenalty(0))
	assert.Equal(t, 1.0, LengthPenalty(100))
	assert.Equal(t, 1.0, LengthPenalty(500))
	assert.InDelta(t, 0.9, LengthPenalty(50), 1e-9)
}
