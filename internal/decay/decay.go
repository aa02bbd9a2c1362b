// Package decay centralizes the per-tier half-life table and popularity
// formula referenced by the ranking overlay in internal/rank and by
// store.Memory.EffectiveImportance.
package decay

import (
	"math"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// HalfLifeDays returns the decay half-life, in days, for a memory type.
// Meta-cognitive memories never decay.
func HalfLifeDays(t store.MemoryType) float64 {
	if t == store.MemoryMetaCognitive {
		return math.Inf(1)
	}
	if days, ok := store.DecayHalfLifeDays[t]; ok {
		return days
	}
	return 90 // store.Memory's own default half-life
}

// Applies reports whether decay should be applied to a memory at all:
// only normal/temporary tiers decay; pinned or constitutional memories are
// always excluded regardless of tier.
func Applies(m *store.Memory) bool {
	if m.IsPinned || m.ImportanceTier == store.TierConstitutional {
		return false
	}
	return m.ImportanceTier == store.TierNormal || m.ImportanceTier == store.TierTemporary
}

// popularitySaturationDivisor is chosen so the formula saturates near an
// access count of roughly 1000 (log10(1001)/3 ≈ 1.0003).
const popularitySaturationDivisor = 3

// Popularity maps an access count to a [0,1] popularity score using
// min(1, log10(count+1)/3), saturating around 1000 accesses.
func Popularity(accessCount int64) float64 {
	if accessCount <= 0 {
		return 0
	}
	score := math.Log10(float64(accessCount)+1) / popularitySaturationDivisor
	if score > 1 {
		return 1
	}
	return score
}
