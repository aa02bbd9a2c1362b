package decay

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

func TestHalfLifeDays_MatchesSpecTable(t *testing.T) {
	cases := map[store.MemoryType]float64{
		store.MemoryWorking:          1,
		store.MemoryEpisodic:         7,
		store.MemoryProspective:      14,
		store.MemoryImplicit:         30,
		store.MemoryDeclarative:      60,
		store.MemoryProcedural:       90,
		store.MemorySemantic:         180,
		store.MemoryAutobiographical: 365,
	}
	for typ, want := range cases {
		assert.Equal(t, want, HalfLifeDays(typ), typ)
	}
}

func TestHalfLifeDays_MetaCognitiveNeverDecays(t *testing.T) {
	assert.True(t, math.IsInf(HalfLifeDays(store.MemoryMetaCognitive), 1))
}

func TestApplies_OnlyNormalAndTemporaryTiers(t *testing.T) {
	assert.True(t, Applies(&store.Memory{ImportanceTier: store.TierNormal}))
	assert.True(t, Applies(&store.Memory{ImportanceTier: store.TierTemporary}))
	assert.False(t, Applies(&store.Memory{ImportanceTier: store.TierCritical}))
	assert.False(t, Applies(&store.Memory{ImportanceTier: store.TierNormal, IsPinned: true}))
	assert.False(t, Applies(&store.Memory{ImportanceTier: store.TierConstitutional}))
}

func TestPopularity_SaturatesNearOneThousand(t *testing.T) {
	assert.InDelta(t, 1.0, Popularity(1000), 0.01)
	assert.Less(t, Popularity(10), Popularity(1000))
	assert.Equal(t, 0.0, Popularity(0))
}
