package embedding

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveDimension_KnownProviders(t *testing.T) {
	assert.Equal(t, 1024, ResolveDimension("voyage"))
	assert.Equal(t, 1024, ResolveDimension("Voyage"))
	assert.Equal(t, 1536, ResolveDimension("openai"))
	assert.Equal(t, 768, ResolveDimension("hf-local"))
	assert.Equal(t, 768, ResolveDimension(""))
}

func TestStaticProvider_DeterministicAcrossCalls(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()

	v1, err := p.Embed(ctx, "fix login crash after update")
	require.NoError(t, err)
	v2, err := p.Embed(ctx, "fix login crash after update")
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, StaticDimensions, len(v1))
}

func TestStaticProvider_EmptyTextReturnsZeroVector(t *testing.T) {
	p := NewStaticProvider()
	v, err := p.Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestStaticProvider_OutputIsL2Normalized(t *testing.T) {
	p := NewStaticProvider()
	v, err := p.Embed(context.Background(), "hybrid search reciprocal rank fusion")
	require.NoError(t, err)

	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 0.001)
}

func TestStaticProvider_DifferentTextsDiffer(t *testing.T) {
	p := NewStaticProvider()
	ctx := context.Background()
	v1, err := p.Embed(ctx, "database migration rollback")
	require.NoError(t, err)
	v2, err := p.Embed(ctx, "user authentication token refresh")
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)
}

func TestStaticProvider_ClosedRejectsEmbed(t *testing.T) {
	p := NewStaticProvider()
	require.NoError(t, p.Close())
	_, err := p.Embed(context.Background(), "anything")
	assert.Error(t, err)
}

func TestStaticProvider_NameAndDimension(t *testing.T) {
	p := NewStaticProvider()
	assert.Equal(t, "static", p.Name())
	assert.Equal(t, StaticDimensions, p.Dimension())
}
