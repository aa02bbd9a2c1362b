package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiversifier_KeepsTopResultFirst(t *testing.T) {
	d := NewDiversifier()
	items := []DiversifyItem{
		{ID: 1, Relevance: 1.0, SpecFolder: "auth"},
		{ID: 2, Relevance: 0.9, SpecFolder: "auth"},
		{ID: 3, Relevance: 0.8, SpecFolder: "billing"},
	}
	out := d.Diversify(items, 3)
	require.Len(t, out, 3)
	assert.Equal(t, int64(1), out[0].ID)
}

func TestDiversifier_PenalizesSameFolderDuplicates(t *testing.T) {
	d := NewDiversifier()
	items := []DiversifyItem{
		{ID: 1, Relevance: 1.0, SpecFolder: "auth"},
		{ID: 2, Relevance: 0.95, SpecFolder: "auth"},
		{ID: 3, Relevance: 0.8, SpecFolder: "billing"},
	}
	out := d.Diversify(items, 2)
	require.Len(t, out, 2)
	// item 3, despite lower raw relevance, should beat item 2 once the
	// same-folder penalty (0.8*lambda) is applied against item 1.
	assert.Equal(t, int64(3), out[1].ID)
}

func TestDiversifier_LimitClampedToInputLength(t *testing.T) {
	d := NewDiversifier()
	items := []DiversifyItem{{ID: 1, Relevance: 1.0}}
	out := d.Diversify(items, 10)
	assert.Len(t, out, 1)
}
