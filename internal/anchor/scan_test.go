package anchor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExcludedSpans_MarkdownMasksFencedBlocks(t *testing.T) {
	s := NewScanner()
	content := []byte("intro\n```go\n<!-- ANCHOR:example -->\n```\nmore text")
	spans := s.ExcludedSpans(context.Background(), content, ".md")

	fenceStart := 6
	assert.True(t, Contains(spans, fenceStart+1))
}

func TestExcludedSpans_GoSourceExcludesNonComments(t *testing.T) {
	s := NewScanner()
	content := []byte("package main\n\n// ANCHOR:id\nfunc main() {}\n")
	spans := s.ExcludedSpans(context.Background(), content, ".go")

	// "package main" sits outside any comment and should be excluded.
	assert.True(t, Contains(spans, 2))
}

func TestContains_EmptySpans(t *testing.T) {
	assert.False(t, Contains(nil, 5))
}
