package memparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

func TestParse_ExtractsFrontmatterFields(t *testing.T) {
	content := []byte(`---
title: Auth flow
context_type: decision
importance_tier: critical
trigger_phrases:
  - login flow
  - auth design
---

# Auth flow

Some content.
`)

	r := Parse("specs/auth/design.md", content, time.Now(), Options{})

	assert.Equal(t, "Auth flow", r.Title)
	assert.Equal(t, store.ContextDecision, r.ContextType)
	assert.Equal(t, store.TierCritical, r.ImportanceTier)
	assert.ElementsMatch(t, []string{"login flow", "auth design"}, r.TriggerPhrases)
	assert.Equal(t, "auth", r.SpecFolder)
}

func TestParse_AnchorsExtractedAndBalanced(t *testing.T) {
	content := []byte("intro\n<!-- ANCHOR:intro -->\nbody text\n<!-- /ANCHOR:intro -->\ntrailer")
	r := Parse("specs/x/a.md", content, time.Now(), Options{})

	require.Contains(t, r.Anchors, "intro")
	assert.Contains(t, r.Anchors["intro"], "body text")
	assert.Empty(t, r.Warnings)
}

func TestParse_UnmatchedAnchorProducesWarningNotFailure(t *testing.T) {
	content := []byte("<!-- ANCHOR:orphan -->\nbody")
	r := Parse("specs/x/a.md", content, time.Now(), Options{})

	assert.NotEmpty(t, r.Warnings)
}

func TestParse_InvalidAnchorIDSkippedWithWarning(t *testing.T) {
	content := []byte("<!-- ANCHOR:-bad -->\nbody\n<!-- /ANCHOR:-bad -->")
	r := Parse("specs/x/a.md", content, time.Now(), Options{})

	assert.Empty(t, r.Anchors)
	assert.NotEmpty(t, r.Warnings)
}

func TestParse_AnchorMarkerInsideFencedCodeBlockIgnored(t *testing.T) {
	content := []byte("# Anchor syntax\n\nHere's how anchors look:\n\n```markdown\n<!-- ANCHOR:example -->\nsample body\n<!-- /ANCHOR:example -->\n```\n\ntrailer")
	r := Parse("specs/x/a.md", content, time.Now(), Options{})

	assert.Empty(t, r.Anchors, "a marker quoted inside a fenced code sample should not be treated as a real anchor boundary")
	assert.Empty(t, r.Warnings)
}

func TestParse_MemoryTypeInferenceFrontmatterWins(t *testing.T) {
	content := []byte(`---
memory_type: procedural
importance_tier: critical
---
body`)
	r := Parse("specs/x/a.md", content, time.Now(), Options{})
	assert.Equal(t, store.MemoryProcedural, r.MemoryType)
	assert.Equal(t, 1.0, r.TypeConfidence)
}

func TestParse_MemoryTypeInferenceFallsBackToTier(t *testing.T) {
	content := []byte(`---
importance_tier: critical
---
body`)
	r := Parse("specs/x/a.md", content, time.Now(), Options{})
	assert.Equal(t, store.MemoryProcedural, r.MemoryType)
	assert.Equal(t, 0.9, r.TypeConfidence)
}

func TestParse_MemoryTypeInferenceDefaultsToDeclarative(t *testing.T) {
	content := []byte("no frontmatter, no keywords here")
	r := Parse("specs/x/a.md", content, time.Now(), Options{})
	assert.Equal(t, store.MemoryDeclarative, r.MemoryType)
	assert.Equal(t, 0.5, r.TypeConfidence)
}

func TestParse_TriggerPhrasesFromMarkdownSection(t *testing.T) {
	content := []byte(`# Title

## Trigger Phrases
- deploy pipeline
- release process

## Other Section
not a trigger
`)
	r := Parse("specs/x/a.md", content, time.Now(), Options{})
	assert.Contains(t, r.TriggerPhrases, "deploy pipeline")
	assert.Contains(t, r.TriggerPhrases, "release process")
	assert.NotContains(t, r.TriggerPhrases, "not a trigger")
}

func TestParse_ContentHashIsDeterministic(t *testing.T) {
	content := []byte("identical content")
	r1 := Parse("a.md", content, time.Now(), Options{})
	r2 := Parse("a.md", content, time.Now(), Options{})
	assert.Equal(t, r1.ContentHash, r2.ContentHash)
}
