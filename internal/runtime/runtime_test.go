package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devalexanderdaza/memoryd/internal/memconfig"
	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// openTestRuntime builds a Runtime over an in-memory catalog (empty DBPath),
// allow-listing a temp directory so Save/IndexScan can write under it.
func openTestRuntime(t *testing.T) (*Runtime, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := memconfig.Default()
	cfg.DBPath = ""
	cfg.DBDir = ""
	cfg.AllowedPaths = []string{dir}

	rt, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt, dir
}

func TestRuntime_SaveThenSearchFindsMemoryByTitle(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()

	path := filepath.Join(dir, "auth.md")
	content := "# Auth overview\n\nJWT refresh tokens rotate every 15 minutes.\n"
	saved, err := rt.Save(ctx, SaveInput{Path: path, Content: content})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	result, err := rt.Search(ctx, SearchRequest{Query: "JWT refresh tokens", Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)

	found := false
	for _, r := range result.Results {
		if r.Memory.ID == saved[0].ID {
			found = true
		}
	}
	assert.True(t, found, "saved memory should be retrievable by its own trigger content")
}

func TestRuntime_Search_EmptyQueryReturnsQueryEmptyError(t *testing.T) {
	rt, _ := openTestRuntime(t)
	_, err := rt.Search(context.Background(), SearchRequest{})
	require.Error(t, err)
	assert.Equal(t, memerr.CodeQueryEmpty, memerr.Code(err))
}

func TestRuntime_Save_PathOutsideAllowListRejected(t *testing.T) {
	rt, _ := openTestRuntime(t)
	_, err := rt.Save(context.Background(), SaveInput{Path: "/etc/passwd", Content: "nope"})
	require.Error(t, err)
	assert.Equal(t, memerr.CodeMemoryPathNotAllowed, memerr.Code(err))
}

func TestRuntime_SaveIdempotent_UnchangedContentIsNoOp(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(dir, "note.md")
	content := "# Note\n\nSome durable fact about the build pipeline.\n"

	first, err := rt.Save(ctx, SaveInput{Path: path, Content: content})
	require.NoError(t, err)
	second, err := rt.Save(ctx, SaveInput{Path: path, Content: content})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].UpdatedAt, second[0].UpdatedAt)
}

func TestRuntime_UpdateContentReembedsAndReindexes(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(dir, "update.md")
	saved, err := rt.Save(ctx, SaveInput{Path: path, Content: "# Old\n\noriginal distinctive wording here.\n"})
	require.NoError(t, err)
	id := saved[0].ID

	newContent := "entirely different distinctive replacement wording"
	updated, err := rt.Update(ctx, id, UpdatePatch{Content: &newContent})
	require.NoError(t, err)
	assert.Equal(t, newContent, updated.Content)
	assert.NotEqual(t, saved[0].ContentHash, updated.ContentHash)

	result, err := rt.Search(ctx, SearchRequest{Query: "distinctive replacement wording", Limit: 5})
	require.NoError(t, err)
	foundUpdated := false
	for _, r := range result.Results {
		if r.Memory.ID == id {
			foundUpdated = true
		}
	}
	assert.True(t, foundUpdated)
}

func TestRuntime_DeleteRemovesFromSearch(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(dir, "gone.md")
	saved, err := rt.Save(ctx, SaveInput{Path: path, Content: "# Gone\n\nephemeral deletable marker phrase.\n"})
	require.NoError(t, err)
	id := saved[0].ID

	require.NoError(t, rt.Delete(ctx, id))

	_, err = rt.catalog.GetMemory(ctx, id)
	assert.Error(t, err)

	result, err := rt.Search(ctx, SearchRequest{Query: "ephemeral deletable marker phrase", Limit: 5})
	require.NoError(t, err)
	for _, r := range result.Results {
		assert.NotEqual(t, id, r.Memory.ID)
	}
}

func TestRuntime_MatchTriggers_ExactSubstringMatch(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(dir, "trig.md")
	content := "---\ntrigger_phrases: [\"database migration\"]\n---\n\n# Migrations\n\nRun migrations before deploy.\n"
	saved, err := rt.Save(ctx, SaveInput{Path: path, Content: content})
	require.NoError(t, err)
	require.Len(t, saved, 1)

	hits, err := rt.MatchTriggers(ctx, "remember to run the database migration before you deploy", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, saved[0].ID, hits[0].ID)
}

func TestRuntime_ConstitutionalResultsPrecedeGeneralResults(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "normal", sprintfIdx(i)+".md")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		_, err := rt.Save(ctx, SaveInput{Path: path, Content: "# Normal\n\nregular memory about routing tables " + sprintfIdx(i) + "\n"})
		require.NoError(t, err)
	}

	constPath := filepath.Join(dir, "const.md")
	constContent := "---\nimportance_tier: constitutional\n---\n\n# Always\n\nalways surface this core rule.\n"
	constSaved, err := rt.Save(ctx, SaveInput{Path: constPath, Content: constContent})
	require.NoError(t, err)
	require.Len(t, constSaved, 1)
	assert.Equal(t, store.TierConstitutional, constSaved[0].ImportanceTier)

	result, err := rt.Search(ctx, SearchRequest{Query: "routing tables", Limit: 10, IncludeConstitutional: true})
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)
	assert.True(t, result.Results[0].IsConstitutional)
	assert.Equal(t, constSaved[0].ID, result.Results[0].Memory.ID)
}

func TestRuntime_CheckpointRoundTrip(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "cp"+sprintfIdx(i)+".md")
		_, err := rt.Save(ctx, SaveInput{Path: path, Content: "# Mem " + sprintfIdx(i) + "\n\ncheckpoint content body " + sprintfIdx(i) + "\n"})
		require.NoError(t, err)
	}

	_, err := rt.CreateCheckpoint(ctx, "c1", "", "", nil)
	require.NoError(t, err)

	result, err := rt.RestoreCheckpoint(ctx, "c1", true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 3, result.EmbeddingsRestored)

	health, err := rt.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, health.TotalMemories)
}

func TestRuntime_Validate_NudgesConfidence(t *testing.T) {
	rt, dir := openTestRuntime(t)
	ctx := context.Background()
	path := filepath.Join(dir, "val.md")
	saved, err := rt.Save(ctx, SaveInput{Path: path, Content: "# Val\n\nvalidated memory content marker\n"})
	require.NoError(t, err)

	before := saved[0].Confidence
	conf, count, err := rt.Validate(ctx, saved[0].ID, true)
	require.NoError(t, err)
	assert.Greater(t, conf, before)
	assert.Equal(t, 1, count)
}

func sprintfIdx(i int) string {
	digits := "0123456789"
	if i < 10 {
		return string(digits[i])
	}
	return "x"
}
