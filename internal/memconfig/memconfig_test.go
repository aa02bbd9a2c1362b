package memconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_MatchesSmartRankingWeights(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.5, cfg.Weights.SmartRanking.RelevanceWeight)
	assert.Equal(t, 0.3, cfg.Weights.SmartRanking.RecencyWeight)
	assert.Equal(t, 0.2, cfg.Weights.SmartRanking.AccessWeight)
}

func TestStripJSONComments_RemovesLineAndBlockComments(t *testing.T) {
	src := []byte(`{
  // line comment
  "a": 1, /* block
  comment */ "b": "text // not a comment"
}`)
	out := stripJSONComments(src)
	assert.Contains(t, string(out), `"b": "text // not a comment"`)
	assert.NotContains(t, string(out), "line comment")
	assert.NotContains(t, string(out), "block")
}

func TestLoadWeightsFile_AppliesOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search-weights.json")
	content := `{
  // custom weights
  "smartRanking": { "relevanceWeight": 0.7, "recencyWeight": 0.2, "accessWeight": 0.1 },
  "maxTriggersPerMemory": 5
}`
	require.NoError(t, writeFile(path, content))

	weights, err := loadWeightsFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.7, weights.SmartRanking.RelevanceWeight)
	assert.Equal(t, 5, weights.MaxTriggersPerMemory)
}

func TestLoadWeightsFile_InvalidJSONFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "search-weights.json")
	require.NoError(t, writeFile(path, "{not valid json"))

	weights, err := loadWeightsFile(path)
	require.Error(t, err)
	assert.Equal(t, Default().Weights, weights)
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("MEMORY_DB_PATH", "/tmp/custom.sqlite")
	t.Setenv("ENABLE_BM25", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.sqlite", cfg.DBPath)
	assert.False(t, cfg.EnableBM25)
}

func TestLoad_AllowedPathsIncludesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Contains(t, cfg.AllowedPaths, "./specs/")
	assert.Contains(t, cfg.AllowedPaths, "./.opencode/")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
