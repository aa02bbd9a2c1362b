package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpander_ExpandsExactAcronym(t *testing.T) {
	e := NewExpander()
	out := e.Expand("db connection")
	assert.Contains(t, out, "db")
	assert.Contains(t, out, "database")
}

func TestExpander_StopWordGuardsFalseAcronymHit(t *testing.T) {
	e := NewExpander()
	out := e.Expand("not working")
	assert.NotContains(t, out, "HOT")
}

func TestExpander_TypoCorrection(t *testing.T) {
	e := NewExpander()
	out := e.Expand("fucntion name")
	assert.Contains(t, out, "function")
}

func TestExpander_ShortTermsSkipExpansion(t *testing.T) {
	e := NewExpander()
	out := e.ExpandToTerms("a go")
	assert.Contains(t, out, "a")
	assert.Contains(t, out, "go")
}

func TestLevenshtein_EarlyExitOnLengthDelta(t *testing.T) {
	assert.Greater(t, levenshtein("a", "abcdef", 2), 2)
}

func TestLevenshtein_ExactMatch(t *testing.T) {
	assert.Equal(t, 0, levenshtein("config", "config", 2))
}

func TestClassifier_FixBugIntent(t *testing.T) {
	c := NewClassifier()
	result := c.Classify("fix the crash when parsing config")
	assert.Equal(t, IntentFixBug, result.Intent)
	assert.GreaterOrEqual(t, result.Confidence, classifyThreshold)
}

func TestClassifier_SecurityAuditIntent(t *testing.T) {
	c := NewClassifier()
	result := c.Classify("audit this code for a SQL injection vulnerability")
	assert.Equal(t, IntentSecurityAudit, result.Intent)
}

func TestClassifier_FallsBackToUnderstand(t *testing.T) {
	c := NewClassifier()
	result := c.Classify("xyz qqq zzz")
	assert.Equal(t, IntentUnderstand, result.Intent)
	assert.Less(t, result.Confidence, classifyThreshold)
}

func TestClassifier_CachesByNormalizedQuery(t *testing.T) {
	c := NewClassifier()
	first := c.Classify("  Fix The Bug  ")
	second := c.Classify("fix the bug")
	assert.Equal(t, first.Intent, second.Intent)
}

func TestWeightsFor_FixBugReplacesDefaults(t *testing.T) {
	w, ok := WeightsFor(IntentFixBug)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, w.Similarity+w.Recency+w.Popularity, 0.01)
}
