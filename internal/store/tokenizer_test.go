package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCamelCase(t *testing.T) {
	cases := map[string][]string{
		"getUserID":   {"get", "User", "ID"},
		"HTTPRequest": {"HTTP", "Request"},
		"simple":      {"simple"},
		"":            {},
	}
	for input, want := range cases {
		assert.Equal(t, want, SplitCamelCase(input), "input=%q", input)
	}
}

func TestSplitCodeToken_SnakeCase(t *testing.T) {
	assert.Equal(t, []string{"user", "id"}, SplitCodeToken("user_id"))
	assert.Equal(t, []string{"max", "Retry", "Count"}, SplitCodeToken("max_RetryCount"))
}

func TestTokenizeCode_LowercasesAndDropsShortFragments(t *testing.T) {
	tokens := TokenizeCode("getUserID() returns a Value")
	assert.Contains(t, tokens, "get")
	assert.Contains(t, tokens, "user")
	assert.Contains(t, tokens, "id")
	assert.NotContains(t, tokens, "a")
}

func TestFilterStopWords(t *testing.T) {
	stop := BuildStopWordMap(DefaultStopWords)
	in := []string{"the", "quick", "fox", "is", "fast"}
	out := FilterStopWords(in, stop)
	assert.Equal(t, []string{"quick", "fox", "fast"}, out)
}

func TestStem_NeverShorterThanTwoChars(t *testing.T) {
	cases := map[string]string{
		"running":        "runn",
		"happiness":      "happi",
		"ies":            "ies",
		"cats":           "cat",
		"implementation": "implement",
		"refactoring":    "refactor",
	}
	for in, want := range cases {
		got := Stem(in)
		assert.Equal(t, want, got, "input=%q", in)
		assert.GreaterOrEqual(t, len(got), 2)
	}
}

func TestStem_ShortTokensUnchanged(t *testing.T) {
	assert.Equal(t, "id", Stem("id"))
	assert.Equal(t, "go", Stem("go"))
}
