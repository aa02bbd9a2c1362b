package store

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric sequences, preserving underscores so code
// identifiers inside memory content tokenize the same way they would in a
// source-aware index.
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// DefaultStopWords is the fixed 44-word stoplist used by the BM25 index.
var DefaultStopWords = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "when",
	"at", "by", "for", "with", "about", "against", "between", "into",
	"through", "during", "before", "after", "above", "below", "to",
	"from", "up", "down", "in", "out", "on", "off", "over", "under",
	"again", "further", "once", "is", "are", "was", "were", "be", "been",
	"being", "this", "that",
}

// DefaultCodeStopWords is the stoplist the FTS passthrough's code analyzer
// applies on top of lowercasing: language keywords and generic identifier
// fragments that show up in nearly every snippet a memory quotes and carry
// no retrieval signal on their own.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// TokenizeCode splits text with code-aware rules: camelCase/snake_case
// splitting, lowercasing, and filtering of sub-minimum-length fragments.
func TokenizeCode(text string) []string {
	var tokens []string
	for _, word := range tokenRegex.FindAllString(text, -1) {
		for _, t := range SplitCodeToken(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}
	return tokens
}

// SplitCodeToken splits snake_case then delegates each part to camelCase
// splitting.
func SplitCodeToken(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}
	return SplitCamelCase(token)
}

// SplitCamelCase splits camelCase and PascalCase identifiers, keeping runs
// of uppercase letters (acronyms) together.
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// FilterStopWords removes stop words from a token list.
func FilterStopWords(tokens []string, stopWords map[string]struct{}) []string {
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := stopWords[strings.ToLower(token)]; !isStop {
			result = append(result, token)
		}
	}
	return result
}

// BuildStopWordMap converts a slice of stop words into a lookup set.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// stemSuffixes lists the deterministic suffix-stripping rules, ordered
// longest-match-first so e.g. "tion" is tried before "s".
var stemSuffixes = []struct {
	suffix  string
	replace string
}{
	{"ational", "ate"},
	{"ization", "ize"},
	{"ness", ""},
	{"ment", ""},
	{"ssion", "ss"},
	{"ation", ""},
	{"tion", "t"},
	{"sion", "s"},
	{"ally", "al"},
	{"able", ""},
	{"ible", ""},
	{"ies", "i"},
	{"ful", ""},
	{"less", ""},
	{"ive", ""},
	{"ize", ""},
	{"ise", ""},
	{"ing", ""},
	{"ed", ""},
	{"es", ""},
	{"s", ""},
}

// Stem applies a deterministic suffix-stripping stemmer. Results are never
// shorter than two characters.
func Stem(token string) string {
	for _, rule := range stemSuffixes {
		if len(token) <= len(rule.suffix)+2 {
			continue
		}
		if strings.HasSuffix(token, rule.suffix) {
			stemmed := strings.TrimSuffix(token, rule.suffix) + rule.replace
			if len(stemmed) >= 2 {
				return stemmed
			}
		}
	}
	return token
}
