package anchor

import (
	"context"
	"regexp"

	sitter "github.com/smacker/go-tree-sitter"
)

// Span is a byte range [Start, End) within content.
type Span struct {
	Start int
	End   int
}

// fencedCodeBlockPattern matches fenced code blocks for the markdown
// fallback scanner, so anchor markers inside fenced content are skipped.
var fencedCodeBlockPattern = regexp.MustCompile("(?s)```.*?```")

// Scanner locates the byte spans within which an ANCHOR marker match
// should be ignored as a false positive (inside a fenced code sample, or
// outside of a comment in a parsed source file).
type Scanner struct {
	registry *Registry
}

// NewScanner builds a Scanner over the default language registry.
func NewScanner() *Scanner {
	return &Scanner{registry: DefaultRegistry()}
}

// ExcludedSpans returns the byte ranges that anchor matching should treat
// as out of bounds for a file with the given extension.
//
// When a tree-sitter grammar is registered for ext, the excluded region is
// the complement of comment nodes (an ANCHOR marker only counts inside a
// comment). Otherwise, the excluded region is any fenced code block,
// matching the markdown fallback behavior.
func (s *Scanner) ExcludedSpans(ctx context.Context, content []byte, ext string) []Span {
	if lang, ok := s.registry.LanguageFor(ext); ok {
		if spans, ok := s.nonCommentSpans(ctx, content, lang); ok {
			return spans
		}
	}
	return fencedSpans(content)
}

func fencedSpans(content []byte) []Span {
	matches := fencedCodeBlockPattern.FindAllIndex(content, -1)
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		spans = append(spans, Span{Start: m[0], End: m[1]})
	}
	return spans
}

// nonCommentSpans parses content with the given grammar and returns the
// spans NOT covered by a comment node, i.e. where an anchor marker would be
// a false positive. Returns ok=false if parsing fails, signaling the caller
// to fall back to the regex scanner.
func (s *Scanner) nonCommentSpans(ctx context.Context, content []byte, lang *sitter.Language) ([]Span, bool) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return nil, false
	}

	var comments []Span
	collectCommentSpans(tree.RootNode(), &comments)

	return invert(comments, len(content)), true
}

func collectCommentSpans(node *sitter.Node, out *[]Span) {
	if node == nil {
		return
	}
	if node.Type() == "comment" {
		*out = append(*out, Span{Start: int(node.StartByte()), End: int(node.EndByte())})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectCommentSpans(node.Child(i), out)
	}
}

// invert returns the gaps between sorted, non-overlapping covered spans
// within [0, total).
func invert(covered []Span, total int) []Span {
	var gaps []Span
	cursor := 0
	for _, c := range covered {
		if c.Start > cursor {
			gaps = append(gaps, Span{Start: cursor, End: c.Start})
		}
		if c.End > cursor {
			cursor = c.End
		}
	}
	if cursor < total {
		gaps = append(gaps, Span{Start: cursor, End: total})
	}
	return gaps
}

// Contains reports whether pos falls within any span.
func Contains(spans []Span, pos int) bool {
	for _, s := range spans {
		if pos >= s.Start && pos < s.End {
			return true
		}
	}
	return false
}
