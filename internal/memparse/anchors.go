package memparse

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/devalexanderdaza/memoryd/internal/anchor"
)

var (
	anchorIDPattern  = regexp.MustCompile(`^[A-Za-z0-9][-A-Za-z0-9]*$`)
	anchorTagPattern = regexp.MustCompile(`(?i)<!--\s*(/?)ANCHOR:(\S+?)\s*-->`)
	anchorScanner    = anchor.NewScanner()
)

// extractAnchors scans content for `<!-- ANCHOR:id -->` ... `<!-- /ANCHOR:id -->`
// pairs, returning the text between each matched pair keyed by id.
// Unmatched markers degrade to a warning rather than failing the parse.
// Markers that fall inside a fenced code block (a memory quoting the anchor
// syntax itself as an example) are ignored rather than treated as real
// boundaries; path supplies the extension the scanner uses to pick a
// tree-sitter grammar, falling back to the fenced-code-block regex for
// extensions with none registered, which covers every markdown memory file.
func extractAnchors(path, content string) (map[string]string, []string) {
	anchors := make(map[string]string)
	var warnings []string

	excluded := anchorScanner.ExcludedSpans(context.Background(), []byte(content), filepath.Ext(path))

	type openMarker struct {
		id  string
		pos int // position just after the opening tag
	}
	var stack []openMarker

	matches := anchorTagPattern.FindAllStringSubmatchIndex(content, -1)
	for _, m := range matches {
		if anchor.Contains(excluded, m[0]) {
			continue
		}

		closing := content[m[2]:m[3]] == "/"
		id := content[m[4]:m[5]]

		if !anchorIDPattern.MatchString(id) {
			warnings = append(warnings, fmt.Sprintf("anchor id %q does not match the required pattern, skipped", id))
			continue
		}

		if !closing {
			stack = append(stack, openMarker{id: id, pos: m[1]})
			continue
		}

		// Closing marker: must match the most recently opened anchor with
		// the same id.
		matched := false
		for i := len(stack) - 1; i >= 0; i-- {
			if strings.EqualFold(stack[i].id, id) {
				anchors[stack[i].id] = content[stack[i].pos:m[0]]
				stack = append(stack[:i], stack[i+1:]...)
				matched = true
				break
			}
		}
		if !matched {
			warnings = append(warnings, fmt.Sprintf("closing anchor marker %q has no matching opening marker", id))
		}
	}

	for _, open := range stack {
		warnings = append(warnings, fmt.Sprintf("anchor %q was never closed", open.id))
	}

	return anchors, warnings
}
