// Package memparse implements the memory-file parsing contract: turning a
// path plus file content into the structured fields a catalog entry needs
// (title, trigger phrases, context/memory type, anchors), independent of
// how the catalog stores them.
package memparse

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterPattern = regexp.MustCompile(`(?s)^---\n(.*?)\n---\n*`)

// frontmatter is the subset of YAML frontmatter keys memparse recognizes.
// Unknown keys are ignored; yaml.v3 already does this by default when
// unmarshaling into a concrete struct.
type frontmatter struct {
	Title          string   `yaml:"title"`
	ContextType    string   `yaml:"context_type"`
	ImportanceTier string   `yaml:"importance_tier"`
	MemoryType     string   `yaml:"memory_type"`
	TriggerPhrases []string `yaml:"trigger_phrases"`
}

// extractFrontmatter splits leading YAML frontmatter off content, returning
// the parsed fields (zero value if absent or malformed) and the remaining
// body. A malformed frontmatter block is treated as absent rather than
// fatal: parsing degrades, it never blocks indexing.
func extractFrontmatter(content string) (fm frontmatter, raw, body string) {
	match := frontmatterPattern.FindStringSubmatch(content)
	if match == nil {
		return frontmatter{}, "", content
	}

	if err := yaml.Unmarshal([]byte(match[1]), &fm); err != nil {
		return frontmatter{}, "", content
	}

	body = strings.TrimPrefix(content, match[0])
	return fm, match[1], body
}
