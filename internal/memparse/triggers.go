package memparse

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	maxTriggerPhraseLen = 200
	defaultMaxTriggers  = 20
)

var triggerSectionPattern = regexp.MustCompile(`(?mis)^##\s+Trigger Phrases\s*\n(.*?)(\n##\s|\z)`)

// triggerInlinePattern matches `trigger_phrases: a, b, c` style inline YAML
// scalars that aren't valid block sequences.
var triggerInlinePattern = regexp.MustCompile(`(?m)^trigger_phrases:\s*\[(.*?)\]\s*$`)

// extractTriggerPhrases pulls trigger phrases from, in precedence order:
// frontmatter (already a []string via YAML block or flow sequence), an
// inline flow-scalar fallback, and a "## Trigger Phrases" markdown section.
// Phrases are trimmed, length-bounded, and deduplicated, capped at max.
func extractTriggerPhrases(fm frontmatter, frontmatterRaw, body string, max int) []string {
	if max <= 0 {
		max = defaultMaxTriggers
	}

	var phrases []string
	phrases = append(phrases, fm.TriggerPhrases...)

	if len(phrases) == 0 {
		if m := triggerInlinePattern.FindStringSubmatch(frontmatterRaw); m != nil {
			var inline []string
			if err := yaml.Unmarshal([]byte("["+m[1]+"]"), &inline); err == nil {
				phrases = append(phrases, inline...)
			}
		}
	}

	if m := triggerSectionPattern.FindStringSubmatch(body); m != nil {
		for _, line := range strings.Split(m[1], "\n") {
			line = strings.TrimSpace(line)
			line = strings.TrimPrefix(line, "- ")
			line = strings.TrimPrefix(line, "* ")
			if line != "" {
				phrases = append(phrases, line)
			}
		}
	}

	return normalizeTriggerPhrases(phrases, max)
}

func normalizeTriggerPhrases(phrases []string, max int) []string {
	seen := make(map[string]bool, len(phrases))
	var out []string
	for _, p := range phrases {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(p) > maxTriggerPhraseLen {
			p = p[:maxTriggerPhraseLen]
		}
		key := strings.ToLower(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
		if len(out) >= max {
			break
		}
	}
	return out
}
