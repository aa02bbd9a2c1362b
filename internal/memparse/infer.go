package memparse

import (
	"path/filepath"
	"strings"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// tierToMemoryType maps an explicit importance tier to its most likely
// memory type, used at inference confidence 0.9 when frontmatter doesn't
// say so directly.
var tierToMemoryType = map[store.ImportanceTier]store.MemoryType{
	store.TierConstitutional: store.MemoryMetaCognitive,
	store.TierCritical:       store.MemoryProcedural,
	store.TierImportant:      store.MemoryDeclarative,
	store.TierTemporary:      store.MemoryWorking,
}

// pathPatternMemoryTypes maps a path substring to a memory type, applied at
// confidence 0.8.
var pathPatternMemoryTypes = []struct {
	substr string
	typ    store.MemoryType
}{
	{"/decisions/", store.MemoryEpisodic},
	{"/adr/", store.MemoryEpisodic},
	{"/runbooks/", store.MemoryProcedural},
	{"/howto/", store.MemoryProcedural},
	{"/todo/", store.MemoryProspective},
	{"/plans/", store.MemoryProspective},
	{"/glossary/", store.MemorySemantic},
	{"/concepts/", store.MemorySemantic},
	{"/journal/", store.MemoryAutobiographical},
	{"/retro/", store.MemoryAutobiographical},
}

// keywordMemoryTypes maps a body keyword to a memory type, applied at
// confidence 0.7 as the last heuristic before the declarative default.
var keywordMemoryTypes = []struct {
	keyword string
	typ     store.MemoryType
}{
	{"step 1", store.MemoryProcedural},
	{"run the following", store.MemoryProcedural},
	{"todo:", store.MemoryProspective},
	{"next step", store.MemoryProspective},
	{"we learned", store.MemoryEpisodic},
	{"in retrospect", store.MemoryEpisodic},
}

// InferredType is the result of memory-type inference, carrying the
// confidence of the rule that produced it.
type InferredType struct {
	Type       store.MemoryType
	Confidence float64
}

// inferMemoryType applies the precedence ladder: explicit frontmatter (1.0)
// > tier mapping (0.9) > path pattern (0.8) > keyword heuristic (0.7) >
// default declarative (0.5).
func inferMemoryType(fm frontmatter, path string, body string, tier store.ImportanceTier) InferredType {
	if fm.MemoryType != "" {
		return InferredType{Type: store.MemoryType(fm.MemoryType), Confidence: 1.0}
	}

	if typ, ok := tierToMemoryType[tier]; ok {
		return InferredType{Type: typ, Confidence: 0.9}
	}

	lowerPath := strings.ToLower(filepath.ToSlash(path))
	for _, rule := range pathPatternMemoryTypes {
		if strings.Contains(lowerPath, rule.substr) {
			return InferredType{Type: rule.typ, Confidence: 0.8}
		}
	}

	lowerBody := strings.ToLower(body)
	for _, rule := range keywordMemoryTypes {
		if strings.Contains(lowerBody, rule.keyword) {
			return InferredType{Type: rule.typ, Confidence: 0.7}
		}
	}

	return InferredType{Type: store.MemoryDeclarative, Confidence: 0.5}
}
