// Package anchor locates ANCHOR marker boundaries in memory content while
// avoiding false positives inside fenced code blocks. For languages with a
// registered tree-sitter grammar, code spans are derived from the AST;
// otherwise (markdown, the common case for memory files) a regex-based
// fenced-code-block scan is used instead.
package anchor

import (
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Registry resolves a file extension to a tree-sitter grammar, mirroring
// the source chunker's own language table.
type Registry struct {
	mu        sync.RWMutex
	extToLang map[string]*sitter.Language
}

// DefaultRegistry registers the grammars available in the dependency set.
// Markdown has no registered grammar here: markdown content always takes
// the regex fallback path in Scan.
func DefaultRegistry() *Registry {
	r := &Registry{extToLang: make(map[string]*sitter.Language)}
	r.extToLang[".go"] = golang.GetLanguage()
	r.extToLang[".js"] = javascript.GetLanguage()
	r.extToLang[".jsx"] = javascript.GetLanguage()
	r.extToLang[".ts"] = typescript.GetLanguage()
	r.extToLang[".tsx"] = tsx.GetLanguage()
	r.extToLang[".py"] = python.GetLanguage()
	return r
}

// LanguageFor returns the grammar registered for a file extension, if any.
func (r *Registry) LanguageFor(ext string) (*sitter.Language, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lang, ok := r.extToLang[strings.ToLower(ext)]
	return lang, ok
}
