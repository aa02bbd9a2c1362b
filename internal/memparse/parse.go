package memparse

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// Options tunes a single Parse call.
type Options struct {
	// MaxTriggerPhrases caps the number of trigger phrases kept.
	MaxTriggerPhrases int
}

// Result is the parsing contract's output: everything the catalog needs to
// index one memory per (spec_folder, file_path, anchor_id).
type Result struct {
	SpecFolder      string
	Title           string
	TriggerPhrases  []string
	ContextType     store.ContextType
	ImportanceTier  store.ImportanceTier
	MemoryType      store.MemoryType
	TypeConfidence  float64
	ContentHash     string
	Content         string
	FileSize        int64
	LastModified    time.Time
	Anchors         map[string]string
	Warnings        []string
}

// Parse implements the parsing contract for a single memory file. path is
// assumed to already be validated against the allow-listed read roots by
// the caller; Parse itself performs no filesystem access.
func Parse(path string, content []byte, modTime time.Time, opts Options) Result {
	text := string(content)
	fm, frontmatterRaw, body := extractFrontmatter(text)

	anchors, warnings := extractAnchors(path, body)

	tier := store.ImportanceTier(fm.ImportanceTier)
	if tier == "" {
		tier = store.TierNormal
	}

	inferred := inferMemoryType(fm, path, body, tier)

	ctxType := store.ContextType(fm.ContextType)
	if ctxType == "" {
		ctxType = store.ContextGeneral
	}

	title := fm.Title
	if title == "" {
		title = titleFromBody(body)
	}
	if title == "" {
		title = filepath.Base(path)
	}

	sum := sha256.Sum256(content)

	return Result{
		SpecFolder:     specFolderFromPath(path),
		Title:          title,
		TriggerPhrases: extractTriggerPhrases(fm, frontmatterRaw, body, opts.MaxTriggerPhrases),
		ContextType:    ctxType,
		ImportanceTier: tier,
		MemoryType:     inferred.Type,
		TypeConfidence: inferred.Confidence,
		ContentHash:    hex.EncodeToString(sum[:]),
		Content:        text,
		FileSize:       int64(len(content)),
		LastModified:   modTime,
		Anchors:        anchors,
		Warnings:       warnings,
	}
}

// titleFromBody takes the first markdown header as a title fallback.
func titleFromBody(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

// specFolderFromPath derives the spec folder from a path of the form
// specs/<folder>/... or .opencode/<folder>/..., matching the allow-listed
// read-root layout.
func specFolderFromPath(path string) string {
	clean := filepath.ToSlash(path)
	for _, root := range []string{"specs/", ".opencode/"} {
		if idx := strings.Index(clean, root); idx >= 0 {
			rest := clean[idx+len(root):]
			if slash := strings.Index(rest, "/"); slash >= 0 {
				return rest[:slash]
			}
			return rest
		}
	}
	return filepath.Dir(clean)
}
