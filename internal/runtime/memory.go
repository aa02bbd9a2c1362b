package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/async"
	"github.com/devalexanderdaza/memoryd/internal/decay"
	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/memparse"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// SaveInput is memory_save's input: a file path (validated against the
// allow-listed read roots) and its content, parsed into one memory per
// anchor (or a single whole-file memory when the content has no anchors).
type SaveInput struct {
	Path    string
	Content string
	ModTime time.Time
}

// Save parses in.Content and upserts the resulting memory (or memories, if
// the file carries anchor markers) by identity, embedding and indexing each
// one.
func (rt *Runtime) Save(ctx context.Context, in SaveInput) ([]*store.Memory, error) {
	if !rt.pathAllowed(in.Path) {
		return nil, memerr.New(memerr.CodeMemoryPathNotAllowed, fmt.Sprintf("path %q is not under an allow-listed root", in.Path), nil)
	}

	parsed := memparse.Parse(in.Path, []byte(in.Content), in.ModTime, memparse.Options{
		MaxTriggerPhrases: rt.cfg.Weights.MaxTriggersPerMemory,
	})

	var saved []*store.Memory
	if len(parsed.Anchors) == 0 {
		m, err := rt.saveOne(ctx, parsed, in.Path, "", parsed.Content)
		if err != nil {
			return nil, err
		}
		saved = append(saved, m)
		return saved, nil
	}

	for anchorID, content := range parsed.Anchors {
		m, err := rt.saveOne(ctx, parsed, in.Path, anchorID, content)
		if err != nil {
			return saved, err
		}
		saved = append(saved, m)
	}
	return saved, nil
}

func (rt *Runtime) saveOne(ctx context.Context, parsed memparse.Result, path, anchorID, content string) (*store.Memory, error) {
	sum := sha256.Sum256([]byte(content))
	contentHash := hex.EncodeToString(sum[:])

	existing, found, err := rt.catalog.FindByIdentity(ctx, parsed.SpecFolder, path, anchorID)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeDBQueryFailed, err)
	}
	if found && existing.ContentHash == contentHash {
		return existing, nil
	}

	emb, err := rt.embedder.Embed(ctx, content)
	if err != nil {
		return nil, memerr.Wrap(memerr.CodeEmbeddingGenerationFailed, err)
	}

	m := &store.Memory{
		SpecFolder:        parsed.SpecFolder,
		FilePath:          path,
		AnchorID:          anchorID,
		Title:             parsed.Title,
		TriggerPhrases:    parsed.TriggerPhrases,
		Content:           content,
		ContentHash:       contentHash,
		FileSize:          parsed.FileSize,
		EmbeddingModel:    rt.profile.Model,
		ImportanceTier:    parsed.ImportanceTier,
		ContextType:       parsed.ContextType,
		MemoryType:        parsed.MemoryType,
		Channel:           "default",
		ImportanceWeight:  0.5,
		BaseImportance:    0.5,
		DecayHalfLifeDays: decay.HalfLifeDays(parsed.MemoryType),
		Confidence:        0.5,
	}

	action := store.ConflictCreate
	if found {
		m.ID = existing.ID
		m.AccessCount = existing.AccessCount
		m.IsPinned = existing.IsPinned
		m.Confidence = existing.Confidence
		m.ValidationCount = existing.ValidationCount
		m.CreatedAt = existing.CreatedAt
		if err := rt.catalog.UpdateMemory(ctx, m); err != nil {
			return nil, memerr.Wrap(memerr.CodeDBTransactionFailed, err)
		}
		if err := rt.catalog.UpdateEmbedding(ctx, m.ID, emb); err != nil {
			return nil, memerr.Wrap(memerr.CodeDBTransactionFailed, err)
		}
		action = store.ConflictUpdate
	} else {
		id, err := rt.catalog.IndexMemory(ctx, m, emb)
		if err != nil {
			return nil, memerr.Wrap(memerr.CodeDBTransactionFailed, err)
		}
		m.ID = id
	}

	if err := rt.catalog.RecordConflict(ctx, store.ConflictRecord{
		NewMemoryHash:    contentHash,
		ExistingMemoryID: m.ID,
		Action:           action,
	}); err != nil {
		rt.logger.Warn("failed to record conflict audit row", "error", err)
	}

	if err := rt.indexOne(ctx, m, emb); err != nil {
		return nil, memerr.Wrap(memerr.CodeSearchFailed, err)
	}

	if m.ImportanceTier == store.TierConstitutional {
		rt.constCache.Invalidate()
	}
	rt.queryCache.Purge()

	return m, nil
}

// indexOne updates the in-process vector and lexical indexes for a single
// memory, mirroring what rebuildIndexes does in bulk at startup.
func (rt *Runtime) indexOne(ctx context.Context, m *store.Memory, embedding []float32) error {
	rt.indexMu.RLock()
	defer rt.indexMu.RUnlock()

	if len(embedding) > 0 {
		if err := rt.vector.Add(ctx, []int64{m.ID}, [][]float32{embedding}); err != nil {
			return err
		}
	}
	return rt.lexical.Index(ctx, []*store.Document{lexicalDocument(m)})
}

// UpdatePatch carries the mutable memory_update fields; a nil pointer means
// "leave unchanged".
type UpdatePatch struct {
	Title          *string
	Content        *string
	TriggerPhrases []string
	ImportanceTier *store.ImportanceTier
	ContextType    *store.ContextType
	MemoryType     *store.MemoryType
	Channel        *string
	IsPinned       *bool
}

// Update applies patch to an existing memory by id, re-embedding and
// re-indexing when content changes.
func (rt *Runtime) Update(ctx context.Context, id int64, patch UpdatePatch) (*store.Memory, error) {
	m, err := rt.catalog.GetMemory(ctx, id)
	if err != nil {
		return nil, memerr.New(memerr.CodeMemoryNotFound, fmt.Sprintf("memory %d not found", id), err)
	}

	contentChanged := false
	if patch.Title != nil {
		m.Title = *patch.Title
	}
	if patch.Content != nil && *patch.Content != m.Content {
		m.Content = *patch.Content
		sum := sha256.Sum256([]byte(m.Content))
		m.ContentHash = hex.EncodeToString(sum[:])
		m.FileSize = int64(len(m.Content))
		contentChanged = true
	}
	if patch.TriggerPhrases != nil {
		m.TriggerPhrases = patch.TriggerPhrases
	}
	tierChanged := false
	if patch.ImportanceTier != nil && *patch.ImportanceTier != m.ImportanceTier {
		m.ImportanceTier = *patch.ImportanceTier
		tierChanged = true
	}
	if patch.ContextType != nil {
		m.ContextType = *patch.ContextType
	}
	if patch.MemoryType != nil {
		m.MemoryType = *patch.MemoryType
		m.DecayHalfLifeDays = decay.HalfLifeDays(m.MemoryType)
	}
	if patch.Channel != nil {
		m.Channel = *patch.Channel
	}
	if patch.IsPinned != nil {
		m.IsPinned = *patch.IsPinned
	}

	if err := rt.catalog.UpdateMemory(ctx, m); err != nil {
		return nil, memerr.Wrap(memerr.CodeDBTransactionFailed, err)
	}

	if contentChanged {
		emb, err := rt.embedder.Embed(ctx, m.Content)
		if err != nil {
			return nil, memerr.Wrap(memerr.CodeEmbeddingGenerationFailed, err)
		}
		if err := rt.catalog.UpdateEmbedding(ctx, m.ID, emb); err != nil {
			return nil, memerr.Wrap(memerr.CodeDBTransactionFailed, err)
		}
		if err := rt.indexOne(ctx, m, emb); err != nil {
			return nil, memerr.Wrap(memerr.CodeSearchFailed, err)
		}
	} else {
		if err := rt.indexOne(ctx, m, nil); err != nil {
			return nil, memerr.Wrap(memerr.CodeSearchFailed, err)
		}
	}

	if tierChanged || m.ImportanceTier == store.TierConstitutional {
		rt.constCache.Invalidate()
	}
	rt.queryCache.Purge()

	return m, nil
}

// Delete removes a memory by id from the catalog and every in-process index.
func (rt *Runtime) Delete(ctx context.Context, id int64) error {
	m, err := rt.catalog.GetMemory(ctx, id)
	if err != nil {
		return memerr.New(memerr.CodeMemoryNotFound, fmt.Sprintf("memory %d not found", id), err)
	}
	if err := rt.catalog.DeleteMemory(ctx, id); err != nil {
		return memerr.Wrap(memerr.CodeDBTransactionFailed, err)
	}

	rt.indexMu.RLock()
	_ = rt.vector.Delete(ctx, []int64{id})
	_ = rt.lexical.Delete(ctx, []string{strconv.FormatInt(id, 10)})
	rt.indexMu.RUnlock()

	if m.ImportanceTier == store.TierConstitutional {
		rt.constCache.Invalidate()
	}
	rt.queryCache.Purge()
	return nil
}

// Validate implements memory_validate: nudges confidence toward 1 or 0 per
// useful/not-useful feedback and returns the updated confidence/validation_count.
func (rt *Runtime) Validate(ctx context.Context, id int64, useful bool) (confidence float64, validationCount int, err error) {
	confidence, validationCount, err = rt.catalog.UpdateConfidence(ctx, id, useful)
	if err != nil {
		return 0, 0, memerr.New(memerr.CodeValidationFailed, fmt.Sprintf("validate memory %d", id), err)
	}
	return confidence, validationCount, nil
}

// IndexScanResult reports memory_index_scan's outcome.
type IndexScanResult struct {
	Indexed int
	Skipped int
	Failed  int
}

// IndexScan walks the allow-listed read roots (optionally narrowed to one
// spec folder), parsing and upserting every markdown file found. Without
// force, files whose content hash already matches the catalog are skipped
// rather than re-embedded.
func (rt *Runtime) IndexScan(ctx context.Context, specFolder string, force bool) (*IndexScanResult, error) {
	result := &IndexScanResult{}

	var candidates []string
	var modTimes []time.Time
	for _, root := range rt.cfg.AllowedPaths {
		root = strings.TrimPrefix(root, "./")
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				result.Failed++
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if filepath.Ext(path) != ".md" {
				return nil
			}
			if specFolder != "" && !strings.Contains(filepath.ToSlash(path), "/"+specFolder+"/") {
				return nil
			}
			fi, err := d.Info()
			modTime := time.Now()
			if err == nil {
				modTime = fi.ModTime()
			}
			candidates = append(candidates, path)
			modTimes = append(modTimes, modTime)
			return nil
		})
		if walkErr != nil {
			return result, memerr.Wrap(memerr.CodeFileAccessDenied, walkErr)
		}
	}

	// Reading is I/O-bound and independent per file; hydrate with bounded
	// parallelism before the sequential, single-writer catalog pass below.
	// A per-file read failure is recorded rather than aborting the scan;
	// indexOf is read-only once built, so concurrent lookups are safe.
	indexOf := make(map[string]int, len(candidates))
	for i, p := range candidates {
		indexOf[p] = i
	}
	readFailed := make([]bool, len(candidates))
	contents, err := async.HydrateAll(ctx, candidates, 8, func(_ context.Context, path string) (string, error) {
		data, rerr := os.ReadFile(path)
		if rerr != nil {
			readFailed[indexOf[path]] = true
			return "", nil
		}
		return string(data), nil
	})
	if err != nil {
		return result, memerr.Wrap(memerr.CodeFileAccessDenied, err)
	}

	for i, path := range candidates {
		if readFailed[i] {
			result.Failed++
			continue
		}
		content := contents[i]
		modTime := modTimes[i]

		if !force {
			sum := sha256.Sum256([]byte(content))
			hash := hex.EncodeToString(sum[:])
			sf := memparse.Parse(path, []byte(content), modTime, memparse.Options{}).SpecFolder
			if existing, found, ferr := rt.catalog.FindByIdentity(ctx, sf, path, ""); ferr == nil && found && existing.ContentHash == hash {
				result.Skipped++
				continue
			}
		}

		if _, err := rt.Save(ctx, SaveInput{Path: path, Content: content, ModTime: modTime}); err != nil {
			result.Failed++
			continue
		}
		result.Indexed++
	}

	return result, nil
}
