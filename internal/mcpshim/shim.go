package mcpshim

import (
	"context"
	"fmt"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/memerr"
	"github.com/devalexanderdaza/memoryd/internal/runtime"
	"github.com/devalexanderdaza/memoryd/internal/store"
)

// Shim wraps a *runtime.Runtime and exposes the full tool surface as plain
// Go methods. Every method is safe for concurrent use (the underlying
// Runtime is); none of them retain req/ctx beyond the call.
type Shim struct {
	rt *runtime.Runtime
}

// New wraps rt.
func New(rt *runtime.Runtime) *Shim {
	return &Shim{rt: rt}
}

// MemorySearchInput is memory_search's input.
type MemorySearchInput struct {
	Query                 string   `json:"query,omitempty"`
	Concepts              []string `json:"concepts,omitempty"`
	Limit                 int      `json:"limit,omitempty"`
	SpecFolder            string   `json:"specFolder,omitempty"`
	IncludeContent        bool     `json:"includeContent,omitempty"`
	Anchors               []string `json:"anchors,omitempty"`
	Tier                  string   `json:"tier,omitempty"`
	ContextType           string   `json:"contextType,omitempty"`
	IncludeConstitutional bool     `json:"includeConstitutional,omitempty"`
}

// MemoryOut is the JSON-friendly projection of a store.Memory returned in
// tool responses.
type MemoryOut struct {
	ID               int64    `json:"id"`
	SpecFolder       string   `json:"specFolder"`
	FilePath         string   `json:"filePath"`
	AnchorID         string   `json:"anchorId,omitempty"`
	Title            string   `json:"title"`
	TriggerPhrases   []string `json:"triggerPhrases,omitempty"`
	ImportanceTier   string   `json:"importanceTier"`
	ContextType      string   `json:"contextType"`
	MemoryType       string   `json:"memoryType"`
	Channel          string   `json:"channel"`
	Confidence       float64  `json:"confidence"`
	AccessCount      int64    `json:"accessCount"`
	IsPinned         bool     `json:"isPinned"`
	Content          string   `json:"content,omitempty"`
	Similarity       float64  `json:"similarity,omitempty"`
	EffImportance    float64  `json:"effectiveImportance,omitempty"`
	IsConstitutional bool     `json:"isConstitutional,omitempty"`
	Sources          []string `json:"sources,omitempty"`
	SourceCount      int      `json:"sourceCount,omitempty"`
}

func memoryOut(m *store.Memory) MemoryOut {
	return MemoryOut{
		ID:             m.ID,
		SpecFolder:     m.SpecFolder,
		FilePath:       m.FilePath,
		AnchorID:       m.AnchorID,
		Title:          m.Title,
		TriggerPhrases: m.TriggerPhrases,
		ImportanceTier: string(m.ImportanceTier),
		ContextType:    string(m.ContextType),
		MemoryType:     string(m.MemoryType),
		Channel:        m.Channel,
		Confidence:     m.Confidence,
		AccessCount:    m.AccessCount,
		IsPinned:       m.IsPinned,
		Content:        m.Content,
	}
}

// MemorySearchOutput is memory_search's result payload.
type MemorySearchOutput struct {
	Results    []MemoryOut `json:"results"`
	Intent     string      `json:"intent"`
	Confidence float64     `json:"confidence"`
	Truncated  bool        `json:"truncated"`
}

// MemorySearch implements the memory_search tool.
func (s *Shim) MemorySearch(ctx context.Context, in MemorySearchInput) (*Response, error) {
	req := runtime.SearchRequest{
		Query:                 in.Query,
		Concepts:              in.Concepts,
		Limit:                 in.Limit,
		SpecFolder:            in.SpecFolder,
		IncludeContent:        in.IncludeContent,
		Anchors:               in.Anchors,
		Tier:                  store.ImportanceTier(in.Tier),
		ContextType:           store.ContextType(in.ContextType),
		IncludeConstitutional: in.IncludeConstitutional,
	}
	result, err := s.rt.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	out := MemorySearchOutput{
		Results:    make([]MemoryOut, 0, len(result.Results)),
		Intent:     string(result.Intent),
		Confidence: result.Confidence,
		Truncated:  result.Truncated,
	}
	for _, r := range result.Results {
		mo := memoryOut(r.Memory)
		mo.Similarity = r.Similarity
		mo.EffImportance = r.EffImportance
		mo.IsConstitutional = r.IsConstitutional
		mo.SourceCount = r.SourceCount
		for _, src := range r.Sources {
			mo.Sources = append(mo.Sources, string(src))
		}
		out.Results = append(out.Results, mo)
	}

	summary := fmt.Sprintf("%d memories matched (intent=%s)", len(out.Results), out.Intent)
	return ok("memory_search", summary, out), nil
}

// MemoryMatchTriggersInput is memory_match_triggers's input.
type MemoryMatchTriggersInput struct {
	Prompt string `json:"prompt"`
	Limit  int    `json:"limit,omitempty"`
}

// MemoryMatchTriggers implements the memory_match_triggers tool: fast
// exact/near-exact trigger-phrase surfacing.
func (s *Shim) MemoryMatchTriggers(ctx context.Context, in MemoryMatchTriggersInput) (*Response, error) {
	memories, err := s.rt.MatchTriggers(ctx, in.Prompt, in.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]MemoryOut, len(memories))
	for i, m := range memories {
		out[i] = memoryOut(m)
	}
	return ok("memory_match_triggers", fmt.Sprintf("%d memories matched by trigger phrase", len(out)), out), nil
}

// MemorySaveInput is memory_save's/memory_update's file-level input.
type MemorySaveInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// MemorySave implements memory_save: parses and upserts every memory (one
// per anchor, or one whole-file memory) found in content.
func (s *Shim) MemorySave(ctx context.Context, in MemorySaveInput) (*Response, error) {
	saved, err := s.rt.Save(ctx, runtime.SaveInput{Path: in.Path, Content: in.Content, ModTime: time.Now()})
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(saved))
	out := make([]MemoryOut, len(saved))
	for i, m := range saved {
		ids[i] = m.ID
		out[i] = memoryOut(m)
	}
	return ok("memory_save", fmt.Sprintf("saved %d memories from %s", len(saved), in.Path), map[string]any{"ids": ids, "memories": out}), nil
}

// MemoryUpdateInput is memory_update's input: the mutable fields of an
// existing memory, identified by id.
type MemoryUpdateInput struct {
	ID             int64    `json:"id"`
	Title          *string  `json:"title,omitempty"`
	Content        *string  `json:"content,omitempty"`
	TriggerPhrases []string `json:"triggerPhrases,omitempty"`
	ImportanceTier string   `json:"importanceTier,omitempty"`
	ContextType    string   `json:"contextType,omitempty"`
	MemoryType     string   `json:"memoryType,omitempty"`
	Channel        *string  `json:"channel,omitempty"`
	IsPinned       *bool    `json:"isPinned,omitempty"`
}

// MemoryUpdate implements the memory_update tool.
func (s *Shim) MemoryUpdate(ctx context.Context, in MemoryUpdateInput) (*Response, error) {
	patch := runtime.UpdatePatch{
		Title:          in.Title,
		Content:        in.Content,
		TriggerPhrases: in.TriggerPhrases,
		Channel:        in.Channel,
		IsPinned:       in.IsPinned,
	}
	if in.ImportanceTier != "" {
		tier := store.ImportanceTier(in.ImportanceTier)
		patch.ImportanceTier = &tier
	}
	if in.ContextType != "" {
		ct := store.ContextType(in.ContextType)
		patch.ContextType = &ct
	}
	if in.MemoryType != "" {
		mt := store.MemoryType(in.MemoryType)
		patch.MemoryType = &mt
	}

	m, err := s.rt.Update(ctx, in.ID, patch)
	if err != nil {
		return nil, err
	}
	return ok("memory_update", fmt.Sprintf("memory %d updated", m.ID), memoryOut(m)), nil
}

// MemoryDeleteInput is memory_delete's input.
type MemoryDeleteInput struct {
	ID int64 `json:"id"`
}

// MemoryDelete implements the memory_delete tool.
func (s *Shim) MemoryDelete(ctx context.Context, in MemoryDeleteInput) (*Response, error) {
	if err := s.rt.Delete(ctx, in.ID); err != nil {
		return nil, err
	}
	return ok("memory_delete", fmt.Sprintf("memory %d deleted", in.ID), map[string]any{"id": in.ID}), nil
}

// MemoryIndexScanInput is memory_index_scan's input.
type MemoryIndexScanInput struct {
	SpecFolder string `json:"specFolder,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// MemoryIndexScan implements the memory_index_scan tool.
func (s *Shim) MemoryIndexScan(ctx context.Context, in MemoryIndexScanInput) (*Response, error) {
	result, err := s.rt.IndexScan(ctx, in.SpecFolder, in.Force)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("indexed %d, skipped %d, failed %d", result.Indexed, result.Skipped, result.Failed)
	return ok("memory_index_scan", summary, result), nil
}

// MemoryValidateInput is memory_validate's input.
type MemoryValidateInput struct {
	ID     int64 `json:"id"`
	Useful bool  `json:"useful"`
}

// MemoryValidate implements the memory_validate tool.
func (s *Shim) MemoryValidate(ctx context.Context, in MemoryValidateInput) (*Response, error) {
	confidence, validationCount, err := s.rt.Validate(ctx, in.ID, in.Useful)
	if err != nil {
		return nil, err
	}
	data := map[string]any{"confidence": confidence, "validationCount": validationCount}
	return ok("memory_validate", fmt.Sprintf("memory %d confidence now %.2f", in.ID, confidence), data), nil
}

// CheckpointCreateInput is checkpoint_create's input.
type CheckpointCreateInput struct {
	Name       string            `json:"name"`
	SpecFolder string            `json:"specFolder,omitempty"`
	GitBranch  string            `json:"gitBranch,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// CheckpointOut is the JSON-friendly projection of a store.Checkpoint.
type CheckpointOut struct {
	Name           string            `json:"name"`
	CreatedAt      time.Time         `json:"createdAt"`
	SpecFolder     string            `json:"specFolder,omitempty"`
	GitBranch      string            `json:"gitBranch,omitempty"`
	MemoryCount    int               `json:"memoryCount"`
	EmbeddingCount int               `json:"embeddingCount"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

func checkpointOut(c *store.Checkpoint) CheckpointOut {
	return CheckpointOut{
		Name:           c.Name,
		CreatedAt:      c.CreatedAt,
		SpecFolder:     c.SpecFolder,
		GitBranch:      c.GitBranch,
		MemoryCount:    c.MemoryCount,
		EmbeddingCount: c.EmbeddingCount,
		Metadata:       c.Metadata,
	}
}

// CheckpointCreate implements the checkpoint_create tool.
func (s *Shim) CheckpointCreate(ctx context.Context, in CheckpointCreateInput) (*Response, error) {
	cp, err := s.rt.CreateCheckpoint(ctx, in.Name, in.SpecFolder, in.GitBranch, in.Metadata)
	if err != nil {
		return nil, err
	}
	return ok("checkpoint_create", fmt.Sprintf("checkpoint %q created (%d memories)", cp.Name, cp.MemoryCount), checkpointOut(cp)), nil
}

// CheckpointListInput is checkpoint_list's input.
type CheckpointListInput struct {
	SpecFolder string `json:"specFolder,omitempty"`
}

// CheckpointList implements the checkpoint_list tool.
func (s *Shim) CheckpointList(ctx context.Context, in CheckpointListInput) (*Response, error) {
	cps, err := s.rt.ListCheckpoints(ctx, in.SpecFolder)
	if err != nil {
		return nil, err
	}
	out := make([]CheckpointOut, len(cps))
	for i, c := range cps {
		out[i] = checkpointOut(c)
	}
	return ok("checkpoint_list", fmt.Sprintf("%d checkpoints", len(out)), out), nil
}

// CheckpointRestoreInput is checkpoint_restore's input.
type CheckpointRestoreInput struct {
	Name             string `json:"name"`
	ClearExisting    bool   `json:"clearExisting,omitempty"`
	ReinsertMemories bool   `json:"reinsertMemories,omitempty"`
}

// CheckpointRestore implements the checkpoint_restore tool.
func (s *Shim) CheckpointRestore(ctx context.Context, in CheckpointRestoreInput) (*Response, error) {
	result, err := s.rt.RestoreCheckpoint(ctx, in.Name, in.ClearExisting, in.ReinsertMemories)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("restored %q: inserted=%d updated=%d embeddingsRestored=%d",
		in.Name, result.Inserted, result.Updated, result.EmbeddingsRestored)
	return ok("checkpoint_restore", summary, result, result.Note), nil
}

// CheckpointDeleteInput is checkpoint_delete's input.
type CheckpointDeleteInput struct {
	Name string `json:"name"`
}

// CheckpointDelete implements the checkpoint_delete tool.
func (s *Shim) CheckpointDelete(ctx context.Context, in CheckpointDeleteInput) (*Response, error) {
	if err := s.rt.DeleteCheckpoint(ctx, in.Name); err != nil {
		return nil, err
	}
	return ok("checkpoint_delete", fmt.Sprintf("checkpoint %q deleted", in.Name), map[string]any{"name": in.Name}), nil
}

// MemoryHealthInput is memory_health's (empty) input.
type MemoryHealthInput struct{}

// MemoryHealth implements the memory_health tool.
func (s *Shim) MemoryHealth(ctx context.Context, _ MemoryHealthInput) (*Response, error) {
	h, err := s.rt.Health(ctx)
	if err != nil {
		return nil, err
	}
	byTier := make(map[string]int, len(h.ByTier))
	for tier, count := range h.ByTier {
		byTier[string(tier)] = count
	}
	data := map[string]any{
		"dbPath":           h.DBPath,
		"schemaVersion":    h.SchemaVersion,
		"activeProvider":   h.ActiveProvider,
		"activeDimension":  h.ActiveDimension,
		"totalMemories":    h.TotalMemories,
		"byTier":           byTier,
		"embeddingPending": h.EmbeddingPending,
		"embeddingSuccess": h.EmbeddingSuccess,
		"embeddingFailed":  h.EmbeddingFailed,
		"rerankerDisabled": h.RerankerDisabled,
	}
	return ok("memory_health", fmt.Sprintf("%d memories, schema v%d", h.TotalMemories, h.SchemaVersion), data), nil
}

// MemoryVerifyIntegrityInput is memory_verify_integrity's input, exposed
// as its own tool so an operator can run it out of band from memory_health.
type MemoryVerifyIntegrityInput struct {
	AutoClean bool `json:"autoClean,omitempty"`
}

// MemoryVerifyIntegrity implements the verify_integrity operation.
func (s *Shim) MemoryVerifyIntegrity(ctx context.Context, in MemoryVerifyIntegrityInput) (*Response, error) {
	report, err := s.rt.VerifyIntegrity(ctx, in.AutoClean)
	if err != nil {
		return nil, err
	}
	summary := fmt.Sprintf("%d orphan embeddings, %d missing embeddings", len(report.OrphanEmbeddings), len(report.MissingEmbeddings))
	return ok("memory_verify_integrity", summary, report), nil
}

// ErrorEnvelope converts any error returned from a Shim method into the
// standard failure envelope. Unmatched errors fall back to a generic
// message while the caller (cmd/memoryd or the MCP handler) still logs the
// full detail.
func ErrorEnvelope(tool string, err error) memerr.Envelope {
	return memerr.ToEnvelope(tool, err)
}
