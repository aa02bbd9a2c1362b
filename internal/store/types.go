// Package store provides the relational memory catalog, the BM25/FTS lexical
// index, and the HNSW vector index backing hybrid retrieval over persisted
// memories.
package store

import (
	"context"
	"fmt"
	"math"
	"time"
)

// ImportanceTier is the ordinal priority label attached to a memory.
type ImportanceTier string

const (
	TierConstitutional ImportanceTier = "constitutional"
	TierCritical       ImportanceTier = "critical"
	TierImportant      ImportanceTier = "important"
	TierNormal         ImportanceTier = "normal"
	TierTemporary      ImportanceTier = "temporary"
	TierDeprecated     ImportanceTier = "deprecated"
)

// ContextType is the coarse intent category that produced a memory.
type ContextType string

const (
	ContextResearch       ContextType = "research"
	ContextImplementation ContextType = "implementation"
	ContextDecision       ContextType = "decision"
	ContextDiscovery      ContextType = "discovery"
	ContextGeneral        ContextType = "general"
)

// MemoryType is the 9-type cognitive taxonomy, each with its own decay half-life.
type MemoryType string

const (
	MemoryWorking         MemoryType = "working"
	MemoryEpisodic        MemoryType = "episodic"
	MemoryProspective     MemoryType = "prospective"
	MemoryImplicit        MemoryType = "implicit"
	MemoryDeclarative     MemoryType = "declarative"
	MemoryProcedural      MemoryType = "procedural"
	MemorySemantic        MemoryType = "semantic"
	MemoryAutobiographical MemoryType = "autobiographical"
	MemoryMetaCognitive   MemoryType = "meta-cognitive"
)

// DecayHalfLifeDays maps a memory type to its default half-life in days.
// Meta-cognitive memories never decay (math.Inf(1) sentinel at call sites).
var DecayHalfLifeDays = map[MemoryType]float64{
	MemoryWorking:          1,
	MemoryEpisodic:         7,
	MemoryProspective:      14,
	MemoryImplicit:         30,
	MemoryDeclarative:      60,
	MemoryProcedural:       90,
	MemorySemantic:         180,
	MemoryAutobiographical: 365,
}

// EmbeddingStatus tracks the lifecycle of a memory's paired embedding row.
type EmbeddingStatus string

const (
	EmbeddingPending EmbeddingStatus = "pending"
	EmbeddingSuccess EmbeddingStatus = "success"
	EmbeddingFailed  EmbeddingStatus = "failed"
	EmbeddingRetry   EmbeddingStatus = "retry"
)

// RelatedMemory is one entry of a memory's related-memory adjacency list.
type RelatedMemory struct {
	ID         int64   `json:"id"`
	Similarity float64 `json:"similarity"`
}

// Memory is the core catalog entity: a markdown file (or anchored section of
// one) augmented with structured retrieval metadata.
type Memory struct {
	ID int64

	// Identity: (SpecFolder, FilePath, AnchorID) is unique; a NULL AnchorID
	// counts as a single logical slot.
	SpecFolder string
	FilePath   string
	AnchorID   string // empty string means "no anchor"

	Title          string
	TriggerPhrases []string
	ContentHash    string // hex SHA-256 of Content

	EmbeddingModel  string
	EmbeddingStatus EmbeddingStatus
	RetryCount      int
	LastRetryAt     *time.Time
	FailureReason   string

	ImportanceTier ImportanceTier
	ContextType    ContextType
	MemoryType     MemoryType
	Channel        string // free-form namespace, default "default"

	ImportanceWeight  float64 // [0,1]
	BaseImportance    float64
	DecayHalfLifeDays float64 // default 90
	AccessCount       int64
	LastAccessed      int64 // unix ms
	IsPinned          bool
	Confidence        float64 // [0,1]
	ValidationCount   int

	// FSRS spaced-repetition fields.
	Stability    float64
	Difficulty   float64
	ReviewCount  int
	LastReview   *time.Time

	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       *time.Time
	RelatedMemories []RelatedMemory

	Content  string // full content, not persisted on the row itself (see ContentStore)
	FileSize int64
}

// EffectiveImportance applies decay to ImportanceWeight as of now.
// pinned or constitutional-tier memories never decay.
func (m *Memory) EffectiveImportance(now time.Time) float64 {
	if m.IsPinned || m.ImportanceTier == TierConstitutional {
		return m.ImportanceWeight
	}
	halfLife := m.DecayHalfLifeDays
	if halfLife <= 0 {
		halfLife = 90
	}
	ageDays := now.Sub(m.UpdatedAt).Hours() / 24
	if ageDays <= 0 {
		return m.ImportanceWeight
	}
	return m.ImportanceWeight * math.Pow(0.5, ageDays/halfLife)
}

// IsSearchable reports whether a memory is eligible for default (non-tier-
// scoped) search results.
func (m *Memory) IsSearchable(now time.Time) bool {
	if m.ImportanceTier == TierDeprecated {
		return false
	}
	if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
		return false
	}
	return true
}

// EmbeddingRow is the paired dense vector for a Memory, keyed by the same
// surrogate id. Stored as a tightly packed little-endian float32 buffer.
type EmbeddingRow struct {
	MemoryID  int64
	Embedding []float32
}

// Checkpoint is a named, optionally scoped snapshot of memories plus their
// embeddings.
type Checkpoint struct {
	Name         string
	CreatedAt    time.Time
	SpecFolder   string // empty means unscoped / global
	GitBranch    string
	MemoryCount  int
	EmbeddingCount int
	Metadata     map[string]string
}

// HistoryEventKind enumerates catalog mutation kinds recorded for audit.
type HistoryEventKind string

const (
	HistoryAdd    HistoryEventKind = "ADD"
	HistoryUpdate HistoryEventKind = "UPDATE"
	HistoryDelete HistoryEventKind = "DELETE"
)

// HistoryEvent is an audit row for a single catalog mutation.
type HistoryEvent struct {
	ID        int64
	MemoryID  int64
	Event     HistoryEventKind
	PrevValue string // JSON snapshot, empty for ADD
	NewValue  string // JSON snapshot, empty for DELETE
	Timestamp time.Time
	Actor     string
}

// ConflictAction is the decision an upstream prediction-error gate made when
// a new memory collided with an existing one.
type ConflictAction string

const (
	ConflictCreate    ConflictAction = "CREATE"
	ConflictUpdate    ConflictAction = "UPDATE"
	ConflictSupersede ConflictAction = "SUPERSEDE"
	ConflictReinforce ConflictAction = "REINFORCE"
)

// ConflictRecord is a prediction-error gating audit row.
type ConflictRecord struct {
	ID                  int64
	Timestamp           time.Time
	NewMemoryHash       string
	ExistingMemoryID    int64
	Similarity          float64
	Action              ConflictAction
	ContradictionDetected bool
	Notes               string
}

// CurrentSchemaVersion is the current catalog schema version.
const CurrentSchemaVersion = 1

// ErrDimensionMismatch indicates an embedding's dimension does not match the
// active provider's dimension.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Stats summarizes catalog contents, surfaced by memory_health.
type Stats struct {
	TotalMemories      int
	ByTier             map[ImportanceTier]int
	EmbeddingPending   int
	EmbeddingSuccess   int
	EmbeddingFailed    int
	SchemaVersion      int
	DBPath             string
	ActiveProvider     string
	ActiveDimension    int
}

// IntegrityReport is returned by VerifyIntegrity.
type IntegrityReport struct {
	OrphanEmbeddings []int64 // embedding rows with no matching memory
	MissingEmbeddings []int64 // memories with embedding_status=success but no row
	Cleaned          bool
}

// CatalogStore persists memories, their embeddings, history, checkpoints, and
// conflicts in a single embedded relational store.
type CatalogStore interface {
	IndexMemory(ctx context.Context, m *Memory, embedding []float32) (int64, error)
	UpdateMemory(ctx context.Context, m *Memory) error
	DeleteMemory(ctx context.Context, id int64) error
	DeleteMemoryByPath(ctx context.Context, specFolder, filePath string) error
	GetMemory(ctx context.Context, id int64) (*Memory, error)
	GetMemoriesByFolder(ctx context.Context, specFolder string) ([]*Memory, error)
	GetStats(ctx context.Context) (*Stats, error)
	VerifyIntegrity(ctx context.Context, autoClean bool) (*IntegrityReport, error)
	UpdateEmbeddingStatus(ctx context.Context, id int64, status EmbeddingStatus, failureReason string) error
	UpdateConfidence(ctx context.Context, id int64, useful bool) (confidence float64, validationCount int, err error)
	RecordAccess(ctx context.Context, id int64, weight float64) error
	FlushAccessCounts(ctx context.Context, accumulated map[int64]float64) error

	CreateCheckpoint(ctx context.Context, name, specFolder string, gitBranch string, metadata map[string]string) (*Checkpoint, error)
	ListCheckpoints(ctx context.Context, specFolder string) ([]*Checkpoint, error)
	RestoreCheckpoint(ctx context.Context, name string, clearExisting, reinsertMemories bool) (*RestoreResult, error)
	DeleteCheckpoint(ctx context.Context, name string) error

	Close() error
}

// RestoreResult reports the outcome of a checkpoint restore.
type RestoreResult struct {
	Inserted           int
	Updated            int
	Skipped            int
	Cleared            int
	Deprecated         int
	EmbeddingsRestored int
	EmbeddingsSkipped  int
	TotalInSnapshot    int
	Note               string
}

// Document is a unit of lexical-searchable text (a memory's title, trigger
// phrases and file path for FTS, or its full content for BM25).
type Document struct {
	ID      string
	Content string
}

// BM25Result is a single lexical search hit.
type BM25Result struct {
	DocID        string
	Score        float64
	MatchedTerms []string
}

// IndexStats describes a lexical index's corpus statistics.
type IndexStats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// BM25Index provides keyword search over memory content.
type BM25Index interface {
	Index(ctx context.Context, docs []*Document) error
	Search(ctx context.Context, query string, limit int) ([]*BM25Result, error)
	Delete(ctx context.Context, docIDs []string) error
	AllIDs() ([]string, error)
	Stats() *IndexStats
	Save(path string) error
	Load(path string) error
	Close() error
}

// BM25Config configures a lexical index.
type BM25Config struct {
	K1             float64
	B              float64
	StopWords      []string
	MinTokenLength int
}

// DefaultBM25Config returns the standard BM25 tuning: k1=1.2, b=0.75, 44-word stoplist.
func DefaultBM25Config() BM25Config {
	return BM25Config{
		K1:             1.2,
		B:              0.75,
		StopWords:      DefaultStopWords,
		MinTokenLength: 2,
	}
}

// VectorResult is a single vector search hit.
type VectorResult struct {
	ID       int64
	Distance float32
	Score    float32 // similarity, 0-100
}

// VectorStoreConfig configures the HNSW vector index.
type VectorStoreConfig struct {
	Dimensions     int
	Metric         string // "cos" or "l2"
	M              int
	EfConstruction int
	EfSearch       int
}

// DefaultVectorStoreConfig returns sensible defaults for a given dimension.
func DefaultVectorStoreConfig(dimensions int) VectorStoreConfig {
	return VectorStoreConfig{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       64,
	}
}

// VectorSearchOptions narrows a vector search.
type VectorSearchOptions struct {
	Limit                int
	SpecFolder           string
	MinSimilarity        float64 // [0,100]
	UseDecay             bool
	Tier                 ImportanceTier
	ContextType          ContextType
	IncludeConstitutional bool
}

// VectorStore stores and searches per-memory embeddings.
type VectorStore interface {
	Add(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Delete(ctx context.Context, ids []int64) error
	AllIDs() []int64
	Contains(id int64) bool
	Count() int
	Save(path string) error
	Load(path string) error
	Close() error
}
