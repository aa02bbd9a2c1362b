package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

const memoryColumns = `
	id, spec_folder, file_path, anchor_id, title, trigger_phrases, content,
	content_hash, file_size, embedding_model, embedding_status, retry_count,
	last_retry_at, failure_reason, importance_tier, context_type, memory_type,
	channel, importance_weight, base_importance, decay_half_life_days,
	access_count, last_accessed, is_pinned, confidence, validation_count,
	stability, difficulty, review_count, last_review, created_at, updated_at,
	expires_at, related_memories`

func scanMemory(scan func(...any) error) (*store.Memory, error) {
	var m store.Memory
	var triggerPhrases, relatedMemories string
	var lastRetryAt, lastReview, expiresAt sql.NullTime
	var isPinned int

	err := scan(
		&m.ID, &m.SpecFolder, &m.FilePath, &m.AnchorID, &m.Title, &triggerPhrases, &m.Content,
		&m.ContentHash, &m.FileSize, &m.EmbeddingModel, &m.EmbeddingStatus, &m.RetryCount,
		&lastRetryAt, &m.FailureReason, &m.ImportanceTier, &m.ContextType, &m.MemoryType,
		&m.Channel, &m.ImportanceWeight, &m.BaseImportance, &m.DecayHalfLifeDays,
		&m.AccessCount, &m.LastAccessed, &isPinned, &m.Confidence, &m.ValidationCount,
		&m.Stability, &m.Difficulty, &m.ReviewCount, &lastReview, &m.CreatedAt, &m.UpdatedAt,
		&expiresAt, &relatedMemories,
	)
	if err != nil {
		return nil, err
	}

	m.TriggerPhrases = unmarshalStrings(triggerPhrases)
	m.RelatedMemories = unmarshalRelated(relatedMemories)
	m.IsPinned = isPinned != 0
	if lastRetryAt.Valid {
		t := lastRetryAt.Time
		m.LastRetryAt = &t
	}
	if lastReview.Valid {
		t := lastReview.Time
		m.LastReview = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		m.ExpiresAt = &t
	}
	return &m, nil
}

// IndexMemory inserts a new memory row (and its embedding, if provided),
// recording a history ADD event. Callers wanting upsert-by-identity
// semantics should resolve the existing id via GetMemoriesByFolder first;
// IndexMemory itself never overwrites an existing (spec_folder, file_path,
// anchor_id) triple.
func (c *Catalog) IndexMemory(ctx context.Context, m *store.Memory, embedding []float32) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = now
	}
	if m.ImportanceTier == "" {
		m.ImportanceTier = store.TierNormal
	}
	if m.ContextType == "" {
		m.ContextType = store.ContextGeneral
	}
	if m.MemoryType == "" {
		m.MemoryType = store.MemorySemantic
	}
	if m.Channel == "" {
		m.Channel = "default"
	}
	if m.EmbeddingStatus == "" {
		if len(embedding) > 0 {
			m.EmbeddingStatus = store.EmbeddingSuccess
		} else {
			m.EmbeddingStatus = store.EmbeddingPending
		}
	}
	if m.DecayHalfLifeDays == 0 {
		m.DecayHalfLifeDays = store.DecayHalfLifeDays[m.MemoryType]
		if m.DecayHalfLifeDays == 0 {
			m.DecayHalfLifeDays = 90
		}
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin index memory: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (
			spec_folder, file_path, anchor_id, title, trigger_phrases, content,
			content_hash, file_size, embedding_model, embedding_status, retry_count,
			failure_reason, importance_tier, context_type, memory_type, channel,
			importance_weight, base_importance, decay_half_life_days, is_pinned,
			confidence, created_at, updated_at, expires_at, related_memories
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.SpecFolder, m.FilePath, m.AnchorID, m.Title, marshalStrings(m.TriggerPhrases), m.Content,
		m.ContentHash, m.FileSize, m.EmbeddingModel, string(m.EmbeddingStatus), m.RetryCount,
		m.FailureReason, string(m.ImportanceTier), string(m.ContextType), string(m.MemoryType), m.Channel,
		m.ImportanceWeight, m.BaseImportance, m.DecayHalfLifeDays, boolToInt(m.IsPinned),
		m.Confidence, m.CreatedAt, m.UpdatedAt, nullTime(m.ExpiresAt), marshalRelated(m.RelatedMemories),
	)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted memory id: %w", err)
	}

	if len(embedding) > 0 {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (memory_id, dims, vector) VALUES (?,?,?)`,
			id, len(embedding), encodeVector(embedding)); err != nil {
			return 0, fmt.Errorf("insert embedding: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (memory_id, event, new_value, timestamp) VALUES (?,?,?,?)`,
		id, string(store.HistoryAdd), m.ContentHash, now); err != nil {
		return 0, fmt.Errorf("record history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit index memory: %w", err)
	}
	m.ID = id
	return id, nil
}

// UpdateMemory overwrites an existing memory's mutable fields by id,
// recording a history UPDATE event with the prior content hash.
func (c *Catalog) UpdateMemory(ctx context.Context, m *store.Memory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update memory: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var prevHash string
	if err := tx.QueryRowContext(ctx, `SELECT content_hash FROM memories WHERE id = ?`, m.ID).Scan(&prevHash); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("memory %d not found", m.ID)
		}
		return fmt.Errorf("read prior content hash: %w", err)
	}

	m.UpdatedAt = time.Now()
	_, err = tx.ExecContext(ctx, `
		UPDATE memories SET
			title = ?, trigger_phrases = ?, content = ?, content_hash = ?, file_size = ?,
			embedding_model = ?, embedding_status = ?, retry_count = ?, last_retry_at = ?,
			failure_reason = ?, importance_tier = ?, context_type = ?, memory_type = ?,
			channel = ?, importance_weight = ?, base_importance = ?, decay_half_life_days = ?,
			is_pinned = ?, confidence = ?, validation_count = ?, stability = ?, difficulty = ?,
			review_count = ?, last_review = ?, updated_at = ?, expires_at = ?, related_memories = ?
		WHERE id = ?`,
		m.Title, marshalStrings(m.TriggerPhrases), m.Content, m.ContentHash, m.FileSize,
		m.EmbeddingModel, string(m.EmbeddingStatus), m.RetryCount, nullTime(m.LastRetryAt),
		m.FailureReason, string(m.ImportanceTier), string(m.ContextType), string(m.MemoryType),
		m.Channel, m.ImportanceWeight, m.BaseImportance, m.DecayHalfLifeDays,
		boolToInt(m.IsPinned), m.Confidence, m.ValidationCount, m.Stability, m.Difficulty,
		m.ReviewCount, nullTime(m.LastReview), m.UpdatedAt, nullTime(m.ExpiresAt), marshalRelated(m.RelatedMemories),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (memory_id, event, prev_value, new_value, timestamp) VALUES (?,?,?,?,?)`,
		m.ID, string(store.HistoryUpdate), prevHash, m.ContentHash, m.UpdatedAt); err != nil {
		return fmt.Errorf("record history: %w", err)
	}

	return tx.Commit()
}

// UpdateEmbedding replaces the embedding row for a memory, upserting it.
func (c *Catalog) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO embeddings (memory_id, dims, vector) VALUES (?,?,?)
		ON CONFLICT(memory_id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
		id, len(embedding), encodeVector(embedding))
	if err != nil {
		return fmt.Errorf("upsert embedding: %w", err)
	}
	return nil
}

// GetEmbedding returns the decoded embedding for a memory, if one exists.
func (c *Catalog) GetEmbedding(ctx context.Context, id int64) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf []byte
	err := c.db.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE memory_id = ?`, id).Scan(&buf)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read embedding: %w", err)
	}
	v, err := decodeVector(buf)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// DeleteMemory removes a memory, its embedding, and records a DELETE history
// event with its final content hash.
func (c *Catalog) DeleteMemory(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete memory: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var hash string
	if err := tx.QueryRowContext(ctx, `SELECT content_hash FROM memories WHERE id = ?`, id).Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return fmt.Errorf("read content hash: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (memory_id, event, prev_value, timestamp) VALUES (?,?,?,?)`,
		id, string(store.HistoryDelete), hash, time.Now()); err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return tx.Commit()
}

// DeleteMemoryByPath removes every memory (any anchor) under a given
// (spec_folder, file_path), used when a source file is deleted outright.
func (c *Catalog) DeleteMemoryByPath(ctx context.Context, specFolder, filePath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, content_hash FROM memories WHERE spec_folder = ? AND file_path = ?`, specFolder, filePath)
	if err != nil {
		return fmt.Errorf("list memories for path: %w", err)
	}
	type idHash struct {
		id   int64
		hash string
	}
	var victims []idHash
	for rows.Next() {
		var v idHash
		if err := rows.Scan(&v.id, &v.hash); err != nil {
			rows.Close()
			return fmt.Errorf("scan memory for path: %w", err)
		}
		victims = append(victims, v)
	}
	rows.Close()
	if len(victims) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete by path: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, v := range victims {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, v.id); err != nil {
			return fmt.Errorf("delete memory %d: %w", v.id, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history (memory_id, event, prev_value, timestamp) VALUES (?,?,?,?)`,
			v.id, string(store.HistoryDelete), v.hash, time.Now()); err != nil {
			return fmt.Errorf("record history for %d: %w", v.id, err)
		}
	}
	return tx.Commit()
}

// GetMemory fetches a single memory by id.
func (c *Catalog) GetMemory(ctx context.Context, id int64) (*store.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := c.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("memory %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return m, nil
}

// GetMemoriesByFolder returns every memory under a spec folder, ordered by
// file path then anchor, for checkpoint snapshotting and folder-scoped listing.
func (c *Catalog) GetMemoriesByFolder(ctx context.Context, specFolder string) ([]*store.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories WHERE spec_folder = ? ORDER BY file_path, anchor_id`, specFolder)
	if err != nil {
		return nil, fmt.Errorf("query memories by folder: %w", err)
	}
	defer rows.Close()

	var out []*store.Memory
	for rows.Next() {
		m, err := scanMemory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateEmbeddingStatus records the outcome of an embedding attempt.
func (c *Catalog) UpdateEmbeddingStatus(ctx context.Context, id int64, status store.EmbeddingStatus, failureReason string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	var err error
	if status == store.EmbeddingRetry || status == store.EmbeddingFailed {
		_, err = c.db.ExecContext(ctx, `
			UPDATE memories SET embedding_status = ?, failure_reason = ?, retry_count = retry_count + 1, last_retry_at = ?
			WHERE id = ?`, string(status), failureReason, now, id)
	} else {
		_, err = c.db.ExecContext(ctx, `
			UPDATE memories SET embedding_status = ?, failure_reason = '' WHERE id = ?`, string(status), id)
	}
	if err != nil {
		return fmt.Errorf("update embedding status: %w", err)
	}
	return nil
}

// UpdateConfidence applies a feedback-driven confidence nudge:
// +0.05 capped at 1.0 for useful feedback, -0.1 floored at 0.0 otherwise,
// and increments validation_count.
func (c *Catalog) UpdateConfidence(ctx context.Context, id int64, useful bool) (float64, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin update confidence: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var confidence float64
	var validationCount int
	if err := tx.QueryRowContext(ctx, `SELECT confidence, validation_count FROM memories WHERE id = ?`, id).
		Scan(&confidence, &validationCount); err != nil {
		if err == sql.ErrNoRows {
			return 0, 0, fmt.Errorf("memory %d not found", id)
		}
		return 0, 0, fmt.Errorf("read confidence: %w", err)
	}

	if useful {
		confidence = clamp(confidence+0.05, 0, 1)
	} else {
		confidence = clamp(confidence-0.1, 0, 1)
	}
	validationCount++

	if _, err := tx.ExecContext(ctx, `
		UPDATE memories SET confidence = ?, validation_count = ? WHERE id = ?`,
		confidence, validationCount, id); err != nil {
		return 0, 0, fmt.Errorf("write confidence: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit confidence update: %w", err)
	}
	return confidence, validationCount, nil
}

// RecordAccess bumps access_count and last_accessed immediately, used by
// callers that do not go through the batched access accumulator.
func (c *Catalog) RecordAccess(ctx context.Context, id int64, weight float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx, `
		UPDATE memories SET access_count = access_count + ?, last_accessed = ? WHERE id = ?`,
		int64(weight+0.5), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	return nil
}

// FlushAccessCounts applies a batch of accumulated fractional access weights
// in one transaction, the counterpart to internal/memcache's access accumulator.
func (c *Catalog) FlushAccessCounts(ctx context.Context, accumulated map[int64]float64) error {
	if len(accumulated) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flush access counts: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE memories SET access_count = access_count + ?, last_accessed = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("prepare flush statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for id, weight := range accumulated {
		if _, err := stmt.ExecContext(ctx, int64(weight+0.5), now, id); err != nil {
			return fmt.Errorf("flush access for %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
