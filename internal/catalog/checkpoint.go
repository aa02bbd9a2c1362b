package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

type checkpointMemorySnapshot struct {
	Memory    store.Memory `json:"memory"`
	Embedding []float32    `json:"embedding,omitempty"`
}

// CreateCheckpoint snapshots every memory (and embedding) under specFolder
// (or the whole catalog when specFolder is empty) into a named, restorable
// checkpoint.
func (c *Catalog) CreateCheckpoint(ctx context.Context, name, specFolder, gitBranch string, metadata map[string]string) (*store.Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `SELECT ` + memoryColumns + ` FROM memories`
	args := []any{}
	if specFolder != "" {
		query += ` WHERE spec_folder = ?`
		args = append(args, specFolder)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query memories for checkpoint: %w", err)
	}
	var memories []*store.Memory
	for rows.Next() {
		m, err := scanMemory(rows.Scan)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan memory for checkpoint: %w", err)
		}
		memories = append(memories, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin checkpoint: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints WHERE name = ?`, name); err != nil {
		return nil, fmt.Errorf("clear prior checkpoint: %w", err)
	}

	now := time.Now()
	embeddingCount := 0
	for _, m := range memories {
		var buf []byte
		err := tx.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE memory_id = ?`, m.ID).Scan(&buf)
		var embedding []float32
		switch err {
		case nil:
			embedding, err = decodeVector(buf)
			if err != nil {
				return nil, fmt.Errorf("decode embedding for memory %d: %w", m.ID, err)
			}
			embeddingCount++
		case sql.ErrNoRows:
		default:
			return nil, fmt.Errorf("read embedding for memory %d: %w", m.ID, err)
		}

		snap := checkpointMemorySnapshot{Memory: *m, Embedding: embedding}
		payload, err := json.Marshal(snap)
		if err != nil {
			return nil, fmt.Errorf("marshal memory snapshot: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checkpoint_memories (checkpoint_name, memory_json) VALUES (?,?)`,
			name, string(payload)); err != nil {
			return nil, fmt.Errorf("insert checkpoint memory: %w", err)
		}
	}

	cp := &store.Checkpoint{
		Name:           name,
		CreatedAt:      now,
		SpecFolder:     specFolder,
		GitBranch:      gitBranch,
		MemoryCount:    len(memories),
		EmbeddingCount: embeddingCount,
		Metadata:       metadata,
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (name, created_at, spec_folder, git_branch, memory_count, embedding_count, metadata)
		VALUES (?,?,?,?,?,?,?)`,
		cp.Name, cp.CreatedAt, cp.SpecFolder, cp.GitBranch, cp.MemoryCount, cp.EmbeddingCount, marshalMetadata(metadata),
	); err != nil {
		return nil, fmt.Errorf("insert checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit checkpoint: %w", err)
	}
	return cp, nil
}

// ListCheckpoints returns checkpoints, optionally filtered to one spec folder.
func (c *Catalog) ListCheckpoints(ctx context.Context, specFolder string) ([]*store.Checkpoint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	query := `SELECT name, created_at, spec_folder, git_branch, memory_count, embedding_count, metadata FROM checkpoints`
	args := []any{}
	if specFolder != "" {
		query += ` WHERE spec_folder = ?`
		args = append(args, specFolder)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*store.Checkpoint
	for rows.Next() {
		var cp store.Checkpoint
		var metadata string
		if err := rows.Scan(&cp.Name, &cp.CreatedAt, &cp.SpecFolder, &cp.GitBranch, &cp.MemoryCount, &cp.EmbeddingCount, &metadata); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cp.Metadata = unmarshalMetadata(metadata)
		out = append(out, &cp)
	}
	return out, rows.Err()
}

// DeleteCheckpoint removes a checkpoint and its snapshotted memories.
func (c *Catalog) DeleteCheckpoint(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// RestoreCheckpoint reconciles the live catalog against a checkpoint's
// snapshot, keyed by (file_path, spec_folder): rows present in
// both are UPSERTed, rows only in the snapshot are re-inserted, and (when
// clearExisting is set) live rows absent from the snapshot are marked
// deprecated rather than deleted outright. Embedding dimension mismatches
// against the currently active provider are skipped and left pending, never
// silently truncated.
func (c *Catalog) RestoreCheckpoint(ctx context.Context, name string, clearExisting, reinsertMemories bool) (*store.RestoreResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.QueryContext(ctx, `SELECT memory_json FROM checkpoint_memories WHERE checkpoint_name = ?`, name)
	if err != nil {
		return nil, fmt.Errorf("query checkpoint snapshot: %w", err)
	}
	var snapshots []checkpointMemorySnapshot
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan checkpoint memory: %w", err)
		}
		var snap checkpointMemorySnapshot
		if err := json.Unmarshal([]byte(payload), &snap); err != nil {
			rows.Close()
			return nil, fmt.Errorf("unmarshal checkpoint memory: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("checkpoint %q has no snapshotted memories (or does not exist)", name)
	}

	result := &store.RestoreResult{TotalInSnapshot: len(snapshots)}
	if !reinsertMemories {
		return result, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin restore: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seenKeys := make(map[string]struct{}, len(snapshots))
	now := time.Now()
	for _, snap := range snapshots {
		m := snap.Memory
		key := m.SpecFolder + "\x00" + m.FilePath + "\x00" + m.AnchorID
		seenKeys[key] = struct{}{}

		var existingID int64
		err := tx.QueryRowContext(ctx, `
			SELECT id FROM memories WHERE spec_folder = ? AND file_path = ? AND anchor_id = ?`,
			m.SpecFolder, m.FilePath, m.AnchorID).Scan(&existingID)

		switch err {
		case sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `
				INSERT INTO memories (
					spec_folder, file_path, anchor_id, title, trigger_phrases, content,
					content_hash, file_size, embedding_model, embedding_status, importance_tier,
					context_type, memory_type, channel, importance_weight, base_importance,
					decay_half_life_days, is_pinned, confidence, created_at, updated_at, related_memories
				) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
				m.SpecFolder, m.FilePath, m.AnchorID, m.Title, marshalStrings(m.TriggerPhrases), m.Content,
				m.ContentHash, m.FileSize, m.EmbeddingModel, string(m.EmbeddingStatus), string(m.ImportanceTier),
				string(m.ContextType), string(m.MemoryType), m.Channel, m.ImportanceWeight, m.BaseImportance,
				m.DecayHalfLifeDays, boolToInt(m.IsPinned), m.Confidence, now, now, marshalRelated(m.RelatedMemories),
			)
			if err != nil {
				return nil, fmt.Errorf("reinsert memory %s/%s: %w", m.SpecFolder, m.FilePath, err)
			}
			newID, err := res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("read reinserted id: %w", err)
			}
			existingID = newID
			result.Inserted++
		case nil:
			_, err := tx.ExecContext(ctx, `
				UPDATE memories SET title = ?, trigger_phrases = ?, content = ?, content_hash = ?,
					file_size = ?, importance_tier = ?, context_type = ?, memory_type = ?, channel = ?,
					importance_weight = ?, base_importance = ?, updated_at = ?, related_memories = ?
				WHERE id = ?`,
				m.Title, marshalStrings(m.TriggerPhrases), m.Content, m.ContentHash, m.FileSize,
				string(m.ImportanceTier), string(m.ContextType), string(m.MemoryType), m.Channel,
				m.ImportanceWeight, m.BaseImportance, now, marshalRelated(m.RelatedMemories), existingID,
			)
			if err != nil {
				return nil, fmt.Errorf("update memory %d during restore: %w", existingID, err)
			}
			result.Updated++
		default:
			return nil, fmt.Errorf("lookup existing memory during restore: %w", err)
		}

		if len(snap.Embedding) == 0 {
			continue
		}
		var activeDims int
		if err := tx.QueryRowContext(ctx, `SELECT dims FROM embeddings LIMIT 1`).Scan(&activeDims); err == nil &&
			activeDims != 0 && activeDims != len(snap.Embedding) {
			result.EmbeddingsSkipped++
			if _, err := tx.ExecContext(ctx, `
				UPDATE memories SET embedding_status = ? WHERE id = ?`,
				string(store.EmbeddingPending), existingID); err != nil {
				return nil, fmt.Errorf("mark embedding pending after dimension mismatch: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO embeddings (memory_id, dims, vector) VALUES (?,?,?)
			ON CONFLICT(memory_id) DO UPDATE SET dims = excluded.dims, vector = excluded.vector`,
			existingID, len(snap.Embedding), encodeVector(snap.Embedding)); err != nil {
			return nil, fmt.Errorf("restore embedding for %d: %w", existingID, err)
		}
		result.EmbeddingsRestored++
	}

	if clearExisting {
		scopeQuery := `SELECT id, spec_folder, file_path, anchor_id FROM memories`
		scopeArgs := []any{}
		if snapshots[0].Memory.SpecFolder != "" {
			scopeQuery += ` WHERE spec_folder = ?`
			scopeArgs = append(scopeArgs, snapshots[0].Memory.SpecFolder)
		}
		liveRows, err := tx.QueryContext(ctx, scopeQuery, scopeArgs...)
		if err != nil {
			return nil, fmt.Errorf("query live memories for deprecation: %w", err)
		}
		type liveRow struct {
			id                             int64
			specFolder, filePath, anchorID string
		}
		var toDeprecate []liveRow
		for liveRows.Next() {
			var r liveRow
			if err := liveRows.Scan(&r.id, &r.specFolder, &r.filePath, &r.anchorID); err != nil {
				liveRows.Close()
				return nil, fmt.Errorf("scan live memory: %w", err)
			}
			key := r.specFolder + "\x00" + r.filePath + "\x00" + r.anchorID
			if _, ok := seenKeys[key]; !ok {
				toDeprecate = append(toDeprecate, r)
			}
		}
		liveRows.Close()
		if err := liveRows.Err(); err != nil {
			return nil, err
		}
		for _, r := range toDeprecate {
			if _, err := tx.ExecContext(ctx, `
				UPDATE memories SET importance_tier = ? WHERE id = ?`, string(store.TierDeprecated), r.id); err != nil {
				return nil, fmt.Errorf("deprecate memory %d: %w", r.id, err)
			}
			result.Deprecated++
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit restore: %w", err)
	}
	return result, nil
}
