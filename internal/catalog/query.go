package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// AllMemories returns every memory row in the catalog, used to rebuild the
// in-process lexical and vector indexes on startup (they are regenerable
// caches over this table, not the source of truth).
func (c *Catalog) AllMemories(ctx context.Context) ([]*store.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.db.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query all memories: %w", err)
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

// MemoriesByTier returns every searchable memory at the given tier,
// feeding the constitutional cache loader (tier=constitutional) and any
// other tier-scoped listing.
func (c *Catalog) MemoriesByTier(ctx context.Context, tier store.ImportanceTier) ([]*store.Memory, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rows, err := c.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE importance_tier = ? AND embedding_status != 'failed'
		ORDER BY importance_weight DESC, created_at DESC`, string(tier))
	if err != nil {
		return nil, fmt.Errorf("query memories by tier: %w", err)
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

// FindByIdentity resolves the surrogate id for a (spec_folder, file_path,
// anchor_id) triple, the identity key index_memory's upsert callers need to
// decide between IndexMemory and UpdateMemory.
func (c *Catalog) FindByIdentity(ctx context.Context, specFolder, filePath, anchorID string) (*store.Memory, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := c.db.QueryRowContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE spec_folder = ? AND file_path = ? AND anchor_id = ?`, specFolder, filePath, anchorID)
	m, err := scanMemory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find memory by identity: %w", err)
	}
	return m, true, nil
}

// RecordConflict appends a prediction-error gating audit row.
func (c *Catalog) RecordConflict(ctx context.Context, rec store.ConflictRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO memory_conflicts (
			timestamp, new_memory_hash, existing_memory_id, similarity, action,
			contradiction_detected, notes
		) VALUES (?,?,?,?,?,?,?)`,
		ts, rec.NewMemoryHash, rec.ExistingMemoryID, rec.Similarity, string(rec.Action),
		boolToInt(rec.ContradictionDetected), rec.Notes)
	if err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}
	return nil
}

// DBPath returns the filesystem path backing this catalog ("" for an
// in-memory catalog), used by the constitutional cache's mtime check.
func (c *Catalog) DBPath() string {
	return c.path
}
