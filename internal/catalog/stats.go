package catalog

import (
	"context"
	"fmt"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// GetStats summarizes catalog contents for memory_health and `memoryd health`.
func (c *Catalog) GetStats(ctx context.Context) (*store.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &store.Stats{
		ByTier:        map[store.ImportanceTier]int{},
		SchemaVersion: store.CurrentSchemaVersion,
		DBPath:        c.path,
	}

	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&s.TotalMemories); err != nil {
		return nil, fmt.Errorf("count memories: %w", err)
	}

	tierRows, err := c.db.QueryContext(ctx, `SELECT importance_tier, COUNT(*) FROM memories GROUP BY importance_tier`)
	if err != nil {
		return nil, fmt.Errorf("count by tier: %w", err)
	}
	for tierRows.Next() {
		var tier string
		var n int
		if err := tierRows.Scan(&tier, &n); err != nil {
			tierRows.Close()
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		s.ByTier[store.ImportanceTier(tier)] = n
	}
	tierRows.Close()
	if err := tierRows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := c.db.QueryContext(ctx, `SELECT embedding_status, COUNT(*) FROM memories GROUP BY embedding_status`)
	if err != nil {
		return nil, fmt.Errorf("count by embedding status: %w", err)
	}
	for statusRows.Next() {
		var status string
		var n int
		if err := statusRows.Scan(&status, &n); err != nil {
			statusRows.Close()
			return nil, fmt.Errorf("scan embedding status count: %w", err)
		}
		switch store.EmbeddingStatus(status) {
		case store.EmbeddingPending, store.EmbeddingRetry:
			s.EmbeddingPending += n
		case store.EmbeddingSuccess:
			s.EmbeddingSuccess = n
		case store.EmbeddingFailed:
			s.EmbeddingFailed = n
		}
	}
	statusRows.Close()
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	var activeDims int
	_ = c.db.QueryRowContext(ctx, `SELECT dims FROM embeddings LIMIT 1`).Scan(&activeDims)
	s.ActiveDimension = activeDims

	return s, nil
}

// VerifyIntegrity finds embedding rows with no owning memory (orphans, left
// behind by a crash between memory delete and cascade) and memories marked
// embedding_status=success with no embedding row (a torn write). With
// autoClean, orphan embeddings are deleted and missing-embedding memories are
// reset to embedding_status=pending so a reindex pass picks them back up.
func (c *Catalog) VerifyIntegrity(ctx context.Context, autoClean bool) (*store.IntegrityReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	report := &store.IntegrityReport{}

	orphanRows, err := c.db.QueryContext(ctx, `
		SELECT e.memory_id FROM embeddings e LEFT JOIN memories m ON e.memory_id = m.id WHERE m.id IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("find orphan embeddings: %w", err)
	}
	for orphanRows.Next() {
		var id int64
		if err := orphanRows.Scan(&id); err != nil {
			orphanRows.Close()
			return nil, fmt.Errorf("scan orphan embedding: %w", err)
		}
		report.OrphanEmbeddings = append(report.OrphanEmbeddings, id)
	}
	orphanRows.Close()
	if err := orphanRows.Err(); err != nil {
		return nil, err
	}

	missingRows, err := c.db.QueryContext(ctx, `
		SELECT m.id FROM memories m LEFT JOIN embeddings e ON m.id = e.memory_id
		WHERE m.embedding_status = ? AND e.memory_id IS NULL`, string(store.EmbeddingSuccess))
	if err != nil {
		return nil, fmt.Errorf("find memories missing embeddings: %w", err)
	}
	for missingRows.Next() {
		var id int64
		if err := missingRows.Scan(&id); err != nil {
			missingRows.Close()
			return nil, fmt.Errorf("scan missing-embedding memory: %w", err)
		}
		report.MissingEmbeddings = append(report.MissingEmbeddings, id)
	}
	missingRows.Close()
	if err := missingRows.Err(); err != nil {
		return nil, err
	}

	if !autoClean || (len(report.OrphanEmbeddings) == 0 && len(report.MissingEmbeddings) == 0) {
		return report, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin integrity cleanup: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range report.OrphanEmbeddings {
		if _, err := tx.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete orphan embedding %d: %w", id, err)
		}
	}
	for _, id := range report.MissingEmbeddings {
		if _, err := tx.ExecContext(ctx, `
			UPDATE memories SET embedding_status = ? WHERE id = ?`, string(store.EmbeddingPending), id); err != nil {
			return nil, fmt.Errorf("reset embedding status for %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit integrity cleanup: %w", err)
	}
	report.Cleaned = true
	return report, nil
}
