package catalog

import (
	"database/sql"
	"fmt"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// pragmas configures the single writer connection: WAL for readers that
// don't block the writer, a generous busy timeout for lock contention, a
// 64MiB page cache and a 256MiB mmap window sized for a catalog in the
// low tens of thousands of memories, and in-memory temp tables.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA foreign_keys = ON",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -65536",
	"PRAGMA mmap_size = 268435456",
	"PRAGMA temp_store = MEMORY",
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	return nil
}

// migrations is an ordered list of schema steps, applied inside one
// transaction each, tracked in schema_version. Each entry brings the schema
// from version i to i+1.
var migrations = []string{
	// v1: base schema.
	`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		spec_folder TEXT NOT NULL,
		file_path TEXT NOT NULL,
		anchor_id TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		trigger_phrases TEXT NOT NULL DEFAULT '[]',
		content TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL DEFAULT '',
		file_size INTEGER NOT NULL DEFAULT 0,
		embedding_model TEXT NOT NULL DEFAULT '',
		embedding_status TEXT NOT NULL DEFAULT 'pending',
		retry_count INTEGER NOT NULL DEFAULT 0,
		last_retry_at TIMESTAMP,
		failure_reason TEXT NOT NULL DEFAULT '',
		importance_tier TEXT NOT NULL DEFAULT 'normal',
		context_type TEXT NOT NULL DEFAULT 'general',
		memory_type TEXT NOT NULL DEFAULT 'semantic',
		channel TEXT NOT NULL DEFAULT 'default',
		importance_weight REAL NOT NULL DEFAULT 0.5,
		base_importance REAL NOT NULL DEFAULT 0.5,
		decay_half_life_days REAL NOT NULL DEFAULT 90,
		access_count INTEGER NOT NULL DEFAULT 0,
		last_accessed INTEGER NOT NULL DEFAULT 0,
		is_pinned INTEGER NOT NULL DEFAULT 0,
		confidence REAL NOT NULL DEFAULT 0.5,
		validation_count INTEGER NOT NULL DEFAULT 0,
		stability REAL NOT NULL DEFAULT 0,
		difficulty REAL NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		last_review TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP,
		related_memories TEXT NOT NULL DEFAULT '[]',
		UNIQUE(spec_folder, file_path, anchor_id)
	);
	CREATE INDEX IF NOT EXISTS idx_memories_folder ON memories(spec_folder);
	CREATE INDEX IF NOT EXISTS idx_memories_tier ON memories(importance_tier);
	CREATE INDEX IF NOT EXISTS idx_memories_embedding_status ON memories(embedding_status);
	CREATE INDEX IF NOT EXISTS idx_memories_updated_at ON memories(updated_at);

	CREATE TABLE IF NOT EXISTS embeddings (
		memory_id INTEGER PRIMARY KEY REFERENCES memories(id) ON DELETE CASCADE,
		dims INTEGER NOT NULL,
		vector BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		memory_id INTEGER NOT NULL,
		event TEXT NOT NULL,
		prev_value TEXT NOT NULL DEFAULT '',
		new_value TEXT NOT NULL DEFAULT '',
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		actor TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_history_memory ON history(memory_id);

	CREATE TABLE IF NOT EXISTS checkpoints (
		name TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		spec_folder TEXT NOT NULL DEFAULT '',
		git_branch TEXT NOT NULL DEFAULT '',
		memory_count INTEGER NOT NULL DEFAULT 0,
		embedding_count INTEGER NOT NULL DEFAULT 0,
		metadata TEXT NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS checkpoint_memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		checkpoint_name TEXT NOT NULL REFERENCES checkpoints(name) ON DELETE CASCADE,
		memory_json TEXT NOT NULL,
		embedding BLOB
	);
	CREATE INDEX IF NOT EXISTS idx_checkpoint_memories_name ON checkpoint_memories(checkpoint_name);

	CREATE TABLE IF NOT EXISTS memory_conflicts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		new_memory_hash TEXT NOT NULL,
		existing_memory_id INTEGER NOT NULL DEFAULT 0,
		similarity REAL NOT NULL DEFAULT 0,
		action TEXT NOT NULL,
		contradiction_detected INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT ''
	);
	`,
}

// migrate brings the schema up to store.CurrentSchemaVersion, applying any
// steps not yet recorded in schema_version. Each step runs in its own
// transaction so a crash mid-migration leaves the schema at a known version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current := 0
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema_version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}
	}

	if len(migrations) != store.CurrentSchemaVersion {
		return fmt.Errorf("migrations list (%d) and store.CurrentSchemaVersion (%d) disagree", len(migrations), store.CurrentSchemaVersion)
	}
	return nil
}
