// Package catalog implements the relational memory catalog: a single-writer
// SQLite database holding memories, their embeddings, mutation history,
// checkpoints, and conflict-gate audit rows.
package catalog

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/devalexanderdaza/memoryd/internal/store"
)

// Catalog is the SQLite-backed implementation of store.CatalogStore.
type Catalog struct {
	mu   sync.Mutex
	db   *sql.DB
	lock *writerLock
	path string
}

var _ store.CatalogStore = (*Catalog)(nil)

// Open opens (creating if necessary) the catalog database at path, applies
// pragmas, acquires the cross-process writer lock, and runs migrations.
// An empty path opens a private in-memory database, used by tests.
func Open(path string) (*Catalog, error) {
	dsn := path
	var lock *writerLock
	if path == "" {
		dsn = ":memory:"
	} else {
		l := newWriterLock(path)
		ok, err := l.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire catalog writer lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("catalog at %s is already open for writing by another process", path)
		}
		lock = l
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, fmt.Errorf("open catalog database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		if lock != nil {
			_ = lock.Unlock()
		}
		return nil, err
	}

	return &Catalog{db: db, lock: lock, path: path}, nil
}

// Close releases the database handle and the writer lock.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.path != "" {
		if _, err := c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			slog.Warn("catalog wal checkpoint on close failed", slog.String("error", err.Error()))
		}
	}
	if err := c.db.Close(); err != nil {
		firstErr = fmt.Errorf("close catalog db: %w", err)
	}
	if c.lock != nil {
		if err := c.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
