package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// writerLock is a cross-process exclusive lock guarding the catalog's single
// writer connection. SQLite's own locking handles statement-level safety;
// this exists so two memoryd processes pointed at the same database file
// fail fast with a clear error instead of fighting over WAL checkpoints.
type writerLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newWriterLock(dbPath string) *writerLock {
	lockPath := dbPath + ".writer.lock"
	return &writerLock{path: lockPath, flock: flock.New(lockPath)}
}

// TryLock acquires the lock without blocking. ok is false if another process
// already holds it.
func (l *writerLock) TryLock() (ok bool, err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire writer lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

func (l *writerLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release writer lock: %w", err)
	}
	l.locked = false
	return nil
}
