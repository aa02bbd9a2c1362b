// Package catalogwatch watches the catalog's SQLite file for external
// modification (batch CLI scripts writing to the DB outside this process)
// so in-process caches like the constitutional cache can invalidate early
// instead of waiting out their TTL.
package catalogwatch

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies a callback whenever the watched database file changes.
type Watcher struct {
	fsw      *fsnotify.Watcher
	onChange func()
}

// New starts watching dbPath for writes, invoking onChange on every
// detected modification. Returns the Watcher so the caller can Close it;
// watch failures are logged and degrade to "never invalidate early" rather
// than failing startup, since the constitutional cache's TTL already
// provides an upper bound on staleness.
func New(ctx context.Context, dbPath string, onChange func()) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fsw.Add(dbPath); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, onChange: onChange}
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.onChange()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("catalog file watch error", slog.Any("error", err))
		}
	}
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
