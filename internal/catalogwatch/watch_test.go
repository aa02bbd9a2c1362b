package catalogwatch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_FiresOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0o644))

	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := New(ctx, path, func() { atomic.AddInt32(&calls, 1) })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("v2 with more bytes"), 0o644))

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestNew_ErrorsOnMissingFile(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/path/catalog.db", func() {})
	assert.Error(t, err)
}
