package watcher

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

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()

	var triggers atomic.Int32
	w, err := New([]string{root}, 100*time.Millisecond, func() { triggers.Add(1) }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("v"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return triggers.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	// No further events, no further triggers
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, int32(1), triggers.Load())
}

func TestWatcher_NewSubdirectoryIsWatched(t *testing.T) {
	root := t.TempDir()

	var triggers atomic.Int32
	w, err := New([]string{root}, 50*time.Millisecond, func() { triggers.Add(1) }, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	sub := filepath.Join(root, "pkg")
	require.NoError(t, os.Mkdir(sub, 0o755))
	require.Eventually(t, func() bool { return triggers.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := triggers.Load()
	require.NoError(t, os.WriteFile(filepath.Join(sub, "new.go"), []byte("package pkg\n"), 0o644))
	require.Eventually(t, func() bool { return triggers.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	root := t.TempDir()

	w, err := New([]string{root}, 50*time.Millisecond, func() {}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := w.Start(ctx)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop on cancellation")
	}
}
