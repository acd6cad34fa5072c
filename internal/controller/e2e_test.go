package controller

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdexhq/semdex/internal/client"
	"github.com/semdexhq/semdex/internal/collector"
	"github.com/semdexhq/semdex/internal/embedder"
	"github.com/semdexhq/semdex/internal/server"
	"github.com/semdexhq/semdex/internal/storage"
	"github.com/semdexhq/semdex/pkg/types"
)

// startEngine runs a real in-process index server on a unix socket
func startEngine(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	store, err := storage.NewSQLiteStorage(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb, err := embedder.New(embedder.Config{Provider: embedder.ProviderLocal, CacheSize: 100})
	require.NoError(t, err)

	socketPath := filepath.Join(dir, "engine.sock")
	ln, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = server.New(store, emb, nil).Serve(ctx, ln) }()

	return socketPath
}

func TestEndToEnd_TwoFolderBuildAndQuery(t *testing.T) {
	socketPath := startEngine(t)

	parent := t.TempDir()
	rootB := filepath.Join(parent, "b")
	rootA := filepath.Join(parent, "a")
	require.NoError(t, os.MkdirAll(rootA, 0o755))
	require.NoError(t, os.MkdirAll(rootB, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(rootA, "payments.go"),
		[]byte("package payments\n\nfunc ChargeCard(amount int) error {\n\treturn processTransaction(amount)\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rootB, "notes.md"),
		[]byte("# Release notes\n\nThe payments flow now retries failed transactions.\n"), 0o644))

	// Roots deliberately out of order; the sorted first root becomes the
	// project root
	roots := []string{rootB, rootA}
	projectRoot, err := types.ProjectRoot(roots)
	require.NoError(t, err)
	assert.Equal(t, rootA, projectRoot)

	inst := &fakeInstaller{installed: true, installOK: true}
	activate := func(context.Context) (client.Client, error) {
		return client.Dial(socketPath, nil)
	}
	recorder := &captureRecorder{}

	c := New(inst, collector.New(nil), activate, staticManifest(t), recorder,
		Config{Roots: roots, PollInterval: time.Minute}, nil)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	select {
	case <-c.Setup(ctx, types.BuildIndexConfig{MaxIndexSizeBytes: 10 << 20, VectorIndexEnabled: true}):
	case <-time.After(30 * time.Second):
		t.Fatal("setup did not finish")
	}

	require.Equal(t, types.StateReady, c.State())

	events := recorder.all()
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].FileCount)

	records := c.Query(ctx, "charge card payment transaction")
	require.NotEmpty(t, records)
	for _, r := range records {
		assert.NotEmpty(t, r.Content)
		assert.NotEmpty(t, r.RelativePath)
	}
}
