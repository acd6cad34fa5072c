package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultManifestURL, cfg.ManifestURL)
	assert.Equal(t, DefaultMaxIndexSize, cfg.MaxIndexSizeBytes)
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.False(t, cfg.VectorIndexEnabled)
	assert.NotEmpty(t, cfg.InstallDir)
	assert.NotEmpty(t, cfg.DataDir)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SEMDEX_MANIFEST_URL", "https://internal.example.com/manifest.json")
	t.Setenv("SEMDEX_VECTOR_INDEX_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://internal.example.com/manifest.json", cfg.ManifestURL)
	assert.True(t, cfg.VectorIndexEnabled)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semdex.yaml")
	content := `
manifest_url: https://file.example.com/manifest.json
max_index_size_bytes: 1048576
poll_interval: 30s
roots:
  - /workspace/a
  - /workspace/b
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/manifest.json", cfg.ManifestURL)
	assert.Equal(t, int64(1048576), cfg.MaxIndexSizeBytes)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, []string{"/workspace/a", "/workspace/b"}, cfg.Roots)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "semdex.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_index_size_bytes: -5\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "max_index_size_bytes")
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/var/lib/semdex"}
	assert.Equal(t, "/var/lib/semdex/engine.sock", cfg.SocketPath())
	assert.Equal(t, "/var/lib/semdex/index.db", cfg.DBPath())
}
