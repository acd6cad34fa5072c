package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	content map[string][]byte
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	data, ok := f.content[url]
	if !ok {
		return fmt.Errorf("no fixture for %s", url)
	}
	return os.WriteFile(dest, data, 0o644)
}

func testManifest() *Manifest {
	return &Manifest{
		SchemaVersion: "1.0.0",
		Entries: []Entry{
			{Name: EntryServer, Version: "1.2.0", Platform: runtime.GOOS, Arch: runtime.GOARCH, URL: "https://artifacts.test/server"},
			{Name: EntryNode, Version: "20.11.0", Platform: runtime.GOOS, Arch: runtime.GOARCH, URL: "https://artifacts.test/node"},
		},
	}
}

func newTestInstaller(t *testing.T) (*Installer, *fakeFetcher, string) {
	t.Helper()

	baseDir := t.TempDir()
	fetcher := &fakeFetcher{content: map[string][]byte{
		"https://artifacts.test/server": []byte("server-binary"),
		"https://artifacts.test/node":   []byte("node-binary"),
	}}
	return New(fetcher, baseDir, nil), fetcher, baseDir
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestInstall_Success(t *testing.T) {
	inst, _, _ := newTestInstaller(t)

	ok, err := inst.Install(context.Background(), testManifest())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, inst.IsInstalled())

	data, err := os.ReadFile(inst.ServerBinaryPath())
	require.NoError(t, err)
	assert.Equal(t, "server-binary", string(data))

	info, err := os.Stat(inst.RuntimeBinaryPath())
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.NotZero(t, info.Mode()&0o100, "binary must be executable")
	}
}

func TestInstall_MissingEntryNoSideEffects(t *testing.T) {
	inst, fetcher, baseDir := newTestInstaller(t)

	manifest := testManifest()
	manifest.Entries = manifest.Entries[:1] // Drop the node entry

	ok, err := inst.Install(context.Background(), manifest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, inst.IsInstalled())
	assert.Zero(t, fetcher.calls)
	assert.Empty(t, dirEntries(t, baseDir))
}

func TestInstall_WrongPlatformNoSideEffects(t *testing.T) {
	inst, _, baseDir := newTestInstaller(t)

	manifest := testManifest()
	for i := range manifest.Entries {
		manifest.Entries[i].Platform = "plan9"
	}

	ok, err := inst.Install(context.Background(), manifest)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, dirEntries(t, baseDir))
}

func TestInstallCleanup_RoundTrip(t *testing.T) {
	inst, _, baseDir := newTestInstaller(t)

	before := dirEntries(t, baseDir)

	ok, err := inst.Install(context.Background(), testManifest())
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, inst.Cleanup())
	assert.False(t, inst.IsInstalled())
	assert.Equal(t, before, dirEntries(t, baseDir))

	// Second cleanup is a no-op
	require.NoError(t, inst.Cleanup())
}

func TestInstall_FetchFailureRemovesScratch(t *testing.T) {
	inst, fetcher, baseDir := newTestInstaller(t)
	fetcher.err = errors.New("network down")

	ok, err := inst.Install(context.Background(), testManifest())
	assert.False(t, ok)
	assert.Error(t, err)
	assert.False(t, inst.IsInstalled())

	for _, name := range dirEntries(t, baseDir) {
		assert.NotContains(t, name, "install-", "scratch dir must not survive")
	}
}

func TestInstall_DigestMismatch(t *testing.T) {
	inst, _, _ := newTestInstaller(t)

	manifest := testManifest()
	manifest.Entries[0].SHA256 = "deadbeef"

	ok, err := inst.Install(context.Background(), manifest)
	assert.False(t, ok)
	assert.ErrorContains(t, err, "digest mismatch")
	assert.False(t, inst.IsInstalled())
}

func TestInstall_DigestVerified(t *testing.T) {
	inst, _, _ := newTestInstaller(t)

	sum := sha256.Sum256([]byte("server-binary"))
	manifest := testManifest()
	manifest.Entries[0].SHA256 = hex.EncodeToString(sum[:])

	ok, err := inst.Install(context.Background(), manifest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInstall_ReplacesPreviousInstall(t *testing.T) {
	inst, fetcher, _ := newTestInstaller(t)

	ok, err := inst.Install(context.Background(), testManifest())
	require.NoError(t, err)
	require.True(t, ok)

	fetcher.content["https://artifacts.test/server"] = []byte("server-binary-v2")
	ok, err = inst.Install(context.Background(), testManifest())
	require.NoError(t, err)
	require.True(t, ok)

	data, err := os.ReadFile(inst.ServerBinaryPath())
	require.NoError(t, err)
	assert.Equal(t, "server-binary-v2", string(data))
}

func TestIsInstalled_PartialInstall(t *testing.T) {
	inst, _, _ := newTestInstaller(t)

	// Only the server binary present, runtime missing
	require.NoError(t, os.MkdirAll(filepath.Dir(inst.ServerBinaryPath()), 0o755))
	require.NoError(t, os.WriteFile(inst.ServerBinaryPath(), []byte("x"), 0o755))

	assert.False(t, inst.IsInstalled())
}
