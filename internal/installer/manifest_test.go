package installer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_Valid(t *testing.T) {
	data := []byte(`{
		"schemaVersion": "1.0.0",
		"entries": [
			{"name": "server", "version": "1.2.0", "platform": "linux", "arch": "amd64", "url": "https://a.test/s"},
			{"name": "node", "version": "20.11.0", "platform": "linux", "arch": "amd64", "url": "https://a.test/n"}
		]
	}`)

	manifest, err := ParseManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", manifest.SchemaVersion)
	require.Len(t, manifest.Entries, 2)
	assert.Equal(t, "server", manifest.Entries[0].Name)
}

func TestParseManifest_MissingRequiredField(t *testing.T) {
	data := []byte(`{
		"schemaVersion": "1.0.0",
		"entries": [{"name": "server", "version": "1.0.0"}]
	}`)

	_, err := ParseManifest(data)
	assert.ErrorContains(t, err, "invalid manifest")
}

func TestParseManifest_NotJSON(t *testing.T) {
	_, err := ParseManifest([]byte("not json at all"))
	assert.Error(t, err)
}

func TestParseManifest_BadSchemaVersion(t *testing.T) {
	data := []byte(`{"schemaVersion": "latest", "entries": []}`)

	_, err := ParseManifest(data)
	assert.ErrorContains(t, err, "schema version")
}

func TestResolve_PicksHighestSupported(t *testing.T) {
	manifest := &Manifest{
		SchemaVersion: "1.0.0",
		Entries: []Entry{
			{Name: "server", Version: "1.0.0", Platform: "linux", Arch: "amd64", URL: "u1"},
			{Name: "server", Version: "1.3.0", Platform: "linux", Arch: "amd64", URL: "u2"},
			{Name: "server", Version: "2.0.0", Platform: "linux", Arch: "amd64", URL: "u3"},
			{Name: "server", Version: "1.4.0", Platform: "darwin", Arch: "arm64", URL: "u4"},
		},
	}

	entry, ok := manifest.Resolve("server", "linux", "amd64", SupportedServerVersions)
	require.True(t, ok)
	// 2.0.0 is outside the pinned range, 1.3.0 is the highest supported
	assert.Equal(t, "1.3.0", entry.Version)
	assert.Equal(t, "u2", entry.URL)
}

func TestResolve_NoMatch(t *testing.T) {
	manifest := &Manifest{
		SchemaVersion: "1.0.0",
		Entries: []Entry{
			{Name: "server", Version: "1.0.0", Platform: "linux", Arch: "amd64", URL: "u"},
		},
	}

	_, ok := manifest.Resolve("node", "linux", "amd64", nil)
	assert.False(t, ok)

	_, ok = manifest.Resolve("server", "windows", "amd64", nil)
	assert.False(t, ok)
}

func TestResolve_SkipsUnparseableVersions(t *testing.T) {
	manifest := &Manifest{
		SchemaVersion: "1.0.0",
		Entries: []Entry{
			{Name: "node", Version: "not-a-version", Platform: "linux", Arch: "amd64", URL: "bad"},
			{Name: "node", Version: "20.0.0", Platform: "linux", Arch: "amd64", URL: "good"},
		},
	}

	entry, ok := manifest.Resolve("node", "linux", "amd64", nil)
	require.True(t, ok)
	assert.Equal(t, "good", entry.URL)
}
