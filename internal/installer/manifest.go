package installer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/xeipuuv/gojsonschema"
)

// Entry names every manifest must be able to resolve for an install to
// proceed.
const (
	EntryServer = "server"
	EntryNode   = "node"
)

// SupportedServerVersions pins the artifact versions this host accepts.
var SupportedServerVersions = mustConstraint("^1.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("invalid version constraint %q: %v", s, err))
	}
	return c
}

// manifestSchema validates the manifest document shape before any field is
// trusted.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["schemaVersion", "entries"],
  "properties": {
    "schemaVersion": {"type": "string", "minLength": 1},
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "version", "platform", "arch", "url"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "version": {"type": "string", "minLength": 1},
          "platform": {"type": "string", "minLength": 1},
          "arch": {"type": "string", "minLength": 1},
          "url": {"type": "string", "minLength": 1},
          "sha256": {"type": "string"}
        }
      }
    }
  }
}`

// Manifest enumerates downloadable artifacts per platform and architecture
type Manifest struct {
	SchemaVersion string  `json:"schemaVersion"`
	Entries       []Entry `json:"entries"`
}

// Entry describes one downloadable artifact
type Entry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
	URL      string `json:"url"`
	SHA256   string `json:"sha256,omitempty"`
}

// ParseManifest validates raw manifest bytes against the schema and decodes
// them
func ParseManifest(data []byte) (*Manifest, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(manifestSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, fmt.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	if _, err := semver.NewVersion(manifest.SchemaVersion); err != nil {
		return nil, fmt.Errorf("invalid manifest schema version %q: %w", manifest.SchemaVersion, err)
	}

	return &manifest, nil
}

// Resolve returns the highest-versioned entry matching name, platform and
// arch that satisfies the version constraint. The second return is false
// when no entry matches.
func (m *Manifest) Resolve(name, platform, arch string, constraint *semver.Constraints) (*Entry, bool) {
	var (
		best        *Entry
		bestVersion *semver.Version
	)

	for i := range m.Entries {
		entry := &m.Entries[i]
		if entry.Name != name || entry.Platform != platform || entry.Arch != arch {
			continue
		}

		version, err := semver.NewVersion(entry.Version)
		if err != nil {
			continue
		}
		if constraint != nil && !constraint.Check(version) {
			continue
		}

		if bestVersion == nil || version.GreaterThan(bestVersion) {
			best = entry
			bestVersion = version
		}
	}

	return best, best != nil
}
