package types

import "sort"

// LanguageUnknown is the sentinel language tag for unrecognized files.
// Normalized query results omit the tag entirely when it carries this value.
const LanguageUnknown = "unknown"

// IndexMode selects how much of the index is built.
type IndexMode string

const (
	// IndexModeAll builds the full index including vector embeddings
	IndexModeAll IndexMode = "all"
	// IndexModeDefault builds the lexical index only
	IndexModeDefault IndexMode = "default"
)

// FileDescriptor identifies a candidate file produced by the workspace
// collector. The collected set's total size never exceeds the configured
// budget.
type FileDescriptor struct {
	Path      string
	SizeBytes int64
}

// BuildIndexConfig carries per-build options supplied by the caller.
// It is not persisted between builds.
type BuildIndexConfig struct {
	StartURL           string // Optional account/start-URL tag for observability
	MaxIndexSizeBytes  int64  // Collection size budget in bytes
	VectorIndexEnabled bool   // Selects IndexModeAll vs IndexModeDefault
}

// Mode returns the index mode selected by the config.
func (c BuildIndexConfig) Mode() IndexMode {
	if c.VectorIndexEnabled {
		return IndexModeAll
	}
	return IndexModeDefault
}

// UsageSample is a point-in-time resource reading from the index server.
// Samples are ephemeral; only the latest value is ever held.
type UsageSample struct {
	CPUPercent  float64
	MemoryBytes uint64
}

// ProjectRoot returns the canonical project root for a set of workspace
// roots: the first element after a deterministic sort. Returns
// ErrNoWorkspaceRoots when the set is empty.
func ProjectRoot(roots []string) (string, error) {
	if len(roots) == 0 {
		return "", ErrNoWorkspaceRoots
	}
	sorted := make([]string, len(roots))
	copy(sorted, roots)
	sort.Strings(sorted)
	return sorted[0], nil
}
