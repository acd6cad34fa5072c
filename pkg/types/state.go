package types

// IndexState models the lifecycle of the managed index server. Exactly one
// instance exists per process. Transitions are one-directional except that
// Ready and Failed may re-enter Indexing for a re-index.
type IndexState int32

const (
	StateNotInstalled IndexState = iota
	StateInstalled
	StateActivating
	StateIndexing
	StateReady
	StateFailed
)

// String returns a human-readable state name
func (s IndexState) String() string {
	switch s {
	case StateNotInstalled:
		return "not_installed"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "invalid"
	}
}

// CanBuild reports whether a build may start from this state
func (s IndexState) CanBuild() bool {
	switch s {
	case StateActivating, StateIndexing, StateReady, StateFailed:
		return true
	default:
		return false
	}
}
