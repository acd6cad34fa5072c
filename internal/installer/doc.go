// Package installer manages the on-disk installation of the index server
// artifact and its node runtime.
//
// Artifacts are described by a JSON manifest validated against a schema
// before any field is trusted. Install resolves the two required entries
// for the current platform, and refuses to run when either is missing.
// Downloads are staged in a scratch directory and swapped into place with
// directory renames; the scratch area is removed on every exit path.
// Cleanup is idempotent.
package installer
