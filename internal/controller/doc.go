// Package controller owns the index server lifecycle for the host:
// install state, activation of the server process, index builds, query
// normalization and usage monitoring.
//
// The lifecycle is a one-way state machine (not_installed, installed,
// activating, indexing, ready, failed) where ready and failed may
// re-enter indexing for a rebuild. Builds are mutually excluded by a
// non-blocking flag; a concurrent attempt is rejected, never queued.
// Query paths absorb every failure into an empty result so the host
// stays responsive.
package controller
