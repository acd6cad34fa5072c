// Package server implements the index engine side of the host <-> engine
// protocol. It listens on a unix socket, decodes ipc requests, and routes
// them to the indexer and searcher.
//
// Queries issued before any build has completed return empty results
// rather than errors, so the host can probe freely during startup.
package server
