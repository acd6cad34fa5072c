// Package searcher implements query execution over the index store.
//
// Three retrieval modes are supported: vector similarity, BM25 keyword
// search, and hybrid, which runs both concurrently and merges rankings
// with Reciprocal Rank Fusion. A Codemap mode returns a declaration
// outline instead of chunk matches.
//
// Responses are cached in an LRU keyed by a hash of the query, mode,
// project and filters, with per-entry TTL. The cache is purged whenever
// the index is rebuilt.
package searcher
