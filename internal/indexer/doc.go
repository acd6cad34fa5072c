// Package indexer implements the index build pipeline for the semdex
// engine. It takes the file list selected by the host, chunks each file,
// writes files and chunks to storage, and generates embeddings when the
// build runs in mode "all".
//
// Files are processed in batches, each batch inside its own transaction,
// with a bounded worker pool. Unchanged files (same content hash) are
// skipped; changed files have their old chunks deleted before re-indexing.
// Per-file failures are collected in Statistics.ErrorMessages and never
// abort the build.
package indexer
