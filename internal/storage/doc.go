// Package storage persists indexed workspace data in SQLite.
//
// The schema holds projects, files, chunks and embeddings, with an FTS5
// virtual table kept in sync by triggers for lexical search. Vector search
// deserializes stored float32 blobs and ranks by cosine similarity in Go so
// both build modes behave identically.
//
// # Drivers
//
// Two build-tagged driver files select the SQLite implementation:
//
//   - default / purego: modernc.org/sqlite (no C compiler required)
//   - -tags cgo_sqlite: github.com/mattn/go-sqlite3
//
// # Transactions
//
// BeginTx returns a transaction-scoped view implementing the full Storage
// interface, so the indexer can batch file upserts:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer func() { _ = tx.Rollback() }()
//
//	for _, chunk := range chunks {
//	    if err := tx.UpsertChunk(ctx, chunk); err != nil {
//	        return err
//	    }
//	}
//	return tx.Commit()
//
// # Errors
//
// Lookups return ErrNotFound for missing rows; CreateProject returns
// ErrAlreadyExists on duplicate root paths. All other failures are wrapped
// with context.
package storage
