package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/semdexhq/semdex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// executor abstracts *sql.DB and *sql.Tx so CRUD methods run identically
// inside and outside transactions
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db   *sql.DB
	exec executor
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db, exec: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil // Transaction-scoped view, nothing to close
	}
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	if s.db == nil {
		return nil, errors.New("nested transactions are not supported")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{SQLiteStorage: SQLiteStorage{exec: tx}, tx: tx}, nil
}

// sqliteTx is a transaction-scoped Storage view
type sqliteTx struct {
	SQLiteStorage
	tx *sql.Tx
}

func (t *sqliteTx) Commit() error   { return t.tx.Commit() }
func (t *sqliteTx) Rollback() error { return t.tx.Rollback() }

// --- Project operations ---

// CreateProject inserts a new project record
func (s *SQLiteStorage) CreateProject(ctx context.Context, project *Project) error {
	now := time.Now()
	res, err := s.exec.ExecContext(ctx, `
		INSERT INTO projects (root_path, mode, total_files, total_chunks, index_version, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.RootPath, project.Mode, project.TotalFiles, project.TotalChunks,
		project.IndexVersion, project.LastIndexedAt, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	project.ID = id
	project.CreatedAt = now
	project.UpdatedAt = now
	return nil
}

// GetProject retrieves a project by root path
func (s *SQLiteStorage) GetProject(ctx context.Context, rootPath string) (*Project, error) {
	var p Project
	var lastIndexed sql.NullTime
	err := s.exec.QueryRowContext(ctx, `
		SELECT id, root_path, mode, total_files, total_chunks, index_version, last_indexed_at, created_at, updated_at
		FROM projects WHERE root_path = ?`, rootPath).
		Scan(&p.ID, &p.RootPath, &p.Mode, &p.TotalFiles, &p.TotalChunks, &p.IndexVersion,
			&lastIndexed, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if lastIndexed.Valid {
		p.LastIndexedAt = lastIndexed.Time
	}
	return &p, nil
}

// UpdateProject updates mutable project fields
func (s *SQLiteStorage) UpdateProject(ctx context.Context, project *Project) error {
	res, err := s.exec.ExecContext(ctx, `
		UPDATE projects SET mode = ?, total_files = ?, total_chunks = ?, index_version = ?,
			last_indexed_at = ?, updated_at = ?
		WHERE id = ?`,
		project.Mode, project.TotalFiles, project.TotalChunks, project.IndexVersion,
		project.LastIndexedAt, time.Now(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- File operations ---

// UpsertFile inserts or updates a file record keyed by (project, path)
func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	now := time.Now()
	res, err := s.exec.ExecContext(ctx, `
		INSERT INTO files (project_id, file_path, abs_path, language, content_hash, mod_time, size_bytes, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			abs_path = excluded.abs_path,
			language = excluded.language,
			content_hash = excluded.content_hash,
			mod_time = excluded.mod_time,
			size_bytes = excluded.size_bytes,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at`,
		file.ProjectID, file.FilePath, file.AbsPath, file.Language, file.ContentHash[:],
		file.ModTime, file.SizeBytes, now, now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		// LastInsertId is unreliable after ON CONFLICT updates; read back the row id
		existing, gerr := s.GetFile(ctx, file.ProjectID, file.FilePath)
		if gerr == nil {
			file.ID = existing.ID
		} else {
			file.ID = id
		}
	}
	file.LastIndexedAt = now
	return nil
}

// GetFile retrieves a file by project and relative path
func (s *SQLiteStorage) GetFile(ctx context.Context, projectID int64, filePath string) (*File, error) {
	return s.scanFile(s.exec.QueryRowContext(ctx, `
		SELECT id, project_id, file_path, abs_path, language, content_hash, mod_time, size_bytes, last_indexed_at, created_at, updated_at
		FROM files WHERE project_id = ? AND file_path = ?`, projectID, filePath))
}

// GetFileByID retrieves a file by row id
func (s *SQLiteStorage) GetFileByID(ctx context.Context, fileID int64) (*File, error) {
	return s.scanFile(s.exec.QueryRowContext(ctx, `
		SELECT id, project_id, file_path, abs_path, language, content_hash, mod_time, size_bytes, last_indexed_at, created_at, updated_at
		FROM files WHERE id = ?`, fileID))
}

func (s *SQLiteStorage) scanFile(row *sql.Row) (*File, error) {
	var f File
	var hash []byte
	var modTime, lastIndexed sql.NullTime
	err := row.Scan(&f.ID, &f.ProjectID, &f.FilePath, &f.AbsPath, &f.Language, &hash,
		&modTime, &f.SizeBytes, &lastIndexed, &f.CreatedAt, &f.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan file: %w", err)
	}
	copy(f.ContentHash[:], hash)
	if modTime.Valid {
		f.ModTime = modTime.Time
	}
	if lastIndexed.Valid {
		f.LastIndexedAt = lastIndexed.Time
	}
	return &f, nil
}

// DeleteFile removes a file and, via cascade, its chunks and embeddings
func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	_, err := s.exec.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// ListFiles lists all files for a project
func (s *SQLiteStorage) ListFiles(ctx context.Context, projectID int64) ([]*File, error) {
	rows, err := s.exec.QueryContext(ctx, `
		SELECT id, project_id, file_path, abs_path, language, content_hash, mod_time, size_bytes, last_indexed_at, created_at, updated_at
		FROM files WHERE project_id = ? ORDER BY file_path`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		var f File
		var hash []byte
		var modTime, lastIndexed sql.NullTime
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.FilePath, &f.AbsPath, &f.Language, &hash,
			&modTime, &f.SizeBytes, &lastIndexed, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		copy(f.ContentHash[:], hash)
		if modTime.Valid {
			f.ModTime = modTime.Time
		}
		if lastIndexed.Valid {
			f.LastIndexedAt = lastIndexed.Time
		}
		files = append(files, &f)
	}
	return files, rows.Err()
}

// --- Chunk operations ---

// UpsertChunk inserts or updates a chunk keyed by (file, line range)
func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *types.Chunk) error {
	res, err := s.exec.ExecContext(ctx, `
		INSERT INTO chunks (file_id, content, content_hash, token_count, context_before, start_line, end_line)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, start_line, end_line) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			token_count = excluded.token_count,
			context_before = excluded.context_before`,
		chunk.FileID, chunk.Content, chunk.ContentHash[:], chunk.TokenCount,
		chunk.ContextBefore, chunk.StartLine, chunk.EndLine)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil && id > 0 {
		chunk.ID = id
	}
	return nil
}

// GetChunk retrieves a chunk by id
func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error) {
	var c types.Chunk
	var hash []byte
	err := s.exec.QueryRowContext(ctx, `
		SELECT id, file_id, content, content_hash, token_count, context_before, start_line, end_line
		FROM chunks WHERE id = ?`, chunkID).
		Scan(&c.ID, &c.FileID, &c.Content, &hash, &c.TokenCount, &c.ContextBefore, &c.StartLine, &c.EndLine)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	copy(c.ContentHash[:], hash)
	return &c, nil
}

// ListChunksByFile lists all chunks for a file ordered by position
func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*types.Chunk, error) {
	rows, err := s.exec.QueryContext(ctx, `
		SELECT id, file_id, content, content_hash, token_count, context_before, start_line, end_line
		FROM chunks WHERE file_id = ? ORDER BY start_line`, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []*types.Chunk
	for rows.Next() {
		var c types.Chunk
		var hash []byte
		if err := rows.Scan(&c.ID, &c.FileID, &c.Content, &hash, &c.TokenCount,
			&c.ContextBefore, &c.StartLine, &c.EndLine); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		copy(c.ContentHash[:], hash)
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// DeleteChunksByFile removes all chunks (and cascaded embeddings) for a file
func (s *SQLiteStorage) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	_, err := s.exec.ExecContext(ctx, "DELETE FROM chunks WHERE file_id = ?", fileID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// --- Embedding operations ---

// UpsertEmbedding stores or replaces the vector for a chunk
func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	_, err := s.exec.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model`,
		embedding.ChunkID, serializeVector(embedding.Vector), embedding.Dimension,
		embedding.Provider, embedding.Model)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

// GetEmbedding retrieves the vector for a chunk
func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	var e Embedding
	var blob []byte
	err := s.exec.QueryRowContext(ctx, `
		SELECT chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings WHERE chunk_id = ?`, chunkID).
		Scan(&e.ChunkID, &blob, &e.Dimension, &e.Provider, &e.Model, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	e.Vector = deserializeVector(blob)
	return &e, nil
}

// DeleteEmbeddingsByFile removes all embeddings for a file's chunks
func (s *SQLiteStorage) DeleteEmbeddingsByFile(ctx context.Context, fileID int64) error {
	_, err := s.exec.ExecContext(ctx, `
		DELETE FROM embeddings WHERE chunk_id IN (SELECT id FROM chunks WHERE file_id = ?)`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings: %w", err)
	}
	return nil
}

// --- Search operations ---

// SearchVector performs cosine similarity search over stored embeddings
func (s *SQLiteStorage) SearchVector(ctx context.Context, projectID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.exec, projectID, vector, limit, filters)
}

// SearchText performs a lexical search over chunk content using FTS5
func (s *SQLiteStorage) SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.exec, projectID, query, limit, filters)
}

// --- Status operations ---

// GetStatus summarizes the index contents for a project
func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error) {
	var p Project
	var lastIndexed sql.NullTime
	err := s.exec.QueryRowContext(ctx, `
		SELECT id, root_path, mode, total_files, total_chunks, index_version, last_indexed_at, created_at, updated_at
		FROM projects WHERE id = ?`, projectID).
		Scan(&p.ID, &p.RootPath, &p.Mode, &p.TotalFiles, &p.TotalChunks, &p.IndexVersion,
			&lastIndexed, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project status: %w", err)
	}
	if lastIndexed.Valid {
		p.LastIndexedAt = lastIndexed.Time
	}

	status := &ProjectStatus{Project: &p}
	if err := s.exec.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM files WHERE project_id = ?", projectID).Scan(&status.FileCount); err != nil {
		return nil, err
	}
	if err := s.exec.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c JOIN files f ON c.file_id = f.id WHERE f.project_id = ?`,
		projectID).Scan(&status.ChunkCount); err != nil {
		return nil, err
	}
	if err := s.exec.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e JOIN chunks c ON e.chunk_id = c.id JOIN files f ON c.file_id = f.id
		WHERE f.project_id = ?`, projectID).Scan(&status.EmbeddingCount); err != nil {
		return nil, err
	}
	return status, nil
}

// isUniqueViolation detects UNIQUE constraint errors across both drivers
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}
