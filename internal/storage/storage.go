package storage

import (
	"context"
	"time"

	"github.com/semdexhq/semdex/pkg/types"
)

// Storage defines the interface for persisting and querying indexed
// workspace data
type Storage interface {
	// Project operations
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, rootPath string) (*Project, error)
	UpdateProject(ctx context.Context, project *Project) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, projectID int64, filePath string) (*File, error)
	GetFileByID(ctx context.Context, fileID int64) (*File, error)
	DeleteFile(ctx context.Context, fileID int64) error
	ListFiles(ctx context.Context, projectID int64) ([]*File, error)

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *types.Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*types.Chunk, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*types.Chunk, error)
	DeleteChunksByFile(ctx context.Context, fileID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)
	DeleteEmbeddingsByFile(ctx context.Context, fileID int64) error

	// Search operations
	SearchVector(ctx context.Context, projectID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, projectID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Status operations
	GetStatus(ctx context.Context, projectID int64) (*ProjectStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Project represents an indexed workspace
type Project struct {
	ID            int64
	RootPath      string
	Mode          string // "all" | "default"
	TotalFiles    int
	TotalChunks   int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File represents a tracked workspace file
type File struct {
	ID            int64
	ProjectID     int64
	FilePath      string // Relative to project root
	AbsPath       string // Absolute path on the host filesystem
	Language      string // Detected language tag
	ContentHash   [32]byte
	ModTime       time.Time
	SizeBytes     int64
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Embedding represents a stored vector for a chunk
type Embedding struct {
	ChunkID   int64
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// SearchFilters narrows search scope
type SearchFilters struct {
	PathPrefix   string  // Restrict to files whose relative path has this prefix
	Language     string  // Restrict to a language tag
	MinRelevance float64 // Drop results scoring below this
}

// VectorResult is a similarity search hit
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult is a lexical search hit
type TextResult struct {
	ChunkID int64
	Score   float64
}

// ProjectStatus summarizes the current index contents
type ProjectStatus struct {
	Project        *Project
	FileCount      int
	ChunkCount     int
	EmbeddingCount int
}
