package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semdexhq/semdex/internal/chunker"
	"github.com/semdexhq/semdex/internal/embedder"
	"github.com/semdexhq/semdex/internal/storage"
	"github.com/semdexhq/semdex/pkg/types"
)

// Indexer coordinates the indexing pipeline: chunk -> store -> embed
type Indexer struct {
	chunker  *chunker.Chunker
	storage  storage.Storage
	embedder embedder.Embedder

	// Worker pool configuration
	workers int
}

// Config contains configuration for the indexer
type Config struct {
	Workers   int // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize int // Number of files to commit per transaction (default: 20)
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesIndexed      int
	FilesSkipped      int
	FilesFailed       int
	ChunksCreated     int
	EmbeddingsCreated int
	Duration          time.Duration
	ErrorMessages     []string
}

// New creates a new Indexer instance
func New(store storage.Storage, emb embedder.Embedder) *Indexer {
	return &Indexer{
		chunker:  chunker.New(),
		storage:  store,
		embedder: emb,
		workers:  runtime.NumCPU(),
	}
}

// BuildIndex indexes the given workspace files under projectRoot. In mode
// "all" chunks are embedded for vector search; in mode "default" only the
// lexical index is built. Per-file failures are recorded and skipped, they
// never abort the build.
func (idx *Indexer) BuildIndex(ctx context.Context, projectRoot string, files []types.FileDescriptor, mode types.IndexMode, config *Config) (*Statistics, error) {
	if config == nil {
		config = &Config{
			Workers:   runtime.NumCPU(),
			BatchSize: 20,
		}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	idx.workers = config.Workers

	startTime := time.Now()
	stats := &Statistics{
		ErrorMessages: make([]string, 0),
	}

	project, err := idx.getOrCreateProject(ctx, projectRoot, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create project: %w", err)
	}

	if err := idx.indexFiles(ctx, project, files, mode, config, stats); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	if err := idx.updateProjectStats(ctx, project, mode); err != nil {
		return nil, fmt.Errorf("failed to update project stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	return stats, nil
}

// getOrCreateProject retrieves an existing project or creates a new one
func (idx *Indexer) getOrCreateProject(ctx context.Context, rootPath string, mode types.IndexMode) (*storage.Project, error) {
	project, err := idx.storage.GetProject(ctx, rootPath)
	if err == nil {
		return project, nil
	}

	if err != storage.ErrNotFound {
		return nil, err
	}

	project = &storage.Project{
		RootPath:     rootPath,
		Mode:         string(mode),
		IndexVersion: storage.CurrentSchemaVersion,
	}

	if err := idx.storage.CreateProject(ctx, project); err != nil {
		return nil, err
	}

	return project, nil
}

// indexFiles indexes a batch of files concurrently
func (idx *Indexer) indexFiles(ctx context.Context, project *storage.Project, files []types.FileDescriptor,
	mode types.IndexMode, config *Config, stats *Statistics) error {

	// Create worker pool with semaphore
	semaphore := make(chan struct{}, idx.workers)

	// Track progress with atomic counters
	var (
		indexed    int32
		skipped    int32
		failed     int32
		chunks     int32
		embeddings int32
	)

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}

	// Use errgroup for concurrent processing with error propagation
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protect stats.ErrorMessages

	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		g.Go(func() error {
			return idx.indexBatch(gctx, project, batch, mode, semaphore,
				&indexed, &skipped, &failed, &chunks, &embeddings, &mu, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.EmbeddingsCreated = int(embeddings)

	return nil
}

// indexBatch indexes a batch of files within a transaction
func (idx *Indexer) indexBatch(ctx context.Context, project *storage.Project, files []types.FileDescriptor,
	mode types.IndexMode, semaphore chan struct{},
	indexed, skipped, failed, chunks, embeddings *int32,
	mu *sync.Mutex, stats *Statistics) error {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, fd := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
			// Acquire semaphore
		}

		err := idx.indexFile(ctx, tx, project, fd, mode, indexed, skipped, chunks, embeddings)
		<-semaphore // Release semaphore

		if err != nil {
			atomic.AddInt32(failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", fd.Path, err))
			mu.Unlock()
			// Continue with other files
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// indexFile indexes a single file
func (idx *Indexer) indexFile(ctx context.Context, store storage.Storage, project *storage.Project,
	fd types.FileDescriptor, mode types.IndexMode,
	indexed, skipped, chunks, embeddings *int32) error {

	relPath, err := filepath.Rel(project.RootPath, fd.Path)
	if err != nil || relPath == ".." || len(relPath) >= 3 && relPath[:3] == ".."+string(filepath.Separator) {
		// Files outside the project root keep their absolute path as key
		relPath = fd.Path
	}

	hash, modTime, sizeBytes, err := computeFileHash(fd.Path)
	if err != nil {
		return err
	}

	shouldSkip, err := idx.checkFileChanged(ctx, store, project.ID, relPath, hash, skipped)
	if err != nil {
		return err
	}
	if shouldSkip {
		return nil
	}

	content, err := os.ReadFile(fd.Path)
	if err != nil {
		return err
	}

	file := &storage.File{
		ProjectID:   project.ID,
		FilePath:    relPath,
		AbsPath:     fd.Path,
		Language:    chunker.DetectLanguage(fd.Path),
		ContentHash: hash,
		ModTime:     modTime,
		SizeBytes:   sizeBytes,
	}

	if err := store.UpsertFile(ctx, file); err != nil {
		return err
	}

	fileChunks := idx.chunker.ChunkContent(content, file.ID)

	for _, chunk := range fileChunks {
		chunk.FileID = file.ID
		if err := store.UpsertChunk(ctx, chunk); err != nil {
			return fmt.Errorf("failed to store chunk: %w", err)
		}
	}
	atomic.AddInt32(chunks, int32(len(fileChunks)))

	if mode == types.IndexModeAll && len(fileChunks) > 0 {
		n, err := idx.embedChunks(ctx, store, fileChunks)
		if err != nil {
			return fmt.Errorf("failed to embed chunks: %w", err)
		}
		atomic.AddInt32(embeddings, int32(n))
	}

	atomic.AddInt32(indexed, 1)
	return nil
}

// embedChunks generates and stores embeddings for a file's chunks
func (idx *Indexer) embedChunks(ctx context.Context, store storage.Storage, chunks []*types.Chunk) (int, error) {
	if idx.embedder == nil {
		return 0, nil
	}

	stored := 0
	for start := 0; start < len(chunks); start += embedder.DefaultBatchSize {
		end := start + embedder.DefaultBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.FullContent()
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return stored, err
		}

		for i, emb := range resp.Embeddings {
			if err := store.UpsertEmbedding(ctx, &storage.Embedding{
				ChunkID:   batch[i].ID,
				Vector:    emb.Vector,
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			}); err != nil {
				return stored, err
			}
			stored++
		}
	}
	return stored, nil
}

// checkFileChanged checks if a file has changed and needs re-indexing
func (idx *Indexer) checkFileChanged(ctx context.Context, store storage.Storage, projectID int64,
	relPath string, hash [32]byte, skipped *int32) (bool, error) {

	existingFile, err := store.GetFile(ctx, projectID, relPath)
	if err == storage.ErrNotFound {
		// New file, needs indexing
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if existingFile.ContentHash == hash {
		// File unchanged, skip
		atomic.AddInt32(skipped, 1)
		return true, nil
	}

	// File changed - delete old chunks before re-indexing
	if err := store.DeleteChunksByFile(ctx, existingFile.ID); err != nil {
		return false, fmt.Errorf("failed to delete old chunks: %w", err)
	}

	return false, nil
}

// updateProjectStats updates the project's file and chunk counts
func (idx *Indexer) updateProjectStats(ctx context.Context, project *storage.Project, mode types.IndexMode) error {
	status, err := idx.storage.GetStatus(ctx, project.ID)
	if err != nil {
		return err
	}

	project.TotalFiles = status.FileCount
	project.TotalChunks = status.ChunkCount
	project.Mode = string(mode)
	project.LastIndexedAt = time.Now()

	return idx.storage.UpdateProject(ctx, project)
}

// computeFileHash computes SHA-256 hash of a file
func computeFileHash(filePath string) ([32]byte, time.Time, int64, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return [32]byte{}, time.Time{}, 0, err
	}

	var result [32]byte
	copy(result[:], hash.Sum(nil))

	return result, info.ModTime(), info.Size(), nil
}
