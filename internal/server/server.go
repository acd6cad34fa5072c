package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/semdexhq/semdex/internal/embedder"
	"github.com/semdexhq/semdex/internal/indexer"
	"github.com/semdexhq/semdex/internal/ipc"
	"github.com/semdexhq/semdex/internal/searcher"
	"github.com/semdexhq/semdex/internal/storage"
	"github.com/semdexhq/semdex/pkg/types"
)

// Server handles index engine requests arriving over a unix socket.
// Each connection is served by its own goroutine; requests on a single
// connection are processed in order.
type Server struct {
	store    storage.Storage
	indexer  *indexer.Indexer
	searcher *searcher.Searcher
	logger   *slog.Logger

	shutdown context.CancelFunc

	mu        sync.Mutex
	projectID int64
	mode      types.IndexMode
}

// New creates a Server wired to the given storage and embedder
func New(store storage.Storage, emb embedder.Embedder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:    store,
		indexer:  indexer.New(store, emb),
		searcher: searcher.NewSearcher(store, emb),
		logger:   logger,
	}
}

// Serve accepts connections until ctx is cancelled or the listener closes.
// A server/shutdown request also stops the accept loop.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.shutdown = cancel

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	var wg sync.WaitGroup
	for {
		conn, err := ln.Accept()
		if err != nil {
			wg.Wait()
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// handleConn serves one connection until EOF or context cancellation
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	for {
		req, err := ipc.ReadRequest(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Warn("failed to read request", "error", err)
			}
			return
		}

		resp := s.dispatch(ctx, req)
		if err := ipc.WriteResponse(conn, resp); err != nil {
			s.logger.Warn("failed to write response", "id", req.ID, "error", err)
			return
		}

		if req.Method == ipc.MethodShutdown {
			s.shutdown()
			return
		}
	}
}

// dispatch routes a request to its handler and wraps the result
func (s *Server) dispatch(ctx context.Context, req *ipc.Request) *ipc.Response {
	s.logger.Debug("handling request", "id", req.ID, "method", req.Method)

	var (
		output any
		err    error
	)

	switch req.Method {
	case ipc.MethodBuildIndex:
		output, err = s.handleBuildIndex(ctx, req.Params)
	case ipc.MethodQueryVector:
		output, err = s.handleQueryVector(ctx, req.Params)
	case ipc.MethodQueryInline:
		output, err = s.handleQueryInline(ctx, req.Params)
	case ipc.MethodUsage:
		output, err = s.handleUsage(ctx)
	case ipc.MethodShutdown:
		output = struct{}{}
	default:
		err = fmt.Errorf("unknown method: %s", req.Method)
	}

	if err != nil {
		s.logger.Error("request failed", "id", req.ID, "method", req.Method, "error", err)
		return &ipc.Response{ID: req.ID, Status: ipc.StatusError, Error: err.Error()}
	}

	raw, err := json.Marshal(output)
	if err != nil {
		return &ipc.Response{ID: req.ID, Status: ipc.StatusError, Error: err.Error()}
	}

	return &ipc.Response{ID: req.ID, Status: ipc.StatusOK, Output: raw}
}

func (s *Server) handleBuildIndex(ctx context.Context, raw json.RawMessage) (*ipc.BuildIndexResult, error) {
	var params ipc.BuildIndexParams
	if err := ipc.DecodeParams(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid build params: %w", err)
	}
	if params.ProjectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}

	mode := types.IndexMode(params.Mode)
	if mode != types.IndexModeAll {
		mode = types.IndexModeDefault
	}

	files := make([]types.FileDescriptor, 0, len(params.FilePaths))
	for _, path := range params.FilePaths {
		fd := types.FileDescriptor{Path: path}
		if info, err := os.Stat(path); err == nil {
			fd.SizeBytes = info.Size()
		}
		files = append(files, fd)
	}

	stats, err := s.indexer.BuildIndex(ctx, params.ProjectRoot, files, mode, nil)
	if err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, params.ProjectRoot)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.projectID = project.ID
	s.mode = mode
	s.mu.Unlock()

	s.searcher.InvalidateCache()

	s.logger.Info("index build complete",
		"root", params.ProjectRoot,
		"mode", string(mode),
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration)

	return &ipc.BuildIndexResult{
		Success:    true,
		FileCount:  stats.FilesIndexed + stats.FilesSkipped,
		ChunkCount: stats.ChunksCreated,
	}, nil
}

func (s *Server) handleQueryVector(ctx context.Context, raw json.RawMessage) (*ipc.QueryVectorResult, error) {
	var params ipc.QueryVectorParams
	if err := ipc.DecodeParams(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid query params: %w", err)
	}

	projectID, mode := s.currentProject()
	if projectID == 0 {
		// No build has completed yet; an empty result is not an error
		return &ipc.QueryVectorResult{Chunks: []ipc.Chunk{}}, nil
	}

	searchMode := searcher.SearchModeKeyword
	if mode == types.IndexModeAll {
		searchMode = searcher.SearchModeHybrid
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     params.Query,
		Limit:     params.Limit,
		Mode:      searchMode,
		ProjectID: projectID,
		UseCache:  true,
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]ipc.Chunk, 0, len(resp.Results))
	for _, r := range resp.Results {
		chunk := ipc.Chunk{
			Content: r.Content,
			Context: r.Context,
		}
		if r.File != nil {
			chunk.FilePath = r.File.Path
			chunk.RelativePath = r.File.RelativePath
			chunk.ProgrammingLanguage = r.File.Language
		}
		chunks = append(chunks, chunk)
	}

	return &ipc.QueryVectorResult{Chunks: chunks}, nil
}

func (s *Server) handleQueryInline(ctx context.Context, raw json.RawMessage) (*ipc.QueryInlineResult, error) {
	var params ipc.QueryInlineParams
	if err := ipc.DecodeParams(raw, &params); err != nil {
		return nil, fmt.Errorf("invalid inline params: %w", err)
	}

	projectID, _ := s.currentProject()
	if projectID == 0 {
		return &ipc.QueryInlineResult{Matches: []ipc.InlineMatch{}}, nil
	}

	if params.Target == ipc.TargetCodemap {
		entries, err := s.searcher.Codemap(ctx, projectID, params.Path)
		if err != nil {
			return nil, err
		}
		matches := make([]ipc.InlineMatch, 0, len(entries))
		for _, e := range entries {
			matches = append(matches, ipc.InlineMatch{
				FilePath:  e.FilePath,
				Content:   e.Signature,
				StartLine: e.Line,
				EndLine:   e.Line,
			})
		}
		return &ipc.QueryInlineResult{Matches: matches}, nil
	}

	var filters *storage.SearchFilters
	if params.Path != "" {
		filters = &storage.SearchFilters{PathPrefix: params.Path}
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:     params.Query,
		Mode:      searcher.SearchModeKeyword,
		ProjectID: projectID,
		Filters:   filters,
	})
	if err != nil {
		return nil, err
	}

	matches := make([]ipc.InlineMatch, 0, len(resp.Results))
	for _, r := range resp.Results {
		match := ipc.InlineMatch{
			Content: r.Content,
			Score:   r.RelevanceScore,
		}
		if r.File != nil {
			match.FilePath = r.File.RelativePath
			match.StartLine = r.File.StartLine
			match.EndLine = r.File.EndLine
		}
		matches = append(matches, match)
	}

	return &ipc.QueryInlineResult{Matches: matches}, nil
}

func (s *Server) handleUsage(ctx context.Context) (*ipc.UsageResult, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process: %w", err)
	}

	result := &ipc.UsageResult{}

	if cpu, err := proc.CPUPercentWithContext(ctx); err == nil {
		result.CPUPercent = cpu
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		result.MemoryBytes = mem.RSS
	}

	return result, nil
}

func (s *Server) currentProject() (int64, types.IndexMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projectID, s.mode
}
