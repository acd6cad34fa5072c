package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/semdexhq/semdex/internal/ipc"
	"github.com/semdexhq/semdex/pkg/types"
)

// Sentinel errors surfaced by the client
var (
	ErrNotConnected   = errors.New("index server not connected")
	ErrStartTimeout   = errors.New("index server did not become ready in time")
	ErrServerRejected = errors.New("index server rejected the request")
)

// readyLine is printed by the index server once its listener is bound
const readyLine = "SEMDEX_READY"

// Client is the typed façade over the index server RPC channel
type Client interface {
	BuildIndex(ctx context.Context, filePaths []string, projectRoot string, mode types.IndexMode) (bool, error)
	QueryVectorIndex(ctx context.Context, text string) ([]ipc.Chunk, error)
	QueryInlineProjectContext(ctx context.Context, query, path, target string) []ipc.InlineMatch
	GetServerUsage(ctx context.Context) (*types.UsageSample, error)
	Close() error
}

// Config controls how a ProcessClient spawns and reaches the index server
type Config struct {
	Command      string   // Index server executable
	Args         []string // Extra arguments
	SocketPath   string   // Unix socket the server listens on
	Env          []string // Extra environment entries
	StartTimeout time.Duration
	Logger       *slog.Logger
}

// ProcessClient talks to the index server over a unix socket, optionally
// owning the child process it spawned. Calls are serialized; the protocol
// answers requests in order on a single connection. A connection whose
// stream position is no longer trustworthy (aborted read, response for a
// different request) is dropped and the next call redials.
type ProcessClient struct {
	logger     *slog.Logger
	socketPath string

	mu   sync.Mutex
	conn net.Conn
	cmd  *exec.Cmd
}

// Spawn starts the index server process, waits for its readiness line,
// and dials its socket
func Spawn(ctx context.Context, cfg Config) (*ProcessClient, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = 30 * time.Second
	}

	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Env = append(os.Environ(), cfg.Env...)
	cmd.Env = append(cmd.Env, "SEMDEX_SOCKET_PATH="+cfg.SocketPath)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start index server: %w", err)
	}

	go forwardLogs(logger, stderr)

	if err := awaitReady(ctx, stdout, startTimeout); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	conn, err := dialRetry(ctx, cfg.SocketPath, startTimeout)
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, err
	}

	logger.Info("index server started", "pid", cmd.Process.Pid, "socket", cfg.SocketPath)

	return &ProcessClient{logger: logger, socketPath: cfg.SocketPath, conn: conn, cmd: cmd}, nil
}

// Dial attaches to an index server that is already listening
func Dial(socketPath string, logger *slog.Logger) (*ProcessClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to dial index server: %w", err)
	}
	return &ProcessClient{logger: logger, socketPath: socketPath, conn: conn}, nil
}

// awaitReady scans child stdout for the readiness handshake
func awaitReady(ctx context.Context, stdout io.Reader, timeout time.Duration) error {
	ready := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if scanner.Text() == readyLine {
				ready <- nil
				return
			}
		}
		ready <- fmt.Errorf("%w: process exited before handshake", ErrStartTimeout)
	}()

	select {
	case err := <-ready:
		return err
	case <-time.After(timeout):
		return ErrStartTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dialRetry dials the socket with backoff until the deadline passes
func dialRetry(ctx context.Context, socketPath string, timeout time.Duration) (net.Conn, error) {
	deadline := time.Now().Add(timeout)
	delay := 50 * time.Millisecond

	for {
		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w: %v", ErrStartTimeout, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < time.Second {
			delay *= 2
		}
	}
}

func forwardLogs(logger *slog.Logger, stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		logger.Debug("index server", "line", scanner.Text())
	}
}

// call performs one request/response exchange. The connection lock keeps
// concurrent callers from interleaving frames.
func (c *ProcessClient) call(ctx context.Context, method string, params any, result any) error {
	raw, err := ipc.EncodeParams(params)
	if err != nil {
		return err
	}

	req := &ipc.Request{
		ID:     uuid.NewString(),
		Method: method,
		Params: raw,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.ensureConn()
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	if err := ipc.WriteRequest(conn, req); err != nil {
		c.dropConn()
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	resp, err := ipc.ReadResponse(conn)
	if err != nil {
		// The response for this request may still arrive later; the
		// stream offset is unknowable, so the connection is done
		c.dropConn()
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}
	if resp.ID != req.ID {
		c.dropConn()
		return fmt.Errorf("response id mismatch: sent %s got %s", req.ID, resp.ID)
	}
	if resp.Status != ipc.StatusOK {
		return fmt.Errorf("%w: %s", ErrServerRejected, resp.Error)
	}

	if result != nil {
		if len(resp.Output) == 0 {
			return ipc.ErrEmptyServerOutput
		}
		if err := ipc.DecodeParams(resp.Output, result); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", method, err)
		}
	}

	return nil
}

// ensureConn returns the live connection, redialing after a previous call
// poisoned it. Callers must hold mu.
func (c *ProcessClient) ensureConn() (net.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	if c.socketPath == "" {
		return nil, ErrNotConnected
	}

	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	c.logger.Info("reconnected to index server", "socket", c.socketPath)
	c.conn = conn
	return conn, nil
}

// dropConn discards the connection. Callers must hold mu.
func (c *ProcessClient) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// BuildIndex asks the server to index the given files
func (c *ProcessClient) BuildIndex(ctx context.Context, filePaths []string, projectRoot string, mode types.IndexMode) (bool, error) {
	params := ipc.BuildIndexParams{
		FilePaths:   filePaths,
		ProjectRoot: projectRoot,
		Mode:        string(mode),
	}

	var result ipc.BuildIndexResult
	if err := c.call(ctx, ipc.MethodBuildIndex, params, &result); err != nil {
		return false, err
	}

	c.logger.Debug("build index finished",
		"success", result.Success,
		"files", result.FileCount,
		"chunks", result.ChunkCount)

	return result.Success, nil
}

// QueryVectorIndex performs a semantic search. A nil slice with an error
// means the call failed; an empty non-nil slice means no matches.
func (c *ProcessClient) QueryVectorIndex(ctx context.Context, text string) ([]ipc.Chunk, error) {
	params := ipc.QueryVectorParams{Query: text}

	var result ipc.QueryVectorResult
	if err := c.call(ctx, ipc.MethodQueryVector, params, &result); err != nil {
		return nil, err
	}

	if result.Chunks == nil {
		result.Chunks = []ipc.Chunk{}
	}
	return result.Chunks, nil
}

// QueryInlineProjectContext performs a lexical or structural search.
// Failures are logged and converted to an empty result, never propagated.
func (c *ProcessClient) QueryInlineProjectContext(ctx context.Context, query, path, target string) []ipc.InlineMatch {
	params := ipc.QueryInlineParams{Query: query, Path: path, Target: target}

	var result ipc.QueryInlineResult
	if err := c.call(ctx, ipc.MethodQueryInline, params, &result); err != nil {
		c.logger.Warn("inline query failed", "target", target, "error", err)
		return []ipc.InlineMatch{}
	}

	if result.Matches == nil {
		return []ipc.InlineMatch{}
	}
	return result.Matches
}

// GetServerUsage samples the server's CPU and memory consumption
func (c *ProcessClient) GetServerUsage(ctx context.Context) (*types.UsageSample, error) {
	var result ipc.UsageResult
	if err := c.call(ctx, ipc.MethodUsage, struct{}{}, &result); err != nil {
		return nil, err
	}

	return &types.UsageSample{
		CPUPercent:  result.CPUPercent,
		MemoryBytes: result.MemoryBytes,
	}, nil
}

// Shutdown asks the server to stop accepting requests
func (c *ProcessClient) Shutdown(ctx context.Context) error {
	return c.call(ctx, ipc.MethodShutdown, struct{}{}, nil)
}

// Close tears down the connection and, when this client spawned the
// server, waits for the process to exit
func (c *ProcessClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	// Prevent later calls from redialing a server being torn down
	c.socketPath = ""

	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- c.cmd.Wait() }()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			_ = c.cmd.Process.Kill()
			<-done
		}
		c.cmd = nil
	}

	return nil
}
