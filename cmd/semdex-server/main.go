// Command semdex-server is the index engine process. It is spawned by the
// semdex host, listens on a unix socket, and serves index build and query
// requests until the host shuts it down.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/semdexhq/semdex/internal/embedder"
	"github.com/semdexhq/semdex/internal/server"
	"github.com/semdexhq/semdex/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// EnvSocketPath overrides the socket path flag when set
const EnvSocketPath = "SEMDEX_SOCKET_PATH"

// readyLine is printed to stdout once the listener is bound. The host
// waits for it before dialing.
const readyLine = "SEMDEX_READY"

func main() {
	socketFlag := flag.String("socket", "", "unix socket path to listen on")
	dbFlag := flag.String("db", "", "sqlite database path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("semdex index server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("index server starting", "version", version, "driver", storage.DriverName)

	socketPath := *socketFlag
	if env := os.Getenv(EnvSocketPath); env != "" {
		socketPath = env
	}
	if socketPath == "" {
		logger.Error("no socket path provided")
		os.Exit(1)
	}

	dbPath := *dbFlag
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(socketPath), "index.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		logger.Error("failed to open storage", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	emb, err := embedder.NewFromEnv()
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	defer func() { _ = emb.Close() }()

	// A stale socket from a crashed run blocks the listener
	_ = os.Remove(socketPath)

	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		logger.Error("failed to listen", "socket", socketPath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = os.Remove(socketPath) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	// Stdout carries only the readiness handshake; all logging goes to
	// stderr
	fmt.Println(readyLine)

	srv := server.New(store, emb, logger)
	logger.Info("index server ready", "socket", socketPath, "embedder", emb.Provider())

	if err := srv.Serve(ctx, ln); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("index server stopped")
}
