// Command semdex is the host process: it manages the index server
// lifecycle (install, spawn, build, monitor) and exposes the index to
// the editor over MCP stdio.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/semdexhq/semdex/internal/client"
	"github.com/semdexhq/semdex/internal/collector"
	"github.com/semdexhq/semdex/internal/config"
	"github.com/semdexhq/semdex/internal/controller"
	"github.com/semdexhq/semdex/internal/installer"
	"github.com/semdexhq/semdex/internal/mcp"
	"github.com/semdexhq/semdex/internal/watcher"
	"github.com/semdexhq/semdex/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: search semdex.yaml)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("semdex host\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		os.Exit(0)
	}

	// stdout carries the MCP protocol, so all logging goes to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(logger, *configPath); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	roots := cfg.Roots
	if args := flag.Args(); len(args) > 0 {
		roots = args
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inst := installer.New(&installer.HTTPFetcher{}, cfg.InstallDir, logger)

	manifestSource := func(ctx context.Context) (*installer.Manifest, error) {
		return installer.FetchManifest(ctx, http.DefaultClient, cfg.ManifestURL)
	}

	activate := func(ctx context.Context) (client.Client, error) {
		return client.Spawn(ctx, client.Config{
			Command:    inst.ServerBinaryPath(),
			Args:       []string{"-socket", cfg.SocketPath(), "-db", cfg.DBPath()},
			SocketPath: cfg.SocketPath(),
			Logger:     logger,
		})
	}

	ctrl := controller.New(inst, collector.New(logger), activate, manifestSource, nil, controller.Config{
		Roots:             roots,
		PollInterval:      cfg.PollInterval,
		MaxIndexSizeBytes: cfg.MaxIndexSizeBytes,
	}, logger)
	defer func() {
		if err := ctrl.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}()

	buildCfg := types.BuildIndexConfig{
		VectorIndexEnabled: cfg.VectorIndexEnabled,
		MaxIndexSizeBytes:  cfg.MaxIndexSizeBytes,
		StartURL:           cfg.StartURL,
	}

	setupDone := ctrl.Setup(ctx, buildCfg)

	// Arm the re-index watcher once the startup sequence has finished.
	// A trigger that lands while a build is running is dropped; the
	// debounce makes a follow-up trigger likely once the editor settles.
	go func() {
		<-setupDone
		if len(roots) == 0 {
			return
		}
		w, err := watcher.New(roots, cfg.DebounceInterval, func() {
			if err := ctrl.BuildIndex(ctx, buildCfg); err != nil {
				logger.Warn("watcher-triggered build skipped", "error", err)
			}
		}, logger)
		if err != nil {
			logger.Warn("failed to start workspace watcher", "error", err)
			return
		}
		w.Start(ctx)
	}()

	srv := mcp.NewServer(ctrl)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("semdex host ready, serving MCP on stdio", "version", version)
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("mcp server error: %w", err)
		}
	}

	// Join the background setup sequence so the deferred Close does not
	// race an in-flight activation
	select {
	case <-setupDone:
	case <-time.After(10 * time.Second):
		logger.Warn("setup did not finish before shutdown deadline")
	}

	logger.Info("stopped")
	return nil
}
