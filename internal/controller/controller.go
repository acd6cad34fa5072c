package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/semdexhq/semdex/internal/client"
	"github.com/semdexhq/semdex/internal/installer"
	"github.com/semdexhq/semdex/internal/ipc"
	"github.com/semdexhq/semdex/internal/monitor"
	"github.com/semdexhq/semdex/internal/telemetry"
	"github.com/semdexhq/semdex/pkg/types"
)

// Sentinel errors for lifecycle operations
var (
	ErrBuildInProgress = errors.New("index build already in progress")
	ErrNotActivated    = errors.New("index server not activated")
	ErrBuildRejected   = errors.New("index server rejected the build")
)

// Installer is the artifact-management capability the controller composes
type Installer interface {
	IsInstalled() bool
	Install(ctx context.Context, manifest *installer.Manifest) (bool, error)
	Cleanup() error
}

// Collector enumerates workspace files under a size budget
type Collector interface {
	Collect(ctx context.Context, roots []string, sizeBudgetBytes int64) ([]types.FileDescriptor, error)
}

// Activator spawns or attaches the index server and returns its client
type Activator func(ctx context.Context) (client.Client, error)

// ManifestSource fetches the current artifact manifest
type ManifestSource func(ctx context.Context) (*installer.Manifest, error)

// Config holds the controller's workspace and scheduling settings
type Config struct {
	Roots             []string
	PollInterval      time.Duration
	MaxIndexSizeBytes int64
}

// Controller owns the index server lifecycle: install, activate, build,
// monitor, query. It is constructed once at the host's composition root
// and passed explicitly; there is no package-level instance.
type Controller struct {
	installer Installer
	collector Collector
	activate  Activator
	manifest  ManifestSource
	recorder  telemetry.Recorder
	logger    *slog.Logger
	env       hostEnv
	cfg       Config

	state atomic.Int32
	lock  buildLock

	mu      sync.Mutex
	client  client.Client
	monitor *monitor.Monitor
}

// New wires a Controller from its capabilities
func New(inst Installer, coll Collector, activate Activator, manifest ManifestSource,
	recorder telemetry.Recorder, cfg Config, logger *slog.Logger) *Controller {

	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = telemetry.NewLogRecorder(logger)
	}

	c := &Controller{
		installer: inst,
		collector: coll,
		activate:  activate,
		manifest:  manifest,
		recorder:  recorder,
		logger:    logger,
		env:       defaultHostEnv(),
		cfg:       cfg,
	}

	if inst != nil && inst.IsInstalled() {
		c.state.Store(int32(types.StateInstalled))
	}

	return c
}

// State returns the current lifecycle state
func (c *Controller) State() types.IndexState {
	return types.IndexState(c.state.Load())
}

func (c *Controller) setState(s types.IndexState) {
	old := types.IndexState(c.state.Swap(int32(s)))
	if old != s {
		c.logger.Info("index state changed", "from", old.String(), "to", s.String())
	}
}

// MaxIndexSizeBytes returns the configured collection budget
func (c *Controller) MaxIndexSizeBytes() int64 {
	return c.cfg.MaxIndexSizeBytes
}

// IsInstalled reports whether the server artifact and runtime are on disk
func (c *Controller) IsInstalled() bool {
	return c.installer.IsInstalled()
}

// IsIndexingInProgress reports whether a build currently holds the flag
func (c *Controller) IsIndexingInProgress() bool {
	return c.lock.Held()
}

// Install fetches the manifest and installs the server artifact and
// runtime. A manifest missing either required entry yields false with no
// side effects.
func (c *Controller) Install(ctx context.Context) (bool, error) {
	manifest, err := c.manifest(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to fetch manifest: %w", err)
	}

	ok, err := c.installer.Install(ctx, manifest)
	if err != nil {
		return false, err
	}
	if ok {
		c.setState(types.StateInstalled)
	}
	return ok, nil
}

// Cleanup removes the installed artifacts. Idempotent.
func (c *Controller) Cleanup() error {
	if err := c.installer.Cleanup(); err != nil {
		return err
	}
	c.setState(types.StateNotInstalled)
	return nil
}

// Setup runs the full startup sequence in the background: install if
// needed, activate the server, run the first build, then arm the usage
// monitor. The returned channel closes when the sequence has finished
// (successfully or not); the monitor keeps polling until ctx is
// cancelled. On incompatible hosts Setup is a logged no-op.
func (c *Controller) Setup(ctx context.Context, buildCfg types.BuildIndexConfig) <-chan struct{} {
	done := make(chan struct{})

	if ok, reason := c.env.compatible(); !ok {
		c.logger.Info("index subsystem disabled on this host", "reason", reason)
		close(done)
		return done
	}

	go func() {
		defer close(done)
		c.runSetup(ctx, buildCfg)
	}()

	return done
}

// runSetup strictly orders install, activate, first build, monitoring
func (c *Controller) runSetup(ctx context.Context, buildCfg types.BuildIndexConfig) {
	if !c.installer.IsInstalled() {
		ok, err := c.Install(ctx)
		if err != nil {
			c.logger.Error("install failed", "error", err)
			c.setState(types.StateFailed)
			return
		}
		if !ok {
			c.logger.Warn("index server unavailable for this platform, skipping setup")
			return
		}
	} else {
		c.setState(types.StateInstalled)
	}

	c.setState(types.StateActivating)
	cl, err := c.activate(ctx)
	if err != nil {
		c.logger.Error("activation failed", "error", err)
		c.setState(types.StateFailed)
		return
	}

	c.mu.Lock()
	c.client = cl
	c.mu.Unlock()

	if err := c.BuildIndex(ctx, buildCfg); err != nil {
		// The build path has already recorded the failure event
		c.logger.Warn("initial index build failed", "error", err)
	}

	m := monitor.New(cl, c.cfg.PollInterval, c.logger)
	c.mu.Lock()
	c.monitor = m
	c.mu.Unlock()
	m.Start(ctx)
}

// BuildIndex collects workspace files and asks the index server to build.
// A second call while a build is in flight is rejected with
// ErrBuildInProgress. One telemetry event is emitted per attempt; the
// in-progress flag is always cleared and a best-effort usage snapshot is
// taken afterward, success or failure.
func (c *Controller) BuildIndex(ctx context.Context, cfg types.BuildIndexConfig) error {
	if len(c.cfg.Roots) == 0 {
		c.logger.Info("no workspace roots, skipping index build")
		return nil
	}

	cl := c.currentClient()
	if cl == nil {
		return ErrNotActivated
	}

	if !c.lock.TryAcquire() {
		return ErrBuildInProgress
	}

	start := time.Now()
	event := telemetry.BuildEvent{
		Result:   telemetry.ResultSucceeded,
		StartURL: cfg.StartURL,
	}

	defer func() {
		if sample, err := cl.GetServerUsage(ctx); err == nil && sample != nil {
			event.MemoryMB = float64(sample.MemoryBytes) / (1024 * 1024)
			event.CPUPercent = sample.CPUPercent
		}
		event.Duration = time.Since(start)
		c.recorder.RecordBuild(event)
		c.lock.Release()
	}()

	c.setState(types.StateIndexing)

	projectRoot, err := types.ProjectRoot(c.cfg.Roots)
	if err != nil {
		c.fail(&event, telemetry.ReasonCollectionError, err)
		return err
	}

	files, err := c.collector.Collect(ctx, c.cfg.Roots, cfg.MaxIndexSizeBytes)
	if err != nil {
		c.fail(&event, telemetry.ReasonCollectionError, err)
		return err
	}

	paths := make([]string, len(files))
	var totalBytes int64
	for i, f := range files {
		paths[i] = f.Path
		totalBytes += f.SizeBytes
	}
	event.FileCount = len(files)
	event.TotalSizeMB = float64(totalBytes) / (1024 * 1024)

	ok, err := cl.BuildIndex(ctx, paths, projectRoot, cfg.Mode())
	if err != nil {
		c.fail(&event, telemetry.ReasonBuildError, err)
		return err
	}
	if !ok {
		c.fail(&event, telemetry.ReasonBuildRejected, ErrBuildRejected)
		return ErrBuildRejected
	}

	c.setState(types.StateReady)
	return nil
}

func (c *Controller) fail(event *telemetry.BuildEvent, reason string, err error) {
	event.Result = telemetry.ResultFailed
	event.Reason = reason
	event.Description = err.Error()
	c.setState(types.StateFailed)
}

// Query performs a semantic search and normalizes the results. Before the
// index is Ready it returns an empty slice, never an error.
func (c *Controller) Query(ctx context.Context, text string) []types.ContextRecord {
	if c.State() != types.StateReady {
		return []types.ContextRecord{}
	}

	cl := c.currentClient()
	if cl == nil {
		return []types.ContextRecord{}
	}

	chunks, err := cl.QueryVectorIndex(ctx, text)
	if err != nil {
		c.logger.Warn("vector query failed", "error", err)
		return []types.ContextRecord{}
	}

	records := make([]types.ContextRecord, 0, len(chunks))
	for _, chunk := range chunks {
		records = append(records, normalizeChunk(chunk))
	}
	return records
}

// normalizeChunk converts a wire chunk into the record shape handed to
// the editor: context is preferred over raw content, the relative path
// falls back to the basename, and the unknown-language sentinel is
// dropped.
func normalizeChunk(chunk ipc.Chunk) types.ContextRecord {
	content := chunk.Content
	if chunk.Context != "" {
		content = chunk.Context
	}

	relative := chunk.RelativePath
	if relative == "" {
		relative = filepath.Base(chunk.FilePath)
	}

	language := chunk.ProgrammingLanguage
	if language == types.LanguageUnknown {
		language = ""
	}

	return types.ContextRecord{
		Content:             content,
		FilePath:            chunk.FilePath,
		RelativePath:        relative,
		ProgrammingLanguage: language,
	}
}

// QueryInlineProjectContext delegates to the client, which already
// converts every failure into an empty result
func (c *Controller) QueryInlineProjectContext(ctx context.Context, query, path, target string) []ipc.InlineMatch {
	cl := c.currentClient()
	if cl == nil {
		return []ipc.InlineMatch{}
	}
	return cl.QueryInlineProjectContext(ctx, query, path, target)
}

// Usage returns the most recent monitor sample, or nil when monitoring
// has not produced one yet
func (c *Controller) Usage() *types.UsageSample {
	c.mu.Lock()
	m := c.monitor
	c.mu.Unlock()
	if m == nil {
		return nil
	}
	return m.Latest()
}

func (c *Controller) currentClient() client.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Close shuts down the index server connection if one is active
func (c *Controller) Close() error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()

	if cl == nil {
		return nil
	}
	return cl.Close()
}
