package telemetry

import (
	"log/slog"
	"time"
)

// BuildResult classifies the outcome of an index build attempt
type BuildResult string

const (
	ResultSucceeded BuildResult = "Succeeded"
	ResultFailed    BuildResult = "Failed"
)

// Failure reason tags attached to failed build events
const (
	ReasonCollectionError = "collection_error"
	ReasonBuildError      = "build_error"
	ReasonBuildRejected   = "build_rejected"
)

// BuildEvent is the observability record emitted once per build attempt
type BuildEvent struct {
	Duration    time.Duration
	Result      BuildResult
	FileCount   int
	TotalSizeMB float64
	MemoryMB    float64
	CPUPercent  float64
	StartURL    string

	// Populated only when Result is ResultFailed
	Reason      string
	Description string
}

// Recorder receives build events
type Recorder interface {
	RecordBuild(event BuildEvent)
}

// LogRecorder writes build events to structured logs
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder creates a Recorder backed by the given logger
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger}
}

// RecordBuild logs one build event with all its fields
func (r *LogRecorder) RecordBuild(event BuildEvent) {
	attrs := []any{
		"result", string(event.Result),
		"duration", event.Duration,
		"files", event.FileCount,
		"totalSizeMB", event.TotalSizeMB,
		"memoryMB", event.MemoryMB,
		"cpuPercent", event.CPUPercent,
	}
	if event.StartURL != "" {
		attrs = append(attrs, "startUrl", event.StartURL)
	}

	if event.Result == ResultFailed {
		attrs = append(attrs, "reason", event.Reason, "description", event.Description)
		r.logger.Warn("index build failed", attrs...)
		return
	}

	r.logger.Info("index build succeeded", attrs...)
}
