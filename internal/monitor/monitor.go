package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/semdexhq/semdex/pkg/types"
)

// DefaultInterval between usage polls
const DefaultInterval = 60 * time.Second

// UsageSource provides resource usage samples, typically the index client
type UsageSource interface {
	GetServerUsage(ctx context.Context) (*types.UsageSample, error)
}

// Monitor periodically polls the index server's resource usage and logs
// each sample. Only the most recent sample is retained.
type Monitor struct {
	source   UsageSource
	interval time.Duration
	logger   *slog.Logger

	// ticker is injectable for tests; the cancel func releases it
	ticker func(d time.Duration) (<-chan time.Time, func())

	mu     sync.Mutex
	latest *types.UsageSample
}

// New creates a Monitor polling source every interval
func New(source UsageSource, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		source:   source,
		interval: interval,
		logger:   logger,
		ticker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
}

// Start launches the polling loop in the background. The loop runs until
// ctx is cancelled; the returned channel closes when it has stopped.
func (m *Monitor) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.run(ctx)
	}()
	return done
}

func (m *Monitor) run(ctx context.Context) {
	tick, stop := m.ticker(m.interval)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			m.poll(ctx)
		}
	}
}

// poll fetches one sample; failures are logged and polling continues
func (m *Monitor) poll(ctx context.Context) {
	sample, err := m.source.GetServerUsage(ctx)
	if err != nil {
		m.logger.Warn("usage poll failed", "error", err)
		return
	}

	m.mu.Lock()
	m.latest = sample
	m.mu.Unlock()

	m.logger.Info("index server usage",
		"cpuPercent", sample.CPUPercent,
		"memoryMB", float64(sample.MemoryBytes)/(1024*1024))
}

// Latest returns the most recent sample, or nil before the first
// successful poll
func (m *Monitor) Latest() *types.UsageSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latest == nil {
		return nil
	}
	sample := *m.latest
	return &sample
}
