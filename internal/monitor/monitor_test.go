package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semdexhq/semdex/pkg/types"
)

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSource) GetServerUsage(context.Context) (*types.UsageSample, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &types.UsageSample{CPUPercent: float64(n), MemoryBytes: uint64(n) * 1024}, nil
}

// manualTicker lets tests drive polls explicitly
func manualTicker(c chan time.Time) func(time.Duration) (<-chan time.Time, func()) {
	return func(time.Duration) (<-chan time.Time, func()) {
		return c, func() {}
	}
}

func TestMonitor_PollsOnTick(t *testing.T) {
	source := &fakeSource{}
	m := New(source, time.Minute, nil)

	ticks := make(chan time.Time)
	m.ticker = manualTicker(ticks)

	ctx, cancel := context.WithCancel(context.Background())
	done := m.Start(ctx)

	ticks <- time.Now()
	ticks <- time.Now()

	require.Eventually(t, func() bool {
		latest := m.Latest()
		return latest != nil && latest.CPUPercent == 2.0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), source.calls.Load())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancellation")
	}
}

func TestMonitor_ErrorKeepsPolling(t *testing.T) {
	source := &fakeSource{err: errors.New("transport down")}
	m := New(source, time.Minute, nil)

	ticks := make(chan time.Time)
	m.ticker = manualTicker(ticks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	ticks <- time.Now()
	ticks <- time.Now()

	require.Eventually(t, func() bool { return source.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, m.Latest(), "failed polls must not record a sample")
}

func TestMonitor_LatestIsACopy(t *testing.T) {
	source := &fakeSource{}
	m := New(source, time.Minute, nil)

	ticks := make(chan time.Time)
	m.ticker = manualTicker(ticks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	ticks <- time.Now()
	require.Eventually(t, func() bool { return m.Latest() != nil }, time.Second, 5*time.Millisecond)

	first := m.Latest()
	first.CPUPercent = 999
	assert.NotEqual(t, 999.0, m.Latest().CPUPercent)
}

func TestMonitor_NoPollBeforeFirstTick(t *testing.T) {
	source := &fakeSource{}
	m := New(source, time.Minute, nil)

	ticks := make(chan time.Time)
	m.ticker = manualTicker(ticks)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, source.calls.Load())
}
