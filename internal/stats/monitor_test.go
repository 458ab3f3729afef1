package stats

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeSampler returns scripted values and counts calls.
type fakeSampler struct {
	calls atomic.Int64
	cpu   float64
	mem   float64
	err   error
}

func (f *fakeSampler) Sample(_ context.Context) (ResourceStats, error) {
	f.calls.Add(1)

	if f.err != nil {
		return ResourceStats{}, f.err
	}

	return ResourceStats{CPUUsagePercent: f.cpu, MemoryUsageMB: f.mem}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}

		time.Sleep(5 * time.Millisecond)
	}

	t.Fatal("condition not met in time")
}

func TestMonitor_ReplacesSnapshotPeriodically(t *testing.T) {
	sampler := &fakeSampler{cpu: 12.5, mem: 64}
	monitor := NewMonitor(testLogger(), sampler, 10*time.Millisecond)

	monitor.RecordRequest()
	monitor.RecordRequest()
	monitor.RecordError()
	monitor.SetActiveConnections(1)

	monitor.Start()
	defer monitor.Stop()

	waitFor(t, func() bool { return monitor.Stats().RequestsProcessed == 2 })

	snap := monitor.Stats()
	require.Equal(t, 12.5, snap.CPUUsagePercent)
	require.Equal(t, float64(64), snap.MemoryUsageMB)
	require.Equal(t, 1, snap.ActiveConnections)
	require.Equal(t, int64(2), snap.RequestsProcessed)
	require.Equal(t, int64(1), snap.ErrorsCount)
}

func TestMonitor_StartIsIdempotent(t *testing.T) {
	sampler := &fakeSampler{}
	monitor := NewMonitor(testLogger(), sampler, 10*time.Millisecond)

	monitor.Start()
	monitor.Start()
	defer monitor.Stop()

	waitFor(t, func() bool { return sampler.calls.Load() >= 1 })
}

func TestMonitor_StopHaltsSampling(t *testing.T) {
	sampler := &fakeSampler{}
	monitor := NewMonitor(testLogger(), sampler, 5*time.Millisecond)

	monitor.Start()
	waitFor(t, func() bool { return sampler.calls.Load() >= 1 })
	monitor.Stop()

	settled := sampler.calls.Load()
	time.Sleep(30 * time.Millisecond)
	require.Equal(t, settled, sampler.calls.Load())

	// Stopping twice must not panic.
	monitor.Stop()
}

func TestMonitor_RestartAfterStop(t *testing.T) {
	sampler := &fakeSampler{}
	monitor := NewMonitor(testLogger(), sampler, 5*time.Millisecond)

	monitor.Start()
	waitFor(t, func() bool { return sampler.calls.Load() >= 1 })
	monitor.Stop()

	monitor.RecordRequest()
	monitor.Start()
	defer monitor.Stop()

	// Counters survive the restart.
	waitFor(t, func() bool { return monitor.Stats().RequestsProcessed == 1 })
}

func TestMonitor_NilSamplerNeverStarts(t *testing.T) {
	monitor := NewMonitor(testLogger(), nil, time.Millisecond)

	monitor.Start()
	monitor.Stop()

	require.Equal(t, ResourceStats{}, monitor.Stats())
}

func TestHostSampler(t *testing.T) {
	sampler, err := NewHostSampler()
	require.NoError(t, err)

	snap, err := sampler.Sample(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, snap.CPUUsagePercent, 0.0)
	require.Greater(t, snap.MemoryUsageMB, 0.0)
}
