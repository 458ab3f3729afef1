package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Monitor periodically replaces a ResourceStats snapshot with freshly
// sampled values. Sampling runs on a single goroutine, so at most one
// sample is ever in flight. The monotonic counters survive across
// Start/Stop cycles.
type Monitor struct {
	log      *slog.Logger
	sampler  Sampler
	interval time.Duration

	requests    atomic.Int64
	errors      atomic.Int64
	connections atomic.Int64

	mu       sync.RWMutex
	snapshot ResourceStats
	running  bool
	stop     chan struct{}
	eg       *errgroup.Group
}

// NewMonitor creates a monitor. It does not start sampling until Start
// is called.
func NewMonitor(log *slog.Logger, sampler Sampler, interval time.Duration) *Monitor {
	return &Monitor{
		log:      log.With("component", "monitor"),
		sampler:  sampler,
		interval: interval,
	}
}

// Start begins periodic sampling. Calling Start while already running
// is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running || m.sampler == nil {
		return
	}

	m.running = true
	m.stop = make(chan struct{})

	stop := m.stop
	m.eg, _ = errgroup.WithContext(context.Background())
	m.eg.Go(func() error {
		m.sampleLoop(stop)

		return nil
	})

	m.log.Debug("Resource monitor started", "interval", m.interval)
}

// Stop halts periodic sampling and waits for the sampling goroutine to
// finish. The last snapshot and the counters remain readable. Calling
// Stop while not running is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()

	if !m.running {
		m.mu.Unlock()

		return
	}

	m.running = false
	close(m.stop)
	eg := m.eg
	m.mu.Unlock()

	_ = eg.Wait()

	m.log.Debug("Resource monitor stopped")
}

// sampleLoop samples once per tick until stopped.
func (m *Monitor) sampleLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sampleOnce(stop)

		case <-stop:
			return
		}
	}
}

// sampleOnce takes one sample and atomically replaces the snapshot.
func (m *Monitor) sampleOnce(stop <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	sampled, err := m.sampler.Sample(ctx)
	if err != nil {
		m.log.Warn("Resource sample failed", "error", err)

		return
	}

	next := ResourceStats{
		CPUUsagePercent:   sampled.CPUUsagePercent,
		MemoryUsageMB:     sampled.MemoryUsageMB,
		ActiveConnections: int(m.connections.Load()),
		RequestsProcessed: m.requests.Load(),
		ErrorsCount:       m.errors.Load(),
	}

	m.mu.Lock()
	m.snapshot = next
	m.mu.Unlock()
}

// Stats returns the current snapshot.
func (m *Monitor) Stats() ResourceStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.snapshot
}

// RecordRequest increments the processed-requests counter.
func (m *Monitor) RecordRequest() {
	m.requests.Add(1)
}

// RecordError increments the error counter.
func (m *Monitor) RecordError() {
	m.errors.Add(1)
}

// SetActiveConnections records the current connection count. The value
// is folded into the next snapshot.
func (m *Monitor) SetActiveConnections(n int) {
	m.connections.Store(int64(n))
}
