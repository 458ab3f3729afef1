// Package stats provides resource usage snapshots and the periodic
// monitor that produces them.
package stats

import "context"

// ResourceStats is an immutable resource usage snapshot. Snapshots are
// always replaced wholesale, never partially updated.
type ResourceStats struct {
	CPUUsagePercent   float64
	MemoryUsageMB     float64
	ActiveConnections int
	RequestsProcessed int64
	ErrorsCount       int64
}

// Sampler measures the host process's resource usage. Implementations
// come from the platform; tests inject fakes.
type Sampler interface {
	// Sample returns the current CPU and memory usage. Only the
	// CPUUsagePercent and MemoryUsageMB fields of the result are
	// meaningful; the monitor owns the counters.
	Sample(ctx context.Context) (ResourceStats, error)
}
