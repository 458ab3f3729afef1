package stats

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// HostSampler samples the current process's CPU and memory usage.
type HostSampler struct {
	proc *process.Process
}

// Compile-time check that *HostSampler implements Sampler.
var _ Sampler = (*HostSampler)(nil)

// NewHostSampler creates a sampler bound to the current process.
func NewHostSampler() (*HostSampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open current process: %w", err)
	}

	return &HostSampler{proc: proc}, nil
}

// Sample reads the process CPU percentage and resident memory.
func (s *HostSampler) Sample(ctx context.Context) (ResourceStats, error) {
	cpu, err := s.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return ResourceStats{}, fmt.Errorf("sample cpu: %w", err)
	}

	mem, err := s.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return ResourceStats{}, fmt.Errorf("sample memory: %w", err)
	}

	return ResourceStats{
		CPUUsagePercent: cpu,
		MemoryUsageMB:   float64(mem.RSS) / (1024 * 1024),
	}, nil
}
