package mcpruntime

import (
	"log/slog"

	"github.com/app-appplayer/mcp-runtime-go/internal/task"
)

// BackgroundTaskRunner executes named tool invocations off the
// caller's path, preferring an isolated worker and degrading to
// in-process execution when none can be spawned.
type BackgroundTaskRunner = task.Runner

// Task is one queued tool invocation.
type Task = task.Task

// Executor runs one tool invocation. The runner's in-process fallback
// and the goroutine worker both execute tools through this signature.
type Executor = task.Executor

// Worker is an isolated execution context reachable only by message
// passing.
type Worker = task.Worker

// Spawner creates workers. A nil spawner degrades the runner to
// in-process execution.
type Spawner = task.Spawner

// GoroutineSpawner spawns workers that execute tools on a dedicated
// goroutine.
type GoroutineSpawner = task.GoroutineSpawner

// RunnerOption configures a BackgroundTaskRunner.
type RunnerOption = task.Option

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(log *slog.Logger) RunnerOption {
	return task.WithLogger(log)
}

// WithSpawner sets the isolated worker spawner.
func WithSpawner(spawner Spawner) RunnerOption {
	return task.WithSpawner(spawner)
}

// NewBackgroundTaskRunner creates an idle runner around exec.
func NewBackgroundTaskRunner(exec Executor, opts ...RunnerOption) *BackgroundTaskRunner {
	return task.NewRunner(exec, opts...)
}
