package task

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	rterrors "github.com/app-appplayer/mcp-runtime-go/internal/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// calculatorExec is the tool executor used across runner tests.
func calculatorExec(_ context.Context, toolName string, args map[string]any, _ bool) (map[string]any, error) {
	if toolName != "calculator" {
		return nil, fmt.Errorf("unknown tool %q", toolName)
	}

	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)

	switch args["operation"] {
	case "add":
		return map[string]any{"value": a + b}, nil
	case "divide":
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}

		return map[string]any{"value": a / b}, nil
	default:
		return nil, fmt.Errorf("unknown operation %v", args["operation"])
	}
}

func awaitTerminal(t *testing.T, task *Task) Status {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if status := task.Status(); status.Terminal() {
			return status
		}

		time.Sleep(time.Millisecond)
	}

	t.Fatalf("task %s never reached a terminal status: %s", task.ID(), task.Status())

	return ""
}

func TestRunner_FallbackExecutesCalculator(t *testing.T) {
	r := NewRunner(calculatorExec)
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 2.0, "b": 3.0}, false)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	task, err := r.Task(id)
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, awaitTerminal(t, task))
	require.Equal(t, map[string]any{"value": 5.0}, task.Result())
	require.NoError(t, task.Err())
}

func TestRunner_StatusProgressionIsObservable(t *testing.T) {
	release := make(chan struct{})
	exec := func(ctx context.Context, toolName string, args map[string]any, allow bool) (map[string]any, error) {
		<-release

		return calculatorExec(ctx, toolName, args, allow)
	}

	r := NewRunner(exec)
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 1.0, "b": 1.0}, false)
	require.NoError(t, err)

	task, err := r.Task(id)
	require.NoError(t, err)

	statuses, cancel := task.Statuses()
	defer cancel()

	close(release)

	require.Equal(t, StatusCompleted, awaitTerminal(t, task))

	// Running then completed, in order. The queued status predates the
	// subscription and is not replayed.
	var seen []Status
	for len(seen) < 2 {
		seen = append(seen, <-statuses)
	}

	require.Equal(t, []Status{StatusRunning, StatusCompleted}, seen)
}

func TestRunner_FailedTaskRecordsError(t *testing.T) {
	r := NewRunner(calculatorExec)
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "divide", "a": 1.0, "b": 0.0}, false)
	require.NoError(t, err)

	task, err := r.Task(id)
	require.NoError(t, err)

	require.Equal(t, StatusFailed, awaitTerminal(t, task))
	require.Nil(t, task.Result())

	var terr *rterrors.TaskError
	require.ErrorAs(t, task.Err(), &terr)
	require.Equal(t, id, terr.TaskID)
	require.Contains(t, terr.Message, "division by zero")
}

func TestRunner_CancelBeforeRunNeverRuns(t *testing.T) {
	release := make(chan struct{})
	exec := func(ctx context.Context, toolName string, args map[string]any, allow bool) (map[string]any, error) {
		<-release

		return calculatorExec(ctx, toolName, args, allow)
	}

	r := NewRunner(exec)
	defer r.Dispose()

	// The first task occupies the processing pass so the second stays
	// queued until cancelled.
	blocker, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 1.0, "b": 1.0}, false)
	require.NoError(t, err)

	victim, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 2.0, "b": 2.0}, false)
	require.NoError(t, err)

	victimTask, err := r.Task(victim)
	require.NoError(t, err)

	statuses, cancelSub := victimTask.Statuses()
	defer cancelSub()

	require.NoError(t, r.CancelTask(victim))
	require.Equal(t, StatusCancelled, victimTask.Status())

	close(release)

	blockerTask, err := r.Task(blocker)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, awaitTerminal(t, blockerTask))

	// The cancelled task emitted exactly one transition and never ran.
	require.Equal(t, StatusCancelled, <-statuses)
	require.Equal(t, StatusCancelled, victimTask.Status())
	require.Nil(t, victimTask.Result())
	require.NoError(t, victimTask.Err())
}

func TestRunner_CancelUnknownID(t *testing.T) {
	r := NewRunner(calculatorExec)
	defer r.Dispose()

	require.ErrorIs(t, r.CancelTask("nope"), rterrors.ErrUnknownID)
}

func TestRunner_WorkerPathCompletes(t *testing.T) {
	r := NewRunner(calculatorExec, WithSpawner(GoroutineSpawner{Exec: calculatorExec}))
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 4.0, "b": 6.0}, false)
	require.NoError(t, err)

	task, err := r.Task(id)
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, awaitTerminal(t, task))
	require.Equal(t, map[string]any{"value": 10.0}, task.Result())
}

// failingSpawner simulates a platform without worker isolation.
type failingSpawner struct{}

func (failingSpawner) Spawn(_ context.Context) (Worker, error) {
	return nil, fmt.Errorf("isolation unavailable")
}

func TestRunner_SpawnFailureFallsBack(t *testing.T) {
	r := NewRunner(calculatorExec, WithSpawner(failingSpawner{}))
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 2.0, "b": 3.0}, false)
	require.NoError(t, err)

	task, err := r.Task(id)
	require.NoError(t, err)

	require.Equal(t, StatusCompleted, awaitTerminal(t, task))
	require.Equal(t, map[string]any{"value": 5.0}, task.Result())
}

func TestRunner_SetResourceLimitsWithoutWorkerIsNoop(t *testing.T) {
	r := NewRunner(calculatorExec)
	defer r.Dispose()

	require.NoError(t, r.SetResourceLimits(ResourceLimits{MaxExecutionTime: time.Millisecond}))
}

func TestWorker_LimitsBoundExecutionTime(t *testing.T) {
	slowExec := func(ctx context.Context, _ string, _ map[string]any, _ bool) (map[string]any, error) {
		select {
		case <-time.After(5 * time.Second):
			return map[string]any{}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	worker, err := GoroutineSpawner{Exec: slowExec}.Spawn(context.Background())
	require.NoError(t, err)
	defer worker.Close()

	require.NoError(t, worker.Send(SetLimitsRequest{
		Limits: ResourceLimits{MaxExecutionTime: 10 * time.Millisecond},
	}))
	require.NoError(t, worker.Send(ExecuteRequest{TaskID: "t1", ToolName: "slow"}))

	reply := <-worker.Replies()
	require.Equal(t, "t1", reply.ReplyTaskID())

	execErr, ok := reply.(ExecuteError)
	require.True(t, ok)
	require.Contains(t, execErr.Message, "context deadline exceeded")
}

func TestWorker_SendAfterCloseFails(t *testing.T) {
	worker, err := GoroutineSpawner{Exec: calculatorExec}.Spawn(context.Background())
	require.NoError(t, err)

	worker.Close()
	worker.Close()

	require.Error(t, worker.Send(ExecuteRequest{TaskID: "t1"}))

	// The reply channel drains and closes.
	_, open := <-worker.Replies()
	require.False(t, open)
}

func TestRunner_CleanupTaskRemovesRecord(t *testing.T) {
	r := NewRunner(calculatorExec)
	defer r.Dispose()

	id, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 1.0, "b": 2.0}, false)
	require.NoError(t, err)

	task, err := r.Task(id)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, awaitTerminal(t, task))

	statuses, cancel := task.Statuses()
	defer cancel()

	r.CleanupTask(id)

	_, err = r.Task(id)
	require.ErrorIs(t, err, rterrors.ErrUnknownID)

	// The status stream is released.
	_, open := <-statuses
	require.False(t, open)

	// Absent ids are a no-op.
	r.CleanupTask(id)
}

func TestRunner_DisposeCancelsRemainingTasks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	exec := func(ctx context.Context, toolName string, args map[string]any, allow bool) (map[string]any, error) {
		close(started)
		<-release

		return calculatorExec(ctx, toolName, args, allow)
	}

	r := NewRunner(exec)

	blocker, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 1.0, "b": 1.0}, false)
	require.NoError(t, err)

	pending, err := r.EnqueueToolExecution("calculator",
		map[string]any{"operation": "add", "a": 2.0, "b": 2.0}, false)
	require.NoError(t, err)

	blockerTask, err := r.Task(blocker)
	require.NoError(t, err)
	pendingTask, err := r.Task(pending)
	require.NoError(t, err)

	<-started

	done := make(chan struct{})
	go func() {
		r.Dispose()
		close(done)
	}()

	// Wait for the disposed flag to land before releasing the blocker,
	// so the pending task can never be picked up.
	require.Eventually(t, func() bool {
		_, err := r.EnqueueToolExecution("probe", nil, false)

		return errors.Is(err, rterrors.ErrRunnerDisposed)
	}, 2*time.Second, time.Millisecond)

	close(release)
	<-done
	r.Dispose()

	require.Equal(t, StatusCompleted, blockerTask.Status())
	require.Equal(t, StatusCancelled, pendingTask.Status())

	_, err = r.EnqueueToolExecution("calculator", nil, false)
	require.ErrorIs(t, err, rterrors.ErrRunnerDisposed)
}
