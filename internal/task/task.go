// Package task implements the background tool-execution runner: a FIFO
// queue of named tool invocations dispatched to an isolated worker,
// with an in-process fallback when no worker can be spawned.
package task

import (
	"sync"

	"github.com/app-appplayer/mcp-runtime-go/internal/errors"
	"github.com/app-appplayer/mcp-runtime-go/internal/event"
)

// Status is a task's position in its lifecycle.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition can leave s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}

	return false
}

// Task is one queued tool invocation. Created by the runner on enqueue
// and mutated only by the runner as it progresses; callers observe it
// through the accessors and the status stream.
//
// A completed task has a result and no error; a failed task has an
// error and no result. No task ever has both.
type Task struct {
	id              string
	toolName        string
	arguments       map[string]any
	allowNetworking bool

	mu     sync.Mutex
	status Status
	result map[string]any
	err    *errors.TaskError

	statuses    *event.Bus[Status]
	disposeOnce sync.Once
}

func newTask(id, toolName string, arguments map[string]any, allowNetworking bool) *Task {
	return &Task{
		id:              id,
		toolName:        toolName,
		arguments:       arguments,
		allowNetworking: allowNetworking,
		status:          StatusQueued,
		statuses:        event.NewBus[Status](),
	}
}

// ID returns the task's generated unique id.
func (t *Task) ID() string { return t.id }

// ToolName returns the name of the tool this task invokes.
func (t *Task) ToolName() string { return t.toolName }

// Arguments returns the tool arguments as enqueued.
func (t *Task) Arguments() map[string]any { return t.arguments }

// AllowNetworking reports whether the invocation may use the network.
func (t *Task) AllowNetworking() bool { return t.allowNetworking }

// Status returns the current status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.status
}

// Result returns the tool's result. Non-nil only once the task
// completed.
func (t *Task) Result() map[string]any {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.result
}

// Err returns the recorded execution failure. Non-nil only once the
// task failed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err == nil {
		return nil
	}

	return t.err
}

// Statuses subscribes to status-change events. Past transitions are
// not replayed.
func (t *Task) Statuses() (<-chan Status, func()) {
	return t.statuses.Subscribe()
}

// setStatusLocked transitions and publishes. Caller must hold t.mu.
func (t *Task) setStatusLocked(s Status) {
	t.status = s
	t.statuses.Publish(s)
}

// markRunning moves a queued task to running. Any other status is left
// untouched.
func (t *Task) markRunning() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusQueued {
		return
	}

	t.setStatusLocked(StatusRunning)
}

// complete records the result and moves to completed, unless the task
// is already terminal.
func (t *Task) complete(result map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.result = result
	t.setStatusLocked(StatusCompleted)
}

// fail records the failure message and moves to failed, unless the
// task is already terminal.
func (t *Task) fail(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.err = &errors.TaskError{TaskID: t.id, Message: message}
	t.setStatusLocked(StatusFailed)
}

// cancel moves to cancelled, unless the task is already terminal.
func (t *Task) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status.Terminal() {
		return
	}

	t.setStatusLocked(StatusCancelled)
}

// dispose releases the task's status stream.
func (t *Task) dispose() {
	t.disposeOnce.Do(t.statuses.Close)
}
