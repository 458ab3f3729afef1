package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/app-appplayer/mcp-runtime-go/internal/errors"
)

// Runner executes named tool invocations off the caller's path.
//
// Tasks enter a FIFO queue and remain lookupable by id after leaving
// it. A single processing pass runs at a time; it pops the queue head,
// dispatches it to the isolated worker, and waits for the reply
// matched by task-id tag before touching the next task. When no worker
// can be spawned the runner executes in process instead, with the same
// status transitions.
type Runner struct {
	log     *slog.Logger
	exec    Executor
	spawner Spawner

	mu         sync.Mutex
	queue      []string
	tasks      map[string]*Task
	worker     Worker
	processing bool
	disposed   bool

	disposeOnce sync.Once
	wg          sync.WaitGroup
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	log     *slog.Logger
	spawner Spawner
}

// WithLogger sets the runner logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSpawner sets the isolated worker spawner. Without one every task
// runs on the in-process fallback.
func WithSpawner(spawner Spawner) Option {
	return func(o *options) { o.spawner = spawner }
}

// NewRunner creates an idle runner. exec is the tool executor used by
// the in-process fallback path.
func NewRunner(exec Executor, opts ...Option) *Runner {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Runner{
		log:     o.log.With("component", "task_runner"),
		exec:    exec,
		spawner: o.spawner,
		tasks:   make(map[string]*Task),
	}
}

// EnqueueToolExecution creates a queued task and returns its id
// immediately. Execution is asynchronous; observe progress through
// Task and its status stream. Returns ErrRunnerDisposed after Dispose.
func (r *Runner) EnqueueToolExecution(toolName string, arguments map[string]any, allowNetworking bool) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return "", errors.ErrRunnerDisposed
	}

	id := ulid.Make().String()
	t := newTask(id, toolName, arguments, allowNetworking)

	r.tasks[id] = t
	r.queue = append(r.queue, id)

	r.log.Debug("Task enqueued", "task_id", id, "tool", toolName)

	if !r.processing {
		r.processing = true
		r.wg.Add(1)

		go r.processLoop()
	}

	return id, nil
}

// processLoop drains the queue. At most one loop runs at a time.
func (r *Runner) processLoop() {
	defer r.wg.Done()

	for {
		r.mu.Lock()

		if r.disposed || len(r.queue) == 0 {
			r.processing = false
			r.mu.Unlock()

			return
		}

		id := r.queue[0]
		r.queue = r.queue[1:]
		t := r.tasks[id]

		r.mu.Unlock()

		// Cancelled or cleaned up while still queued.
		if t == nil || t.Status() != StatusQueued {
			continue
		}

		t.markRunning()
		r.dispatch(t)
	}
}

// dispatch runs one task to a terminal status.
func (r *Runner) dispatch(t *Task) {
	worker := r.ensureWorker()
	if worker == nil {
		r.runInProcess(t)

		return
	}

	req := ExecuteRequest{
		TaskID:          t.ID(),
		ToolName:        t.ToolName(),
		Arguments:       t.Arguments(),
		AllowNetworking: t.AllowNetworking(),
	}

	if err := worker.Send(req); err != nil {
		t.fail(fmt.Sprintf("dispatch: %v", err))
		r.log.Warn("Worker dispatch failed", "task_id", t.ID(), "error", err)

		return
	}

	r.awaitReply(worker, t)
}

// awaitReply blocks until the reply tagged with t's id arrives.
// Dispatch is serialized, so replies for other tasks indicate a worker
// bug and are dropped with a log line.
func (r *Runner) awaitReply(worker Worker, t *Task) {
	for reply := range worker.Replies() {
		if reply.ReplyTaskID() != t.ID() {
			r.log.Warn("Dropping reply with unexpected tag",
				"task_id", t.ID(), "reply_task_id", reply.ReplyTaskID())

			continue
		}

		switch rep := reply.(type) {
		case ExecuteResult:
			t.complete(rep.Result)
		case ExecuteError:
			t.fail(rep.Message)
		}

		return
	}

	// Reply channel closed with the reply still pending.
	t.fail("worker terminated before replying")
}

// ensureWorker returns the active worker, spawning one on first use.
// Spawn failure degrades to nil, which selects the in-process path.
func (r *Runner) ensureWorker() Worker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return nil
	}

	if r.worker != nil {
		return r.worker
	}

	if r.spawner == nil {
		return nil
	}

	worker, err := r.spawner.Spawn(context.Background())
	if err != nil {
		r.log.Warn("Worker spawn failed, falling back to in-process execution", "error", err)

		return nil
	}

	r.worker = worker
	r.log.Debug("Worker spawned")

	return worker
}

// runInProcess executes the task on the caller's goroutine with the
// same status transitions the worker path produces.
func (r *Runner) runInProcess(t *Task) {
	result, err := r.exec(context.Background(), t.ToolName(), t.Arguments(), t.AllowNetworking())
	if err != nil {
		t.fail(err.Error())

		return
	}

	t.complete(result)
}

// Task returns the task registered under id, or ErrUnknownID. Tasks
// stay lookupable after leaving the queue until CleanupTask removes
// them.
func (r *Runner) Task(id string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %q: %w", id, errors.ErrUnknownID)
	}

	return t, nil
}

// CancelTask removes the task from the queue when still pending and
// marks it cancelled. A task already dispatched to the worker is not
// interrupted; cancellation is bookkeeping only. Returns ErrUnknownID
// when no task has this id.
func (r *Runner) CancelTask(id string) error {
	r.mu.Lock()

	t, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()

		return fmt.Errorf("cancel task %q: %w", id, errors.ErrUnknownID)
	}

	r.dequeueLocked(id)
	r.mu.Unlock()

	t.cancel()

	return nil
}

// dequeueLocked drops id from the pending queue if present. Caller
// must hold r.mu.
func (r *Runner) dequeueLocked(id string) {
	for i, queued := range r.queue {
		if queued == id {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)

			return
		}
	}
}

// SetResourceLimits pushes new limits to the active worker. Tasks
// already dispatched keep the limits they started with. Without a
// worker the call has no effect.
func (r *Runner) SetResourceLimits(limits ResourceLimits) error {
	r.mu.Lock()
	worker := r.worker
	r.mu.Unlock()

	if worker == nil {
		return nil
	}

	return worker.Send(SetLimitsRequest{Limits: limits})
}

// CleanupTask removes the task record and releases its status stream.
// Meant for tasks that reached a terminal status; calling it earlier
// is the caller's responsibility. Absent ids are a no-op.
func (r *Runner) CleanupTask(id string) {
	r.mu.Lock()

	t, ok := r.tasks[id]
	if ok {
		delete(r.tasks, id)
		r.dequeueLocked(id)
	}

	r.mu.Unlock()

	if ok {
		t.dispose()
	}
}

// Dispose cancels and disposes every remaining task, clears the queue
// and map, and terminates the worker. Safe to call multiple times.
func (r *Runner) Dispose() {
	r.disposeOnce.Do(func() {
		r.mu.Lock()

		r.disposed = true
		tasks := r.tasks
		worker := r.worker

		r.tasks = make(map[string]*Task)
		r.queue = nil
		r.worker = nil

		r.mu.Unlock()

		if worker != nil {
			worker.Close()
		}

		r.wg.Wait()

		for _, t := range tasks {
			t.cancel()
			t.dispose()
		}

		r.log.Info("Task runner disposed")
	})
}
