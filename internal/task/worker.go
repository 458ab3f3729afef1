package task

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ResourceLimits caps the worker's resource usage. Limits apply to the
// active worker, not per-task.
type ResourceLimits struct {
	MaxCPUUsagePercent float64
	MaxMemoryUsageMB   float64
	MaxExecutionTime   time.Duration
	MaxNetworkUsageMB  float64
}

// Message is a request sent to a worker. Exactly two variants exist:
// ExecuteRequest and SetLimitsRequest.
type Message interface {
	isMessage()
}

// ExecuteRequest asks the worker to run one tool invocation. The
// worker's reply carries the same TaskID tag.
type ExecuteRequest struct {
	TaskID          string
	ToolName        string
	Arguments       map[string]any
	AllowNetworking bool
}

func (ExecuteRequest) isMessage() {}

// SetLimitsRequest replaces the worker's resource limits. It affects
// executions dispatched after it, never ones already in flight.
type SetLimitsRequest struct {
	Limits ResourceLimits
}

func (SetLimitsRequest) isMessage() {}

// Reply is a worker response. Exactly two variants exist:
// ExecuteResult and ExecuteError.
type Reply interface {
	isReply()

	// ReplyTaskID is the tag matching the reply to its request.
	ReplyTaskID() string
}

// ExecuteResult carries a successful tool invocation's result.
type ExecuteResult struct {
	TaskID string
	Result map[string]any
}

func (ExecuteResult) isReply() {}

// ReplyTaskID implements Reply.
func (r ExecuteResult) ReplyTaskID() string { return r.TaskID }

// ExecuteError carries a failed tool invocation's message.
type ExecuteError struct {
	TaskID  string
	Message string
}

func (ExecuteError) isReply() {}

// ReplyTaskID implements Reply.
func (e ExecuteError) ReplyTaskID() string { return e.TaskID }

// Worker is an isolated execution context reachable only by message
// passing. Replies arrive asynchronously on a shared channel, tagged
// with the originating task id.
type Worker interface {
	Send(msg Message) error
	Replies() <-chan Reply
	Close()
}

// Spawner creates workers. A nil spawner, or a spawner that fails,
// degrades the runner to in-process execution rather than failing.
type Spawner interface {
	Spawn(ctx context.Context) (Worker, error)
}

// Executor runs one tool invocation. Both the goroutine worker and the
// runner's in-process fallback execute tools through this signature.
type Executor func(ctx context.Context, toolName string, arguments map[string]any, allowNetworking bool) (map[string]any, error)

// GoroutineSpawner spawns workers that execute tools on a dedicated
// goroutine with their own request and reply channels.
type GoroutineSpawner struct {
	Exec Executor
}

// Spawn implements Spawner.
func (s GoroutineSpawner) Spawn(_ context.Context) (Worker, error) {
	if s.Exec == nil {
		return nil, fmt.Errorf("spawn worker: no executor")
	}

	w := &goroutineWorker{
		exec:     s.Exec,
		requests: make(chan Message, 16),
		replies:  make(chan Reply, 16),
	}

	go w.loop()

	return w, nil
}

// goroutineWorker processes requests one at a time on its own
// goroutine. It shares no state with the runner beyond the channels.
type goroutineWorker struct {
	exec     Executor
	requests chan Message
	replies  chan Reply

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
}

func (w *goroutineWorker) loop() {
	defer close(w.replies)

	var limits ResourceLimits

	for msg := range w.requests {
		switch req := msg.(type) {
		case ExecuteRequest:
			w.replies <- w.execute(req, limits)

		case SetLimitsRequest:
			limits = req.Limits
		}
	}
}

func (w *goroutineWorker) execute(req ExecuteRequest, limits ResourceLimits) Reply {
	ctx := context.Background()

	if limits.MaxExecutionTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limits.MaxExecutionTime)
		defer cancel()
	}

	result, err := w.exec(ctx, req.ToolName, req.Arguments, req.AllowNetworking)
	if err != nil {
		return ExecuteError{TaskID: req.TaskID, Message: err.Error()}
	}

	return ExecuteResult{TaskID: req.TaskID, Result: result}
}

// Send implements Worker. Sending to a closed worker returns an error
// instead of panicking.
func (w *goroutineWorker) Send(msg Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("worker closed")
	}

	w.requests <- msg

	return nil
}

// Replies implements Worker.
func (w *goroutineWorker) Replies() <-chan Reply {
	return w.replies
}

// Close implements Worker. The reply channel closes once in-flight
// work drains.
func (w *goroutineWorker) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.requests)
		w.mu.Unlock()
	})
}
