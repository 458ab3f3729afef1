package mcpruntime

import "github.com/app-appplayer/mcp-runtime-go/internal/errors"

// Re-export error types from internal package

// TransportError indicates a connect or disconnect failure from the
// protocol layer.
type TransportError = errors.TransportError

// TaskError indicates a tool execution failure recorded on a task.
type TaskError = errors.TaskError

// RuntimeError is the base interface for all runtime errors.
type RuntimeError = errors.RuntimeError

// Re-export sentinel errors from internal package.
var (
	// ErrAlreadyActive indicates Start was called on an instance that is
	// already starting or running.
	ErrAlreadyActive = errors.ErrAlreadyActive

	// ErrDisposed indicates an operation on a disposed instance.
	ErrDisposed = errors.ErrDisposed

	// ErrManagerDisposed indicates an operation on a disposed manager.
	ErrManagerDisposed = errors.ErrManagerDisposed

	// ErrDuplicateID indicates a registration collision in the manager.
	ErrDuplicateID = errors.ErrDuplicateID

	// ErrUnknownID indicates an operation on an id not present.
	ErrUnknownID = errors.ErrUnknownID

	// ErrRunnerDisposed indicates an operation on a disposed task runner.
	ErrRunnerDisposed = errors.ErrRunnerDisposed
)
