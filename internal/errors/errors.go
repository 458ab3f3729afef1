// Package errors defines the runtime's error taxonomy.
package errors

import (
	"errors"
	"fmt"
)

// RuntimeError is the base interface for all runtime errors.
type RuntimeError interface {
	error
	IsRuntimeError() bool
}

// Compile-time verification that all error types implement RuntimeError.
var (
	_ RuntimeError = (*TransportError)(nil)
	_ RuntimeError = (*TaskError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrAlreadyActive indicates Start was called while the instance is
	// already starting or running.
	ErrAlreadyActive = errors.New("server instance already active")

	// ErrDisposed indicates an operation on a disposed instance.
	// Disposed instances cannot be reused; create a new one with the factory.
	ErrDisposed = errors.New("server instance disposed")

	// ErrManagerDisposed indicates an operation on a disposed manager.
	ErrManagerDisposed = errors.New("server manager disposed")

	// ErrDuplicateID indicates a registration collision in the manager.
	ErrDuplicateID = errors.New("duplicate server id")

	// ErrUnknownID indicates an operation on an id not present.
	ErrUnknownID = errors.New("unknown id")

	// ErrRunnerDisposed indicates an operation on a disposed task runner.
	ErrRunnerDisposed = errors.New("task runner disposed")
)

// TransportError indicates a connect or disconnect failure from the
// protocol layer.
type TransportError struct {
	Op  string // "connect" or "disconnect"
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRuntimeError implements RuntimeError.
func (e *TransportError) IsRuntimeError() bool { return true }

// TaskError indicates a tool execution failure. It is recorded on the
// task and never propagated to the enqueuing caller.
type TaskError struct {
	TaskID  string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %s", e.TaskID, e.Message)
}

// IsRuntimeError implements RuntimeError.
func (e *TaskError) IsRuntimeError() bool { return true }
