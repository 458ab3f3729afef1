package mcpruntime

import (
	"github.com/app-appplayer/mcp-runtime-go/internal/instance"
	"github.com/app-appplayer/mcp-runtime-go/internal/lifecycle"
	"github.com/app-appplayer/mcp-runtime-go/internal/stats"
	"github.com/app-appplayer/mcp-runtime-go/internal/task"
)

// ServerState is a server instance's lifecycle state.
type ServerState = instance.State

const (
	StateStopped  = instance.StateStopped
	StateStarting = instance.StateStarting
	StateRunning  = instance.StateRunning
	StateError    = instance.StateError
	StatePaused   = instance.StatePaused
)

// LifecycleSignal is a host application lifecycle event.
type LifecycleSignal = lifecycle.Signal

const (
	SignalResumed  = lifecycle.SignalResumed
	SignalInactive = lifecycle.SignalInactive
	SignalPaused   = lifecycle.SignalPaused
	SignalDetached = lifecycle.SignalDetached
	SignalHidden   = lifecycle.SignalHidden
)

// ResourceMode is a coarse resource conservation hint.
type ResourceMode = lifecycle.ResourceMode

const (
	ResourceModeFull      = lifecycle.ResourceModeFull
	ResourceModeReduced   = lifecycle.ResourceModeReduced
	ResourceModeMinimal   = lifecycle.ResourceModeMinimal
	ResourceModeSuspended = lifecycle.ResourceModeSuspended
)

// ResourceStats is a point-in-time resource usage snapshot.
type ResourceStats = stats.ResourceStats

// Sampler collects platform resource metrics for the monitor.
type Sampler = stats.Sampler

// TaskStatus is a background task's position in its lifecycle.
type TaskStatus = task.Status

const (
	TaskQueued    = task.StatusQueued
	TaskRunning   = task.StatusRunning
	TaskCompleted = task.StatusCompleted
	TaskFailed    = task.StatusFailed
	TaskCancelled = task.StatusCancelled
)

// ResourceLimits caps the background worker's resource usage.
type ResourceLimits = task.ResourceLimits

// Transport is the wire transport a server binds to. Stdio, streamable
// HTTP, SSE, and in-memory transports come from the MCP SDK.
type Transport = instance.Transport

// ToolHandler executes one tool invocation.
type ToolHandler = instance.ToolHandler

// ResourceHandler serves one resource read.
type ResourceHandler = instance.ResourceHandler

// PromptHandler renders one prompt.
type PromptHandler = instance.PromptHandler
