// Package instance implements the lifecycle state machine for one MCP
// server endpoint.
package instance

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"

	"github.com/app-appplayer/mcp-runtime-go/internal/config"
	"github.com/app-appplayer/mcp-runtime-go/internal/errors"
	"github.com/app-appplayer/mcp-runtime-go/internal/event"
	"github.com/app-appplayer/mcp-runtime-go/internal/lifecycle"
	"github.com/app-appplayer/mcp-runtime-go/internal/stats"
)

// Transport is the wire transport a server binds to. Concrete
// implementations (stdio, streamable HTTP, SSE, in-memory) come from
// the MCP SDK.
type Transport = mcp.Transport

// ToolHandler executes one tool invocation.
type ToolHandler func(ctx context.Context, input map[string]any) (map[string]any, error)

// ResourceHandler serves one resource read.
type ResourceHandler func(ctx context.Context, uri string) (string, error)

// PromptHandler renders one prompt.
type PromptHandler func(ctx context.Context, args map[string]any) (string, error)

// Protocol is the external MCP protocol layer the instance drives. The
// runtime never reimplements the wire protocol; it only orchestrates
// connect, disconnect, logging, and registration through this interface.
type Protocol interface {
	Connect(ctx context.Context, transport Transport) error
	Disconnect(ctx context.Context) error
	Log(ctx context.Context, level, message string, attrs map[string]any)
	AddTool(name, description string, schema *jsonschema.Schema, handler ToolHandler) error
	RemoveTool(name string)
	AddResource(uri, name, mimeType string, handler ResourceHandler) error
	AddPrompt(name, description string, handler PromptHandler) error
}

// State is a server instance's lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateError    State = "error"
	StatePaused   State = "paused"
)

// Instance is one MCP server's lifecycle state machine. State
// transitions are only ever driven by the instance itself; callers
// observe them through the state stream.
type Instance struct {
	id       string
	log      *slog.Logger
	protocol Protocol
	cfg      config.ServerConfig
	monitor  *stats.Monitor

	mu        sync.Mutex
	state     State
	mode      lifecycle.ResourceMode
	transport Transport
	disposed  bool

	disposeOnce sync.Once

	states *event.Bus[State]
	errs   *event.Bus[error]
}

// Option configures an Instance.
type Option func(*options)

type options struct {
	log     *slog.Logger
	sampler stats.Sampler
}

// WithLogger sets the instance logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithSampler sets the resource usage sampler. With no sampler the
// monitor never starts, even when the config enables monitoring.
func WithSampler(sampler stats.Sampler) Option {
	return func(o *options) { o.sampler = sampler }
}

// New creates a stopped instance with a generated unique id.
func New(protocol Protocol, cfg config.ServerConfig, opts ...Option) *Instance {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	id := ulid.Make().String()
	log := o.log.With("component", "instance", "server_id", id)

	return &Instance{
		id:       id,
		log:      log,
		protocol: protocol,
		cfg:      cfg,
		monitor:  stats.NewMonitor(log, o.sampler, cfg.ResourceStatsUpdateInterval),
		state:    StateStopped,
		mode:     lifecycle.ResourceModeFull,
		states:   event.NewBus[State](),
		errs:     event.NewBus[error](),
	}
}

// ID returns the instance's unique id, stable for the process lifetime.
func (i *Instance) ID() string {
	return i.id
}

// Config returns the instance's configuration value.
func (i *Instance) Config() config.ServerConfig {
	return i.cfg
}

// State returns the current lifecycle state.
func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.state
}

// ResourceMode returns the current resource conservation mode.
func (i *Instance) ResourceMode() lifecycle.ResourceMode {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.mode
}

// Stats returns the latest resource usage snapshot.
func (i *Instance) Stats() stats.ResourceStats {
	return i.monitor.Stats()
}

// States subscribes to state-change events. Events arrive in the order
// they occur; past transitions are not replayed.
func (i *Instance) States() (<-chan State, func()) {
	return i.states.Subscribe()
}

// Errors subscribes to the error stream.
func (i *Instance) Errors() (<-chan error, func()) {
	return i.errs.Subscribe()
}

// setStateLocked transitions to s and publishes the change.
// Caller must hold i.mu.
func (i *Instance) setStateLocked(s State) {
	i.state = s
	i.states.Publish(s)
}

// Start binds the transport and connects the protocol layer.
//
// On success the instance transitions stopped -> starting -> running
// and resource monitoring begins if the config enables it. On failure
// the instance transitions to the error state, the cause is published
// on the error stream, and a TransportError is returned.
//
// Returns ErrDisposed after Dispose, ErrAlreadyActive when already
// starting or running.
func (i *Instance) Start(ctx context.Context, transport Transport) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.disposed {
		return errors.ErrDisposed
	}

	if i.state == StateStarting || i.state == StateRunning {
		return errors.ErrAlreadyActive
	}

	i.setStateLocked(StateStarting)
	i.log.Info("Starting server instance")

	if err := i.protocol.Connect(ctx, transport); err != nil {
		i.setStateLocked(StateError)
		i.monitor.RecordError()

		terr := &errors.TransportError{Op: "connect", Err: err}
		i.errs.Publish(terr)
		i.log.Error("Server instance failed to start", "error", err)

		return terr
	}

	i.transport = transport
	i.monitor.SetActiveConnections(1)
	i.mode = lifecycle.ResourceModeFull
	i.setStateLocked(StateRunning)

	i.protocol.Log(ctx, "info", "server started", map[string]any{"serverId": i.id})
	i.log.Info("Server instance running")

	if i.cfg.MonitorResourceUsage {
		i.monitor.Start()
	}

	return nil
}

// Stop disconnects the transport and transitions to stopped.
//
// Stopping an already-stopped instance is a no-op, as is stopping a
// disposed one. Disconnect failures are swallowed: they are logged but
// never propagated and never leave the stopped state.
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.stopLocked(ctx)

	return nil
}

// stopLocked is Stop without locking. Caller must hold i.mu.
func (i *Instance) stopLocked(ctx context.Context) {
	if i.disposed || i.state == StateStopped {
		return
	}

	if i.state == StateRunning {
		i.protocol.Log(ctx, "info", "server stopping", map[string]any{"serverId": i.id})
	}

	if err := i.protocol.Disconnect(ctx); err != nil {
		// Forgiving by contract: a failed disconnect still stops.
		i.log.Warn("Transport disconnect failed", "error", err)
	}

	i.monitor.Stop()
	i.monitor.SetActiveConnections(0)
	i.transport = nil
	i.setStateLocked(StateStopped)
	i.log.Info("Server instance stopped")
}

// HandleLifecycleSignal reacts to a host application lifecycle event.
//
// Signals are ignored entirely when the instance is disposed or not in
// a state the signal applies to.
func (i *Instance) HandleLifecycleSignal(ctx context.Context, sig lifecycle.Signal) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.disposed {
		return
	}

	switch sig {
	case lifecycle.SignalResumed:
		if i.state == StatePaused {
			i.setStateLocked(StateRunning)

			if i.cfg.MonitorResourceUsage {
				i.monitor.Start()
			}
		}

		if i.state == StateRunning {
			i.mode = lifecycle.ResourceModeFull
		}

	case lifecycle.SignalInactive:
		if i.state == StateRunning {
			i.mode = lifecycle.ResourceModeReduced
		}

	case lifecycle.SignalPaused:
		if i.state != StateRunning {
			return
		}

		if i.cfg.RunInBackground {
			i.mode = lifecycle.ResourceModeMinimal
		} else {
			// Sampling runs only while running; it restarts on resume.
			i.monitor.Stop()
			i.setStateLocked(StatePaused)
		}

	case lifecycle.SignalDetached, lifecycle.SignalHidden:
		if i.state != StateRunning {
			return
		}

		if i.cfg.RunInBackground {
			i.mode = lifecycle.ResourceModeSuspended
		} else {
			i.stopLocked(ctx)
		}
	}
}

// SetResourceMode applies a resource conservation hint. Only running
// instances accept the hint; everything else ignores it.
func (i *Instance) SetResourceMode(mode lifecycle.ResourceMode) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.disposed || i.state != StateRunning {
		return
	}

	i.mode = mode
}

// RegisterTool registers a named tool with the protocol layer, scoped
// to this instance. The handler is wrapped so every invocation feeds
// the request and error counters.
func (i *Instance) RegisterTool(name, description string, schema *jsonschema.Schema, handler ToolHandler) error {
	if i.isDisposed() {
		return errors.ErrDisposed
	}

	wrapped := func(ctx context.Context, input map[string]any) (map[string]any, error) {
		i.monitor.RecordRequest()

		result, err := handler(ctx, input)
		if err != nil {
			i.monitor.RecordError()
		}

		return result, err
	}

	return i.protocol.AddTool(name, description, schema, wrapped)
}

// RemoveTool removes a named tool. Deduplication is left to the
// protocol layer.
func (i *Instance) RemoveTool(name string) error {
	if i.isDisposed() {
		return errors.ErrDisposed
	}

	i.protocol.RemoveTool(name)

	return nil
}

// RegisterResource registers a resource with the protocol layer.
func (i *Instance) RegisterResource(uri, name, mimeType string, handler ResourceHandler) error {
	if i.isDisposed() {
		return errors.ErrDisposed
	}

	return i.protocol.AddResource(uri, name, mimeType, handler)
}

// RegisterPrompt registers a prompt with the protocol layer.
func (i *Instance) RegisterPrompt(name, description string, handler PromptHandler) error {
	if i.isDisposed() {
		return errors.ErrDisposed
	}

	return i.protocol.AddPrompt(name, description, handler)
}

func (i *Instance) isDisposed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.disposed
}

// Dispose stops the instance and releases its event streams. After
// Dispose all operations are no-ops or return ErrDisposed. Safe to
// call multiple times.
func (i *Instance) Dispose(ctx context.Context) {
	i.disposeOnce.Do(func() {
		i.mu.Lock()
		i.stopLocked(ctx)
		i.disposed = true
		i.mu.Unlock()

		i.states.Close()
		i.errs.Close()

		i.log.Info("Server instance disposed")
	})
}
