// Package manager coordinates a registry of server instances: start and
// stop sweeps, aggregated state publication, and background-mode
// propagation.
package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/app-appplayer/mcp-runtime-go/internal/errors"
	"github.com/app-appplayer/mcp-runtime-go/internal/event"
	"github.com/app-appplayer/mcp-runtime-go/internal/instance"
	"github.com/app-appplayer/mcp-runtime-go/internal/lifecycle"
)

// Registration is the event published when a server enters or leaves
// the registry.
type Registration struct {
	ID         string
	Registered bool
}

// Manager is a registry of server instances keyed by id.
//
// Each registered instance's state stream is watched; any change
// triggers a full re-snapshot of the aggregated {id -> state} map on
// the manager's state stream. Consumers must treat each emission as
// the complete current view, never a diff.
//
// Snapshots are built from the last state each instance published, so
// the manager never calls back into an instance while holding its own
// lock; an instance blocked in a slow connect cannot stall registry
// operations.
type Manager struct {
	log *slog.Logger

	mu         sync.Mutex
	servers    map[string]*instance.Instance
	lastStates map[string]instance.State
	watchers   map[string]func()
	background bool
	disposed   bool

	disposeOnce sync.Once
	wg          sync.WaitGroup

	states        *event.Bus[map[string]instance.State]
	registrations *event.Bus[Registration]
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the manager logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Manager{
		log:           o.log.With("component", "manager"),
		servers:       make(map[string]*instance.Instance),
		lastStates:    make(map[string]instance.State),
		watchers:      make(map[string]func()),
		states:        event.NewBus[map[string]instance.State](),
		registrations: event.NewBus[Registration](),
	}
}

// Register adds an instance under id and begins watching its state
// stream. Returns ErrDuplicateID when the id is already present and
// ErrManagerDisposed after Dispose.
func (m *Manager) Register(id string, inst *instance.Instance) error {
	// Query the instance before taking the manager lock; State blocks
	// while the instance is mid-transition.
	state := inst.State()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.disposed {
		return errors.ErrManagerDisposed
	}

	if _, ok := m.servers[id]; ok {
		return fmt.Errorf("register %q: %w", id, errors.ErrDuplicateID)
	}

	m.servers[id] = inst
	m.lastStates[id] = state
	m.watchers[id] = m.watchLocked(id, inst)

	m.log.Info("Server registered", "server_id", id)

	m.registrations.Publish(Registration{ID: id, Registered: true})
	m.publishSnapshotLocked()

	return nil
}

// watchLocked records every state inst publishes and re-publishes the
// aggregated snapshot. The returned cancel stops the watch. Caller
// must hold m.mu.
func (m *Manager) watchLocked(id string, inst *instance.Instance) func() {
	ch, cancel := inst.States()

	m.wg.Add(1)

	go func() {
		defer m.wg.Done()

		for state := range ch {
			m.mu.Lock()

			if _, ok := m.servers[id]; ok {
				m.lastStates[id] = state
				m.publishSnapshotLocked()
			}

			m.mu.Unlock()
		}
	}()

	return cancel
}

// publishSnapshotLocked emits the full {id -> state} view from the
// last-known states. Caller must hold m.mu.
func (m *Manager) publishSnapshotLocked() {
	if m.disposed {
		return
	}

	snapshot := make(map[string]instance.State, len(m.lastStates))
	for id, state := range m.lastStates {
		snapshot[id] = state
	}

	m.states.Publish(snapshot)
}

// Unregister stops the instance and drops it from the registry.
// Absent ids are a no-op. Stop failures are logged, never propagated.
func (m *Manager) Unregister(ctx context.Context, id string) {
	m.mu.Lock()

	inst, ok := m.servers[id]
	if !ok {
		m.mu.Unlock()

		return
	}

	m.watchers[id]()
	delete(m.watchers, id)
	delete(m.servers, id)
	delete(m.lastStates, id)

	m.log.Info("Server unregistered", "server_id", id)

	m.registrations.Publish(Registration{ID: id, Registered: false})
	m.publishSnapshotLocked()
	m.mu.Unlock()

	// Stop outside the registry lock; Stop takes the instance lock.
	if err := inst.Stop(ctx); err != nil {
		m.log.Warn("Stop during unregister failed", "server_id", id, "error", err)
	}
}

// Server returns the instance registered under id, or ErrUnknownID.
func (m *Manager) Server(id string) (*instance.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inst, ok := m.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %q: %w", id, errors.ErrUnknownID)
	}

	return inst, nil
}

// StartAll starts every registered instance on its protocol layer's
// default transport. A failing instance does not abort the sweep; the
// joined failures are returned after every instance was attempted.
func (m *Manager) StartAll(ctx context.Context) error {
	var errs []error

	for id, inst := range m.snapshotServers() {
		if err := inst.Start(ctx, nil); err != nil {
			m.log.Warn("Start failed", "server_id", id, "error", err)
			errs = append(errs, fmt.Errorf("start %q: %w", id, err))
		}
	}

	return stderrors.Join(errs...)
}

// StopAll stops every registered instance. Best-effort like StartAll.
func (m *Manager) StopAll(ctx context.Context) error {
	var errs []error

	for id, inst := range m.snapshotServers() {
		if err := inst.Stop(ctx); err != nil {
			m.log.Warn("Stop failed", "server_id", id, "error", err)
			errs = append(errs, fmt.Errorf("stop %q: %w", id, err))
		}
	}

	return stderrors.Join(errs...)
}

// snapshotServers copies the registry so sweeps run without holding
// the manager lock across instance calls.
func (m *Manager) snapshotServers() map[string]*instance.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	servers := make(map[string]*instance.Instance, len(m.servers))
	for id, inst := range m.servers {
		servers[id] = inst
	}

	return servers
}

// ServersByState returns every instance whose last published state is
// the given state. The returned slice is a point-in-time copy, not a
// live view.
func (m *Manager) ServersByState(state instance.State) []*instance.Instance {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*instance.Instance
	for id, inst := range m.servers {
		if m.lastStates[id] == state {
			matched = append(matched, inst)
		}
	}

	return matched
}

// EnableBackgroundRunning toggles process-wide background execution.
// Enabling tells every background-configured instance to drop to
// minimal resource mode; disabling tells every running instance to
// resume full mode.
func (m *Manager) EnableBackgroundRunning(enabled bool) {
	m.mu.Lock()

	if m.disposed {
		m.mu.Unlock()

		return
	}

	m.background = enabled

	servers := make(map[string]*instance.Instance, len(m.servers))
	running := make(map[string]bool, len(m.servers))

	for id, inst := range m.servers {
		servers[id] = inst
		running[id] = m.lastStates[id] == instance.StateRunning
	}

	m.mu.Unlock()

	// SetResourceMode takes each instance's lock, so it runs outside
	// the registry lock.
	for id, inst := range servers {
		if enabled {
			if inst.Config().RunInBackground {
				inst.SetResourceMode(lifecycle.ResourceModeMinimal)
			}
		} else if running[id] {
			inst.SetResourceMode(lifecycle.ResourceModeFull)
		}
	}

	m.log.Info("Background running toggled", "enabled", enabled)
}

// BackgroundRunning reports whether background execution is enabled.
func (m *Manager) BackgroundRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.background
}

// States subscribes to the aggregated state stream. Each emission is
// the complete {id -> state} view at that moment.
func (m *Manager) States() (<-chan map[string]instance.State, func()) {
	return m.states.Subscribe()
}

// Registrations subscribes to registration and unregistration events.
func (m *Manager) Registrations() (<-chan Registration, func()) {
	return m.registrations.Subscribe()
}

// Dispose stops and disposes every registered instance, clears the
// registry, and closes the manager's event streams. Safe to call
// multiple times.
func (m *Manager) Dispose(ctx context.Context) {
	m.disposeOnce.Do(func() {
		m.mu.Lock()

		servers := make(map[string]*instance.Instance, len(m.servers))

		for id, inst := range m.servers {
			servers[id] = inst
			m.watchers[id]()
			delete(m.watchers, id)
			delete(m.servers, id)
			delete(m.lastStates, id)
		}

		m.disposed = true
		m.mu.Unlock()

		// Dispose takes each instance's lock, so it runs outside the
		// registry lock.
		for _, inst := range servers {
			inst.Dispose(ctx)
		}

		m.wg.Wait()

		m.states.Close()
		m.registrations.Close()

		m.log.Info("Manager disposed")
	})
}
