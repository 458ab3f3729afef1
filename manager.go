package mcpruntime

import (
	"log/slog"

	"github.com/app-appplayer/mcp-runtime-go/internal/manager"
)

// ServerManager is a registry coordinating many server instances.
type ServerManager = manager.Manager

// Registration is the event published when a server enters or leaves
// the registry.
type Registration = manager.Registration

// ManagerOption configures a ServerManager.
type ManagerOption = manager.Option

// WithManagerLogger sets the manager logger.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return manager.WithLogger(log)
}

// NewServerManager creates an empty manager. Construct one per scope
// that needs its own registry; tests typically build their own.
func NewServerManager(opts ...ManagerOption) *ServerManager {
	return manager.New(opts...)
}
