package mcpruntime

import (
	"log/slog"

	"github.com/app-appplayer/mcp-runtime-go/internal/instance"
	"github.com/app-appplayer/mcp-runtime-go/internal/stats"
)

// ServerInstance is one MCP server's lifecycle state machine. See the
// package documentation for the full lifecycle contract.
type ServerInstance = instance.Instance

// Protocol is the external MCP protocol layer an instance drives.
// NewEndpoint provides the default implementation; supply your own to
// bridge a different server stack.
type Protocol = instance.Protocol

// InstanceOption configures a ServerInstance.
type InstanceOption = instance.Option

// WithInstanceLogger sets the instance logger.
func WithInstanceLogger(log *slog.Logger) InstanceOption {
	return instance.WithLogger(log)
}

// WithSampler replaces the resource usage sampler. The default samples
// the host process's CPU and memory.
func WithSampler(sampler Sampler) InstanceOption {
	return instance.WithSampler(sampler)
}

// NewServerInstance creates a stopped instance with a generated unique
// id. Unless WithSampler overrides it, resource monitoring samples the
// host process.
func NewServerInstance(protocol Protocol, cfg ServerConfig, opts ...InstanceOption) *ServerInstance {
	if sampler, err := stats.NewHostSampler(); err == nil {
		opts = append([]InstanceOption{instance.WithSampler(sampler)}, opts...)
	}

	return instance.New(protocol, cfg, opts...)
}
