package mcpruntime

import (
	"log/slog"

	"github.com/app-appplayer/mcp-runtime-go/internal/config"
)

// ServerConfig is an immutable server configuration value. Edit it
// with the With* copy methods; changes apply to instances created
// afterwards.
type ServerConfig = config.ServerConfig

// ConfigStore persists a ServerConfig. Load never fails: corrupted or
// missing data yields the documented defaults.
type ConfigStore = config.Store

// DefaultConfig returns the documented default configuration.
func DefaultConfig() ServerConfig {
	return config.Default()
}

// NewFileConfigStore creates a configuration store backed by a JSON
// file at path.
func NewFileConfigStore(path string, log *slog.Logger) *config.FileStore {
	if log == nil {
		log = NopLogger()
	}

	return config.NewFileStore(path, log)
}
