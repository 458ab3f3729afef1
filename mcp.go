package mcpruntime

import (
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/app-appplayer/mcp-runtime-go/internal/mcpserver"
)

// Endpoint is the default protocol layer, backed by the official MCP
// SDK server.
type Endpoint = mcpserver.Endpoint

// EndpointOption configures an Endpoint.
type EndpointOption = mcpserver.Option

// WithEndpointLogger sets the endpoint logger.
func WithEndpointLogger(log *slog.Logger) EndpointOption {
	return mcpserver.WithLogger(log)
}

// NewEndpoint creates an MCP endpoint advertising the given
// implementation name and version.
func NewEndpoint(name, version string, opts ...EndpointOption) *Endpoint {
	return mcpserver.NewEndpoint(name, version, opts...)
}

// SimpleSchema creates a jsonschema.Schema from a property-name to
// Go-type map, with every property required.
//
// Input format: {"a": "float64", "b": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	return mcpserver.SimpleSchema(props)
}
