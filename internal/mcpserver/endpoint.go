// Package mcpserver provides the default protocol layer backed by the
// official MCP SDK server.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/app-appplayer/mcp-runtime-go/internal/instance"
)

// Compile-time verification that Endpoint implements the protocol layer.
var _ instance.Protocol = (*Endpoint)(nil)

// Endpoint adapts an mcp.Server to the runtime's protocol contract.
// One endpoint serves one session at a time; the instance layer
// enforces the single-active-connection rule above it.
type Endpoint struct {
	log    *slog.Logger
	server *mcp.Server

	mu      sync.Mutex
	session *mcp.ServerSession
}

// Option configures an Endpoint.
type Option func(*options)

type options struct {
	log *slog.Logger
}

// WithLogger sets the endpoint logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// NewEndpoint creates an endpoint advertising the given implementation
// name and version during the MCP handshake.
func NewEndpoint(name, version string, opts ...Option) *Endpoint {
	o := options{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	return &Endpoint{
		log:    o.log.With("component", "endpoint", "server_name", name),
		server: mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
	}
}

// Connect binds the transport and performs the MCP handshake. A nil
// transport selects stdio, the conventional default for host-process
// servers.
func (e *Endpoint) Connect(ctx context.Context, transport instance.Transport) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return fmt.Errorf("endpoint already connected")
	}

	if transport == nil {
		transport = &mcp.StdioTransport{}
	}

	session, err := e.server.Connect(ctx, transport, nil)
	if err != nil {
		return err
	}

	e.session = session

	return nil
}

// Disconnect closes the active session. Without one it is a no-op.
func (e *Endpoint) Disconnect(_ context.Context) error {
	e.mu.Lock()
	session := e.session
	e.session = nil
	e.mu.Unlock()

	if session == nil {
		return nil
	}

	return session.Close()
}

// Log forwards a log notification to the connected client. Messages
// sent while disconnected, and delivery failures, are dropped after a
// local debug line; client logging is advisory.
func (e *Endpoint) Log(ctx context.Context, level, message string, attrs map[string]any) {
	e.mu.Lock()
	session := e.session
	e.mu.Unlock()

	if session == nil {
		return
	}

	data := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		data[k] = v
	}
	data["message"] = message

	if err := session.Log(ctx, &mcp.LoggingMessageParams{
		Level: mcp.LoggingLevel(level),
		Data:  data,
	}); err != nil {
		e.log.Debug("Client log dropped", "error", err)
	}
}

// AddTool registers a tool. A nil schema accepts any object input.
func (e *Endpoint) AddTool(name, description string, schema *jsonschema.Schema, handler instance.ToolHandler) error {
	if schema == nil {
		schema = &jsonschema.Schema{Type: "object"}
	}

	e.server.AddTool(&mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, adaptToolHandler(handler))

	return nil
}

// adaptToolHandler bridges the runtime's map-based handler signature
// to the SDK's raw request shape. Execution failures are encoded as
// in-band tool errors, never protocol errors.
func adaptToolHandler(handler instance.ToolHandler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := parseArguments(req)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		result, err := handler(ctx, input)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		encoded, err := json.Marshal(result)
		if err != nil {
			return errorResult("failed to encode result: " + err.Error()), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(encoded)}},
		}, nil
	}
}

// parseArguments unmarshals a tool request's arguments into a map.
func parseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("failed to unmarshal arguments: %w", err)
	}

	return args, nil
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// RemoveTool removes a tool by name. Unknown names are ignored by the
// SDK server.
func (e *Endpoint) RemoveTool(name string) {
	e.server.RemoveTools(name)
}

// AddResource registers a readable resource under a fixed URI.
func (e *Endpoint) AddResource(uri, name, mimeType string, handler instance.ResourceHandler) error {
	e.server.AddResource(&mcp.Resource{
		URI:      uri,
		Name:     name,
		MIMEType: mimeType,
	}, func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		text, err := handler(ctx, uri)
		if err != nil {
			return nil, err
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      uri,
				MIMEType: mimeType,
				Text:     text,
			}},
		}, nil
	})

	return nil
}

// AddPrompt registers a prompt rendered as a single user message.
func (e *Endpoint) AddPrompt(name, description string, handler instance.PromptHandler) error {
	e.server.AddPrompt(&mcp.Prompt{
		Name:        name,
		Description: description,
	}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		args := make(map[string]any)
		if req != nil && req.Params != nil {
			for k, v := range req.Params.Arguments {
				args[k] = v
			}
		}

		text, err := handler(ctx, args)
		if err != nil {
			return nil, err
		}

		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: text}},
			},
		}, nil
	})

	return nil
}

// SimpleSchema creates a jsonschema.Schema from a property-name to
// Go-type map, with every property required.
//
// Input format: {"a": "float64", "b": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, goType := range props {
		properties[name] = goTypeToJSONSchema(goType)
		required = append(required, name)
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// goTypeToJSONSchema converts a Go type string to a JSON Schema type.
func goTypeToJSONSchema(goType string) *jsonschema.Schema {
	switch goType {
	case "string":
		return &jsonschema.Schema{Type: "string"}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return &jsonschema.Schema{Type: "integer"}
	case "float32", "float64", "float", "number":
		return &jsonschema.Schema{Type: "number"}
	case "bool", "boolean":
		return &jsonschema.Schema{Type: "boolean"}
	case "any", "object", "map[string]any":
		return &jsonschema.Schema{Type: "object"}
	default:
		if len(goType) > 2 && goType[:2] == "[]" {
			return &jsonschema.Schema{
				Type:  "array",
				Items: goTypeToJSONSchema(goType[2:]),
			}
		}

		// Default to string
		return &jsonschema.Schema{Type: "string"}
	}
}
