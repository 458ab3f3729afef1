package mcpserver

import (
	"context"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func connectedPair(t *testing.T, e *Endpoint) *mcp.ClientSession {
	t.Helper()

	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	require.NoError(t, e.Connect(ctx, serverTransport))
	t.Cleanup(func() { _ = e.Disconnect(ctx) })

	client := mcp.NewClient(&mcp.Implementation{Name: "endpoint-test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return session
}

func TestEndpoint_ToolRoundTrip(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.AddTool("add", "adds two numbers",
		SimpleSchema(map[string]string{"a": "float64", "b": "float64"}),
		func(_ context.Context, input map[string]any) (map[string]any, error) {
			a, _ := input["a"].(float64)
			b, _ := input["b"].(float64)

			return map[string]any{"value": a + b}, nil
		}))

	session := connectedPair(t, e)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "add",
		Arguments: map[string]any{"a": 2, "b": 3},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.JSONEq(t, `{"value": 5}`, text.Text)
}

func TestEndpoint_ToolFailureIsInBand(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.AddTool("boom", "always fails", nil,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return nil, fmt.Errorf("intentional failure")
		}))

	session := connectedPair(t, e)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{Name: "boom"})
	require.NoError(t, err)
	require.True(t, result.IsError)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "intentional failure")
}

func TestEndpoint_ResourceRoundTrip(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.AddResource("mem://greeting", "greeting", "text/plain",
		func(_ context.Context, uri string) (string, error) {
			return "hello from " + uri, nil
		}))

	session := connectedPair(t, e)

	result, err := session.ReadResource(context.Background(), &mcp.ReadResourceParams{
		URI: "mem://greeting",
	})
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	require.Equal(t, "hello from mem://greeting", result.Contents[0].Text)
	require.Equal(t, "text/plain", result.Contents[0].MIMEType)
}

func TestEndpoint_PromptRoundTrip(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.AddPrompt("summarize", "summarize the given text",
		func(_ context.Context, args map[string]any) (string, error) {
			return fmt.Sprintf("Please summarize: %v", args["text"]), nil
		}))

	session := connectedPair(t, e)

	result, err := session.GetPrompt(context.Background(), &mcp.GetPromptParams{
		Name:      "summarize",
		Arguments: map[string]string{"text": "lorem ipsum"},
	})
	require.NoError(t, err)
	require.Len(t, result.Messages, 1)

	text, ok := result.Messages[0].Content.(*mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "Please summarize: lorem ipsum", text.Text)
}

func TestEndpoint_ConnectTwiceFails(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	_ = connectedPair(t, e)

	_, serverTransport := mcp.NewInMemoryTransports()
	require.Error(t, e.Connect(context.Background(), serverTransport))
}

func TestEndpoint_DisconnectWithoutSessionIsNoop(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.Disconnect(context.Background()))
}

func TestEndpoint_RemovedToolIsGone(t *testing.T) {
	e := NewEndpoint("runtime-test", "1.0.0")

	require.NoError(t, e.AddTool("temp", "temporary", nil,
		func(_ context.Context, _ map[string]any) (map[string]any, error) {
			return map[string]any{}, nil
		}))
	e.RemoveTool("temp")

	session := connectedPair(t, e)

	tools, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, tools.Tools)
}
