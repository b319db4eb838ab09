package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

type echoArgs struct {
	Input string `json:"input" jsonschema:"text to echo"`
}

func echoTool(ctx context.Context, req *sdkmcp.CallToolRequest, args echoArgs) (*sdkmcp.CallToolResult, any, error) {
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: "echo: " + args.Input}},
	}, nil, nil
}

type failArgs struct {
	Reason string `json:"reason"`
}

func failTool(ctx context.Context, req *sdkmcp.CallToolRequest, args failArgs) (*sdkmcp.CallToolResult, any, error) {
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: args.Reason}},
	}, nil, nil
}

// connectTestServer runs an in-process MCP server and returns a client bound
// to it.
func connectTestServer(t *testing.T) (*sdkmcp.Server, *Client) {
	t.Helper()
	ctx := context.Background()

	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-server", Version: "v0.0.1"}, nil)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "echo", Description: "Echo the input"}, echoTool)
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "fail", Description: "Always fails"}, failTool)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client, err := NewClient(ctx, clientTransport, WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func newTestRegistry() *chat.Service {
	return chat.NewService(chat.WithLogger(logging.Discard()))
}

func TestClientInitializeAndListTools(t *testing.T) {
	_, client := connectTestServer(t)

	info := client.InitializeResult()
	if info == nil || info.ServerInfo.Name != "test-server" {
		t.Fatalf("unexpected initialize result: %+v", info)
	}

	tools, err := client.ListAllTools(context.Background())
	if err != nil {
		t.Fatalf("list tools: %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
}

func TestCallToolError(t *testing.T) {
	_, client := connectTestServer(t)

	_, err := client.CallTool(context.Background(), "fail", map[string]any{"reason": "nope"})
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if toolErr.Name != "fail" || toolErr.Message != "nope" {
		t.Fatalf("unexpected tool error: %+v", toolErr)
	}
}

func TestBridgeRegistersToolsAsAgents(t *testing.T) {
	_, client := connectTestServer(t)
	registry := newTestRegistry()
	bridge := NewBridge(client, registry, logging.Discard())

	ids, err := bridge.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(ids) != 2 || ids[0] != "mcp/echo" || ids[1] != "mcp/fail" {
		t.Fatalf("unexpected agent ids: %v", ids)
	}

	desc, ok := registry.GetAgent("mcp/echo")
	if !ok || desc.Description != "Echo the input" {
		t.Fatalf("unexpected descriptor: %+v", desc)
	}

	var chunks []chat.Progress
	_, err = registry.InvokeAgent(context.Background(), "mcp/echo", &chat.Request{Message: "hello"}, func(p chat.Progress) {
		chunks = append(chunks, p)
	}, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	last := chunks[len(chunks)-1]
	if last.Kind != chat.KindMarkdownContent || last.Content != "echo: hello" {
		t.Fatalf("unexpected final chunk: %+v", last)
	}

	_, err = registry.InvokeAgent(context.Background(), "mcp/fail", &chat.Request{Message: "broken"}, nil, nil)
	var toolErr *ToolError
	if !errors.As(err, &toolErr) || toolErr.Message != "broken" {
		t.Fatalf("expected ToolError through the service, got %v", err)
	}
}

func TestBridgeSyncIsIdempotent(t *testing.T) {
	_, client := connectTestServer(t)
	registry := newTestRegistry()
	bridge := NewBridge(client, registry, logging.Discard())

	if _, err := bridge.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	changes := 0
	registry.OnAgentsChanged(func() { changes++ })
	if _, err := bridge.Sync(context.Background()); err != nil {
		t.Fatalf("resync: %v", err)
	}
	if changes != 0 {
		t.Fatalf("expected no registry changes for an unchanged tool list, got %d", changes)
	}

	bridge.Close()
	if registry.HasAgent("mcp/echo") || registry.HasAgent("mcp/fail") {
		t.Fatal("expected Close to unregister every tool agent")
	}
}

func TestBridgeWatchFollowsToolListChanges(t *testing.T) {
	server, client := connectTestServer(t)
	registry := newTestRegistry()
	bridge := NewBridge(client, registry, logging.Discard())
	if _, err := bridge.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go bridge.Watch(ctx)

	server.RemoveTools("fail")
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "upper", Description: "Upper-case the input"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, args echoArgs) (*sdkmcp.CallToolResult, any, error) {
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: strings.ToUpper(args.Input)}},
			}, nil, nil
		})

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if registry.HasAgent("mcp/upper") && !registry.HasAgent("mcp/fail") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("registry did not follow tool list change: %+v", registry.Agents())
}

func TestConnectRequiresTarget(t *testing.T) {
	if _, err := Connect(context.Background(), config.MCPConfig{}); err == nil {
		t.Fatal("expected an error without command or endpoint")
	}
}
