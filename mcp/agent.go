package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/termchat/chat"
)

// AgentPrefix namespaces MCP tools in the agent registry.
const AgentPrefix = "mcp/"

// Registry is the subset of chat.Service the bridge registers agents with.
type Registry interface {
	Register(desc chat.AgentDescriptor, agent chat.Agent) (func(), error)
}

// AgentID returns the registry id of the MCP tool name.
func AgentID(tool string) string {
	return AgentPrefix + tool
}

type binding struct {
	unregister  func()
	fingerprint string
}

// Bridge exposes every tool of an MCP server as a chat agent and keeps the
// registrations in step with the server's tool list.
type Bridge struct {
	client   *Client
	registry Registry
	logger   *slog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
}

// NewBridge creates a bridge. Call Sync to register the current tools.
func NewBridge(client *Client, registry Registry, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = client.logger
	}
	return &Bridge{
		client:   client,
		registry: registry,
		logger:   logger,
		bindings: make(map[string]*binding),
	}
}

// Sync lists the server's tools and reconciles the registry: new tools are
// registered, changed tools re-registered and vanished tools removed. It
// returns the ids of the agents now registered.
func (b *Bridge) Sync(ctx context.Context) ([]string, error) {
	tools, err := b.client.ListAllTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]struct{}, len(tools))
	var errList []error
	for _, def := range tools {
		if def == nil || strings.TrimSpace(def.Name) == "" {
			continue
		}
		seen[def.Name] = struct{}{}

		ta := newToolAgent(b.client, def)
		fp := ta.fingerprint()
		if current, ok := b.bindings[def.Name]; ok {
			if current.fingerprint == fp {
				continue
			}
			current.unregister()
			delete(b.bindings, def.Name)
		}

		unregister, err := b.registry.Register(ta.descriptor(), ta)
		if err != nil {
			errList = append(errList, fmt.Errorf("mcp: register tool %s: %w", def.Name, err))
			continue
		}
		b.bindings[def.Name] = &binding{unregister: unregister, fingerprint: fp}
		b.logger.Debug("mcp tool registered", "agent", AgentID(def.Name))
	}

	for name, bound := range b.bindings {
		if _, ok := seen[name]; ok {
			continue
		}
		bound.unregister()
		delete(b.bindings, name)
		b.logger.Debug("mcp tool removed", "agent", AgentID(name))
	}

	ids := make([]string, 0, len(b.bindings))
	for name := range b.bindings {
		ids = append(ids, AgentID(name))
	}
	sort.Strings(ids)
	return ids, errors.Join(errList...)
}

// Watch re-syncs whenever the server announces a tool list change. It returns
// when ctx is done or the client shuts down, removing every registration in
// the latter case.
func (b *Bridge) Watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.client.Done():
			b.Close()
			return
		case <-b.client.ToolsChanged():
			if _, err := b.Sync(ctx); err != nil {
				b.logger.Warn("mcp tool resync failed", "error", err)
			}
		}
	}
}

// Close unregisters every agent the bridge added.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for name, bound := range b.bindings {
		bound.unregister()
		delete(b.bindings, name)
	}
}

// toolAgent answers chat requests by calling one MCP tool.
type toolAgent struct {
	client      *Client
	name        string
	title       string
	description string
	params      []Parameter
}

func newToolAgent(client *Client, def *sdkmcp.Tool) *toolAgent {
	title := def.Title
	if title == "" && def.Annotations != nil {
		title = def.Annotations.Title
	}
	description := def.Description
	if description == "" {
		description = title
	}
	return &toolAgent{
		client:      client,
		name:        def.Name,
		title:       title,
		description: description,
		params:      parametersFromSchema(def.InputSchema),
	}
}

func (a *toolAgent) descriptor() chat.AgentDescriptor {
	names := make([]string, 0, len(a.params))
	for _, p := range a.params {
		names = append(names, p.Name)
	}
	name := a.title
	if name == "" {
		name = a.name
	}
	return chat.AgentDescriptor{
		ID:          AgentID(a.name),
		Name:        name,
		Description: a.description,
		Metadata: map[string]any{
			"source":     "mcp",
			"tool":       a.name,
			"parameters": names,
		},
	}
}

func (a *toolAgent) fingerprint() string {
	var sb strings.Builder
	sb.WriteString(a.title)
	sb.WriteByte(0)
	sb.WriteString(a.description)
	for _, p := range a.params {
		sb.WriteByte(0)
		sb.WriteString(p.Name)
		sb.WriteByte(':')
		sb.WriteString(p.Type)
		if p.Required {
			sb.WriteByte('!')
		}
	}
	return sb.String()
}

func (a *toolAgent) Invoke(ctx context.Context, req *chat.Request, progress chat.ProgressFunc, _ []chat.Turn) (*chat.Result, error) {
	args, err := argumentsFor(req.Message, a.params)
	if err != nil {
		return nil, err
	}

	emit := func(p chat.Progress) {
		if progress != nil {
			progress(p)
		}
	}
	emit(chat.Progress{Kind: chat.KindProgressMessage, Content: "Running " + a.name + "..."})

	text, err := a.client.CallTool(ctx, a.name, args)
	if err != nil {
		return nil, err
	}
	if text != "" {
		emit(chat.Progress{Kind: chat.KindMarkdownContent, Content: text})
	}
	return &chat.Result{Metadata: map[string]any{"tool": a.name}}, nil
}
