// Package agent implements the terminal chat agent on top of a streaming LLM.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/sweetpotato0/termchat/chat"
	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/message"
	"github.com/sweetpotato0/termchat/pkg/logging"
	"github.com/sweetpotato0/termchat/prompt"
)

// Environment describes the terminal the agent answers for.
type Environment struct {
	Shell string
	OS    string
	Cwd   string
}

// DetectEnvironment fills an Environment for the current process.
func DetectEnvironment(shell string) Environment {
	if shell == "" {
		shell = "sh"
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "unknown"
	}
	return Environment{Shell: shell, OS: runtime.GOOS, Cwd: cwd}
}

// Agent answers terminal requests using an LLM.
type Agent struct {
	id          string
	name        string
	description string
	llm         LLMClient
	prompts     *prompt.Manager
	env         Environment
	extraPrompt string
	logger      *slog.Logger
}

// Option is a function that configures an Agent
type Option func(*Agent)

// WithID sets the agent id used for registration.
func WithID(id string) Option {
	return func(a *Agent) {
		a.id = id
	}
}

// WithName sets the agent name
func WithName(name string) Option {
	return func(a *Agent) {
		a.name = name
	}
}

// WithDescription sets the agent description
func WithDescription(description string) Option {
	return func(a *Agent) {
		a.description = description
	}
}

// WithProvider sets the LLM provider
func WithProvider(llm LLMClient) Option {
	return func(a *Agent) {
		a.llm = llm
	}
}

// WithSystemPrompt appends extra instructions to the built-in system prompt.
func WithSystemPrompt(extra string) Option {
	return func(a *Agent) {
		a.extraPrompt = extra
	}
}

// WithPrompts replaces the prompt manager. It must provide prompt.TerminalSystem.
func WithPrompts(m *prompt.Manager) Option {
	return func(a *Agent) {
		if m != nil {
			a.prompts = m
		}
	}
}

// WithEnvironment sets the terminal description used in the system prompt.
func WithEnvironment(env Environment) Option {
	return func(a *Agent) {
		a.env = env
	}
}

// WithLogger overrides the agent logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates a terminal agent.
func New(opts ...Option) *Agent {
	a := &Agent{
		id:   "terminal",
		name: "Terminal",
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.prompts == nil {
		a.prompts = prompt.NewTerminalManager()
	}
	if a.env == (Environment{}) {
		a.env = DetectEnvironment(os.Getenv("SHELL"))
	}
	if a.logger == nil {
		a.logger = logging.WithComponent("agent")
	}
	return a
}

// Descriptor describes the agent for registration.
func (a *Agent) Descriptor() chat.AgentDescriptor {
	return chat.AgentDescriptor{
		ID:          a.id,
		Name:        a.name,
		Description: a.description,
		Metadata: map[string]any{
			"shell": a.env.Shell,
			"os":    a.env.OS,
		},
	}
}

// SystemPrompt renders the system prompt for the configured environment.
func (a *Agent) SystemPrompt() (string, error) {
	base, err := a.prompts.Render(prompt.TerminalSystem, map[string]any{
		"Shell": a.env.Shell,
		"OS":    a.env.OS,
		"Cwd":   a.env.Cwd,
	})
	if err != nil {
		return "", err
	}
	return prompt.NewBuilder().
		Add(base).
		AddSection("Additional instructions", a.extraPrompt).
		Build(), nil
}

// Invoke streams an answer to req. Text deltas are reported as markdown
// progress chunks in the order the LLM produces them.
func (a *Agent) Invoke(ctx context.Context, req *chat.Request, progress chat.ProgressFunc, history []chat.Turn) (*chat.Result, error) {
	if a.llm == nil {
		return nil, fmt.Errorf("agent %s: no LLM provider configured: %w", a.id, errs.ErrUnavailable)
	}
	if req == nil {
		return nil, fmt.Errorf("agent %s: request is required: %w", a.id, errs.ErrInvalidInput)
	}
	if progress == nil {
		progress = func(chat.Progress) {}
	}

	system, err := a.SystemPrompt()
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.id, err)
	}
	msgs := a.buildMessages(system, req, history)

	var (
		final    *message.Message
		streamed strings.Builder
	)
	for msg, err := range a.llm.GenerateStream(ctx, &GenerateRequest{Messages: msgs}) {
		if err != nil {
			return nil, fmt.Errorf("agent %s: generate: %w", a.id, err)
		}
		if msg == nil {
			continue
		}
		if msg.Completed {
			final = msg
			continue
		}
		if msg.Content == "" {
			continue
		}
		streamed.WriteString(msg.Content)
		progress(chat.Progress{Kind: chat.KindMarkdownContent, Content: msg.Content})
	}

	response := streamed.String()
	if final != nil && response == "" && final.Content != "" {
		// Providers that do not stream deliver only the final message.
		response = final.Content
		progress(chat.Progress{Kind: chat.KindMarkdownContent, Content: response})
	}
	if final == nil && response == "" {
		return nil, fmt.Errorf("agent %s: LLM stream ended without a response: %w", a.id, errs.ErrInternal)
	}

	a.logger.Debug("agent answered", "request_id", req.RequestID, "chars", len(response))

	metadata := map[string]any{"response": response}
	if final != nil {
		for k, v := range final.Metadata {
			metadata[k] = v
		}
	}
	return &chat.Result{Metadata: metadata}, nil
}

func (a *Agent) buildMessages(system string, req *chat.Request, history []chat.Turn) []*message.Message {
	msgs := make([]*message.Message, 0, 2+2*len(history))
	msgs = append(msgs, message.NewMessage(message.RoleSystem, system))
	for _, turn := range history {
		if turn.Request != nil && turn.Request.Message != "" {
			msgs = append(msgs, message.NewMessage(message.RoleUser, turn.Request.Message))
		}
		if turn.Response != "" {
			msgs = append(msgs, message.NewMessage(message.RoleAssistant, turn.Response))
		}
	}
	msgs = append(msgs, message.NewMessage(message.RoleUser, req.Message))
	return msgs
}
