// Package chat defines the conversation model shared by the inline chat
// controller and the agents that answer it, plus the Service that registers
// agents and invokes them.
package chat

import (
	"context"
	"time"
)

// ProgressKind tags a streamed progress chunk.
type ProgressKind string

const (
	// KindContent carries plain response text.
	KindContent ProgressKind = "content"
	// KindMarkdownContent carries markdown response text.
	KindMarkdownContent ProgressKind = "markdownContent"
	// KindProgressMessage carries a transient status line ("Thinking...").
	KindProgressMessage ProgressKind = "progressMessage"
	// KindUsedContext reports context the agent consulted.
	KindUsedContext ProgressKind = "usedContext"
	// KindReference reports a reference (file, url) backing the answer.
	KindReference ProgressKind = "reference"
)

// HasText reports whether chunks of this kind contribute to the response text.
func (k ProgressKind) HasText() bool {
	return k == KindContent || k == KindMarkdownContent
}

// Progress is one incremental unit of an agent's streamed response.
type Progress struct {
	Kind    ProgressKind
	Content string
}

// ProgressFunc receives progress chunks in the order the agent produces them.
type ProgressFunc func(Progress)

// Variable is one value bound to a request variable.
type Variable struct {
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
}

// Request is a single question issued to an agent. It is not modified after it
// has been handed to Service.InvokeAgent.
type Request struct {
	SessionID string                `json:"session_id"`
	RequestID string                `json:"request_id"`
	AgentID   string                `json:"agent_id"`
	Message   string                `json:"message"`
	Variables map[string][]Variable `json:"variables"`
}

// Turn is a previous request/response pair offered to an agent as history.
type Turn struct {
	Request  *Request
	Response string
}

// Timings measures an invocation.
type Timings struct {
	FirstProgress time.Duration
	TotalElapsed  time.Duration
}

// Result is returned by a completed invocation.
type Result struct {
	Timings  Timings
	Metadata map[string]any
}

// AgentDescriptor describes a registered agent.
type AgentDescriptor struct {
	ID          string
	Name        string
	Description string
	Metadata    map[string]any
}

// Agent answers chat requests. Implementations call progress sequentially from
// the invoking goroutine or a single goroutine of their own, and stop early when
// ctx is cancelled.
type Agent interface {
	Invoke(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error)
}

// AgentFunc adapts a function to the Agent interface.
type AgentFunc func(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error)

// Invoke calls f.
func (f AgentFunc) Invoke(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error) {
	return f(ctx, req, progress, history)
}
