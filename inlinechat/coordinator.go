package inlinechat

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/pkg/logging"
	"github.com/sweetpotato0/termchat/pkg/telemetry"
)

// AgentService is the part of the agent registry the inline chat uses.
type AgentService interface {
	HasAgent(id string) bool
	GetAgent(id string) (chat.AgentDescriptor, bool)
	OnAgentsChanged(fn func()) (unsubscribe func())
	InvokeAgent(ctx context.Context, agentID string, req *chat.Request, progress chat.ProgressFunc, history []chat.Turn) (*chat.Result, error)
}

// OutcomeKind classifies how a submit ended.
type OutcomeKind int

const (
	// OutcomeNone means nothing was submitted, e.g. the controller is disabled.
	OutcomeNone OutcomeKind = iota
	OutcomeCommand
	OutcomeMessage
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCommand:
		return "command"
	case OutcomeMessage:
		return "message"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Outcome is the result of one submit.
type Outcome struct {
	Kind OutcomeKind

	// Text is the command for OutcomeCommand and the full response for
	// OutcomeMessage.
	Text string

	Input        string
	SessionID    string
	RequestID    string
	RequestCount int
	Result       *chat.Result

	// Err is set for OutcomeFailed.
	Err error
}

// Rendered reports whether the outcome reached the sink as a command or message.
func (o Outcome) Rendered() bool {
	return o.Kind == OutcomeCommand || o.Kind == OutcomeMessage
}

// Coordinator drives request/response cycles against one agent.
type Coordinator struct {
	agents  AgentService
	agentID string
	flags   *Flags
	logger  *slog.Logger
	tracer  trace.Tracer

	mu           sync.Mutex
	requestCount int
	inflight     *inflight
}

type inflight struct {
	cancel context.CancelFunc
}

// NewCoordinator creates a coordinator that submits to agentID and publishes
// its state through flags.
func NewCoordinator(agents AgentService, agentID string, flags *Flags, logger *slog.Logger) *Coordinator {
	if flags == nil {
		flags = BindFlags(nil)
	}
	if logger == nil {
		logger = logging.WithComponent("inlinechat")
	}
	return &Coordinator{
		agents:  agents,
		agentID: agentID,
		flags:   flags,
		logger:  logger,
		tracer:  telemetry.Tracer(),
	}
}

// RequestCount returns how many submits have started.
func (c *Coordinator) RequestCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestCount
}

// Cancel cancels the in-flight request, if any. Later submits are unaffected.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	f := c.inflight
	c.mu.Unlock()
	if f != nil {
		f.cancel()
	}
}

func (c *Coordinator) begin(parent context.Context) (context.Context, int, func()) {
	ctx, cancel := context.WithCancel(parent)
	f := &inflight{cancel: cancel}

	c.mu.Lock()
	c.requestCount++
	count := c.requestCount
	c.inflight = f
	c.mu.Unlock()

	return ctx, count, func() {
		c.mu.Lock()
		if c.inflight == f {
			c.inflight = nil
		}
		c.mu.Unlock()
		cancel()
	}
}

type invocation struct {
	result *chat.Result
	err    error
}

// Submit sends the sink's current input to the agent, streams progress into
// the sink and renders the final response as a command or a message. A nil
// sink drops every update. Submit returns as soon as ctx or Cancel ends the
// request; the agent call itself is left to finish and its output is
// discarded.
func (c *Coordinator) Submit(parent context.Context, sink Sink) Outcome {
	if sink == nil {
		sink = nopSink{}
	}

	ctx, count, end := c.begin(parent)
	defer end()

	c.flags.RequestActive.Set(true)

	req := &chat.Request{
		SessionID: uuid.NewString(),
		RequestID: uuid.NewString(),
		AgentID:   c.agentID,
		Message:   sink.Value(),
		Variables: map[string][]chat.Variable{},
	}
	sink.ClearValue()

	out := Outcome{
		Input:        req.Message,
		SessionID:    req.SessionID,
		RequestID:    req.RequestID,
		RequestCount: count,
	}

	ctx, span := c.tracer.Start(ctx, "inlinechat.Submit", trace.WithAttributes(
		attribute.String("chat.agent_id", c.agentID),
		attribute.String("chat.request_id", req.RequestID),
		attribute.Int("inlinechat.request_count", count),
	))
	defer func() {
		span.SetAttributes(attribute.String("inlinechat.outcome", out.Kind.String()))
		telemetry.End(span, out.Err)
	}()

	var (
		mu       sync.Mutex
		finished bool
		buf      strings.Builder
	)
	progress := func(p chat.Progress) {
		mu.Lock()
		defer mu.Unlock()
		if finished || ctx.Err() != nil {
			return
		}
		if p.Kind.HasText() {
			buf.WriteString(p.Content)
		}
		sink.UpdateProgress(p)
	}

	done := make(chan invocation, 1)
	go func() {
		res, err := c.agents.InvokeAgent(ctx, c.agentID, req, progress, nil)
		done <- invocation{result: res, err: err}
	}()

	var inv invocation
	select {
	case inv = <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	finished = true
	text := buf.String()
	mu.Unlock()

	c.flags.RequestActive.Set(false)
	sink.ClearProgress()

	// Errors caused by cancellation land here too.
	if ctx.Err() != nil {
		out.Kind = OutcomeCancelled
		c.logger.Debug("request cancelled", "request_id", req.RequestID)
		return out
	}
	if inv.err != nil {
		out.Kind = OutcomeFailed
		out.Err = inv.err
		c.logger.Warn("agent request failed", "agent", c.agentID, "request_id", req.RequestID, "error", inv.err)
		return out
	}
	out.Result = inv.result

	if command, ok := ExtractCommand(text); ok {
		out.Kind = OutcomeCommand
		out.Text = command
		sink.RenderCommand(command, count)
		c.flags.ResponseType.Set(ResponseTypeCommand)
	} else {
		out.Kind = OutcomeMessage
		out.Text = text
		sink.RenderMessage(text, count, req.RequestID)
		c.flags.ResponseType.Set(ResponseTypeMessagesOnly)
	}
	c.logger.Debug("request completed", "request_id", req.RequestID, "outcome", out.Kind.String())
	return out
}
