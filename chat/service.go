package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/middleware"
	"github.com/sweetpotato0/termchat/pkg/logging"
	"github.com/sweetpotato0/termchat/pkg/telemetry"
)

type registration struct {
	desc  AgentDescriptor
	agent Agent
}

// Service is the agent registry. It is safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	agents    map[string]*registration
	listeners map[uint64]func()
	nextID    uint64

	chain   *middleware.Chain
	timeout time.Duration
	tracer  trace.Tracer
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMiddleware appends middlewares wrapped around every invocation.
func WithMiddleware(m ...middleware.Middleware) Option {
	return func(s *Service) {
		for _, mw := range m {
			s.chain.Add(mw)
		}
	}
}

// WithTimeout bounds every invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.timeout = d
	}
}

// WithTracer overrides the tracer used for invocation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithLogger overrides the logger used by the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates an empty agent registry.
func NewService(opts ...Option) *Service {
	s := &Service{
		agents:    make(map[string]*registration),
		listeners: make(map[uint64]func()),
		chain:     middleware.NewChain(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer()
	}
	if s.logger == nil {
		s.logger = logging.WithComponent("chat_service")
	}
	return s
}

// Register adds an agent under desc.ID. The returned function unregisters it.
func (s *Service) Register(desc AgentDescriptor, agent Agent) (func(), error) {
	if strings.TrimSpace(desc.ID) == "" {
		return nil, fmt.Errorf("chat: agent id cannot be empty: %w", errs.ErrInvalidInput)
	}
	if agent == nil {
		return nil, fmt.Errorf("chat: agent %q is nil: %w", desc.ID, errs.ErrInvalidInput)
	}
	if desc.Name == "" {
		desc.Name = desc.ID
	}

	s.mu.Lock()
	if _, exists := s.agents[desc.ID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("chat: agent %q: %w", desc.ID, errs.ErrAlreadyExists)
	}
	reg := &registration{desc: desc, agent: agent}
	s.agents[desc.ID] = reg
	s.mu.Unlock()

	s.logger.Debug("agent registered", "agent", desc.ID)
	s.notify()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			current, ok := s.agents[desc.ID]
			if ok && current == reg {
				delete(s.agents, desc.ID)
			}
			s.mu.Unlock()
			if ok && current == reg {
				s.logger.Debug("agent unregistered", "agent", desc.ID)
				s.notify()
			}
		})
	}, nil
}

// HasAgent reports whether an agent with id is registered.
func (s *Service) HasAgent(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.agents[id]
	return ok
}

// GetAgent returns the descriptor of the agent registered under id.
func (s *Service) GetAgent(id string) (AgentDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.agents[id]
	if !ok {
		return AgentDescriptor{}, false
	}
	return reg.desc, true
}

// Agents lists registered agents ordered by id.
func (s *Service) Agents() []AgentDescriptor {
	s.mu.RLock()
	out := make([]AgentDescriptor, 0, len(s.agents))
	for _, reg := range s.agents {
		out = append(out, reg.desc)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OnAgentsChanged subscribes fn to registrations and removals. fn runs on the
// goroutine that changed the registry. The returned function unsubscribes.
func (s *Service) OnAgentsChanged(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) notify() {
	s.mu.RLock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()
	for _, fn := range fns {
		fn()
	}
}

// InvokeAgent sends req to the agent registered under agentID, relaying every
// progress chunk to progress in arrival order. It returns once the agent has
// finished.
func (s *Service) InvokeAgent(ctx context.Context, agentID string, req *Request, progress ProgressFunc, history []Turn) (result *Result, err error) {
	if req == nil {
		return nil, fmt.Errorf("chat: request is required: %w", errs.ErrInvalidInput)
	}

	s.mu.RLock()
	reg, ok := s.agents[agentID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("chat: agent %q: %w", agentID, errs.ErrNotFound)
	}

	ctx, span := s.tracer.Start(ctx, "chat.InvokeAgent", trace.WithAttributes(
		attribute.String("chat.agent_id", agentID),
		attribute.String("chat.session_id", req.SessionID),
		attribute.String("chat.request_id", req.RequestID),
	))
	defer func() { telemetry.End(span, err) }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	var (
		firstProgress time.Duration
		chunks        int
		response      strings.Builder
	)
	relay := func(p Progress) {
		if chunks == 0 {
			firstProgress = time.Since(start)
		}
		chunks++
		if p.Kind.HasText() {
			response.WriteString(p.Content)
		}
		if progress != nil {
			progress(p)
		}
	}

	mwCtx := middleware.NewContext(ctx)
	mwCtx.AgentID = agentID
	mwCtx.SessionID = req.SessionID
	mwCtx.RequestID = req.RequestID
	mwCtx.Input = req.Message

	err = s.chain.Execute(mwCtx, func(mwCtx *middleware.Context) error {
		res, err := reg.agent.Invoke(mwCtx.Context(), req, relay, history)
		if err != nil {
			return err
		}
		mwCtx.Response = response.String()
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("chat: invoke agent %q: %w", agentID, err)
	}

	if result == nil {
		result = &Result{}
	}
	result.Timings = Timings{
		FirstProgress: firstProgress,
		TotalElapsed:  time.Since(start),
	}
	span.SetAttributes(attribute.Int("chat.progress_chunks", chunks))
	return result, nil
}
