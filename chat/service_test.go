package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/middleware"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

func newTestService(opts ...Option) *Service {
	return NewService(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func streamingAgent(chunks ...Progress) Agent {
	return AgentFunc(func(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error) {
		for _, c := range chunks {
			progress(c)
		}
		return &Result{Metadata: map[string]any{"echo": req.Message}}, nil
	})
}

func TestRegisterAndLookup(t *testing.T) {
	svc := newTestService()

	unregister, err := svc.Register(AgentDescriptor{ID: "terminal"}, streamingAgent())
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if !svc.HasAgent("terminal") {
		t.Fatal("expected agent to be registered")
	}
	desc, ok := svc.GetAgent("terminal")
	if !ok || desc.Name != "terminal" {
		t.Errorf("expected descriptor with defaulted name, got %+v", desc)
	}

	if _, err := svc.Register(AgentDescriptor{ID: "terminal"}, streamingAgent()); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	unregister()
	unregister()
	if svc.HasAgent("terminal") {
		t.Error("expected agent to be unregistered")
	}
	if _, ok := svc.GetAgent("terminal"); ok {
		t.Error("GetAgent should report missing agent")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Register(AgentDescriptor{ID: " "}, streamingAgent()); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for blank id, got %v", err)
	}
	if _, err := svc.Register(AgentDescriptor{ID: "x"}, nil); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil agent, got %v", err)
	}
}

func TestOnAgentsChanged(t *testing.T) {
	svc := newTestService()
	calls := 0
	unsubscribe := svc.OnAgentsChanged(func() { calls++ })

	unregister, _ := svc.Register(AgentDescriptor{ID: "a"}, streamingAgent())
	unregister()
	if calls != 2 {
		t.Errorf("expected 2 notifications, got %d", calls)
	}

	unsubscribe()
	_, _ = svc.Register(AgentDescriptor{ID: "b"}, streamingAgent())
	if calls != 2 {
		t.Errorf("expected no notification after unsubscribe, got %d", calls)
	}
}

func TestAgentsSorted(t *testing.T) {
	svc := newTestService()
	_, _ = svc.Register(AgentDescriptor{ID: "zeta"}, streamingAgent())
	_, _ = svc.Register(AgentDescriptor{ID: "alpha"}, streamingAgent())

	agents := svc.Agents()
	if len(agents) != 2 || agents[0].ID != "alpha" || agents[1].ID != "zeta" {
		t.Errorf("unexpected agent order: %+v", agents)
	}
}

func TestInvokeAgentRelaysProgressInOrder(t *testing.T) {
	svc := newTestService()
	_, _ = svc.Register(AgentDescriptor{ID: "terminal"}, streamingAgent(
		Progress{Kind: KindProgressMessage, Content: "thinking"},
		Progress{Kind: KindMarkdownContent, Content: "a"},
		Progress{Kind: KindContent, Content: "b"},
	))

	var got []Progress
	res, err := svc.InvokeAgent(context.Background(), "terminal", &Request{Message: "hi"}, func(p Progress) {
		got = append(got, p)
	}, nil)
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if len(got) != 3 || got[0].Kind != KindProgressMessage || got[2].Content != "b" {
		t.Errorf("unexpected progress sequence: %+v", got)
	}
	if res.Metadata["echo"] != "hi" {
		t.Errorf("expected agent metadata to survive, got %+v", res.Metadata)
	}
	if res.Timings.TotalElapsed < 0 || res.Timings.FirstProgress > res.Timings.TotalElapsed {
		t.Errorf("unexpected timings: %+v", res.Timings)
	}
}

func TestInvokeAgentErrors(t *testing.T) {
	svc := newTestService()

	if _, err := svc.InvokeAgent(context.Background(), "missing", &Request{}, nil, nil); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.InvokeAgent(context.Background(), "missing", nil, nil, nil); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	boom := errors.New("boom")
	_, _ = svc.Register(AgentDescriptor{ID: "broken"}, AgentFunc(func(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error) {
		return nil, boom
	}))
	if _, err := svc.InvokeAgent(context.Background(), "broken", &Request{}, nil, nil); !errors.Is(err, boom) {
		t.Errorf("expected wrapped agent error, got %v", err)
	}
}

type recordingMiddleware struct {
	seen *middleware.Context
}

func (m *recordingMiddleware) Name() string { return "recording" }

func (m *recordingMiddleware) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	m.seen = ctx
	return err
}

func TestInvokeAgentRunsMiddleware(t *testing.T) {
	rec := &recordingMiddleware{}
	svc := newTestService(WithMiddleware(rec))
	_, _ = svc.Register(AgentDescriptor{ID: "terminal"}, streamingAgent(
		Progress{Kind: KindMarkdownContent, Content: "```ls```"},
		Progress{Kind: KindReference, Content: "ignored"},
	))

	req := &Request{SessionID: "s1", RequestID: "r1", Message: "list"}
	if _, err := svc.InvokeAgent(context.Background(), "terminal", req, nil, nil); err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if rec.seen == nil {
		t.Fatal("middleware did not run")
	}
	if rec.seen.Input != "list" || rec.seen.SessionID != "s1" || rec.seen.RequestID != "r1" {
		t.Errorf("middleware context not populated: %+v", rec.seen)
	}
	if rec.seen.Response != "```ls```" {
		t.Errorf("expected text-only response, got %q", rec.seen.Response)
	}
}

func TestInvokeAgentTimeout(t *testing.T) {
	svc := newTestService(WithTimeout(10 * time.Millisecond))
	_, _ = svc.Register(AgentDescriptor{ID: "slow"}, AgentFunc(func(ctx context.Context, req *Request, progress ProgressFunc, history []Turn) (*Result, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))

	_, err := svc.InvokeAgent(context.Background(), "slow", &Request{}, nil, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}
