package inlinechat

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/contextkey"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

// recordingWidget records every call made on it.
type recordingWidget struct {
	mu       sync.Mutex
	value    string
	events   []string
	focusFns []func()
	blurFns  []func()
}

func (w *recordingWidget) record(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, fmt.Sprintf(format, args...))
}

func (w *recordingWidget) setValue(v string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = v
}

func (w *recordingWidget) Events() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.events...)
}

func (w *recordingWidget) count(prefix string) int {
	n := 0
	for _, e := range w.Events() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (w *recordingWidget) Value() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

func (w *recordingWidget) ClearValue() {
	w.mu.Lock()
	w.value = ""
	w.mu.Unlock()
	w.record("clearValue")
}

func (w *recordingWidget) UpdateProgress(p chat.Progress) {
	w.record("progress:%s:%s", p.Kind, p.Content)
}

func (w *recordingWidget) ClearProgress() { w.record("clearProgress") }

func (w *recordingWidget) RenderCommand(command string, requestCount int) {
	w.record("command:%s:%d", command, requestCount)
}

func (w *recordingWidget) RenderMessage(text string, requestCount int, requestID string) {
	w.record("message:%s:%d:%s", text, requestCount, requestID)
}

func (w *recordingWidget) Layout(width int)           { w.record("layout:%d", width) }
func (w *recordingWidget) Reveal()                    { w.record("reveal") }
func (w *recordingWidget) Focus()                     { w.record("focus") }
func (w *recordingWidget) AcceptCommand(execute bool) { w.record("accept:%t", execute) }
func (w *recordingWidget) Dispose()                   { w.record("dispose") }

func (w *recordingWidget) OnFocus(fn func()) func() {
	w.mu.Lock()
	w.focusFns = append(w.focusFns, fn)
	w.mu.Unlock()
	return func() {}
}

func (w *recordingWidget) OnBlur(fn func()) func() {
	w.mu.Lock()
	w.blurFns = append(w.blurFns, fn)
	w.mu.Unlock()
	return func() {}
}

func (w *recordingWidget) fireFocus() {
	w.mu.Lock()
	fns := append([]func(){}, w.focusFns...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (w *recordingWidget) fireBlur() {
	w.mu.Lock()
	fns := append([]func(){}, w.blurFns...)
	w.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type fakeHost struct{ width int }

func (h fakeHost) Width() int { return h.width }

// harness wires a controller to a real agent registry with a recording widget.
type harness struct {
	service  *chat.Service
	contexts *contextkey.Service
	settings *config.Settings
	widget   *recordingWidget
	builds   int
	ctrl     *Controller
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		service:  chat.NewService(chat.WithLogger(logging.Discard())),
		contexts: contextkey.NewService(),
		settings: config.NewSettings(map[string]any{config.SettingInlineChatEnabled: true}),
		widget:   &recordingWidget{},
	}
	factory := func(host Host) (Widget, error) {
		h.builds++
		return h.widget, nil
	}
	base := []Option{WithContextKeys(h.contexts), WithLogger(logging.Discard())}
	h.ctrl = NewController(h.service, h.settings, factory, append(base, opts...)...)
	return h
}

// ready enables the controller and builds its widget.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	if !h.ctrl.Enable() {
		t.Fatal("expected controller to enable")
	}
	if err := h.ctrl.Ready(fakeHost{width: 80}); err != nil {
		t.Fatalf("ready: %v", err)
	}
}

func (h *harness) register(t *testing.T, agent chat.Agent) func() {
	t.Helper()
	unregister, err := h.service.Register(chat.AgentDescriptor{ID: config.DefaultAgentID}, agent)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return unregister
}

func replyAgent(chunks ...chat.Progress) chat.Agent {
	return chat.AgentFunc(func(ctx context.Context, req *chat.Request, progress chat.ProgressFunc, history []chat.Turn) (*chat.Result, error) {
		for _, c := range chunks {
			progress(c)
		}
		return &chat.Result{}, nil
	})
}

func markdown(s string) chat.Progress {
	return chat.Progress{Kind: chat.KindMarkdownContent, Content: s}
}
