// Package inlinechat connects a terminal's inline chat widget to a chat agent.
// It forwards typed input to the agent, streams progress back into the widget
// and turns the final answer into either a runnable command or a message.
package inlinechat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/contextkey"
	"github.com/sweetpotato0/termchat/history"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

// ErrNoHost is returned by Ready when no terminal host is given.
var ErrNoHost = errors.New("inlinechat: terminal host is required")

// ConfigLookup reads configuration values by dotted key.
type ConfigLookup interface {
	GetValue(key string) any
}

// Controller owns one terminal's inline chat. It is inert until Enable is
// called and the feature gate is on.
type Controller struct {
	agents   AgentService
	settings ConfigLookup
	factory  WidgetFactory

	agentID  string
	contexts *contextkey.Service
	focus    *FocusTracker
	store    history.Store
	logger   *slog.Logger

	readyMu sync.Mutex

	mu       sync.Mutex
	enabled  bool
	disposed bool
	widget   Widget
	width    int
	flags    *Flags
	coord    *Coordinator
	unsubs   []func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithAgentID overrides the agent the controller talks to.
func WithAgentID(id string) Option {
	return func(c *Controller) {
		if id != "" {
			c.agentID = id
		}
	}
}

// WithContextKeys publishes the controller's flags into svc.
func WithContextKeys(svc *contextkey.Service) Option {
	return func(c *Controller) {
		c.contexts = svc
	}
}

// WithFocusTracker reports widget focus changes to t.
func WithFocusTracker(t *FocusTracker) Option {
	return func(c *Controller) {
		c.focus = t
	}
}

// WithHistory records every rendered response in store.
func WithHistory(store history.Store) Option {
	return func(c *Controller) {
		c.store = store
	}
}

// WithLogger overrides the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewController creates an inert controller. Nothing is subscribed and no
// widget is built until Enable and Ready are called.
func NewController(agents AgentService, settings ConfigLookup, factory WidgetFactory, opts ...Option) *Controller {
	c := &Controller{
		agents:   agents,
		settings: settings,
		factory:  factory,
		agentID:  config.DefaultAgentID,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.WithComponent("inlinechat")
	}
	if c.contexts == nil {
		c.contexts = contextkey.NewService()
	}
	return c
}

// Enable reads the feature gate and, when it is on, binds the context flags
// and starts tracking agent registration. It reports whether the controller
// is enabled. Calling it again is a no-op.
func (c *Controller) Enable() bool {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return false
	}
	if c.enabled {
		c.mu.Unlock()
		return true
	}
	if c.settings == nil || c.agents == nil {
		c.mu.Unlock()
		return false
	}
	if on, _ := c.settings.GetValue(config.SettingInlineChatEnabled).(bool); !on {
		c.mu.Unlock()
		c.logger.Debug("inline chat disabled by configuration")
		return false
	}

	c.flags = BindFlags(c.contexts)
	c.coord = NewCoordinator(c.agents, c.agentID, c.flags, c.logger)
	c.unsubs = append(c.unsubs, c.agents.OnAgentsChanged(c.syncAgentRegistered))
	c.enabled = true
	c.mu.Unlock()

	c.syncAgentRegistered()
	return true
}

func (c *Controller) syncAgentRegistered() {
	c.mu.Lock()
	flags := c.flags
	c.mu.Unlock()
	if flags != nil {
		flags.AgentRegistered.Set(c.agents.HasAgent(c.agentID))
	}
}

// Enabled reports whether Enable succeeded and the controller is not disposed.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && !c.disposed
}

// Flags returns the bound context flags, or nil while disabled.
func (c *Controller) Flags() *Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// Ready is called once the terminal surface exists. It builds the widget on
// first use; later calls are no-ops. The widget is built and subscribed
// without holding the controller lock, so widget callbacks may call back into
// the controller.
func (c *Controller) Ready(host Host) error {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()

	c.mu.Lock()
	if !c.enabled || c.disposed {
		c.mu.Unlock()
		return nil
	}
	if host == nil {
		c.mu.Unlock()
		return ErrNoHost
	}
	if c.widget != nil {
		c.mu.Unlock()
		return nil
	}
	width := c.width
	c.mu.Unlock()

	if c.factory == nil {
		return fmt.Errorf("inlinechat: no widget factory configured")
	}
	w, err := c.factory(host)
	if err != nil {
		return fmt.Errorf("inlinechat: create widget: %w", err)
	}

	var unsubs []func()
	if c.focus != nil {
		unsubs = append(unsubs,
			w.OnFocus(func() { c.focus.Focus(c) }),
			w.OnBlur(func() { c.focus.Blur(c) }),
		)
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		for _, unsub := range unsubs {
			unsub()
		}
		w.Dispose()
		return nil
	}
	c.widget = w
	c.unsubs = append(c.unsubs, unsubs...)
	if c.width > 0 {
		width = c.width
	}
	if width <= 0 {
		width = host.Width()
	}
	if width > 0 {
		c.width = width
	}
	c.mu.Unlock()

	if width > 0 {
		w.Layout(width)
	}
	return nil
}

// Widget returns the widget built by Ready, or nil.
func (c *Controller) Widget() Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.widget
}

// Layout records the terminal width and relays it to the widget.
func (c *Controller) Layout(width int) {
	c.mu.Lock()
	if !c.enabled || c.disposed {
		c.mu.Unlock()
		return
	}
	c.width = width
	w := c.widget
	c.mu.Unlock()

	if w != nil {
		w.Layout(width)
	}
}

// Reveal shows the widget.
func (c *Controller) Reveal() {
	if w := c.activeWidget(); w != nil {
		w.Reveal()
	}
}

// Focus moves keyboard focus to the widget.
func (c *Controller) Focus() {
	if w := c.activeWidget(); w != nil {
		w.Focus()
	}
}

// AcceptCommand hands the last rendered command to the terminal.
func (c *Controller) AcceptCommand(execute bool) {
	if w := c.activeWidget(); w != nil {
		w.AcceptCommand(execute)
	}
}

func (c *Controller) activeWidget() Widget {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled || c.disposed {
		return nil
	}
	return c.widget
}

// AcceptInput submits the widget's current input and blocks until the
// response is rendered, cancelled or failed. It returns an OutcomeNone
// outcome while disabled.
func (c *Controller) AcceptInput(ctx context.Context) Outcome {
	c.mu.Lock()
	if !c.enabled || c.disposed {
		c.mu.Unlock()
		return Outcome{}
	}
	coord := c.coord
	var sink Sink
	if c.widget != nil {
		sink = c.widget
	}
	c.mu.Unlock()

	out := coord.Submit(ctx, sink)
	if out.Rendered() {
		c.record(ctx, out)
	}
	return out
}

func (c *Controller) record(ctx context.Context, out Outcome) {
	if c.store == nil {
		return
	}
	kind := history.KindMessage
	if out.Kind == OutcomeCommand {
		kind = history.KindCommand
	}
	entry := &history.Entry{
		SessionID: out.SessionID,
		RequestID: out.RequestID,
		AgentID:   c.agentID,
		Input:     out.Input,
		Response:  out.Text,
		Kind:      kind,
	}
	if err := c.store.Append(context.WithoutCancel(ctx), entry); err != nil {
		c.logger.Warn("failed to record history", "request_id", out.RequestID, "error", err)
	}
}

// RecentInputs returns up to n distinct past inputs, newest first.
func (c *Controller) RecentInputs(ctx context.Context, n int) ([]string, error) {
	if c.store == nil {
		return nil, nil
	}
	entries, err := c.store.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("inlinechat: recent inputs: %w", err)
	}
	return history.Inputs(entries), nil
}

// Cancel cancels the in-flight request. The next AcceptInput starts fresh.
func (c *Controller) Cancel() {
	c.mu.Lock()
	coord := c.coord
	enabled := c.enabled && !c.disposed
	c.mu.Unlock()
	if enabled && coord != nil {
		coord.Cancel()
	}
}

// RequestCount returns how many requests this controller has submitted.
func (c *Controller) RequestCount() int {
	c.mu.Lock()
	coord := c.coord
	c.mu.Unlock()
	if coord == nil {
		return 0
	}
	return coord.RequestCount()
}

// Dispose cancels any in-flight request, drops subscriptions and disposes
// the widget. The controller cannot be used afterwards.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	coord := c.coord
	unsubs := c.unsubs
	c.unsubs = nil
	w := c.widget
	c.widget = nil
	c.mu.Unlock()

	if coord != nil {
		coord.Cancel()
	}
	for _, unsub := range unsubs {
		unsub()
	}
	if c.focus != nil {
		c.focus.Blur(c)
	}
	if w != nil {
		w.Dispose()
	}
}
