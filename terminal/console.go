// Package terminal draws the inline chat widget on a plain terminal stream:
// markdown answers go through glamour, commands and status lines through
// lipgloss styles. There is no full-screen TUI; output is printed and scrolls.
package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/inlinechat"
)

const (
	defaultWidth = 80
	minWrapWidth = 20
	clearLine    = "\r\x1b[2K"
)

// Option configures a Console.
type Option func(*Console)

// WithExecutor sets the executor used by AcceptCommand(true).
func WithExecutor(exec Executor) Option {
	return func(c *Console) {
		c.exec = exec
	}
}

// WithMarkdownStyle selects a glamour standard style ("dark", "light",
// "notty", ...). The default picks one from the terminal background.
func WithMarkdownStyle(style string) Option {
	return func(c *Console) {
		c.markdownStyle = style
	}
}

// WithLiveProgress toggles the overwritten status line shown while a request
// streams. It defaults to on when the output is a terminal.
func WithLiveProgress(enabled bool) Option {
	return func(c *Console) {
		c.live = enabled
	}
}

type styles struct {
	command lipgloss.Style
	prompt  lipgloss.Style
	dim     lipgloss.Style
	err     lipgloss.Style
	title   lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		command: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E0E0E0"}).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#5599FF"}).
			Padding(0, 1),
		prompt: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#55FF55"}).
			Bold(true),
		dim: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}),
		err: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#D00000", Dark: "#FF5555"}).
			Bold(true),
		title: lipgloss.NewStyle().Bold(true),
	}
}

// Console is an inline chat widget bound to an output stream. It is safe for
// concurrent use: progress arrives on the agent goroutine while the CLI reads
// input on another.
type Console struct {
	out           io.Writer
	exec          Executor
	markdownStyle string
	live          bool
	styles        styles

	mu          sync.Mutex
	width       int
	renderer    *glamour.TermRenderer
	value       string
	status      string
	received    int
	references  []string
	lastCommand string
	revealed    bool
	focused     bool
	disposed    bool

	nextID  int
	onFocus map[int]func()
	onBlur  map[int]func()
}

var _ inlinechat.Widget = (*Console)(nil)

// New creates a console writing to out.
func New(out io.Writer, opts ...Option) *Console {
	c := &Console{
		out:     out,
		exec:    NewShellExecutor(""),
		styles:  defaultStyles(),
		width:   defaultWidth,
		onFocus: make(map[int]func()),
		onBlur:  make(map[int]func()),
	}
	if f, ok := out.(*os.File); ok {
		c.live = term.IsTerminal(int(f.Fd()))
	}
	for _, opt := range opts {
		opt(c)
	}
	c.renderer = c.newRenderer(c.width)
	return c
}

// Factory returns a widget factory building consoles on out.
func Factory(out io.Writer, opts ...Option) inlinechat.WidgetFactory {
	return func(host inlinechat.Host) (inlinechat.Widget, error) {
		c := New(out, opts...)
		c.Layout(host.Width())
		return c, nil
	}
}

func (c *Console) newRenderer(width int) *glamour.TermRenderer {
	wrap := width - 4
	if wrap < minWrapWidth {
		wrap = minWrapWidth
	}
	styleOpt := glamour.WithAutoStyle()
	if c.markdownStyle != "" {
		styleOpt = glamour.WithStandardStyle(c.markdownStyle)
	}
	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(wrap))
	if err != nil {
		return nil
	}
	return renderer
}

// SetValue replaces the text in the input box.
func (c *Console) SetValue(value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = value
}

// Value returns the text currently in the input box.
func (c *Console) Value() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// ClearValue empties the input box. It is called as a request starts, so
// references left by an earlier cancelled or failed request are dropped too.
func (c *Console) ClearValue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = ""
	c.references = nil
}

// UpdateProgress shows a streamed chunk. Status messages replace the status
// line; text chunks only advance the received counter since the full answer
// is rendered once it is complete.
func (c *Console) UpdateProgress(p chat.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return
	}

	switch {
	case p.Kind == chat.KindProgressMessage:
		c.status = p.Content
	case p.Kind.HasText():
		c.received += len(p.Content)
		c.status = fmt.Sprintf("Receiving answer (%d chars)", c.received)
	case p.Kind == chat.KindReference, p.Kind == chat.KindUsedContext:
		if content := strings.TrimSpace(p.Content); content != "" {
			c.references = append(c.references, content)
		}
		return
	default:
		return
	}

	if c.live && c.status != "" {
		fmt.Fprint(c.out, clearLine+c.styles.dim.Render("… "+c.status))
	}
}

// ClearProgress removes the status line.
func (c *Console) ClearProgress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.live && c.status != "" && !c.disposed {
		fmt.Fprint(c.out, clearLine)
	}
	c.status = ""
	c.received = 0
}

// RenderCommand shows a suggested shell command.
func (c *Console) RenderCommand(command string, requestCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		c.references = nil
		return
	}
	c.lastCommand = command

	fmt.Fprintln(c.out, c.styles.command.Render(c.styles.prompt.Render("$")+" "+command))
	fmt.Fprintln(c.out, c.styles.dim.Render(fmt.Sprintf("request #%d · /run to execute, /insert to edit", requestCount)))
	c.flushReferences()
}

// RenderMessage shows a markdown answer.
func (c *Console) RenderMessage(text string, requestCount int, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		c.references = nil
		return
	}

	rendered := text
	if c.renderer != nil {
		if out, err := c.renderer.Render(text); err == nil {
			rendered = out
		}
	}
	fmt.Fprint(c.out, rendered)
	if !strings.HasSuffix(rendered, "\n") {
		fmt.Fprintln(c.out)
	}

	footer := fmt.Sprintf("request #%d", requestCount)
	if requestID != "" {
		footer += " · " + shortID(requestID)
	}
	fmt.Fprintln(c.out, c.styles.dim.Render(footer))
	c.flushReferences()
}

func (c *Console) flushReferences() {
	for _, ref := range c.references {
		fmt.Fprintln(c.out, c.styles.dim.Render("  ↳ "+ref))
	}
	c.references = nil
}

// LastCommand returns the most recently rendered command.
func (c *Console) LastCommand() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCommand
}

// Layout rewraps markdown output to width columns.
func (c *Console) Layout(width int) {
	if width <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if width == c.width && c.renderer != nil {
		return
	}
	c.width = width
	c.renderer = c.newRenderer(width)
}

// Width returns the width the console currently wraps to.
func (c *Console) Width() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width
}

// Reveal prints the chat header the first time the console is shown.
func (c *Console) Reveal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.revealed || c.disposed {
		return
	}
	c.revealed = true
	fmt.Fprintln(c.out, c.styles.title.Render("termchat")+c.styles.dim.Render(" · describe what you want to do, Ctrl-C cancels"))
}

// Focus moves input focus to the console.
func (c *Console) Focus() {
	c.setFocused(true)
}

// Blur takes input focus away from the console.
func (c *Console) Blur() {
	c.setFocused(false)
}

func (c *Console) setFocused(focused bool) {
	c.mu.Lock()
	if c.disposed || c.focused == focused {
		c.mu.Unlock()
		return
	}
	c.focused = focused
	subs := c.onBlur
	if focused {
		subs = c.onFocus
	}
	fns := make([]func(), 0, len(subs))
	for _, fn := range subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Focused reports whether the console holds input focus.
func (c *Console) Focused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focused
}

// AcceptCommand runs the last command when execute is set, otherwise puts it
// into the input box for editing.
func (c *Console) AcceptCommand(execute bool) {
	c.mu.Lock()
	command := c.lastCommand
	if c.disposed || command == "" {
		c.mu.Unlock()
		return
	}
	if !execute {
		c.value = command
		c.mu.Unlock()
		return
	}
	exec := c.exec
	c.mu.Unlock()

	if exec == nil {
		return
	}
	if err := exec.Execute(context.Background(), command); err != nil {
		c.mu.Lock()
		fmt.Fprintln(c.out, c.styles.err.Render("error: "+err.Error()))
		c.mu.Unlock()
	}
}

// OnFocus subscribes fn to focus gains.
func (c *Console) OnFocus(fn func()) func() {
	return c.subscribe(c.onFocus, fn)
}

// OnBlur subscribes fn to focus losses.
func (c *Console) OnBlur(fn func()) func() {
	return c.subscribe(c.onBlur, fn)
}

func (c *Console) subscribe(subs map[int]func(), fn func()) func() {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return func() {}
	}
	id := c.nextID
	c.nextID++
	subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(subs, id)
	}
}

// Dispose detaches the console. Later calls draw nothing.
func (c *Console) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disposed = true
	clear(c.onFocus)
	clear(c.onBlur)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
