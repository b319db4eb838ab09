package inlinechat

import "github.com/sweetpotato0/termchat/chat"

// Sink receives the visible effects of a request.
type Sink interface {
	// Value returns the text currently typed into the input box.
	Value() string
	ClearValue()
	UpdateProgress(p chat.Progress)
	ClearProgress()
	RenderCommand(command string, requestCount int)
	RenderMessage(text string, requestCount int, requestID string)
}

// Widget is the inline chat box attached to a terminal.
type Widget interface {
	Sink
	Layout(width int)
	Reveal()
	Focus()
	// AcceptCommand inserts the last rendered command into the terminal and
	// runs it when execute is true.
	AcceptCommand(execute bool)
	OnFocus(fn func()) (unsubscribe func())
	OnBlur(fn func()) (unsubscribe func())
	Dispose()
}

// Host is the terminal surface a widget is attached to.
type Host interface {
	Width() int
}

// WidgetFactory builds the widget for a host. It is called at most once per
// controller.
type WidgetFactory func(host Host) (Widget, error)

type nopSink struct{}

func (nopSink) Value() string { return "" }
func (nopSink) ClearValue() {}
func (nopSink) UpdateProgress(chat.Progress) {}
func (nopSink) ClearProgress() {}
func (nopSink) RenderCommand(string, int) {}
func (nopSink) RenderMessage(string, int, string) {}
