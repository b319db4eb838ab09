package inlinechat

import "sync"

// FocusTracker records which controller's widget has focus within a session.
// Key handlers ask it where to route cancel and accept actions.
type FocusTracker struct {
	mu        sync.RWMutex
	active    *Controller
	listeners map[uint64]func(*Controller)
	nextID    uint64
}

// NewFocusTracker creates a tracker with no focused controller.
func NewFocusTracker() *FocusTracker {
	return &FocusTracker{listeners: make(map[uint64]func(*Controller))}
}

// Active returns the focused controller or nil.
func (t *FocusTracker) Active() *Controller {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Focus marks c as focused.
func (t *FocusTracker) Focus(c *Controller) {
	t.set(func(current *Controller) (*Controller, bool) {
		return c, current != c
	})
}

// Blur clears the focus if c holds it.
func (t *FocusTracker) Blur(c *Controller) {
	t.set(func(current *Controller) (*Controller, bool) {
		if current != c || c == nil {
			return current, false
		}
		return nil, true
	})
}

// OnDidChange subscribes fn to focus changes. The returned function unsubscribes.
func (t *FocusTracker) OnDidChange(fn func(active *Controller)) func() {
	if fn == nil {
		return func() {}
	}
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

func (t *FocusTracker) set(update func(current *Controller) (*Controller, bool)) {
	t.mu.Lock()
	next, changed := update(t.active)
	if !changed {
		t.mu.Unlock()
		return
	}
	t.active = next
	fns := make([]func(*Controller), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
}
