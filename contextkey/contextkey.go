// Package contextkey holds named flags that describe UI state (is a request
// running, is an agent available) so that keybindings and menus can query them
// without depending on the component that sets them.
package contextkey

import (
	"sort"
	"sync"
)

// Service stores flag values by name. It is safe for concurrent use.
type Service struct {
	mu        sync.RWMutex
	values    map[string]any
	listeners map[uint64]func(key string)
	nextID    uint64
}

// NewService creates an empty flag store.
func NewService() *Service {
	return &Service{
		values:    make(map[string]any),
		listeners: make(map[uint64]func(string)),
	}
}

// Value returns the raw value stored under key.
func (s *Service) Value(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Keys returns the names of all set flags, sorted.
func (s *Service) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// OnDidChange subscribes fn to value changes. The returned function unsubscribes.
func (s *Service) OnDidChange(fn func(key string)) func() {
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

func (s *Service) set(key string, value any) {
	s.mu.Lock()
	old, had := s.values[key]
	if had && old == value {
		s.mu.Unlock()
		return
	}
	s.values[key] = value
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (s *Service) remove(key string) {
	s.mu.Lock()
	if _, had := s.values[key]; !had {
		s.mu.Unlock()
		return
	}
	delete(s.values, key)
	fns := s.snapshotListenersLocked()
	s.mu.Unlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (s *Service) snapshotListenersLocked() []func(string) {
	fns := make([]func(string), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// Key is a typed flag definition with a default value.
type Key[T comparable] struct {
	Name    string
	Default T
}

// NewKey defines a flag.
func NewKey[T comparable](name string, def T) Key[T] {
	return Key[T]{Name: name, Default: def}
}

// BindTo attaches the key to a service and initialises it with the default.
func (k Key[T]) BindTo(s *Service) *Bound[T] {
	b := &Bound[T]{key: k, svc: s}
	b.Reset()
	return b
}

// Get reads the key from s, falling back to the default.
func (k Key[T]) Get(s *Service) T {
	if s == nil {
		return k.Default
	}
	v, ok := s.Value(k.Name)
	if !ok {
		return k.Default
	}
	typed, ok := v.(T)
	if !ok {
		return k.Default
	}
	return typed
}

// Bound is a key attached to a service.
type Bound[T comparable] struct {
	key Key[T]
	svc *Service
}

// Set stores v.
func (b *Bound[T]) Set(v T) {
	b.svc.set(b.key.Name, v)
}

// Get returns the current value.
func (b *Bound[T]) Get() T {
	return b.key.Get(b.svc)
}

// Reset restores the default value.
func (b *Bound[T]) Reset() {
	b.svc.set(b.key.Name, b.key.Default)
}

// Delete removes the key from the service entirely.
func (b *Bound[T]) Delete() {
	b.svc.remove(b.key.Name)
}
