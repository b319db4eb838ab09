package store

import (
	"context"
	"fmt"
	"sync"

	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/history"
)

// InMemoryStore keeps entries in a bounded slice.
type InMemoryStore struct {
	entries []*history.Entry
	limit   int
	mu      sync.RWMutex
}

// NewInMemoryStore creates a store that retains at most limit entries.
// A limit of zero or less keeps everything.
func NewInMemoryStore(limit int) *InMemoryStore {
	return &InMemoryStore{
		entries: make([]*history.Entry, 0),
		limit:   limit,
	}
}

// Append adds an entry, evicting the oldest one once the limit is reached.
func (s *InMemoryStore) Append(ctx context.Context, entry *history.Entry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil: %w", errs.ErrInvalidInput)
	}
	history.Prepare(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *entry
	s.entries = append(s.entries, &copied)
	if s.limit > 0 && len(s.entries) > s.limit {
		s.entries = append([]*history.Entry(nil), s.entries[len(s.entries)-s.limit:]...)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]*history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.entries)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*history.Entry, 0, n)
	for i := len(s.entries) - 1; i >= 0 && len(out) < n; i-- {
		copied := *s.entries[i]
		out = append(out, &copied)
	}
	return out, nil
}

// Clear removes all entries from the store
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make([]*history.Entry, 0)
	return nil
}

// Count returns the number of entries in the store
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
