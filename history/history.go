// Package history records completed inline chat exchanges so that prompts can
// be recalled and past answers reviewed.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind is how a response was rendered.
type Kind string

const (
	KindCommand Kind = "command"
	KindMessage Kind = "message"
)

// Entry is one completed exchange.
type Entry struct {
	ID        string    `json:"id" bson:"_id"`
	SessionID string    `json:"session_id" bson:"session_id"`
	RequestID string    `json:"request_id" bson:"request_id"`
	AgentID   string    `json:"agent_id" bson:"agent_id"`
	Input     string    `json:"input" bson:"input"`
	Response  string    `json:"response" bson:"response"`
	Kind      Kind      `json:"kind" bson:"kind"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Store persists entries. Recent returns the newest entries first.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	Clear(ctx context.Context) error
	Close() error
}

// Prepare fills the ID and CreatedAt fields when they are unset.
func Prepare(entry *Entry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
}

// Inputs returns the distinct non-empty inputs of entries in order, most
// recent first when entries come from Recent.
func Inputs(entries []*Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.Input == "" {
			continue
		}
		if _, ok := seen[e.Input]; ok {
			continue
		}
		seen[e.Input] = struct{}{}
		out = append(out, e.Input)
	}
	return out
}
