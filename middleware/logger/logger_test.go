package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sweetpotato0/termchat/middleware"
	"github.com/sweetpotato0/termchat/pkg/logging"
)

func TestRequestLogger(t *testing.T) {
	t.Run("logs completion without raw input by default", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewRequestLogger(WithLogger(logging.New(&buf, "text", "debug")))

		ctx := &middleware.Context{AgentID: "terminal", Input: "secret input"}
		err := m.Execute(ctx, func(c *middleware.Context) error {
			c.Response = "ok"
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "agent request completed") {
			t.Errorf("expected completion record, got: %s", out)
		}
		if strings.Contains(out, "secret input") {
			t.Errorf("raw input should not be logged by default: %s", out)
		}
	})

	t.Run("logs inputs when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewRequestLogger(WithLogger(logging.New(&buf, "text", "debug")), WithInputs(true))

		ctx := &middleware.Context{Input: "list files"}
		_ = m.Execute(ctx, func(c *middleware.Context) error { return nil })
		if !strings.Contains(buf.String(), "list files") {
			t.Errorf("expected input in log, got: %s", buf.String())
		}
	})

	t.Run("logs and propagates errors", func(t *testing.T) {
		var buf bytes.Buffer
		m := NewRequestLogger(WithLogger(logging.New(&buf, "text", "debug")))
		want := errors.New("boom")

		err := m.Execute(&middleware.Context{}, func(c *middleware.Context) error { return want })
		if !errors.Is(err, want) {
			t.Fatalf("expected %v, got %v", want, err)
		}
		if !strings.Contains(buf.String(), "agent request failed") {
			t.Errorf("expected failure record, got: %s", buf.String())
		}
	})
}
