package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/termchat/chat"
	"github.com/sweetpotato0/termchat/history"
	"github.com/sweetpotato0/termchat/inlinechat"
)

const testConfig = `
provider:
  name: none
limits:
  max_input_tokens: 0
  requests_per_second: 0
history:
  backend: memory
log:
  level: error
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"chat", "ask", "history", "agents"} {
		if sub, _, err := root.Find([]string{name}); err != nil || sub.Name() != name {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestAgentsWithoutProvider(t *testing.T) {
	out, err := execute(t, "agents", "--config", writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if !strings.Contains(out, "no agents registered") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHistoryEmpty(t *testing.T) {
	out, err := execute(t, "history", "--config", writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "no history yet") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := strings.Replace(testConfig, "backend: memory", "backend: none", 1)
	if _, err := execute(t, "history", "--config", writeConfig(t, cfg)); err == nil {
		t.Fatal("expected an error when history is disabled")
	}
}

func TestAskFailsWithoutAgent(t *testing.T) {
	_, err := execute(t, "ask", "--config", writeConfig(t, testConfig), "list", "files")
	if err == nil {
		t.Fatal("expected ask to fail when no agent is registered")
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	printHistory(&buf, []*history.Entry{{
		Input:     "list files",
		Response:  "ls -la\nwith details",
		Kind:      history.KindCommand,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}})
	out := buf.String()
	if !strings.Contains(out, "list files") || !strings.Contains(out, "ls -la with details") {
		t.Fatalf("unexpected table %q", out)
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\n b\tc", 10); got != "a b c" {
		t.Errorf("oneLine collapsed to %q", got)
	}
	if got := oneLine("abcdefghij", 5); got != "abcd…" {
		t.Errorf("oneLine truncated to %q", got)
	}
}

func TestChatSession(t *testing.T) {
	var out bytes.Buffer
	a, err := newApp(context.Background(), appOptions{
		configPath:     writeConfig(t, testConfig),
		out:            &out,
		withAgents:     true,
		withController: true,
	})
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	defer a.close()

	unregister, err := a.service.Register(chat.AgentDescriptor{ID: "terminal"}, chat.AgentFunc(
		func(ctx context.Context, req *chat.Request, progress chat.ProgressFunc, history []chat.Turn) (*chat.Result, error) {
			progress(chat.Progress{Kind: chat.KindMarkdownContent, Content: "```sh\necho " + req.Message + "\n```"})
			return &chat.Result{}, nil
		}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	defer unregister()

	if a.tracker.Active() != a.controller {
		t.Fatal("expected the controller to hold focus after start")
	}

	s := &chatSession{app: a, out: &out}
	ctx := context.Background()
	if s.handle(ctx, "hello") {
		t.Fatal("a request must not end the session")
	}
	if got := a.console.LastCommand(); got != "echo hello" {
		t.Fatalf("LastCommand() = %q", got)
	}

	s.handle(ctx, "/insert")
	if a.console.Value() != "echo hello" {
		t.Fatalf("expected command in input, got %q", a.console.Value())
	}
	s.handle(ctx, "")
	if a.controller.RequestCount() != 2 {
		t.Fatalf("expected empty line to submit the inserted command, count=%d", a.controller.RequestCount())
	}

	out.Reset()
	s.handle(ctx, "/history 5")
	if !strings.Contains(out.String(), "hello") {
		t.Fatalf("expected recent inputs, got %q", out.String())
	}

	out.Reset()
	s.handle(ctx, "/bogus")
	if !strings.Contains(out.String(), "unknown command") {
		t.Fatalf("unexpected output %q", out.String())
	}
	if !s.handle(ctx, "/quit") {
		t.Fatal("/quit should end the session")
	}
}

func TestReportOutcome(t *testing.T) {
	var out bytes.Buffer
	s := &chatSession{out: &out}
	s.report(inlinechat.Outcome{Kind: inlinechat.OutcomeCancelled})
	if !strings.Contains(out.String(), "cancelled") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

type endlessReader struct{}

func (endlessReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 'y'
		if i%2 == 1 {
			p[i] = '\n'
		}
	}
	return len(p), nil
}

func TestReadLinesStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	lines := readLines(ctx, endlessReader{})

	if line := <-lines; line != "y" {
		t.Fatalf("first line = %q, want %q", line, "y")
	}
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("reader goroutine kept sending after cancel")
		}
	}
}
