package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InlineChat.AgentID != DefaultAgentID {
		t.Errorf("expected default agent id, got %q", cfg.InlineChat.AgentID)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "termchat.yaml")
	content := `
inline_chat:
  enabled: false
agent:
  timeout: 45s
provider:
  name: claude
  model: claude-sonnet-4-5
history:
  backend: redis
  redis:
    addr: cache:6379
    db: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.InlineChat.Enabled {
		t.Error("expected inline chat to be disabled")
	}
	if cfg.Agent.Timeout != 45*time.Second {
		t.Errorf("expected 45s timeout, got %s", cfg.Agent.Timeout)
	}
	if cfg.Provider.Name != ProviderClaude || cfg.Provider.Model != "claude-sonnet-4-5" {
		t.Errorf("unexpected provider: %+v", cfg.Provider)
	}
	if cfg.History.Redis.Addr != "cache:6379" || cfg.History.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.History.Redis)
	}
	if cfg.History.Redis.Key != "termchat:history" {
		t.Errorf("expected default key to survive partial override, got %q", cfg.History.Redis.Key)
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("history:\n  backend: etcd\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected validation error for unknown backend")
	}

	if err := os.WriteFile(path, []byte("inline_chat: [\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envFrom(map[string]string{
		"TERMCHAT_INLINE_CHAT_ENABLED": "false",
		"TERMCHAT_PROVIDER":            "gemini",
		"GEMINI_API_KEY":               "g-key",
		"OPENAI_API_KEY":               "o-key",
		"SHELL":                        "/bin/zsh",
	}))

	if cfg.InlineChat.Enabled {
		t.Error("expected env to disable inline chat")
	}
	if cfg.Provider.APIKey != "g-key" {
		t.Errorf("expected provider-specific key, got %q", cfg.Provider.APIKey)
	}
	if cfg.Agent.Shell != "/bin/zsh" {
		t.Errorf("expected shell from SHELL, got %q", cfg.Agent.Shell)
	}
}

func TestValidateBackendSpecificFields(t *testing.T) {
	cfg := Default()
	cfg.History.Backend = HistoryPostgres
	if err := cfg.Validate(); err == nil {
		t.Error("expected postgres backend without DSN to fail")
	}
	cfg.History.Postgres.DSN = "postgres://localhost/termchat"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSettingsFlatten(t *testing.T) {
	cfg := Default()
	cfg.InlineChat.Enabled = true
	settings, err := cfg.Settings()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !settings.Bool(SettingInlineChatEnabled) {
		t.Error("expected inline_chat.enabled to be true")
	}
	if settings.String(SettingInlineChatAgentID) != DefaultAgentID {
		t.Errorf("unexpected agent id: %v", settings.GetValue(SettingInlineChatAgentID))
	}
	if settings.String("history.redis.addr") != "localhost:6379" {
		t.Errorf("expected nested key, got %v", settings.GetValue("history.redis.addr"))
	}
	if settings.GetValue("does.not.exist") != nil {
		t.Error("expected nil for unknown key")
	}

	settings.Set(SettingInlineChatEnabled, false)
	if settings.Bool(SettingInlineChatEnabled) {
		t.Error("expected override to win")
	}
}

func TestNewSettingsCopiesInput(t *testing.T) {
	values := map[string]any{"a": true}
	settings := NewSettings(values)
	values["a"] = false
	if !settings.Bool("a") {
		t.Error("settings should not alias the input map")
	}
	if keys := settings.Keys(); len(keys) != 1 || keys[0] != "a" {
		t.Errorf("unexpected keys %v", keys)
	}
}
