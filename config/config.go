package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported provider and history backend names.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderNone   = "none"

	HistoryMemory   = "memory"
	HistoryRedis    = "redis"
	HistoryPostgres = "postgres"
	HistoryMongo    = "mongo"
	HistoryNone     = "none"
)

// DefaultAgentID is the agent the inline chat talks to unless configured otherwise.
const DefaultAgentID = "terminal"

// Config is the complete termchat configuration.
type Config struct {
	InlineChat InlineChatConfig `yaml:"inline_chat"`
	Agent      AgentConfig      `yaml:"agent"`
	Provider   ProviderConfig   `yaml:"provider"`
	MCP        MCPConfig        `yaml:"mcp"`
	History    HistoryConfig    `yaml:"history"`
	Limits     LimitsConfig     `yaml:"limits"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

// InlineChatConfig gates and tunes the inline chat controller.
type InlineChatConfig struct {
	Enabled bool   `yaml:"enabled"`
	AgentID string `yaml:"agent_id"`
}

// AgentConfig configures the LLM-backed terminal agent.
type AgentConfig struct {
	Name         string        `yaml:"name"`
	Description  string        `yaml:"description"`
	Shell        string        `yaml:"shell"`
	SystemPrompt string        `yaml:"system_prompt"`
	Timeout      time.Duration `yaml:"timeout"`
	LogInputs    bool          `yaml:"log_inputs"`
}

// ProviderConfig selects and configures the LLM provider.
type ProviderConfig struct {
	Name        string  `yaml:"name"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// MCPConfig points at an optional MCP server whose tools become chat agents.
type MCPConfig struct {
	Command   string        `yaml:"command"`
	Args      []string      `yaml:"args"`
	Env       []string      `yaml:"env"`
	Endpoint  string        `yaml:"endpoint"`
	KeepAlive time.Duration `yaml:"keep_alive"`
}

// Enabled reports whether an MCP server is configured.
func (c MCPConfig) Enabled() bool {
	return c.Command != "" || c.Endpoint != ""
}

// HistoryConfig selects where completed exchanges are recorded.
type HistoryConfig struct {
	Backend  string         `yaml:"backend"`
	Limit    int            `yaml:"limit"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
}

// RedisConfig configures the Redis history backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// PostgresConfig configures the Postgres history backend.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// MongoConfig configures the MongoDB history backend.
type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// LimitsConfig bounds agent usage.
type LimitsConfig struct {
	MaxInputTokens    int     `yaml:"max_input_tokens"`
	Encoding          string  `yaml:"encoding"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Endpoint    string `yaml:"endpoint"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		InlineChat: InlineChatConfig{
			Enabled: true,
			AgentID: DefaultAgentID,
		},
		Agent: AgentConfig{
			Name:        "Terminal",
			Description: "Suggests shell commands for the current terminal",
			Timeout:     2 * time.Minute,
		},
		Provider: ProviderConfig{
			Name:        ProviderOpenAI,
			Temperature: 0.2,
			MaxTokens:   1024,
		},
		History: HistoryConfig{
			Backend: HistoryMemory,
			Limit:   200,
			Redis: RedisConfig{
				Addr: "localhost:6379",
				Key:  "termchat:history",
			},
			Postgres: PostgresConfig{
				Table: "termchat_history",
			},
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "termchat",
				Collection: "history",
			},
		},
		Limits: LimitsConfig{
			MaxInputTokens:    2000,
			Encoding:          "cl100k_base",
			RequestsPerSecond: 1,
			Burst:             3,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "termchat",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads path (if non-empty and present) over the defaults, applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("TERMCHAT_INLINE_CHAT_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.InlineChat.Enabled = b
		}
	}
	str("TERMCHAT_AGENT_ID", &c.InlineChat.AgentID)
	str("TERMCHAT_SHELL", &c.Agent.Shell)
	str("TERMCHAT_PROVIDER", &c.Provider.Name)
	str("TERMCHAT_MODEL", &c.Provider.Model)
	str("TERMCHAT_BASE_URL", &c.Provider.BaseURL)
	str("TERMCHAT_HISTORY_BACKEND", &c.History.Backend)
	str("TERMCHAT_REDIS_ADDR", &c.History.Redis.Addr)
	str("TERMCHAT_POSTGRES_DSN", &c.History.Postgres.DSN)
	str("TERMCHAT_MONGODB_URI", &c.History.Mongo.URI)
	str("TERMCHAT_LOG_LEVEL", &c.Log.Level)
	str("TERMCHAT_LOG_FORMAT", &c.Log.Format)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.Telemetry.Endpoint)

	if c.Agent.Shell == "" {
		str("SHELL", &c.Agent.Shell)
	}
	if c.Provider.APIKey == "" {
		switch c.Provider.Name {
		case ProviderOpenAI:
			str("OPENAI_API_KEY", &c.Provider.APIKey)
		case ProviderClaude:
			str("ANTHROPIC_API_KEY", &c.Provider.APIKey)
		case ProviderGemini:
			str("GEMINI_API_KEY", &c.Provider.APIKey)
		}
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequireNonEmpty("inline_chat.agent_id", c.InlineChat.AgentID)
	v.RequireNonNegativeDuration("agent.timeout", c.Agent.Timeout)
	v.RequireNonNegativeDuration("mcp.keep_alive", c.MCP.KeepAlive)

	v.ValidateOneOf("provider.name", c.Provider.Name, ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderNone)
	v.ValidateFloatRange("provider.temperature", c.Provider.Temperature, 0, 2)
	v.RequireNonNegative("provider.max_tokens", c.Provider.MaxTokens)

	v.ValidateOneOf("history.backend", c.History.Backend, HistoryMemory, HistoryRedis, HistoryPostgres, HistoryMongo, HistoryNone)
	v.RequireNonNegative("history.limit", c.History.Limit)
	switch c.History.Backend {
	case HistoryRedis:
		v.RequireNonEmpty("history.redis.addr", c.History.Redis.Addr)
		v.ValidateDBNumber("history.redis.db", c.History.Redis.DB)
		v.RequireNonEmpty("history.redis.key", c.History.Redis.Key)
	case HistoryPostgres:
		v.RequireNonEmpty("history.postgres.dsn", c.History.Postgres.DSN)
		v.RequireNonEmpty("history.postgres.table", c.History.Postgres.Table)
	case HistoryMongo:
		v.RequireNonEmpty("history.mongo.uri", c.History.Mongo.URI)
		v.RequireNonEmpty("history.mongo.database", c.History.Mongo.Database)
		v.RequireNonEmpty("history.mongo.collection", c.History.Mongo.Collection)
	}

	v.RequireNonNegative("limits.max_input_tokens", c.Limits.MaxInputTokens)
	v.ValidateFloatRange("limits.requests_per_second", c.Limits.RequestsPerSecond, 0, 1000)
	v.RequireNonNegative("limits.burst", c.Limits.Burst)

	if c.Log.Format != "" {
		v.ValidateOneOf("log.format", strings.ToLower(c.Log.Format), "json", "text")
	}

	return v.Error()
}
