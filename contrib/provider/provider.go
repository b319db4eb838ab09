// Package provider builds the configured LLM client.
package provider

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/termchat/agent"
	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/contrib/provider/claude"
	"github.com/sweetpotato0/termchat/contrib/provider/gemini"
	"github.com/sweetpotato0/termchat/contrib/provider/openai"
	errs "github.com/sweetpotato0/termchat/errors"
)

// New returns the LLM client selected by cfg and a function releasing it.
// The "none" provider yields a nil client.
func New(ctx context.Context, cfg config.ProviderConfig) (agent.LLMClient, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Name {
	case config.ProviderNone:
		return nil, noop, nil
	case config.ProviderOpenAI, "":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, noop, fmt.Errorf("provider openai: api key is required: %w", errs.ErrInvalidInput)
		}
		return openai.New(&openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
			MaxRetries:  2,
		}), noop, nil
	case config.ProviderClaude:
		if cfg.APIKey == "" {
			return nil, noop, fmt.Errorf("provider claude: api key is required: %w", errs.ErrInvalidInput)
		}
		return claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   int64(cfg.MaxTokens),
			Temperature: cfg.Temperature,
			MaxRetries:  2,
		}), noop, nil
	case config.ProviderGemini:
		p, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   int32(cfg.MaxTokens),
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown provider %q: %w", cfg.Name, errs.ErrInvalidInput)
	}
}
