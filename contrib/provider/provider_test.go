package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/termchat/config"
	"github.com/sweetpotato0/termchat/contrib/provider/claude"
	"github.com/sweetpotato0/termchat/contrib/provider/openai"
	errs "github.com/sweetpotato0/termchat/errors"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	llm, closeFn, err := New(ctx, config.ProviderConfig{Name: config.ProviderNone})
	if err != nil || llm != nil || closeFn() != nil {
		t.Errorf("expected nil client for none provider, got %v, %v", llm, err)
	}

	llm, _, err = New(ctx, config.ProviderConfig{Name: config.ProviderOpenAI, APIKey: "k", Model: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := llm.(*openai.Provider); !ok || p.Model() != "gpt-4o" {
		t.Errorf("expected openai provider, got %T", llm)
	}

	llm, _, err = New(ctx, config.ProviderConfig{Name: config.ProviderClaude, APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := llm.(*claude.Provider); !ok {
		t.Errorf("expected claude provider, got %T", llm)
	}

	for _, cfg := range []config.ProviderConfig{
		{Name: config.ProviderOpenAI},
		{Name: config.ProviderClaude},
		{Name: config.ProviderGemini},
		{Name: "llama"},
	} {
		if _, _, err := New(ctx, cfg); err == nil {
			t.Errorf("expected error for %+v", cfg)
		}
	}
	if _, _, err := New(ctx, config.ProviderConfig{Name: "llama"}); !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
