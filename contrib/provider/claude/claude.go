package claude

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/sweetpotato0/termchat/agent"
	"github.com/sweetpotato0/termchat/message"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
	MaxRetries  int
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   1024,
		Temperature: 0.2,
		MaxRetries:  2,
	}
}

// Provider streams messages from the Anthropic API.
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using official SDK
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 1024
	}

	options := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.config.Model
}

// params splits system messages out of the conversation, which the
// Messages API takes as a separate field.
func (p *Provider) params(msgs []*message.Message) anthropic.MessageNewParams {
	var system []string
	conversation := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, msg.Text())
		case message.RoleUser:
			conversation = append(conversation, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Text())))
		case message.RoleAssistant:
			conversation = append(conversation, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Text())))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		Messages:  conversation,
		MaxTokens: p.config.MaxTokens,
	}
	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Text: strings.Join(system, "\n")}}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	return params
}

// GenerateStream implements agent.LLMClient.
func (p *Provider) GenerateStream(ctx context.Context, req *agent.GenerateRequest) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		if req == nil {
			yield(nil, fmt.Errorf("generate request cannot be nil"))
			return
		}

		stream := p.client.Messages.NewStreaming(ctx, p.params(req.Messages))
		defer stream.Close()

		finalMsg := message.NewMessage(message.RoleAssistant, "")
		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case "content_block_delta":
				delta := event.AsContentBlockDelta()
				if delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
					continue
				}
				finalMsg.AppendText(delta.Delta.Text)
				if !yield(message.NewDelta(delta.Delta.Text), nil) {
					return
				}
			case "message_delta":
				if reason := event.AsMessageDelta().Delta.StopReason; reason != "" {
					finalMsg.Metadata["stop_reason"] = string(reason)
				}
			}
		}

		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("Claude streaming error: %w", err))
			return
		}

		finalMsg.Metadata["model"] = p.config.Model
		finalMsg.Completed = true
		yield(finalMsg, nil)
	}
}
