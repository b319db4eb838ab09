package openai

import (
	"context"
	"fmt"
	"iter"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/sweetpotato0/termchat/agent"
	"github.com/sweetpotato0/termchat/message"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
	MaxRetries  int
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   1024,
		Temperature: 0.2,
		MaxRetries:  2,
	}
}

// Provider streams chat completions from OpenAI or any compatible endpoint.
type Provider struct {
	config *Config
	client openai.Client
}

// New creates a new OpenAI provider using official SDK
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Model == "" {
		config.Model = string(openai.ChatModelGPT4oMini)
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
		client: openai.NewClient(options...),
	}
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.config.Model
}

func (p *Provider) params(req *agent.GenerateRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: convertMessages(req.Messages),
		Model:    openai.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(p.config.MaxTokens)
	}
	return params
}

func convertMessages(msgs []*message.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Text()))
		case message.RoleUser:
			out = append(out, openai.UserMessage(msg.Text()))
		case message.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Text()))
		}
	}
	return out
}

// GenerateStream implements agent.LLMClient.
func (p *Provider) GenerateStream(ctx context.Context, req *agent.GenerateRequest) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		if req == nil {
			yield(nil, fmt.Errorf("generate request cannot be nil"))
			return
		}

		stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(req))
		defer stream.Close()

		finalMsg := message.NewMessage(message.RoleAssistant, "")
		for stream.Next() {
			event := stream.Current()
			if len(event.Choices) == 0 {
				continue
			}
			choice := event.Choices[0]
			if choice.FinishReason != "" {
				finalMsg.Metadata["finish_reason"] = choice.FinishReason
			}
			if choice.Delta.Content == "" {
				continue
			}
			finalMsg.AppendText(choice.Delta.Content)
			if !yield(message.NewDelta(choice.Delta.Content), nil) {
				return
			}
		}

		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("OpenAI streaming error: %w", err))
			return
		}

		finalMsg.Metadata["model"] = p.config.Model
		finalMsg.Completed = true
		yield(finalMsg, nil)
	}
}
