package gemini

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/termchat/agent"
	"github.com/sweetpotato0/termchat/message"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int32
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-flash",
		MaxTokens:   1024,
		Temperature: 0.2,
	}
}

// Provider streams content from Google Gemini.
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a Gemini provider. The client holds a connection that Close
// releases.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}
	if config.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Model returns the configured model name.
func (p *Provider) Model() string {
	return p.config.Model
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}

// conversation is a request split the way the Gemini chat API wants it.
type conversation struct {
	system  string
	history []*genai.Content
	prompt  string
}

// splitConversation separates system text, prior turns and the final user
// prompt. Gemini calls the assistant role "model".
func splitConversation(msgs []*message.Message) (conversation, error) {
	var (
		conv   conversation
		system []string
	)
	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, msg.Text())
		case message.RoleUser:
			conv.history = append(conv.history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Text())}})
		case message.RoleAssistant:
			conv.history = append(conv.history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Text())}})
		}
	}
	conv.system = strings.Join(system, "\n")

	if len(conv.history) == 0 || conv.history[len(conv.history)-1].Role != "user" {
		return conv, errors.New("gemini: conversation must end with a user message")
	}
	last := conv.history[len(conv.history)-1]
	conv.history = conv.history[:len(conv.history)-1]
	conv.prompt = partsText(last.Parts)
	return conv, nil
}

func partsText(parts []genai.Part) string {
	var sb strings.Builder
	for _, part := range parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		sb.WriteString(partsText(cand.Content.Parts))
	}
	return sb.String()
}

// GenerateStream implements agent.LLMClient.
func (p *Provider) GenerateStream(ctx context.Context, req *agent.GenerateRequest) iter.Seq2[*message.Message, error] {
	return func(yield func(*message.Message, error) bool) {
		if req == nil {
			yield(nil, fmt.Errorf("generate request cannot be nil"))
			return
		}
		conv, err := splitConversation(req.Messages)
		if err != nil {
			yield(nil, err)
			return
		}

		model := p.client.GenerativeModel(p.config.Model)
		if p.config.Temperature > 0 {
			model.SetTemperature(p.config.Temperature)
		}
		if p.config.MaxTokens > 0 {
			model.SetMaxOutputTokens(p.config.MaxTokens)
		}
		if conv.system != "" {
			model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(conv.system)}}
		}

		session := model.StartChat()
		session.History = conv.history

		finalMsg := message.NewMessage(message.RoleAssistant, "")
		it := session.SendMessageStream(ctx, genai.Text(conv.prompt))
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				yield(nil, fmt.Errorf("Gemini streaming error: %w", err))
				return
			}
			text := responseText(resp)
			if text == "" {
				continue
			}
			finalMsg.AppendText(text)
			if !yield(message.NewDelta(text), nil) {
				return
			}
		}

		finalMsg.Metadata["model"] = p.config.Model
		finalMsg.Completed = true
		yield(finalMsg, nil)
	}
}
