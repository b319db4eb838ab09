// Package tiktoken counts tokens with OpenAI's BPE encodings. It satisfies
// validator.TokenCounter.
package tiktoken

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer wraps one tiktoken encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New resolves name as a model name first and then as an encoding name
// such as "cl100k_base".
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, fmt.Errorf("tiktoken: unknown model or encoding %q: %w", name, err)
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns the token ids of text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(t.Encode(text))
}

// Decode turns token ids back into text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// Truncate cuts text to at most max tokens.
func (t *Tokenizer) Truncate(text string, max int) string {
	if max <= 0 {
		return ""
	}
	ids := t.Encode(text)
	if len(ids) <= max {
		return text
	}
	return t.Decode(ids[:max])
}
