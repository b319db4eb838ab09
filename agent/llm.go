package agent

import (
	"context"
	"iter"

	"github.com/sweetpotato0/termchat/message"
)

// GenerateRequest bundles the conversation sent to an LLM.
type GenerateRequest struct {
	Messages []*message.Message
}

// LLMClient is a streaming LLM provider. GenerateStream yields partial
// assistant messages (Completed=false) holding only the new text, followed by
// one message with Completed=true holding the whole response. Iteration stops
// at the first error.
type LLMClient interface {
	GenerateStream(ctx context.Context, req *GenerateRequest) iter.Seq2[*message.Message, error]
}
