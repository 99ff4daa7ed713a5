package llm

import (
	"context"

	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// GroqAdapter implements Adapter using Groq's OpenAI-compatible API
type GroqAdapter struct {
	chat chatClient
}

// NewGroqAdapter creates a new Groq LLM adapter
func NewGroqAdapter(cfg Config) *GroqAdapter {
	return &GroqAdapter{chat: newChatClient("groq", provider.GroqBaseURL, "llama-3.3-70b-versatile", cfg)}
}

func (a *GroqAdapter) Complete(ctx context.Context, system, user string) (string, error) {
	return a.chat.complete(ctx, system, user)
}
