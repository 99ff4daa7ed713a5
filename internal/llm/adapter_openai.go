package llm

import "context"

// OpenAIAdapter implements Adapter using OpenAI's chat completions API
type OpenAIAdapter struct {
	chat chatClient
}

// NewOpenAIAdapter creates a new OpenAI LLM adapter
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	return &OpenAIAdapter{chat: newChatClient("openai", "", "gpt-4o-mini", cfg)}
}

func (a *OpenAIAdapter) Complete(ctx context.Context, system, user string) (string, error) {
	return a.chat.complete(ctx, system, user)
}
