package provider

import "strings"

// GroqBaseURL is Groq's OpenAI-compatible API root
const GroqBaseURL = "https://api.groq.com/openai/v1"

// GroqProvider implements Provider for Groq hosted LLMs
type GroqProvider struct{}

func (p *GroqProvider) Name() string {
	return ProviderGroq
}

func (p *GroqProvider) RequiresAPIKey() bool {
	return true
}

func (p *GroqProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "gsk_")
}

func (p *GroqProvider) APIKeyURL() string {
	return "https://console.groq.com/keys"
}

func (p *GroqProvider) Models() []Model {
	endpoint := &EndpointConfig{BaseURL: GroqBaseURL, Path: "/chat/completions"}

	return []Model{
		{
			ID:          "llama-3.3-70b-versatile",
			Name:        "Llama 3.3 70B",
			Description: "High quality, low latency",
			Type:        LLM,
			Endpoint:    endpoint,
		},
		{
			ID:          "llama-3.1-8b-instant",
			Name:        "Llama 3.1 8B Instant",
			Description: "Fastest, lower quality",
			Type:        LLM,
			Endpoint:    endpoint,
		},
	}
}

func (p *GroqProvider) DefaultModel(t ModelType) string {
	if t == LLM {
		return "llama-3.3-70b-versatile"
	}
	return ""
}
