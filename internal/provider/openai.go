package provider

import "strings"

// OpenAIProvider implements Provider for OpenAI chat models
type OpenAIProvider struct{}

func (p *OpenAIProvider) Name() string {
	return ProviderOpenAI
}

func (p *OpenAIProvider) RequiresAPIKey() bool {
	return true
}

func (p *OpenAIProvider) ValidateAPIKey(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

func (p *OpenAIProvider) APIKeyURL() string {
	return "https://platform.openai.com/api-keys"
}

func (p *OpenAIProvider) Models() []Model {
	endpoint := &EndpointConfig{BaseURL: "https://api.openai.com", Path: "/v1/chat/completions"}

	return []Model{
		{
			ID:          "gpt-4o-mini",
			Name:        "GPT-4o Mini",
			Description: "Fast and affordable, good batch polish quality",
			Type:        LLM,
			Endpoint:    endpoint,
		},
		{
			ID:          "gpt-4o",
			Name:        "GPT-4o",
			Description: "Most capable GPT-4 model",
			Type:        LLM,
			Endpoint:    endpoint,
		},
		{
			ID:          "gpt-4.1-mini",
			Name:        "GPT-4.1 Mini",
			Description: "Long context, consistent terminology",
			Type:        LLM,
			Endpoint:    endpoint,
		},
	}
}

func (p *OpenAIProvider) DefaultModel(t ModelType) string {
	if t == LLM {
		return "gpt-4o-mini"
	}
	return ""
}
