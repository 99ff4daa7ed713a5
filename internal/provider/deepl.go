package provider

import "strings"

// DeepLProvider implements Provider for DeepL machine translation
type DeepLProvider struct{}

func (p *DeepLProvider) Name() string {
	return ProviderDeepL
}

func (p *DeepLProvider) RequiresAPIKey() bool {
	return true
}

func (p *DeepLProvider) ValidateAPIKey(key string) bool {
	return len(strings.TrimSpace(key)) > 0
}

func (p *DeepLProvider) APIKeyURL() string {
	return "https://www.deepl.com/your-account/keys"
}

func (p *DeepLProvider) Models() []Model {
	return []Model{
		{
			ID:          "default",
			Name:        "DeepL",
			Description: "Low-latency machine translation",
			Type:        Translation,
			Endpoint:    &EndpointConfig{BaseURL: "https://api.deepl.com", Path: "/v2/translate"},
		},
	}
}

func (p *DeepLProvider) DefaultModel(t ModelType) string {
	if t == Translation {
		return "default"
	}
	return ""
}

// DeepLEndpoint returns the endpoint matching a key: free-tier keys end in
// ":fx" and live on a separate host.
func DeepLEndpoint(apiKey string) *EndpointConfig {
	if strings.HasSuffix(apiKey, ":fx") {
		return &EndpointConfig{BaseURL: "https://api-free.deepl.com", Path: "/v2/translate"}
	}
	return &EndpointConfig{BaseURL: "https://api.deepl.com", Path: "/v2/translate"}
}
