package provider

// DeepgramProvider implements Provider for Deepgram transcription services
type DeepgramProvider struct{}

func (p *DeepgramProvider) Name() string {
	return ProviderDeepgram
}

func (p *DeepgramProvider) RequiresAPIKey() bool {
	return true
}

func (p *DeepgramProvider) ValidateAPIKey(key string) bool {
	// Deepgram API keys are opaque hex strings, just check non-empty
	return len(key) > 0
}

func (p *DeepgramProvider) APIKeyURL() string {
	return "https://console.deepgram.com/"
}

func (p *DeepgramProvider) Models() []Model {
	stream := &EndpointConfig{BaseURL: "wss://api.deepgram.com", Path: "/v1/listen"}
	batch := &EndpointConfig{BaseURL: "https://api.deepgram.com", Path: "/v1/listen"}

	return []Model{
		{
			ID:                "nova-3",
			Name:              "Nova-3",
			Description:       "Best accuracy, multilingual code-switching",
			Type:              Transcription,
			SupportsBatch:     true,
			SupportsStreaming: true,
			CodeSwitching:     true,
			Endpoint:          batch,
			StreamingEndpoint: stream,
		},
		{
			ID:                "nova-2",
			Name:              "Nova-2",
			Description:       "Fast, 30+ languages, code-switching for en/es",
			Type:              Transcription,
			SupportsBatch:     true,
			SupportsStreaming: true,
			CodeSwitching:     true,
			Endpoint:          batch,
			StreamingEndpoint: stream,
		},
		{
			ID:                "nova-2-general",
			Name:              "Nova-2 General",
			Description:       "General purpose, single language",
			Type:              Transcription,
			SupportsBatch:     true,
			SupportsStreaming: true,
			Endpoint:          batch,
			StreamingEndpoint: stream,
		},
	}
}

func (p *DeepgramProvider) DefaultModel(t ModelType) string {
	if t == Transcription {
		return "nova-3"
	}
	return ""
}
