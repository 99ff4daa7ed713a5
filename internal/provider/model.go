package provider

import "fmt"

// ModelType represents what a model is used for
type ModelType int

const (
	Transcription ModelType = iota
	Translation
	LLM
)

func (t ModelType) String() string {
	switch t {
	case Transcription:
		return "transcription"
	case Translation:
		return "translation"
	case LLM:
		return "llm"
	}
	return fmt.Sprintf("ModelType(%d)", int(t))
}

// Model represents a model with full metadata
type Model struct {
	ID                string          // unique identifier (e.g., "nova-3", "gpt-4o-mini")
	Name              string          // display name
	Description       string          // short description
	Type              ModelType       // transcription, translation or LLM
	SupportsBatch     bool            // can transcribe whole files
	SupportsStreaming bool            // can transcribe live audio
	CodeSwitching     bool            // returns per-word language tags (two-way sessions)
	Endpoint          *EndpointConfig // default endpoint
	StreamingEndpoint *EndpointConfig // endpoint for streaming mode (if different from Endpoint)
}

// EndpointConfig holds HTTP/WebSocket endpoint configuration
type EndpointConfig struct {
	BaseURL string // e.g., "https://api.deepl.com" or "wss://api.deepgram.com"
	Path    string // e.g., "/v2/translate"
}

// URL joins base and path.
func (e *EndpointConfig) URL() string {
	if e == nil {
		return ""
	}
	return e.BaseURL + e.Path
}

// GetModel looks up a model by provider and id.
func GetModel(providerName, modelID string) (*Model, error) {
	p := GetProvider(providerName)
	if p == nil {
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
	for _, m := range p.Models() {
		if m.ID == modelID {
			m := m
			return &m, nil
		}
	}
	return nil, fmt.Errorf("unknown model %q for provider %s", modelID, providerName)
}

// ModelsOfType filters a provider's models by type.
func ModelsOfType(p Provider, t ModelType) []Model {
	var out []Model
	for _, m := range p.Models() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}
