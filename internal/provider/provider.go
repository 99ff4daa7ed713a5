package provider

import "sort"

// Provider describes an external speech, translation or LLM service
type Provider interface {
	Name() string
	RequiresAPIKey() bool
	ValidateAPIKey(key string) bool
	APIKeyURL() string
	Models() []Model
	DefaultModel(t ModelType) string
}

var registry = make(map[string]Provider)

func init() {
	Register(&DeepgramProvider{})
	Register(&DeepLProvider{})
	Register(&OpenAIProvider{})
	Register(&GroqProvider{})
}

// Register adds a provider to the registry
func Register(p Provider) {
	registry[p.Name()] = p
}

// GetProvider returns a provider by name, or nil if not found
func GetProvider(name string) Provider {
	return registry[name]
}

// ListProviders returns all registered provider names, sorted
func ListProviders() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListProvidersFor returns the sorted names of providers offering models of type t
func ListProvidersFor(t ModelType) []string {
	var names []string
	for name, p := range registry {
		if len(ModelsOfType(p, t)) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
