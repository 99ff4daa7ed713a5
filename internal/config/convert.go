package config

import (
	"os"

	"github.com/leonardotrapani/hyprlingo/internal/llm"
	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/leonardotrapani/hyprlingo/internal/translation"
)

// ResolveAPIKey returns the API key for a provider: providers table first,
// then the provider's environment variable.
func (c *Config) ResolveAPIKey(providerName string) string {
	if c.Providers != nil {
		if pc, ok := c.Providers[providerName]; ok && pc.APIKey != "" {
			return pc.APIKey
		}
	}

	if envVar := provider.EnvVarForProvider(providerName); envVar != "" {
		return os.Getenv(envVar)
	}

	return ""
}

// BaseURL returns the endpoint override for a provider, empty for the default.
func (c *Config) BaseURL(providerName string) string {
	if c.Providers == nil {
		return ""
	}
	return c.Providers[providerName].BaseURL
}

// ToSessionConfig returns the defaults a new connection starts from.
func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		Mode:           store.Mode(c.Session.Mode),
		InputLanguage:  c.Session.InputLanguage,
		OutputLanguage: c.Session.OutputLanguage,
		LanguageA:      c.Session.LanguageA,
		LanguageB:      c.Session.LanguageB,
		Polish:         c.Polishing.Enabled,
		PolishInterval: c.Polishing.Interval,
	}
}

// ToDeepgramOptions returns the live-stream options for a session. Two-way
// sessions ask for code-switching.
func (c *Config) ToDeepgramOptions(sc session.Config) transcriber.DeepgramOptions {
	lang := sc.InputLanguage
	if sc.Mode == store.ModeTwoWay {
		lang = transcriber.LanguageMulti
	}
	return transcriber.DeepgramOptions{
		Model:          c.Transcription.Model,
		Language:       lang,
		Encoding:       c.Transcription.Encoding,
		SampleRate:     c.Transcription.SampleRate,
		Channels:       c.Transcription.Channels,
		InterimResults: c.Transcription.InterimResults,
		Keywords:       c.Keywords,
	}
}

// ToLLMConfig returns the polish adapter configuration.
func (c *Config) ToLLMConfig() llm.Config {
	return llm.Config{
		Provider:    c.Polishing.Provider,
		APIKey:      c.ResolveAPIKey(c.Polishing.Provider),
		Model:       c.Polishing.Model,
		BaseURL:     c.BaseURL(c.Polishing.Provider),
		Temperature: c.Polishing.Temperature,
	}
}

// ToTranslationOptions returns the dispatcher options (logger and metrics are
// filled by the caller).
func (c *Config) ToTranslationOptions() translation.Options {
	opts := translation.Options{
		InstantProvider: c.Translation.Provider,
		CacheSize:       c.Translation.CacheSize,
		Keywords:        c.Keywords,
	}
	if c.IsPolishingEnabled() {
		opts.LLMProvider = c.Polishing.Provider
	}
	return opts
}

// ToPolishOptions returns the coordinator options (logger and metrics are
// filled by the caller).
func (c *Config) ToPolishOptions() polish.Options {
	return polish.Options{
		MinBatchSize: c.Polishing.MinBatchSize,
		Timeout:      c.Polishing.Timeout,
	}
}

// IsPolishingEnabled returns true if LLM polishing is enabled and configured
func (c *Config) IsPolishingEnabled() bool {
	return c.Polishing.Enabled && c.Polishing.Provider != "" && c.Polishing.Model != ""
}
