package config

import (
	"fmt"
	"slices"

	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("invalid server.address: empty")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid server.max_upload_mb: %d", c.Server.MaxUploadMB)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid server.shutdown_timeout: %v", c.Server.ShutdownTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid server.write_timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.PingInterval <= 0 {
		return fmt.Errorf("invalid server.ping_interval: %v", c.Server.PingInterval)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("invalid storage.path: empty")
	}

	if _, err := logging.New(c.Logging.Level, c.Logging.Format); err != nil {
		return fmt.Errorf("invalid logging: %w", err)
	}

	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateSession(); err != nil {
		return err
	}

	if c.Translation.Provider != provider.ProviderDeepL {
		return fmt.Errorf("unsupported translation.provider: %s (must be deepl)", c.Translation.Provider)
	}
	if c.Translation.CacheSize < 0 {
		return fmt.Errorf("invalid translation.cache_size: %d", c.Translation.CacheSize)
	}
	if c.Translation.Timeout <= 0 {
		return fmt.Errorf("invalid translation.timeout: %v", c.Translation.Timeout)
	}
	if c.ResolveAPIKey(provider.ProviderDeepL) == "" {
		return fmt.Errorf("DeepL API key required: not found in config (providers.deepl.api_key) or environment variable (%s)", provider.EnvDeepLKey)
	}

	return c.validatePolishing()
}

func (c *Config) validateTranscription() error {
	t := c.Transcription
	if t.Provider != provider.ProviderDeepgram {
		return fmt.Errorf("unsupported transcription.provider: %s (must be deepgram)", t.Provider)
	}
	if t.Model == "" {
		return fmt.Errorf("invalid transcription.model: empty")
	}
	m, err := provider.GetModel(t.Provider, t.Model)
	if err != nil {
		return fmt.Errorf("invalid transcription.model: %w", err)
	}
	if !m.SupportsStreaming {
		return fmt.Errorf("transcription.model %s does not support streaming", t.Model)
	}
	if t.SampleRate < 0 {
		return fmt.Errorf("invalid transcription.sample_rate: %d", t.SampleRate)
	}
	if t.Channels < 0 {
		return fmt.Errorf("invalid transcription.channels: %d", t.Channels)
	}
	if t.Encoding != "" && t.SampleRate == 0 {
		return fmt.Errorf("transcription.sample_rate required when transcription.encoding is set")
	}
	if c.ResolveAPIKey(provider.ProviderDeepgram) == "" {
		return fmt.Errorf("Deepgram API key required: not found in config (providers.deepgram.api_key) or environment variable (%s)", provider.EnvDeepgramKey)
	}
	return nil
}

func (c *Config) validateSession() error {
	s := c.Session
	switch s.Mode {
	case "one-way":
		if !language.IsValidCode(s.InputLanguage) {
			return fmt.Errorf("invalid session.input_language: %q", s.InputLanguage)
		}
		if !language.IsValidCode(s.OutputLanguage) {
			return fmt.Errorf("invalid session.output_language: %q", s.OutputLanguage)
		}
	case "two-way":
		if !language.IsValidCode(s.LanguageA) {
			return fmt.Errorf("invalid session.language_a: %q", s.LanguageA)
		}
		if !language.IsValidCode(s.LanguageB) {
			return fmt.Errorf("invalid session.language_b: %q", s.LanguageB)
		}
		if language.Primary(s.LanguageA) == language.Primary(s.LanguageB) {
			return fmt.Errorf("session.language_a and session.language_b must differ")
		}
	default:
		return fmt.Errorf("invalid session.mode: %q (must be one-way or two-way)", s.Mode)
	}
	return nil
}

func (c *Config) validatePolishing() error {
	p := c.Polishing
	if p.MinBatchSize <= 0 {
		return fmt.Errorf("invalid polishing.min_batch_size: %d", p.MinBatchSize)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("invalid polishing.interval: %v", p.Interval)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("invalid polishing.timeout: %v", p.Timeout)
	}
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("invalid polishing.temperature: %v (must be between 0 and 2)", p.Temperature)
	}
	if !p.Enabled {
		return nil
	}

	if !slices.Contains(provider.ListProvidersFor(provider.LLM), p.Provider) {
		return fmt.Errorf("invalid polishing.provider: %s (must be openai or groq)", p.Provider)
	}
	if p.Model == "" {
		return fmt.Errorf("polishing.model required when polishing.enabled = true")
	}
	if c.ResolveAPIKey(p.Provider) == "" {
		return fmt.Errorf("%s API key required for polishing: not found in config (providers.%s.api_key) or environment variable (%s)",
			p.Provider, p.Provider, provider.EnvVarForProvider(p.Provider))
	}
	return nil
}
