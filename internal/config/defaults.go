package config

import (
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         "127.0.0.1:8787",
			MaxUploadMB:     100,
			ShutdownTimeout: 10 * time.Second,
			WriteTimeout:    10 * time.Second,
			PingInterval:    30 * time.Second,
		},
		Storage: StorageConfig{
			Path:                "",
			ResetLocksOnStartup: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Transcription: TranscriptionConfig{
			Provider:       provider.ProviderDeepgram,
			Model:          "nova-3",
			InterimResults: true,
		},
		Session: SessionConfig{
			Mode:           "one-way",
			InputLanguage:  "nl",
			OutputLanguage: "en",
			LanguageA:      "nl",
			LanguageB:      "fr",
		},
		Translation: TranslationConfig{
			Provider:  provider.ProviderDeepL,
			CacheSize: 1000,
			Timeout:   10 * time.Second,
		},
		Polishing: PolishingConfig{
			Enabled:      false,
			Provider:     provider.ProviderOpenAI,
			Model:        "gpt-4o-mini",
			Interval:     30 * time.Second,
			MinBatchSize: 5,
			Timeout:      2 * time.Minute,
			Temperature:  0.3,
		},
		Providers: make(map[string]ProviderConfig),
		Keywords:  nil,
	}
}
