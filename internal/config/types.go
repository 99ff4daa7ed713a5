package config

import "time"

type Config struct {
	Server        ServerConfig              `toml:"server"`
	Storage       StorageConfig             `toml:"storage"`
	Logging       LoggingConfig             `toml:"logging"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Session       SessionConfig             `toml:"session"`
	Translation   TranslationConfig         `toml:"translation"`
	Polishing     PolishingConfig           `toml:"polishing"`
	Providers     map[string]ProviderConfig `toml:"providers"`
	Keywords      []string                  `toml:"keywords"`
}

// ProviderConfig holds API key for a provider
type ProviderConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"` // optional endpoint override
}

type ServerConfig struct {
	Address         string        `toml:"address"`
	AllowedOrigins  []string      `toml:"allowed_origins"` // empty allows any origin
	MaxUploadMB     int64         `toml:"max_upload_mb"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"` // per websocket frame
	PingInterval    time.Duration `toml:"ping_interval"`
}

type StorageConfig struct {
	Path                string `toml:"path"` // sqlite file, ":memory:" for ephemeral
	ResetLocksOnStartup bool   `toml:"reset_locks_on_startup"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`  // "debug", "info", "warn", "error"
	Format string `toml:"format"` // "json", "console"
}

type TranscriptionConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	Encoding       string `toml:"encoding"` // empty lets the provider detect the container
	SampleRate     int    `toml:"sample_rate"`
	Channels       int    `toml:"channels"`
	InterimResults bool   `toml:"interim_results"`
}

// SessionConfig holds the defaults a connection starts from
type SessionConfig struct {
	Mode           string `toml:"mode"` // "one-way", "two-way"
	InputLanguage  string `toml:"input_language"`
	OutputLanguage string `toml:"output_language"`
	LanguageA      string `toml:"language_a"`
	LanguageB      string `toml:"language_b"`
}

type TranslationConfig struct {
	Provider  string        `toml:"provider"`
	CacheSize int           `toml:"cache_size"`
	Timeout   time.Duration `toml:"timeout"`
}

type PolishingConfig struct {
	Enabled      bool          `toml:"enabled"`
	Provider     string        `toml:"provider"`
	Model        string        `toml:"model"`
	Interval     time.Duration `toml:"interval"`
	MinBatchSize int           `toml:"min_batch_size"`
	Timeout      time.Duration `toml:"timeout"`
	Temperature  float32       `toml:"temperature"`
}
