package tui

import (
	"reflect"
	"strings"
	"testing"

	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "***"},
		{"short", "***"},
		{"12345678", "***"},
		{"sk-proj-abcdefghijkl", "sk-proj...ijkl"},
	}
	for _, tt := range tests {
		if got := maskAPIKey(tt.key); got != tt.want {
			t.Errorf("maskAPIKey(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"   ", nil},
		{"a", []string{"a"}},
		{" Kubernetes , PostgreSQL,,Jan Peeters ", []string{"Kubernetes", "PostgreSQL", "Jan Peeters"}},
	}
	for _, tt := range tests {
		if got := parseList(tt.input); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseList(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}

func TestValidators(t *testing.T) {
	tests := []struct {
		name    string
		fn      func(string) error
		input   string
		wantErr bool
	}{
		{"positive int", validatePositiveInt, "5", false},
		{"zero int", validatePositiveInt, "0", true},
		{"not an int", validatePositiveInt, "five", true},
		{"optional empty", validateOptionalPositiveInt, "", false},
		{"optional set", validateOptionalPositiveInt, " 16000 ", false},
		{"optional negative", validateOptionalPositiveInt, "-1", true},
		{"duration", validateDuration, "30s", false},
		{"zero duration", validateDuration, "0s", true},
		{"bare number", validateDuration, "30", true},
		{"address", validateAddress, "127.0.0.1:8787", false},
		{"address without port", validateAddress, "localhost", true},
		{"same language", func(s string) error { return validateLanguagePair("nl", s) }, "nl-BE", true},
		{"different language", func(s string) error { return validateLanguagePair("nl", s) }, "fr", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("input %q: err = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAPIKey(t *testing.T) {
	openai := provider.GetProvider(provider.ProviderOpenAI)
	if err := validateAPIKey(openai, "OpenAI", ""); err == nil {
		t.Error("empty key should be rejected")
	}
	if err := validateAPIKey(openai, "OpenAI", "gsk_wrong"); err == nil {
		t.Error("groq-style key should be rejected for openai")
	}
	if err := validateAPIKey(openai, "OpenAI", "sk-test"); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}
	if err := validateAPIKey(nil, "Custom", "anything"); err != nil {
		t.Errorf("unknown provider should accept any non-empty key: %v", err)
	}
}

func TestConfiguredProviders(t *testing.T) {
	cfg := config.DefaultConfig()
	if hasUserChanges(cfg) {
		t.Error("default config should not count as configured")
	}
	if got := formatProvidersLabel(cfg); got != "Providers (none configured)" {
		t.Errorf("label = %q", got)
	}

	setAPIKey(cfg, provider.ProviderDeepL, "key:fx")
	cfg.Providers[provider.ProviderDeepgram] = config.ProviderConfig{BaseURL: "http://proxy"}
	setAPIKey(cfg, provider.ProviderDeepgram, "dg")

	if got := cfg.Providers[provider.ProviderDeepgram].BaseURL; got != "http://proxy" {
		t.Errorf("setAPIKey dropped base URL, got %q", got)
	}
	if !hasUserChanges(cfg) {
		t.Error("config with keys should count as configured")
	}
	if got := getConfiguredProviders(cfg); !reflect.DeepEqual(got, []string{"deepgram", "deepl"}) {
		t.Errorf("configured providers = %v", got)
	}
	if got := formatProvidersLabel(cfg); got != "Providers (Deepgram, DeepL)" {
		t.Errorf("label = %q", got)
	}
}

func TestFormatProviderOptionFromEnv(t *testing.T) {
	t.Setenv(provider.EnvGroqKey, "gsk_env")
	cfg := config.DefaultConfig()

	got := formatProviderOption(cfg, provider.ProviderGroq)
	if !strings.Contains(got, "(from GROQ_API_KEY)") {
		t.Errorf("option = %q, want env status", got)
	}

	setAPIKey(cfg, provider.ProviderGroq, "gsk_file")
	if got := formatProviderOption(cfg, provider.ProviderGroq); !strings.Contains(got, "(configured)") {
		t.Errorf("option = %q, want configured status", got)
	}
}

func TestSummaryLines(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.Mode = "two-way"
	cfg.Polishing.Enabled = true
	cfg.Keywords = []string{"Gent"}

	got := map[string]string{}
	for _, l := range summaryLines(cfg) {
		got[l[0]] = l[1]
	}

	if got["Session:"] != "two-way, nl <-> fr" {
		t.Errorf("session = %q", got["Session:"])
	}
	if !strings.HasPrefix(got["Polishing:"], "openai (gpt-4o-mini) every 30s") {
		t.Errorf("polishing = %q", got["Polishing:"])
	}
	if got["Keywords:"] != "Gent" {
		t.Errorf("keywords = %q", got["Keywords:"])
	}
	if got["Providers:"] != "none" {
		t.Errorf("providers = %q", got["Providers:"])
	}

	cfg.Polishing.Enabled = false
	cfg.Session.Mode = "one-way"
	if got := formatPolishingLabel(cfg); got != "Polishing (disabled)" {
		t.Errorf("polishing label = %q", got)
	}
	if got := formatSessionLabel(cfg); got != "Session (nl -> en)" {
		t.Errorf("session label = %q", got)
	}
}

func TestLanguageOptions(t *testing.T) {
	options := languageOptions()
	if len(options) != len(language.List()) {
		t.Fatalf("got %d options, want %d", len(options), len(language.List()))
	}
	for _, opt := range options {
		if !strings.HasSuffix(opt.Key, "("+opt.Value+")") {
			t.Errorf("label %q should end with its code %q", opt.Key, opt.Value)
		}
	}
}
