package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// providerInfo is how the wizard presents one provider.
type providerInfo struct {
	display string
	role    string
}

var providerTable = []struct {
	name string
	info providerInfo
}{
	{provider.ProviderDeepgram, providerInfo{"Deepgram", "live transcription (required)"}},
	{provider.ProviderDeepL, providerInfo{"DeepL", "instant translation (required)"}},
	{provider.ProviderOpenAI, providerInfo{"OpenAI", "polishing"}},
	{provider.ProviderGroq, providerInfo{"Groq", "polishing"}},
}

// AllProviders lists provider IDs in menu order.
var AllProviders = func() []string {
	names := make([]string, len(providerTable))
	for i, row := range providerTable {
		names[i] = row.name
	}
	return names
}()

func lookupProvider(name string) (providerInfo, bool) {
	for _, row := range providerTable {
		if row.name == name {
			return row.info, true
		}
	}
	return providerInfo{}, false
}

// editProviders loops over the provider menu until the user leaves it.
// After a key is entered the cursor starts on the exit entry.
func editProviders(cfg *config.Config, onboarding bool) error {
	exitLabel := "Done"
	if onboarding {
		exitLabel = "Next"
	}

	selected := ""
	for {
		choice, err := pickProvider(cfg, exitLabel, selected)
		if err != nil {
			return err
		}
		if choice == "back" {
			return nil
		}

		apiKey, err := configureSingleProvider(cfg, choice)
		if err != nil || apiKey == "" {
			selected = ""
			continue
		}
		setAPIKey(cfg, choice, apiKey)
		selected = "back"
	}
}

func pickProvider(cfg *config.Config, exitLabel, preselect string) (string, error) {
	options := make([]huh.Option[string], 0, len(AllProviders)+1)
	for _, name := range AllProviders {
		options = append(options, huh.NewOption(formatProviderOption(cfg, name), name))
	}
	options = append(options, huh.NewOption(exitLabel, "back"))

	choice := preselect
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Providers").
				Description("Pick a provider to set its API key. Environment keys apply when none is stored.").
				Options(options...).
				Value(&choice),
		),
	).WithTheme(getTheme()).Run()
	return choice, err
}

// setAPIKey stores a key while keeping any base URL override
func setAPIKey(cfg *config.Config, providerName, apiKey string) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]config.ProviderConfig)
	}
	pc := cfg.Providers[providerName]
	pc.APIKey = apiKey
	cfg.Providers[providerName] = pc
}

// formatProviderOption formats a provider menu option with status
func formatProviderOption(cfg *config.Config, name string) string {
	status := "(not configured)"
	if isProviderConfigured(cfg, name) {
		status = "(configured)"
	} else if cfg.ResolveAPIKey(name) != "" {
		status = "(from " + provider.EnvVarForProvider(name) + ")"
	}
	info, _ := lookupProvider(name)
	return fmt.Sprintf("%s - %s %s", getProviderDisplayName(name), info.role, status)
}

// configureSingleProvider asks for a key. When one is already stored the
// user may keep it, in which case the result is empty.
func configureSingleProvider(cfg *config.Config, providerName string) (string, error) {
	if !isProviderConfigured(cfg, providerName) {
		return inputAPIKey(providerName)
	}

	replace := false
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(getProviderDisplayName(providerName) + " API Key").
				Description("Stored: " + maskAPIKey(cfg.Providers[providerName].APIKey)).
				Affirmative("Replace").
				Negative("Keep").
				Value(&replace),
		),
	).WithTheme(getTheme()).Run()
	if err != nil || !replace {
		return "", err
	}
	return inputAPIKey(providerName)
}

func inputAPIKey(providerName string) (string, error) {
	p := provider.GetProvider(providerName)
	displayName := getProviderDisplayName(providerName)

	description := fmt.Sprintf("Enter your %s API key", displayName)
	if p != nil && p.APIKeyURL() != "" {
		description += fmt.Sprintf(" (get one at %s)", p.APIKeyURL())
	}

	var apiKey string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s API Key", displayName)).
				Description(description).
				EchoMode(huh.EchoModePassword).
				Value(&apiKey).
				Validate(func(s string) error {
					return validateAPIKey(p, displayName, s)
				}),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return apiKey, nil
}

func validateAPIKey(p provider.Provider, displayName, key string) error {
	if key == "" {
		return fmt.Errorf("API key is required")
	}
	if p != nil && !p.ValidateAPIKey(key) {
		return fmt.Errorf("invalid API key format for %s", displayName)
	}
	return nil
}

// ensureProviderConfigured prompts for an API key if the provider has none
// in the config or the environment.
func ensureProviderConfigured(cfg *config.Config, providerName string) {
	if cfg.ResolveAPIKey(providerName) != "" {
		return
	}
	apiKey, err := inputAPIKey(providerName)
	if err != nil || apiKey == "" {
		return
	}
	setAPIKey(cfg, providerName, apiKey)
}

func isProviderConfigured(cfg *config.Config, providerName string) bool {
	if pc, ok := cfg.Providers[providerName]; ok {
		return pc.APIKey != ""
	}
	return false
}

// getConfiguredProviders returns providers with API keys in the config, sorted
func getConfiguredProviders(cfg *config.Config) []string {
	var providers []string
	for name, pc := range cfg.Providers {
		if pc.APIKey != "" {
			providers = append(providers, name)
		}
	}
	slices.Sort(providers)
	return providers
}

func getProviderDisplayName(providerName string) string {
	if info, ok := lookupProvider(providerName); ok {
		return info.display
	}
	return providerName
}

// maskAPIKey returns a masked version of an API key for display
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}
