package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/muesli/termenv"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionProviders     ConfigSection = "providers"
	SectionTranscription ConfigSection = "transcription"
	SectionSession       ConfigSection = "session"
	SectionPolishing     ConfigSection = "polishing"
	SectionKeywords      ConfigSection = "keywords"
	SectionServer        ConfigSection = "server"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the TUI configuration wizard. A config without provider keys,
// or onboarding=true, gets the guided flow; otherwise the section menu.
func Run(existingConfig *config.Config, onboarding bool) (*ConfigureResult, error) {
	if existingConfig == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := *existingConfig
	cfg.Providers = make(map[string]config.ProviderConfig, len(existingConfig.Providers))
	for k, v := range existingConfig.Providers {
		cfg.Providers[k] = v
	}

	if onboarding || !hasUserChanges(&cfg) {
		return runOnboarding(&cfg)
	}
	return runEditExisting(&cfg)
}

// hasUserChanges detects if config has user modifications
func hasUserChanges(cfg *config.Config) bool {
	return len(getConfiguredProviders(cfg)) > 0
}

// runOnboarding walks every section once, then shows the summary
func runOnboarding(cfg *config.Config) (*ConfigureResult, error) {
	clearScreen()
	fmt.Println(Logo())
	fmt.Println()

	steps := []func(*config.Config) error{
		func(c *config.Config) error { return editProviders(c, true) },
		editSession,
		editPolishing,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}
	}

	confirmed, err := showSummary(cfg)
	if err != nil || !confirmed {
		return &ConfigureResult{Cancelled: true}, nil
	}
	return &ConfigureResult{Config: cfg}, nil
}

// runEditExisting runs the menu-based edit flow for existing configs
func runEditExisting(cfg *config.Config) (*ConfigureResult, error) {
	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			confirmed, err := showSummary(cfg)
			if err != nil {
				return &ConfigureResult{Cancelled: true}, nil
			}
			if confirmed {
				return &ConfigureResult{Config: cfg}, nil
			}

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionProviders:
			_ = editProviders(cfg, false)

		case SectionTranscription:
			_ = editTranscription(cfg)

		case SectionSession:
			_ = editSession(cfg)

		case SectionPolishing:
			_ = editPolishing(cfg)

		case SectionKeywords:
			keywords, err := inputKeywords(cfg.Keywords)
			if err != nil {
				continue
			}
			cfg.Keywords = keywords

		case SectionServer:
			_ = editServer(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(formatProvidersLabel(cfg), SectionProviders),
		huh.NewOption(formatTranscriptionLabel(cfg), SectionTranscription),
		huh.NewOption(formatSessionLabel(cfg), SectionSession),
		huh.NewOption(formatPolishingLabel(cfg), SectionPolishing),
		huh.NewOption(formatKeywordsLabel(cfg), SectionKeywords),
		huh.NewOption(formatServerLabel(cfg), SectionServer),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}

	return selected, nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
