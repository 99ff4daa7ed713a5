package tui

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/store"
)

func editSession(cfg *config.Config) error {
	mode := cfg.Session.Mode
	if mode == "" {
		mode = string(store.ModeOneWay)
	}

	modeForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Session Mode").
				Description("Default for new connections; clients can override it per session").
				Options(
					huh.NewOption("One-way - translate one language into another", string(store.ModeOneWay)),
					huh.NewOption("Two-way - conversation between two languages", string(store.ModeTwoWay)),
				).
				Value(&mode),
		),
	).WithTheme(getTheme())

	if err := modeForm.Run(); err != nil {
		return err
	}

	var first, second string
	var firstTitle, secondTitle string
	if mode == string(store.ModeTwoWay) {
		first, second = cfg.Session.LanguageA, cfg.Session.LanguageB
		firstTitle, secondTitle = "Language A", "Language B"
	} else {
		first, second = cfg.Session.InputLanguage, cfg.Session.OutputLanguage
		firstTitle, secondTitle = "Spoken Language", "Translate To"
	}

	langForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(firstTitle).
				Options(languageOptions()...).
				Value(&first),
			huh.NewSelect[string]().
				Title(secondTitle).
				Options(languageOptions()...).
				Value(&second).
				Validate(func(s string) error {
					return validateLanguagePair(first, s)
				}),
		),
	).WithTheme(getTheme())

	if err := langForm.Run(); err != nil {
		return err
	}

	cfg.Session.Mode = mode
	if mode == string(store.ModeTwoWay) {
		cfg.Session.LanguageA, cfg.Session.LanguageB = first, second
	} else {
		cfg.Session.InputLanguage, cfg.Session.OutputLanguage = first, second
	}
	return nil
}

func languageOptions() []huh.Option[string] {
	langs := language.List()
	options := make([]huh.Option[string], 0, len(langs))
	for _, l := range langs {
		options = append(options, huh.NewOption(languageLabel(l), l.Code))
	}
	return options
}

func languageLabel(l language.Language) string {
	if l.NativeName == "" || l.NativeName == l.Name {
		return fmt.Sprintf("%s (%s)", l.Name, l.Code)
	}
	return fmt.Sprintf("%s - %s (%s)", l.Name, l.NativeName, l.Code)
}

func validateLanguagePair(a, b string) error {
	if language.Primary(a) == language.Primary(b) {
		return fmt.Errorf("pick two different languages")
	}
	return nil
}
