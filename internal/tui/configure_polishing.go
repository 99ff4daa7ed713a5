package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

func editPolishing(cfg *config.Config) error {
	enabled := cfg.Polishing.Enabled
	enableForm := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("LLM Polishing").
				Description("Rewrite recent translations in batches using conversation context").
				Value(&enabled),
		),
	).WithTheme(getTheme())

	if err := enableForm.Run(); err != nil {
		return err
	}

	cfg.Polishing.Enabled = enabled
	if !enabled {
		return nil
	}

	providerName := cfg.Polishing.Provider
	var providerOptions []huh.Option[string]
	for _, name := range provider.ListProvidersFor(provider.LLM) {
		providerOptions = append(providerOptions, huh.NewOption(getProviderDisplayName(name), name))
	}

	providerForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Polishing Provider").
				Options(providerOptions...).
				Value(&providerName),
		),
	).WithTheme(getTheme())

	if err := providerForm.Run(); err != nil {
		return err
	}

	ensureProviderConfigured(cfg, providerName)

	p := provider.GetProvider(providerName)
	model := cfg.Polishing.Model
	if providerName != cfg.Polishing.Provider || model == "" {
		model = p.DefaultModel(provider.LLM)
	}
	var modelOptions []huh.Option[string]
	for _, m := range provider.ModelsOfType(p, provider.LLM) {
		modelOptions = append(modelOptions, huh.NewOption(fmt.Sprintf("%s - %s", m.Name, m.Description), m.ID))
	}

	interval := cfg.Polishing.Interval.String()
	minBatch := strconv.Itoa(cfg.Polishing.MinBatchSize)

	settingsForm := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Polishing Model").
				Options(modelOptions...).
				Value(&model),
			huh.NewInput().
				Title("Interval").
				Description("How often the background polisher looks for new segments (e.g. 30s)").
				Value(&interval).
				Validate(validateDuration),
			huh.NewInput().
				Title("Minimum Batch").
				Description("Segments that must be waiting before an automatic polish runs").
				Value(&minBatch).
				Validate(validatePositiveInt),
		),
	).WithTheme(getTheme())

	if err := settingsForm.Run(); err != nil {
		return err
	}

	cfg.Polishing.Provider = providerName
	cfg.Polishing.Model = model
	cfg.Polishing.Interval, _ = time.ParseDuration(strings.TrimSpace(interval))
	cfg.Polishing.MinBatchSize, _ = strconv.Atoi(strings.TrimSpace(minBatch))
	return nil
}
