package tui

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/store"
)

func formatProvidersLabel(cfg *config.Config) string {
	configured := getConfiguredProviders(cfg)
	if len(configured) == 0 {
		return "Providers (none configured)"
	}
	names := make([]string, 0, len(configured))
	for _, name := range configured {
		names = append(names, getProviderDisplayName(name))
	}
	return fmt.Sprintf("Providers (%s)", strings.Join(names, ", "))
}

func formatTranscriptionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Transcription (%s %s)", getProviderDisplayName(cfg.Transcription.Provider), cfg.Transcription.Model)
}

func formatSessionLabel(cfg *config.Config) string {
	return fmt.Sprintf("Session (%s)", describeSession(cfg))
}

func formatPolishingLabel(cfg *config.Config) string {
	if !cfg.Polishing.Enabled {
		return "Polishing (disabled)"
	}
	return fmt.Sprintf("Polishing (%s %s)", getProviderDisplayName(cfg.Polishing.Provider), cfg.Polishing.Model)
}

func formatKeywordsLabel(cfg *config.Config) string {
	if len(cfg.Keywords) == 0 {
		return "Keywords (none)"
	}
	return fmt.Sprintf("Keywords (%d)", len(cfg.Keywords))
}

func formatServerLabel(cfg *config.Config) string {
	return fmt.Sprintf("Server (%s)", cfg.Server.Address)
}

// describeSession renders the default session as "nl -> en" or "nl <-> fr"
func describeSession(cfg *config.Config) string {
	if cfg.Session.Mode == string(store.ModeTwoWay) {
		return fmt.Sprintf("%s <-> %s", cfg.Session.LanguageA, cfg.Session.LanguageB)
	}
	return fmt.Sprintf("%s -> %s", cfg.Session.InputLanguage, cfg.Session.OutputLanguage)
}

// summaryLines returns label/value pairs for the save screen
func summaryLines(cfg *config.Config) [][2]string {
	providers := "none"
	if configured := getConfiguredProviders(cfg); len(configured) > 0 {
		providers = strings.Join(configured, ", ")
	}

	lines := [][2]string{
		{"Providers:", providers},
		{"Transcription:", fmt.Sprintf("%s (%s)", cfg.Transcription.Provider, cfg.Transcription.Model)},
		{"Session:", fmt.Sprintf("%s, %s", cfg.Session.Mode, describeSession(cfg))},
		{"Translation:", cfg.Translation.Provider},
	}

	if cfg.Polishing.Enabled {
		lines = append(lines, [2]string{"Polishing:", fmt.Sprintf("%s (%s) every %s, batches of %d",
			cfg.Polishing.Provider, cfg.Polishing.Model, cfg.Polishing.Interval, cfg.Polishing.MinBatchSize)})
	} else {
		lines = append(lines, [2]string{"Polishing:", "disabled"})
	}

	if len(cfg.Keywords) > 0 {
		lines = append(lines, [2]string{"Keywords:", strings.Join(cfg.Keywords, ", ")})
	}

	lines = append(lines, [2]string{"Server:", cfg.Server.Address})
	return lines
}

func showSummary(cfg *config.Config) (bool, error) {
	var b strings.Builder
	b.WriteString(StyleHeader.Render("Configuration Summary"))
	b.WriteString("\n")
	for _, l := range summaryLines(cfg) {
		fmt.Fprintf(&b, "%s %s\n", StyleLabel.Render(l[0]), l[1])
	}
	fmt.Println()
	fmt.Println(StyleBox.Render(strings.TrimRight(b.String(), "\n")))

	if err := cfg.Validate(); err != nil {
		fmt.Println(StyleWarning.Render("warning: " + err.Error()))
	}
	fmt.Println()

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save this configuration?").
				Affirmative("Save").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return false, err
	}

	return confirmed, nil
}

func inputKeywords(existingKeywords []string) ([]string, error) {
	keywordsInput := strings.Join(existingKeywords, ", ")

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Keywords").
				Description("Comma-separated names and terms passed to transcription and polishing").
				Placeholder("e.g., Kubernetes, Antwerpen, Jan Peeters").
				Value(&keywordsInput),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return nil, err
	}

	return parseList(keywordsInput), nil
}

// parseList splits a comma-separated input, dropping blanks
func parseList(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive number")
	}
	return nil
}

func validateOptionalPositiveInt(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return validatePositiveInt(s)
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use a duration like 30s or 2m")
	}
	if d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateAddress(s string) error {
	if _, _, err := net.SplitHostPort(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("use host:port, e.g. 127.0.0.1:8787")
	}
	return nil
}

