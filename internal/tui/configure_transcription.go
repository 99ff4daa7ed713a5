package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/hyprlingo/internal/config"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// encodingOptions lists the raw encodings the recogniser accepts; empty means
// the browser sends a container (webm/ogg) the provider detects itself.
var encodingOptions = []string{"", "linear16", "opus", "flac", "mulaw"}

func editTranscription(cfg *config.Config) error {
	ensureProviderConfigured(cfg, provider.ProviderDeepgram)

	p := provider.GetProvider(provider.ProviderDeepgram)
	var modelOptions []huh.Option[string]
	for _, m := range provider.ModelsOfType(p, provider.Transcription) {
		if !m.SupportsStreaming {
			continue
		}
		label := fmt.Sprintf("%s - %s", m.Name, m.Description)
		modelOptions = append(modelOptions, huh.NewOption(label, m.ID))
	}

	model := cfg.Transcription.Model
	if model == "" {
		model = p.DefaultModel(provider.Transcription)
	}
	interim := cfg.Transcription.InterimResults
	encoding := cfg.Transcription.Encoding
	sampleRate := ""
	if cfg.Transcription.SampleRate > 0 {
		sampleRate = strconv.Itoa(cfg.Transcription.SampleRate)
	}

	var encOptions []huh.Option[string]
	for _, e := range encodingOptions {
		encOptions = append(encOptions, huh.NewOption(encodingLabel(e), e))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Transcription Model").
				Description("Deepgram streaming model").
				Options(modelOptions...).
				Value(&model),
			huh.NewConfirm().
				Title("Interim Results").
				Description("Show partial transcripts while the speaker is talking").
				Value(&interim),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Audio Encoding").
				Description("What the client sends over the websocket").
				Options(encOptions...).
				Value(&encoding),
			huh.NewInput().
				Title("Sample Rate").
				Description("Hz, required for raw encodings (leave empty for containers)").
				Placeholder("16000").
				Value(&sampleRate).
				Validate(validateOptionalPositiveInt),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return err
	}

	cfg.Transcription.Model = model
	cfg.Transcription.InterimResults = interim
	cfg.Transcription.Encoding = encoding
	cfg.Transcription.SampleRate = 0
	if strings.TrimSpace(sampleRate) != "" {
		cfg.Transcription.SampleRate, _ = strconv.Atoi(strings.TrimSpace(sampleRate))
	}
	if encoding != "" && cfg.Transcription.SampleRate == 0 {
		cfg.Transcription.SampleRate = 16000
	}
	return nil
}

func encodingLabel(e string) string {
	if e == "" {
		return "auto (webm/ogg container)"
	}
	return e
}
