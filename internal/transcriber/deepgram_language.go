package transcriber

import (
	"strings"

	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// LanguageMulti asks Deepgram for multilingual code-switching output
const LanguageMulti = "multi"

func normalizeDeepgramLanguage(code string) string {
	if code == "" {
		return ""
	}
	if strings.EqualFold(code, LanguageMulti) {
		return LanguageMulti
	}
	return language.ToProviderFormat(code, provider.ProviderDeepgram, false)
}
