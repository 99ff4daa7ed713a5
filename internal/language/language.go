package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a supported spoken/target language.
type Language struct {
	Code       string // ISO 639-1 code (e.g., "en", "nl", "fr")
	Name       string // English name (e.g., "Dutch")
	NativeName string // self name (e.g., "Nederlands")
}

// codes is the set of languages offered for sessions. It is the intersection
// of what the streaming recogniser and the instant translator both handle.
var codes = []string{
	"ar", "bg", "cs", "da", "de", "el", "en", "es", "et", "fi", "fr", "hi",
	"hu", "id", "it", "ja", "ko", "lt", "lv", "ms", "nl", "no", "pl", "pt",
	"ro", "ru", "sk", "sl", "sv", "tr", "uk", "vi", "zh",
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(codes))
	for _, c := range codes {
		codeIndex[c] = Language{Code: c, Name: Name(c), NativeName: nativeName(c)}
	}
}

// Primary reduces a language tag to its lowercase primary subtag:
// "en-US" -> "en", "pt_BR" -> "pt", "NL" -> "nl". Unparseable input is
// lowercased and cut at the first separator.
func Primary(tag string) string {
	tag = strings.TrimSpace(strings.ReplaceAll(tag, "_", "-"))
	if tag == "" {
		return ""
	}
	if t, err := language.Raw.Parse(tag); err == nil {
		if base, conf := t.Base(); conf != language.No {
			return base.String()
		}
	}
	if i := strings.IndexByte(tag, '-'); i >= 0 {
		tag = tag[:i]
	}
	return strings.ToLower(tag)
}

// Name returns the English display name of a language code ("nl" -> "Dutch").
// Unknown codes are returned unchanged.
func Name(code string) string {
	t, err := language.Raw.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(t)
	if name == "" {
		return code
	}
	return name
}

func nativeName(code string) string {
	t, err := language.Raw.Parse(code)
	if err != nil {
		return ""
	}
	return display.Self.Name(t)
}

// FromCode returns the Language for code, matching on the primary subtag.
func FromCode(code string) (Language, bool) {
	lang, ok := codeIndex[Primary(code)]
	return lang, ok
}

// List returns all supported languages in code order.
func List() []Language {
	result := make([]Language, 0, len(codes))
	for _, c := range codes {
		result = append(result, codeIndex[c])
	}
	return result
}

// Codes returns all supported language codes.
func Codes() []string {
	out := make([]string, len(codes))
	copy(out, codes)
	return out
}

// IsValidCode reports whether code (or its primary subtag) is supported.
func IsValidCode(code string) bool {
	_, ok := FromCode(code)
	return ok
}

// ToProviderFormat converts a language code to the form a provider expects.
// target distinguishes DeepL target languages, which need a regional variant
// for English and Portuguese.
func ToProviderFormat(code, provider string, target bool) string {
	if code == "" {
		return ""
	}
	primary := Primary(code)

	switch provider {
	case "deepgram":
		switch primary {
		case "en":
			return "en-US"
		case "zh":
			return "zh-CN"
		}
		return code
	case "deepl":
		if target {
			switch primary {
			case "en":
				return "EN-US"
			case "pt":
				return "PT-PT"
			case "zh":
				return "ZH-HANS"
			}
		}
		return strings.ToUpper(primary)
	default:
		return primary
	}
}
