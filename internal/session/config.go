package session

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/store"
)

// Config is the per-connection session setup
type Config struct {
	Mode           store.Mode
	InputLanguage  string
	OutputLanguage string
	LanguageA      string
	LanguageB      string
	Polish         bool
	PolishInterval time.Duration
}

// Validate checks the language fields required by the mode.
func (c Config) Validate() error {
	switch c.Mode {
	case store.ModeOneWay:
		if !language.IsValidCode(c.InputLanguage) {
			return fmt.Errorf("invalid inputLanguage: %q", c.InputLanguage)
		}
		if !language.IsValidCode(c.OutputLanguage) {
			return fmt.Errorf("invalid outputLanguage: %q", c.OutputLanguage)
		}
		if language.Primary(c.InputLanguage) == language.Primary(c.OutputLanguage) {
			return fmt.Errorf("inputLanguage and outputLanguage must differ")
		}
	case store.ModeTwoWay:
		if !language.IsValidCode(c.LanguageA) {
			return fmt.Errorf("invalid languageA: %q", c.LanguageA)
		}
		if !language.IsValidCode(c.LanguageB) {
			return fmt.Errorf("invalid languageB: %q", c.LanguageB)
		}
		if language.Primary(c.LanguageA) == language.Primary(c.LanguageB) {
			return fmt.Errorf("languageA and languageB must differ")
		}
	default:
		return fmt.Errorf("invalid mode: %q", c.Mode)
	}
	if c.Polish && c.PolishInterval <= 0 {
		return fmt.Errorf("polish interval must be positive")
	}
	return nil
}

// Request carries client-supplied overrides (query string or configure message)
type Request struct {
	Mode           string `json:"mode,omitempty"`
	InputLanguage  string `json:"inputLanguage,omitempty"`
	OutputLanguage string `json:"outputLanguage,omitempty"`
	LanguageA      string `json:"languageA,omitempty"`
	LanguageB      string `json:"languageB,omitempty"`
	Polish         *bool  `json:"polish,omitempty"`
}

// RequestFromQuery reads overrides from a /ws query string.
func RequestFromQuery(q url.Values) (Request, error) {
	r := Request{
		Mode:           q.Get("mode"),
		InputLanguage:  q.Get("inputLanguage"),
		OutputLanguage: q.Get("outputLanguage"),
		LanguageA:      q.Get("languageA"),
		LanguageB:      q.Get("languageB"),
	}
	if v := q.Get("polish"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Request{}, fmt.Errorf("invalid polish: %q", v)
		}
		r.Polish = &b
	}
	return r, nil
}

// Apply overlays the request on base, normalising language codes.
func (r Request) Apply(base Config) Config {
	out := base
	if r.Mode != "" {
		out.Mode = store.Mode(r.Mode)
	}
	if r.InputLanguage != "" {
		out.InputLanguage = language.Primary(r.InputLanguage)
	}
	if r.OutputLanguage != "" {
		out.OutputLanguage = language.Primary(r.OutputLanguage)
	}
	if r.LanguageA != "" {
		out.LanguageA = language.Primary(r.LanguageA)
	}
	if r.LanguageB != "" {
		out.LanguageB = language.Primary(r.LanguageB)
	}
	if r.Polish != nil {
		out.Polish = *r.Polish
	}
	return out
}
