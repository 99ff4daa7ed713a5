package store

import (
	"strings"
	"time"
)

// Mode is the session language configuration
type Mode string

const (
	ModeOneWay Mode = "one-way"
	ModeTwoWay Mode = "two-way"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeOneWay || m == ModeTwoWay
}

// Direction is the translation direction of a two-way segment
type Direction string

const (
	DirectionAToB Direction = "A_to_B"
	DirectionBToA Direction = "B_to_A"
)

// PolishStatus is the persisted polishing state of a session
type PolishStatus string

const (
	PolishIdle       PolishStatus = "idle"
	PolishProcessing PolishStatus = "processing"
	PolishError      PolishStatus = "error"
)

// Origin records how a session was produced
type Origin string

const (
	OriginLive   Origin = "live"
	OriginUpload Origin = "upload"
)

// Session is one recording
type Session struct {
	ID                string       `json:"id"`
	CreatedAt         time.Time    `json:"createdAt"`
	Duration          *float64     `json:"duration"` // seconds, set at teardown
	SegmentCount      int          `json:"segmentCount"`
	Mode              Mode         `json:"mode"`
	Origin            Origin       `json:"origin"`
	InputLanguage     string       `json:"inputLanguage,omitempty"`
	OutputLanguage    string       `json:"outputLanguage,omitempty"`
	LanguageA         string       `json:"languageA,omitempty"`
	LanguageB         string       `json:"languageB,omitempty"`
	PolishingStatus   PolishStatus `json:"polishingStatus"`
	PolishingLocked   bool         `json:"polishingLocked"`
	LastPolishedAt    *time.Time   `json:"lastPolishedAt"`
	LastPolishedIndex int          `json:"lastPolishedIndex"` // polished segments in the session so far
}

// Pair returns the source and target language for a direction. One-way
// sessions ignore the direction.
func (s Session) Pair(d Direction) (source, target string) {
	if s.Mode != ModeTwoWay {
		return s.InputLanguage, s.OutputLanguage
	}
	if d == DirectionBToA {
		return s.LanguageB, s.LanguageA
	}
	return s.LanguageA, s.LanguageB
}

// Segment is one final transcript unit with its translations
type Segment struct {
	ID                  string    `json:"id"`
	SessionID           string    `json:"sessionId"`
	Start               float64   `json:"start"`
	End                 float64   `json:"end"`
	OriginalText        string    `json:"originalText"`
	RawTranslation      *string   `json:"rawTranslation"`
	PolishedTranslation *string   `json:"polishedTranslation"`
	DetectedLanguage    string    `json:"detectedLanguage,omitempty"`
	Direction           Direction `json:"translationDirection,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NeedsPolish reports whether the segment is in the polishing backlog.
// A blank raw translation has nothing to fall back to, so it never is.
func (s Segment) NeedsPolish() bool {
	return s.RawTranslation != nil && strings.TrimSpace(*s.RawTranslation) != "" && s.PolishedTranslation == nil
}

// DisplayText returns the best available translation: polished, then raw.
func (s Segment) DisplayText() string {
	if s.PolishedTranslation != nil {
		return *s.PolishedTranslation
	}
	if s.RawTranslation != nil {
		return *s.RawTranslation
	}
	return ""
}
