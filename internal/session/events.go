package session

import (
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/store"
)

// Event types sent to the client
const (
	EventSessionCreated     = "session-created"
	EventTranscript         = "transcript"
	EventInstantTranslation = "instant-translation"
	EventTwoWayTranslation  = "two-way-translation"
	EventUpstreamReady      = "deepgram-ready"
	EventUpstreamClosed     = "deepgram-closed"
	EventTranscriptionError = "transcription-error"
	EventTranslationError   = "translation-error"
	EventPolishStarted      = "polish-started"
	EventPolishCompleted    = "polish-completed"
	EventPolishBusy         = "polish-busy"
	EventPolishError        = "polish-error"
	EventPong               = "pong"
	EventError              = "error"
)

// Event is one server-to-client message
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Sink receives events for one client. Implementations must be safe for
// concurrent use and must tolerate Emit after the client has gone away.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(Event)

func (f SinkFunc) Emit(ev Event) { f(ev) }

type SessionCreatedData struct {
	SessionID      string     `json:"sessionId"`
	Mode           store.Mode `json:"mode"`
	InputLanguage  string     `json:"inputLanguage,omitempty"`
	OutputLanguage string     `json:"outputLanguage,omitempty"`
	LanguageA      string     `json:"languageA,omitempty"`
	LanguageB      string     `json:"languageB,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	Polish         bool       `json:"polish"`
}

type TranscriptData struct {
	Text             string  `json:"text"`
	IsFinal          bool    `json:"isFinal"`
	Start            float64 `json:"start"`
	End              float64 `json:"end"`
	DetectedLanguage string  `json:"detectedLanguage,omitempty"`
}

// SegmentData is a segment plus the language pair it was translated with
type SegmentData struct {
	store.Segment
	SourceLanguage string   `json:"sourceLanguage"`
	TargetLanguage string   `json:"targetLanguage"`
	Confidence     *float64 `json:"confidence,omitempty"` // language detection confidence, two-way only
}

type ErrorData struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
	Fatal   bool   `json:"fatal,omitempty"`
	Text    string `json:"text,omitempty"` // transcript that failed to translate
}

type PolishData struct {
	SessionID     string                   `json:"sessionId"`
	Trigger       polish.Trigger           `json:"trigger"`
	Status        polish.Status            `json:"status"`
	SegmentCount  int                      `json:"segmentCount,omitempty"` // polish-started: batch size
	PolishedCount int                      `json:"polishedCount"`
	Segments      []polish.PolishedSegment `json:"segments,omitempty"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Error         string                   `json:"error,omitempty"`
}

// PolishEvent converts a coordinator result into the matching client event.
func PolishEvent(r polish.Result) Event {
	data := PolishData{
		SessionID:     r.SessionID,
		Trigger:       r.Trigger,
		Status:        r.Status,
		PolishedCount: r.PolishedCount,
		Segments:      r.Segments,
		Warnings:      r.Warnings,
	}
	switch r.Status {
	case polish.StatusBusy:
		return Event{Type: EventPolishBusy, Data: data}
	case polish.StatusError:
		if r.Err != nil {
			data.Error = r.Err.Error()
		}
		return Event{Type: EventPolishError, Data: data}
	}
	return Event{Type: EventPolishCompleted, Data: data}
}
