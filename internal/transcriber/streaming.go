package transcriber

import "context"

// EventKind tags the variants an upstream connection can emit
type EventKind int

const (
	EventOpen EventKind = iota
	EventTranscript
	EventError
	EventClosed
)

func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "open"
	case EventTranscript:
		return "transcript"
	case EventError:
		return "error"
	case EventClosed:
		return "closed"
	}
	return "unknown"
}

// Word is one recognised word with its timing and language hint
type Word struct {
	Text       string
	Language   string // BCP-47 tag from the provider, empty when not reported
	Start      float64
	End        float64
	Confidence float64
}

// Transcript is an interim or final transcription result
type Transcript struct {
	Text      string
	IsFinal   bool
	Start     float64 // seconds since stream start
	Duration  float64
	Words     []Word
	Languages []string // alternative-level language tags, if any
}

// End returns the stream time at which the transcript ends.
func (t Transcript) End() float64 {
	return t.Start + t.Duration
}

// LanguageTags returns the per-word language tags, falling back to the
// alternative-level tags when words carry none.
func (t Transcript) LanguageTags() []string {
	tags := make([]string, 0, len(t.Words))
	for _, w := range t.Words {
		if w.Language != "" {
			tags = append(tags, w.Language)
		}
	}
	if len(tags) == 0 {
		return t.Languages
	}
	return tags
}

// Event is a single item emitted by a StreamingAdapter
type Event struct {
	Kind       EventKind
	Transcript Transcript // EventTranscript only
	Err        error      // EventError only
	Fatal      bool       // EventError: retrying with the same settings will not help
}

// StreamingAdapter is a single upstream streaming transcription connection.
// One adapter lives for one upstream socket; reconnecting means creating a new adapter.
type StreamingAdapter interface {
	// Start dials the provider. On success an EventOpen is queued on Events.
	Start(ctx context.Context) error

	// SendChunk forwards one audio chunk.
	SendChunk(audio []byte) error

	// Events is closed once the adapter has stopped reading.
	Events() <-chan Event

	// Close terminates the connection. Safe to call more than once.
	Close() error
}

// AdapterFactory creates a fresh, unstarted adapter for each (re)connect
type AdapterFactory func() StreamingAdapter
