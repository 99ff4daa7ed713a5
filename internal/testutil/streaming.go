package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
)

// MockStreamingAdapter implements transcriber.StreamingAdapter for testing.
// Events are pushed by the test with Emit.
type MockStreamingAdapter struct {
	StartError error
	SendError  error // returned by every SendChunk when set
	AutoOpen   bool  // queue EventOpen as soon as Start succeeds

	mu      sync.Mutex
	started bool
	closed  bool
	sent    [][]byte
	events  chan transcriber.Event
}

func NewMockStreamingAdapter() *MockStreamingAdapter {
	return &MockStreamingAdapter{events: make(chan transcriber.Event, 32)}
}

func (m *MockStreamingAdapter) Start(ctx context.Context) error {
	if m.StartError != nil {
		return m.StartError
	}
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	if m.AutoOpen {
		m.Emit(transcriber.Event{Kind: transcriber.EventOpen})
	}
	return nil
}

func (m *MockStreamingAdapter) SendChunk(audio []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendError != nil {
		return m.SendError
	}
	if !m.started || m.closed {
		return errors.New("mock adapter not started")
	}
	chunk := make([]byte, len(audio))
	copy(chunk, audio)
	m.sent = append(m.sent, chunk)
	return nil
}

func (m *MockStreamingAdapter) Events() <-chan transcriber.Event {
	return m.events
}

func (m *MockStreamingAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.events)
	return nil
}

// Emit pushes an event as if it came from the provider. No-op once closed.
func (m *MockStreamingAdapter) Emit(ev transcriber.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.events <- ev
}

// EmitFinal pushes a final transcript with one word per language tag.
func (m *MockStreamingAdapter) EmitFinal(text string, start, duration float64, langs ...string) {
	words := make([]transcriber.Word, len(langs))
	for i, l := range langs {
		words[i] = transcriber.Word{Text: "w", Language: l, Start: start, End: start + duration}
	}
	m.Emit(transcriber.Event{Kind: transcriber.EventTranscript, Transcript: transcriber.Transcript{
		Text:     text,
		IsFinal:  true,
		Start:    start,
		Duration: duration,
		Words:    words,
	}})
}

// Sent returns a copy of every chunk received.
func (m *MockStreamingAdapter) Sent() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockStreamingAdapter) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockAdapterFactory hands out a fresh MockStreamingAdapter per call and keeps
// every one it created. Configure tweaks each adapter before it is returned.
type MockAdapterFactory struct {
	Configure func(n int, a *MockStreamingAdapter)

	mu       sync.Mutex
	adapters []*MockStreamingAdapter
}

func (f *MockAdapterFactory) New() transcriber.StreamingAdapter {
	a := NewMockStreamingAdapter()
	f.mu.Lock()
	n := len(f.adapters)
	f.adapters = append(f.adapters, a)
	f.mu.Unlock()
	if f.Configure != nil {
		f.Configure(n, a)
	}
	return a
}

// Created returns the adapters handed out so far.
func (f *MockAdapterFactory) Created() []*MockStreamingAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*MockStreamingAdapter, len(f.adapters))
	copy(out, f.adapters)
	return out
}

// Last returns the most recently created adapter, or nil.
func (f *MockAdapterFactory) Last() *MockStreamingAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.adapters) == 0 {
		return nil
	}
	return f.adapters[len(f.adapters)-1]
}
