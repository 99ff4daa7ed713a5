package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
)

// MockBatchAdapter implements transcriber.BatchAdapter for testing
type MockBatchAdapter struct {
	Utterances []transcriber.Utterance
	Err        error

	mu    sync.Mutex
	calls int
}

func (m *MockBatchAdapter) Transcribe(ctx context.Context, audio []byte, contentType string) ([]transcriber.Utterance, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.Utterances, m.Err
}

func (m *MockBatchAdapter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockInstantTranslator implements translation.Instant. It answers
// "<target>:<text>" unless TranslateFunc is set.
type MockInstantTranslator struct {
	TranslateFunc func(ctx context.Context, text, src, tgt string) (string, error)

	mu    sync.Mutex
	calls int
}

func (m *MockInstantTranslator) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.TranslateFunc != nil {
		return m.TranslateFunc(ctx, text, src, tgt)
	}
	return fmt.Sprintf("%s:%s", tgt, text), nil
}

func (m *MockInstantTranslator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// WaitForCondition waits for a condition to be true or times out
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			t.Fatalf("Condition not met within %v", timeout)
		default:
			if condition() {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}
