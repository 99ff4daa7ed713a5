package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/polish"
	"github.com/leonardotrapani/hyprlingo/internal/session"
	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/leonardotrapani/hyprlingo/internal/transcriber"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBatch struct {
	utterances []transcriber.Utterance
	err        error
}

func (f *fakeBatch) Transcribe(context.Context, []byte, string) ([]transcriber.Utterance, error) {
	return f.utterances, f.err
}

type fakeTranslator struct {
	failOn    string
	canPolish bool
	polishErr error

	mu          sync.Mutex
	polishCalls []string
	batches     int
}

func (f *fakeTranslator) Instant(_ context.Context, text, src, tgt string) (string, error) {
	if f.failOn != "" && text == f.failOn {
		return "", errors.New("deepl unavailable")
	}
	return fmt.Sprintf("%s>%s %s", src, tgt, text), nil
}

func (f *fakeTranslator) Polish(_ context.Context, text, draft, _, _ string) (string, error) {
	f.mu.Lock()
	f.polishCalls = append(f.polishCalls, text+"|"+draft)
	f.mu.Unlock()
	if f.polishErr != nil {
		return "", f.polishErr
	}
	return "polished " + text, nil
}

func (f *fakeTranslator) PolishBatch(_ context.Context, texts []string, _, _ string) (string, error) {
	f.mu.Lock()
	f.batches++
	f.mu.Unlock()
	out := ""
	for i, t := range texts {
		out += fmt.Sprintf("[SEGMENT_%d]\nbatch %s\n[END_SEGMENT_%d]\n", i+1, t, i+1)
	}
	return out, nil
}

func (f *fakeTranslator) CanPolish() bool { return f.canPolish }

func utter(text string, start, end float64, langs ...string) transcriber.Utterance {
	words := make([]transcriber.Word, len(langs))
	for i, l := range langs {
		words[i] = transcriber.Word{Text: "w", Language: l}
	}
	return transcriber.Utterance{Start: start, End: end, Transcript: text, Words: words}
}

func newPipeline(t *testing.T, batch *fakeBatch, tr *fakeTranslator) (*Pipeline, *store.SQLite) {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	coord := polish.NewCoordinator(st, tr, polish.Options{})
	p := New(Deps{
		Store:        st,
		Translator:   tr,
		Polisher:     coord,
		Transcribers: func(session.Config) transcriber.BatchAdapter { return batch },
	})
	return p, st
}

func oneWay(polishOn bool) session.Config {
	return session.Config{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en", Polish: polishOn, PolishInterval: time.Minute}
}

func TestRun_OneWayUpload(t *testing.T) {
	batch := &fakeBatch{utterances: []transcriber.Utterance{
		utter("goedemorgen", 0, 1.5),
		utter("   ", 1.5, 2),
		utter("hoe gaat het", 2, 3.25),
	}}
	p, st := newPipeline(t, batch, &fakeTranslator{})

	var stages []Status
	res, err := p.Run(context.Background(), Request{
		Audio:       []byte("RIFF"),
		ContentType: "audio/wav",
		Config:      oneWay(false),
		Progress:    func(s Status) { stages = append(stages, s) },
	})
	require.NoError(t, err)

	assert.Equal(t, []Status{Transcribing, Translating, Done}, stages)
	assert.Equal(t, store.OriginUpload, res.Session.Origin)
	assert.Equal(t, 2, res.Session.SegmentCount)
	require.NotNil(t, res.Session.Duration)
	assert.InDelta(t, 3.25, *res.Session.Duration, 1e-9)

	require.Len(t, res.Segments, 2)
	assert.Equal(t, "nl>en goedemorgen", *res.Segments[0].RawTranslation)
	assert.Nil(t, res.Segments[0].PolishedTranslation)

	sessions, err := st.ListSessions(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestRun_TwoWayRoutesEachUtterance(t *testing.T) {
	batch := &fakeBatch{utterances: []transcriber.Utterance{
		utter("bonjour", 0, 1, "fr"),
		utter("hallo", 1, 2, "nl", "nl"),
	}}
	p, _ := newPipeline(t, batch, &fakeTranslator{})

	res, err := p.Run(context.Background(), Request{
		Audio:  []byte("x"),
		Config: session.Config{Mode: store.ModeTwoWay, LanguageA: "nl", LanguageB: "fr"},
	})
	require.NoError(t, err)
	require.Len(t, res.Segments, 2)

	assert.Equal(t, store.DirectionBToA, res.Segments[0].Direction)
	assert.Equal(t, "fr>nl bonjour", *res.Segments[0].RawTranslation)
	assert.Equal(t, store.DirectionAToB, res.Segments[1].Direction)
	assert.Equal(t, "nl>fr hallo", *res.Segments[1].RawTranslation)
}

func TestRun_SingleSegmentUsesSinglePolish(t *testing.T) {
	tr := &fakeTranslator{canPolish: true}
	p, _ := newPipeline(t, &fakeBatch{utterances: []transcriber.Utterance{utter("goedemorgen", 0, 1)}}, tr)

	res, err := p.Run(context.Background(), Request{Audio: []byte("x"), Config: oneWay(true)})
	require.NoError(t, err)

	require.Len(t, res.Segments, 1)
	require.NotNil(t, res.Segments[0].PolishedTranslation)
	assert.Equal(t, "polished goedemorgen", *res.Segments[0].PolishedTranslation)
	assert.Equal(t, []string{"goedemorgen|nl>en goedemorgen"}, tr.polishCalls)
	assert.Zero(t, tr.batches)
	assert.Nil(t, res.Polish)
}

func TestRun_ManyUtterancesUseBatchPolish(t *testing.T) {
	tr := &fakeTranslator{canPolish: true}
	batch := &fakeBatch{utterances: []transcriber.Utterance{
		utter("een", 0, 1),
		utter("twee", 1, 2),
	}}
	p, _ := newPipeline(t, batch, tr)

	res, err := p.Run(context.Background(), Request{Audio: []byte("x"), Config: oneWay(true)})
	require.NoError(t, err)

	require.NotNil(t, res.Polish)
	assert.Equal(t, polish.StatusOK, res.Polish.Status)
	assert.Equal(t, 1, tr.batches, "manual trigger ignores the minimum batch size")
	for _, seg := range res.Segments {
		require.NotNil(t, seg.PolishedTranslation)
		assert.Equal(t, "batch "+seg.OriginalText, *seg.PolishedTranslation)
	}
	assert.Equal(t, store.PolishIdle, res.Session.PolishingStatus)
	assert.False(t, res.Session.PolishingLocked)
}

func TestRun_PolishFailureKeepsInstant(t *testing.T) {
	tr := &fakeTranslator{canPolish: true, polishErr: errors.New("llm down")}
	p, _ := newPipeline(t, &fakeBatch{utterances: []transcriber.Utterance{utter("hallo", 0, 1)}}, tr)

	res, err := p.Run(context.Background(), Request{Audio: []byte("x"), Config: oneWay(true)})
	require.NoError(t, err)
	require.Len(t, res.Segments, 1)
	assert.Nil(t, res.Segments[0].PolishedTranslation)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "llm down")
}

func TestRun_PolishSkippedWithoutLLM(t *testing.T) {
	p, _ := newPipeline(t, &fakeBatch{utterances: []transcriber.Utterance{utter("hallo", 0, 1)}}, &fakeTranslator{})

	res, err := p.Run(context.Background(), Request{Audio: []byte("x"), Config: oneWay(true)})
	require.NoError(t, err)
	assert.Contains(t, res.Warnings, "polishing skipped: no LLM configured")
}

func TestRun_PartialTranslationFailure(t *testing.T) {
	batch := &fakeBatch{utterances: []transcriber.Utterance{
		utter("een", 0, 1),
		utter("twee", 1, 2),
	}}
	p, _ := newPipeline(t, batch, &fakeTranslator{failOn: "twee"})

	res, err := p.Run(context.Background(), Request{Audio: []byte("x"), Config: oneWay(false)})
	require.NoError(t, err)
	assert.Len(t, res.Segments, 1)
	assert.Len(t, res.Warnings, 1)
	assert.InDelta(t, 1.0, *res.Session.Duration, 1e-9)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		batch   *fakeBatch
		tr      *fakeTranslator
		req     Request
		wantErr error
	}{
		{
			name:    "empty audio",
			batch:   &fakeBatch{},
			tr:      &fakeTranslator{},
			req:     Request{Config: oneWay(false)},
			wantErr: ErrEmptyAudio,
		},
		{
			name:    "no speech",
			batch:   &fakeBatch{},
			tr:      &fakeTranslator{},
			req:     Request{Audio: []byte("x"), Config: oneWay(false)},
			wantErr: ErrNoSpeech,
		},
		{
			name:  "transcription failure",
			batch: &fakeBatch{err: transcriber.NewFatalTranscriptionError(errors.New("bad key"))},
			tr:    &fakeTranslator{},
			req:   Request{Audio: []byte("x"), Config: oneWay(false)},
		},
		{
			name:  "invalid config",
			batch: &fakeBatch{},
			tr:    &fakeTranslator{},
			req:   Request{Audio: []byte("x"), Config: session.Config{Mode: "both"}},
		},
		{
			name:  "every translation fails",
			batch: &fakeBatch{utterances: []transcriber.Utterance{utter("een", 0, 1)}},
			tr:    &fakeTranslator{failOn: "een"},
			req:   Request{Audio: []byte("x"), Config: oneWay(false)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, st := newPipeline(t, tt.batch, tt.tr)
			_, err := p.Run(context.Background(), tt.req)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}

			sessions, err := st.ListSessions(context.Background(), 0)
			require.NoError(t, err)
			assert.Empty(t, sessions, "failed uploads leave no session behind")
		})
	}
}
