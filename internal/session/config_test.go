package session

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "one-way", cfg: Config{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en"}},
		{name: "two-way", cfg: Config{Mode: store.ModeTwoWay, LanguageA: "nl", LanguageB: "fr"}},
		{name: "unknown mode", cfg: Config{Mode: "both"}, wantErr: true},
		{name: "missing output", cfg: Config{Mode: store.ModeOneWay, InputLanguage: "nl"}, wantErr: true},
		{name: "same languages", cfg: Config{Mode: store.ModeTwoWay, LanguageA: "fr", LanguageB: "fr"}, wantErr: true},
		{name: "invalid code", cfg: Config{Mode: store.ModeOneWay, InputLanguage: "xx", OutputLanguage: "en"}, wantErr: true},
		{name: "polish without interval", cfg: Config{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en", Polish: true}, wantErr: true},
		{name: "polish with interval", cfg: Config{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en", Polish: true, PolishInterval: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequestFromQuery(t *testing.T) {
	q := url.Values{}
	q.Set("mode", "two-way")
	q.Set("languageA", "nl-BE")
	q.Set("languageB", "fr")
	q.Set("polish", "true")

	req, err := RequestFromQuery(q)
	require.NoError(t, err)
	require.NotNil(t, req.Polish)

	base := Config{Mode: store.ModeOneWay, InputLanguage: "nl", OutputLanguage: "en", PolishInterval: time.Minute}
	cfg := req.Apply(base)
	assert.Equal(t, store.ModeTwoWay, cfg.Mode)
	assert.Equal(t, "nl", cfg.LanguageA)
	assert.Equal(t, "fr", cfg.LanguageB)
	assert.True(t, cfg.Polish)
	assert.Equal(t, "en", cfg.OutputLanguage, "unset fields keep the base value")
	assert.NoError(t, cfg.Validate())

	q.Set("polish", "maybe")
	_, err = RequestFromQuery(q)
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)
	deps := Deps{}
	a := New(context.Background(), Config{}, deps, SinkFunc(func(Event) {}))
	b := New(context.Background(), Config{}, deps, SinkFunc(func(Event) {}))

	r.Register(a)
	r.Register(b)
	assert.Equal(t, 2, r.Count())
	assert.Empty(t, r.SessionIDs(), "no audio yet")

	r.Unregister(a.ID())
	assert.Equal(t, 1, r.Count())

	require.NoError(t, r.Shutdown(context.Background()))
	assert.Zero(t, r.Count())
	assert.ErrorIs(t, b.HandleAudio([]byte("x")), ErrClosed)
}
