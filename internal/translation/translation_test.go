package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInstant struct {
	mu    sync.Mutex
	calls int
	err   error
	blank bool
}

func (f *fakeInstant) Translate(ctx context.Context, text, src, tgt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.blank {
		return "  ", nil
	}
	return fmt.Sprintf("%s->%s:%s", src, tgt, text), nil
}

type fakeLLM struct {
	system, user string
	reply        string
	err          error
}

func (f *fakeLLM) Complete(ctx context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

func TestDispatcherInstantSkipsBlankInput(t *testing.T) {
	inst := &fakeInstant{}
	d := NewDispatcher(inst, nil, Options{})

	for _, in := range []string{"", "   ", "\n\t"} {
		out, err := d.Instant(context.Background(), in, "nl", "en")
		require.NoError(t, err)
		assert.Empty(t, out)
	}
	assert.Zero(t, inst.calls)
}

func TestDispatcherInstantCaches(t *testing.T) {
	inst := &fakeInstant{}
	d := NewDispatcher(inst, nil, Options{})

	out, err := d.Instant(context.Background(), "hallo", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "nl->en:hallo", out)

	out, err = d.Instant(context.Background(), "hallo", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "nl->en:hallo", out)
	assert.Equal(t, 1, inst.calls)

	// different pair is a different key
	_, err = d.Instant(context.Background(), "hallo", "nl", "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, inst.calls)
}

func TestDispatcherInstantErrorNotCached(t *testing.T) {
	inst := &fakeInstant{err: statusError("deepl", http.StatusForbidden, "Forbidden")}
	d := NewDispatcher(inst, nil, Options{})

	_, err := d.Instant(context.Background(), "hallo", "nl", "en")
	require.Error(t, err)
	assert.Equal(t, KindInvalidAPIKey, KindOf(err))

	inst.err = nil
	out, err := d.Instant(context.Background(), "hallo", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "nl->en:hallo", out)
	assert.Equal(t, 2, inst.calls)
}

func TestDispatcherInstantEmptyResultIsError(t *testing.T) {
	inst := &fakeInstant{blank: true}
	d := NewDispatcher(inst, nil, Options{InstantProvider: "deepl"})

	out, err := d.Instant(context.Background(), "hallo", "nl", "en")
	require.Error(t, err)
	assert.Empty(t, out)
	assert.ErrorIs(t, err, ErrEmptyTranslation)
	assert.Equal(t, KindProvider, KindOf(err))
	assert.Equal(t, "deepl: empty translation", err.Error())

	// not cached: the next call reaches the provider again
	inst.blank = false
	out, err = d.Instant(context.Background(), "hallo", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "nl->en:hallo", out)
	assert.Equal(t, 2, inst.calls)
}

func TestCacheFIFOEviction(t *testing.T) {
	c := NewCache(2)
	c.Put("nl", "en", "a", "A")
	c.Put("nl", "en", "b", "B")

	// a read does not protect an entry
	_, ok := c.Get("nl", "en", "a")
	require.True(t, ok)

	c.Put("nl", "en", "c", "C")
	assert.Equal(t, 2, c.Len())

	_, ok = c.Get("nl", "en", "a")
	assert.False(t, ok)
	v, ok := c.Get("nl", "en", "c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)

	// overwrite keeps size
	c.Put("nl", "en", "c", "C2")
	assert.Equal(t, 2, c.Len())
	v, _ = c.Get("nl", "en", "c")
	assert.Equal(t, "C2", v)
}

func TestDispatcherPolish(t *testing.T) {
	fl := &fakeLLM{reply: "  Good morning.  "}
	d := NewDispatcher(&fakeInstant{}, fl, Options{LLMProvider: "openai", Keywords: []string{"Acme"}})

	out, err := d.Polish(context.Background(), "goedemorgen", "good morning", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "Good morning.", out)
	assert.Contains(t, fl.system, "Dutch to English")
	assert.Contains(t, fl.system, "Acme")
	assert.Contains(t, fl.user, "goedemorgen")
	assert.Contains(t, fl.user, "good morning")
}

func TestDispatcherPolishBatch(t *testing.T) {
	fl := &fakeLLM{reply: "[SEGMENT_1]a[END_SEGMENT_1]"}
	d := NewDispatcher(&fakeInstant{}, fl, Options{})

	out, err := d.PolishBatch(context.Background(), []string{"x", "y"}, "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "[SEGMENT_1]a[END_SEGMENT_1]", out)
	assert.Contains(t, fl.user, "[SEGMENT_2]\ny\n[END_SEGMENT_2]")
	assert.Contains(t, fl.system, "2 consecutive segments")
}

func TestDispatcherPolishDisabled(t *testing.T) {
	d := NewDispatcher(&fakeInstant{}, nil, Options{})
	assert.False(t, d.CanPolish())

	_, err := d.Polish(context.Background(), "x", "", "nl", "en")
	assert.ErrorIs(t, err, ErrPolishDisabled)
	_, err = d.PolishBatch(context.Background(), []string{"x"}, "nl", "en")
	assert.ErrorIs(t, err, ErrPolishDisabled)
}

func TestClassifyLLMError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
		msg  string
	}{
		{"unauthorized", &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key"}, KindInvalidAPIKey, ""},
		{"forbidden", &openai.RequestError{HTTPStatusCode: 403, Err: errors.New("nope")}, KindInvalidAPIKey, ""},
		{"rate limited", fmt.Errorf("openai chat completion: %w", &openai.APIError{HTTPStatusCode: 429, Message: "Rate limit reached"}), KindProvider, "Rate limit reached"},
		{"transport", fmt.Errorf("wrap: %w", &netTimeout{}), KindNetwork, ""},
		{"deadline", context.DeadlineExceeded, KindNetwork, ""},
		{"other", errors.New("no response choices"), KindProvider, "no response choices"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := classifyLLMError("openai", tc.err)
			assert.Equal(t, tc.want, KindOf(err))
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}
	assert.NoError(t, classifyLLMError("openai", nil))
}

type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

func TestDeepLClient(t *testing.T) {
	var got deeplRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key key:fx", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"translations":[{"detected_source_language":"NL","text":"Good morning"}]}`))
	}))
	defer server.Close()

	c := NewDeepLClient("key:fx", server.URL, time.Second)
	out, err := c.Translate(context.Background(), "Goedemorgen", "nl", "en")
	require.NoError(t, err)
	assert.Equal(t, "Good morning", out)
	assert.Equal(t, []string{"Goedemorgen"}, got.Text)
	assert.Equal(t, "NL", got.SourceLang)
	assert.Equal(t, "EN-US", got.TargetLang)
}

func TestDeepLClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
		msg    string
	}{
		{"forbidden", http.StatusForbidden, `{"message":"Wrong endpoint"}`, KindInvalidAPIKey, ""},
		{"quota", 456, `{"message":"Quota exceeded"}`, KindProvider, "Quota exceeded"},
		{"plain body", http.StatusBadRequest, `bad target_lang`, KindProvider, "bad target_lang"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewDeepLClient("key", server.URL, time.Second).Translate(context.Background(), "x", "nl", "en")
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			if tc.msg != "" {
				assert.Contains(t, err.Error(), tc.msg)
			}
		})
	}

	// unreachable host
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()
	_, err := NewDeepLClient("key", url, time.Second).Translate(context.Background(), "x", "nl", "en")
	assert.Equal(t, KindNetwork, KindOf(err))
}
