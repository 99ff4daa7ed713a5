package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPolishSystemPrompt(t *testing.T) {
	p := BuildPolishSystemPrompt("nl", "en", nil)
	assert.Contains(t, p, "from Dutch to English")
	assert.Contains(t, p, "Output ONLY the English translation")
	assert.NotContains(t, p, "Glossary")

	p = BuildPolishSystemPrompt("fr", "de", []string{"Kubernetes", "hyprlingo"})
	assert.Contains(t, p, "Glossary")
	assert.Contains(t, p, "Kubernetes, hyprlingo")
}

func TestBuildPolishUserPrompt(t *testing.T) {
	assert.Equal(t, "hallo", BuildPolishUserPrompt("hallo", ""))
	assert.Equal(t, "Source:\nhallo\n\nDraft translation (improve it):\nhello", BuildPolishUserPrompt("hallo", "hello"))
}

func TestBuildBatchPrompts(t *testing.T) {
	sys := BuildBatchSystemPrompt("nl", "en", 3, nil)
	assert.Contains(t, sys, "3 consecutive segments")
	assert.Contains(t, sys, "[SEGMENT_n]")
	assert.Contains(t, sys, "consistent terminology")

	user := BuildBatchUserPrompt([]string{"een", "twee"})
	assert.Equal(t, "[SEGMENT_1]\neen\n[END_SEGMENT_1]\n\n[SEGMENT_2]\ntwee\n[END_SEGMENT_2]", user)
}

func TestParseBatchResponse(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  map[int]string
	}{
		{
			name:  "well formed",
			reply: "[SEGMENT_1]a[END_SEGMENT_1]\n\n[SEGMENT_2]b[END_SEGMENT_2]",
			want:  map[int]string{0: "a", 1: "b"},
		},
		{
			name:  "surrounding whitespace and chatter",
			reply: "Sure! Here you go:\n  [SEGMENT_1]\n  a \n[END_SEGMENT_1]   [SEGMENT_2]\tb\n[END_SEGMENT_2]\nDone.",
			want:  map[int]string{0: "a", 1: "b"},
		},
		{
			name:  "multi-line body",
			reply: "[SEGMENT_1]line one\nline two[END_SEGMENT_1]",
			want:  map[int]string{0: "line one\nline two"},
		},
		{
			name:  "missing segment",
			reply: "[SEGMENT_1]a[END_SEGMENT_1]\n[SEGMENT_3]c[END_SEGMENT_3]",
			want:  map[int]string{0: "a", 2: "c"},
		},
		{
			name:  "mismatched closing marker ignored",
			reply: "[SEGMENT_1]a[END_SEGMENT_2]",
			want:  map[int]string{},
		},
		{
			name:  "duplicate index keeps first",
			reply: "[SEGMENT_1]a[END_SEGMENT_1][SEGMENT_1]z[END_SEGMENT_1]",
			want:  map[int]string{0: "a"},
		},
		{
			name:  "zero index ignored",
			reply: "[SEGMENT_0]x[END_SEGMENT_0]",
			want:  map[int]string{},
		},
		{
			name:  "no markers",
			reply: "just a translation",
			want:  map[int]string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseBatchResponse(tc.reply))
		})
	}
}

func TestParseBatchResponseRoundTrip(t *testing.T) {
	texts := []string{"one", "two", "three"}
	got := ParseBatchResponse(BuildBatchUserPrompt(texts))
	assert.Equal(t, map[int]string{0: "one", 1: "two", 2: "three"}, got)
}

func TestNewAdapter(t *testing.T) {
	adapter, err := NewAdapter(Config{Provider: "openai", APIKey: "sk-test-key", Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIAdapter{}, adapter)

	adapter, err = NewAdapter(Config{Provider: "groq", APIKey: "gsk_test-key"})
	require.NoError(t, err)
	assert.IsType(t, &GroqAdapter{}, adapter)

	_, err = NewAdapter(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewAdapter(Config{Provider: "unsupported", APIKey: "key"})
	assert.Error(t, err)
}

func TestOpenAIAdapterComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "hello"}}},
		})
	}))
	defer server.Close()

	adapter := NewOpenAIAdapter(Config{APIKey: "sk-test", BaseURL: server.URL})
	out, err := adapter.Complete(context.Background(), "sys", "hallo")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "sys", got.Messages[0].Content)
	assert.Equal(t, "hallo", got.Messages[1].Content)
}

func TestGroqAdapterCompleteError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	adapter := NewGroqAdapter(Config{APIKey: "gsk_bad", BaseURL: server.URL})
	_, err := adapter.Complete(context.Background(), "sys", "hallo")
	require.Error(t, err)

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}
