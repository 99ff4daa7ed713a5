package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// Utterance is one speaker turn returned by a whole-file transcription
type Utterance struct {
	Start      float64
	End        float64
	Transcript string
	Confidence float64
	Words      []Word
}

// LanguageTags returns the per-word language tags of the utterance.
func (u Utterance) LanguageTags() []string {
	tags := make([]string, 0, len(u.Words))
	for _, w := range u.Words {
		if w.Language != "" {
			tags = append(tags, w.Language)
		}
	}
	return tags
}

// BatchAdapter transcribes a complete audio file in one request
type BatchAdapter interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) ([]Utterance, error)
}

// DeepgramBatchAdapter implements BatchAdapter for Deepgram pre-recorded transcription
type DeepgramBatchAdapter struct {
	endpoint *provider.EndpointConfig
	apiKey   string
	model    string
	language string
	keywords []string
	client   *http.Client
}

// deepgramBatchResponse is the response from the pre-recorded API
type deepgramBatchResponse struct {
	Results *deepgramBatchResults `json:"results,omitempty"`
	Error   *deepgramError        `json:"error,omitempty"`
	ErrMsg  string                `json:"err_msg,omitempty"`
}

type deepgramBatchResults struct {
	Channels   []deepgramBatchChannel `json:"channels,omitempty"`
	Utterances []deepgramUtterance    `json:"utterances,omitempty"`
}

type deepgramBatchChannel struct {
	Alternatives []deepgramAlternative `json:"alternatives,omitempty"`
}

type deepgramUtterance struct {
	Start      float64        `json:"start"`
	End        float64        `json:"end"`
	Transcript string         `json:"transcript"`
	Confidence float64        `json:"confidence"`
	Words      []deepgramWord `json:"words,omitempty"`
}

// NewDeepgramBatchAdapter creates a new batch adapter for Deepgram
func NewDeepgramBatchAdapter(endpoint *provider.EndpointConfig, apiKey, model, lang string, keywords []string) *DeepgramBatchAdapter {
	return &DeepgramBatchAdapter{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		language: lang,
		keywords: keywords,
		client:   http.DefaultClient,
	}
}

// Transcribe sends audio to Deepgram's pre-recorded API and returns utterances
// in time order. Raw PCM (audio/pcm, audio/L16) is wrapped as WAV first.
func (a *DeepgramBatchAdapter) Transcribe(ctx context.Context, audio []byte, contentType string) ([]Utterance, error) {
	if len(audio) == 0 {
		return nil, nil
	}

	body := audio
	if f, ok := parseRawPCM(contentType); ok {
		body = pcmToWAV(audio, f)
		contentType = "audio/wav"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	apiURL, err := a.buildURL()
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+a.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, fmt.Errorf("deepgram api error (status %d): %s", resp.StatusCode, string(raw)))
	}

	var result deepgramBatchResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("deepgram error: %s", result.Error.Message)
	}
	if result.ErrMsg != "" {
		return nil, fmt.Errorf("deepgram error: %s", result.ErrMsg)
	}
	if result.Results == nil {
		return nil, nil
	}

	if len(result.Results.Utterances) > 0 {
		out := make([]Utterance, 0, len(result.Results.Utterances))
		for _, u := range result.Results.Utterances {
			if strings.TrimSpace(u.Transcript) == "" {
				continue
			}
			out = append(out, Utterance{
				Start:      u.Start,
				End:        u.End,
				Transcript: u.Transcript,
				Confidence: u.Confidence,
				Words:      toWords(u.Words),
			})
		}
		return out, nil
	}

	// no utterances: fall back to the whole-channel transcript
	if len(result.Results.Channels) == 0 || len(result.Results.Channels[0].Alternatives) == 0 {
		return nil, nil
	}
	alt := result.Results.Channels[0].Alternatives[0]
	if strings.TrimSpace(alt.Transcript) == "" {
		return nil, nil
	}
	u := Utterance{Transcript: alt.Transcript, Confidence: alt.Confidence, Words: toWords(alt.Words)}
	if n := len(alt.Words); n > 0 {
		u.Start = alt.Words[0].Start
		u.End = alt.Words[n-1].End
	}
	return []Utterance{u}, nil
}

// buildURL constructs the API URL with query parameters
func (a *DeepgramBatchAdapter) buildURL() (string, error) {
	u, err := url.Parse(a.endpoint.URL())
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := u.Query()
	q.Set("model", a.model)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("utterances", "true")

	if lang := normalizeDeepgramLanguage(a.language); lang != "" {
		q.Set("language", lang)
	}

	// nova-3 uses "keyterm" (singular), others use "keywords" (plural)
	if len(a.keywords) > 0 && !strings.HasPrefix(a.model, "nova-3") {
		q.Set("keywords", strings.Join(a.keywords, ","))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

func toWords(in []deepgramWord) []Word {
	if len(in) == 0 {
		return nil
	}
	out := make([]Word, len(in))
	for i, w := range in {
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		out[i] = Word{Text: text, Language: w.Language, Start: w.Start, End: w.End, Confidence: w.Confidence}
	}
	return out
}
