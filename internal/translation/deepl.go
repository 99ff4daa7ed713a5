package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/language"
	"github.com/leonardotrapani/hyprlingo/internal/provider"
)

// Instant is a low-latency text translator
type Instant interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// DeepLClient implements Instant over the DeepL v2 REST API
type DeepLClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

type deeplRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type deeplResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

type deeplErrorBody struct {
	Message string `json:"message"`
}

// NewDeepLClient creates a DeepL client. An empty baseURL picks the free or
// pro host from the key.
func NewDeepLClient(apiKey, baseURL string, timeout time.Duration) *DeepLClient {
	endpoint := provider.DeepLEndpoint(apiKey)
	if baseURL != "" {
		endpoint = &provider.EndpointConfig{BaseURL: strings.TrimRight(baseURL, "/"), Path: endpoint.Path}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DeepLClient{
		apiKey:   apiKey,
		endpoint: endpoint.URL(),
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *DeepLClient) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	body, err := json.Marshal(deeplRequest{
		Text:       []string{text},
		SourceLang: language.ToProviderFormat(sourceLang, provider.ProviderDeepL, false),
		TargetLang: language.ToProviderFormat(targetLang, provider.ProviderDeepL, true),
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", networkError(provider.ProviderDeepL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(provider.ProviderDeepL, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		var eb deeplErrorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", statusError(provider.ProviderDeepL, resp.StatusCode, msg)
	}

	var out deeplResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &Error{Kind: KindProvider, Provider: provider.ProviderDeepL, Message: "malformed response", Err: err}
	}
	if len(out.Translations) == 0 {
		return "", &Error{Kind: KindProvider, Provider: provider.ProviderDeepL, Message: "empty response"}
	}
	return out.Translations[0].Text, nil
}
