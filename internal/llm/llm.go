package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/leonardotrapani/hyprlingo/internal/logging"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Adapter sends one system+user prompt pair to a chat model
type Adapter interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config holds LLM adapter configuration
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string // overrides the provider default (tests, proxies)
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
}

// NewAdapter creates an LLM adapter based on the provider
func NewAdapter(cfg Config) (Adapter, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return NewOpenAIAdapter(cfg), nil
	case "groq":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Groq API key required")
		}
		return NewGroqAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// chatClient is the go-openai plumbing shared by the OpenAI-compatible adapters
type chatClient struct {
	name   string
	client *openai.Client
	model  string
	temp   float32
	log    *zap.SugaredLogger
}

func newChatClient(name, defaultBaseURL, defaultModel string, cfg Config) chatClient {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	switch {
	case cfg.BaseURL != "":
		clientConfig.BaseURL = cfg.BaseURL
	case defaultBaseURL != "":
		clientConfig.BaseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	clientConfig.HTTPClient = &http.Client{Timeout: timeout}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 0.3
	}

	return chatClient{
		name:   name,
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		temp:   temp,
		log:    logging.OrNop(cfg.Logger).Named(name),
	}
}

func (c chatClient) complete(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temp,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		c.log.Warnw("chat completion failed", "model", c.model, "duration", duration, "error", err)
		return "", fmt.Errorf("%s chat completion: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s chat completion: no response choices", c.name)
	}

	result := resp.Choices[0].Message.Content
	c.log.Debugw("chat completion", "model", c.model, "duration", duration, "tokens", resp.Usage.TotalTokens)
	return result, nil
}
