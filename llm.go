package studypath

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completer issues a single prompt to the generation model and returns the
// raw text completion. Implementations must be safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// DefaultModel is used when no model is configured. The gateway speaks the
// OpenAI chat-completions protocol, so any OpenAI-compatible endpoint
// (OpenRouter included) works by pointing BaseURL at it.
const DefaultModel = "openai/gpt-4o-mini"

// DefaultCallTimeout bounds a single generation call.
const DefaultCallTimeout = 30 * time.Second

// LLMClient is the production Completer backed by an OpenAI-compatible API.
type LLMClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// LLMOption configures an LLMClient.
type LLMOption func(*LLMClient)

// WithModel overrides the model identifier sent with each request.
func WithModel(model string) LLMOption {
	return func(c *LLMClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithCallTimeout overrides the per-call timeout.
func WithCallTimeout(d time.Duration) LLMOption {
	return func(c *LLMClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewLLMClient creates a client for the given API key and base URL.
// An empty baseURL targets the OpenAI API directly.
func NewLLMClient(apiKey, baseURL string, opts ...LLMOption) *LLMClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := &LLMClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   DefaultModel,
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends one user message and returns the first choice's content.
func (c *LLMClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:     c.model,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response")
	}

	return resp.Choices[0].Message.Content, nil
}
