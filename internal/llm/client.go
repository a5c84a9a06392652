// ABOUTME: LLM text-generation client used for weight inference and classification
// ABOUTME: Wraps go-openai with retries, rate limiting, and bounded timeouts
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hypelens/hypelens/internal/ratelimit"
	"github.com/hypelens/hypelens/internal/util"
)

// DefaultChatModel is the default model for chat completions.
const DefaultChatModel = "gpt-4o-mini"

// Generator produces text from a prompt. The weight analyzer,
// classifier, and conversational interface all consume this interface
// so tests can substitute a canned implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ClientConfig holds configuration for the OpenAI-backed generator.
type ClientConfig struct {
	APIKey     string
	ChatModel  string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	Limiter    *ratelimit.Limiter
}

// Client implements Generator on top of the OpenAI chat API.
type Client struct {
	api        *openai.Client
	chatModel  string
	maxRetries int
	retryDelay time.Duration
	timeout    time.Duration
	limiter    *ratelimit.Limiter
}

// NewClient creates a generator client. The API key is required; a
// missing key is a configuration error surfaced at startup, not on
// the first request.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		chatModel:  chatModel,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		timeout:    timeout,
		limiter:    cfg.Limiter,
	}, nil
}

// WithoutRetries returns a client that shares this client's API
// handle and rate limiter but gives up after a single attempt. Weight
// analysis and intent parsing on the query path use it so a failing
// LLM degrades to the keyword fallback immediately instead of backing
// off through retries first.
func (c *Client) WithoutRetries() *Client {
	clone := *c
	clone.maxRetries = 0
	return &clone
}

// Generate sends the prompt as a single user message and returns the
// completion text. Quota exhaustion is returned unwrapped so callers
// can match ratelimit.ErrQuotaExceeded and fail fast.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Acquire(ctx); err != nil {
			return "", err
		}
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.Backoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.complete(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
