// ABOUTME: HTTP client for the CLIP-style embedding service
// ABOUTME: Retries transient failures with backoff, validates returned dimensionality
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hypelens/hypelens/internal/util"
)

// ClientConfig holds configuration for the embedding service client.
type ClientConfig struct {
	BaseURL    string
	Dimensions int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultClientConfig returns sensible defaults for a local embedding
// service.
func DefaultClientConfig(baseURL string, dimensions int) *ClientConfig {
	return &ClientConfig{
		BaseURL:    baseURL,
		Dimensions: dimensions,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryDelay: 2 * time.Second,
	}
}

// Client talks to an embedding model server over HTTP. The server
// exposes /embed/text and /embed/image and returns vectors already
// L2-normalized and truncated to the requested dimensionality.
type Client struct {
	baseURL    string
	dimensions int
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewClient creates an embedding service client.
func NewClient(cfg *ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("embedding service URL is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("embedding dimensions must be positive, got %d", cfg.Dimensions)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Dimensions returns the configured output dimensionality.
func (c *Client) Dimensions() int {
	return c.dimensions
}

// WithoutRetries returns a client that shares this client's connection
// pool but gives up after a single attempt. The interactive query path
// uses it: a failing embed service must surface immediately there,
// while ingestion keeps the retrying client.
func (c *Client) WithoutRetries() *Client {
	clone := *c
	clone.maxRetries = 0
	return &clone
}

type textRequest struct {
	Text string `json:"text"`
	Dim  int    `json:"dim"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedText encodes text into a vector of the configured dimensionality.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text to embed cannot be empty")
	}
	body, err := json.Marshal(textRequest{Text: text, Dim: c.dimensions})
	if err != nil {
		return nil, fmt.Errorf("encoding embed request: %w", err)
	}
	return c.post(ctx, "/embed/text", "application/json", body)
}

// EmbedImage encodes image bytes into a vector of the configured
// dimensionality.
func (c *Client) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data cannot be empty")
	}
	return c.post(ctx, fmt.Sprintf("/embed/image?dim=%d", c.dimensions), "image/jpeg", imageData)
}

// post issues the request with retries on transient failures.
func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(util.Backoff(c.retryDelay, attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		vec, err := c.doPost(ctx, path, contentType, body)
		if err == nil {
			return vec, nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}

	return nil, fmt.Errorf("embedding request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) doPost(ctx context.Context, path, contentType string, body []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, snippet)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embedding response: %w", err)
	}
	if len(parsed.Embedding) != c.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dimensions, len(parsed.Embedding))
	}

	return parsed.Embedding, nil
}
