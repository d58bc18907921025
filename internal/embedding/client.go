// Package embedding provides an HTTP client for the embedding sidecar
// service. The service takes raw text and returns a fixed-length vector; when
// it is unreachable the pipeline degrades to storing items without a dedup
// signal rather than losing news.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultTimeout = 10 * time.Second

// ErrUnavailable indicates the embedding service is unreachable.
var ErrUnavailable = errors.New("embedding service unavailable")

// Client is an HTTP client for the embedding service.
type Client struct {
	baseURL   string
	dimension int
	http      *http.Client
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type healthResponse struct {
	ModelVersion string `json:"model_version"`
}

// NewClient creates a new embedding client. dimension > 0 enables response
// length validation.
func NewClient(baseURL string, dimension int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:   baseURL,
		dimension: dimension,
		http:      &http.Client{Timeout: timeout},
	}
}

// Embed sends text to POST /embed and returns the vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding service returned %d", resp.StatusCode)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("embedding service returned empty vector")
	}
	if c.dimension > 0 && len(out.Embedding) != c.dimension {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(out.Embedding), c.dimension)
	}
	return out.Embedding, nil
}

// Health calls GET /health and returns the reported model version.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unhealthy status: %d", resp.StatusCode)
	}

	var out healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil
	}
	return out.ModelVersion, nil
}
