// Package embedding is the HTTP client for OpenAI-compatible embedding endpoints.
package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/paaalop/news-analyzer/internal/config"
	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
	"github.com/paaalop/news-analyzer/internal/similarity"
	"github.com/paaalop/news-analyzer/internal/textutil"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMaxInputRunes = 8000
)

// Client turns texts into unit vectors. It does not retry; failed items are the caller's to skip.
type Client struct {
	endpoint string
	model    string
	apiKey   string
	maxRunes int
	limiter  *rate.Limiter
	http     *http.Client
}

var _ ports.Embedder = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.EmbeddingConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRunes := cfg.MaxInputRunes
	if maxRunes <= 0 {
		maxRunes = defaultMaxInputRunes
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Client{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		maxRunes: maxRunes,
		limiter:  rate.NewLimiter(limit, 1),
		http:     &http.Client{Timeout: timeout},
	}
}

type embedRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// embedResponse accepts both the OpenAI {"data":[{"embedding":[...]}]} and the
// Ollama {"embedding":[...]} shapes.
type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Embedding []float32 `json:"embedding"`
}

func (r embedResponse) vector() []float32 {
	if len(r.Data) > 0 {
		return r.Data[0].Embedding
	}
	return r.Embedding
}

// Embed returns the L2-normalized vector of text, cut to the configured rune limit.
// Every failure wraps domain.ErrEmbedding.
func (c *Client) Embed(ctx context.Context, text string) (domain.Vector, error) {
	if c == nil || c.endpoint == "" {
		return nil, fmt.Errorf("%w: embedding client misconfigured", domain.ErrEmbedding)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrEmbedding)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	text = textutil.Truncate(text, c.maxRunes)
	payload := embedRequest{Model: c.model, Input: text}
	if isOllama(c.endpoint) {
		payload = embedRequest{Model: c.model, Prompt: text}
	}

	var resp embedResponse
	if err := c.post(ctx, payload, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}

	vec := resp.vector()
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", domain.ErrEmbedding)
	}
	if similarity.Norm(vec) == 0 {
		return nil, fmt.Errorf("%w: zero vector", domain.ErrEmbedding)
	}
	return domain.Vector(similarity.Normalize(vec)), nil
}

func isOllama(endpoint string) bool {
	return strings.HasSuffix(strings.TrimRight(endpoint, "/"), "/api/embeddings")
}

func (c *Client) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty response body")
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
