package llm

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

	"github.com/paaalop/news-analyzer/internal/config"
	"github.com/paaalop/news-analyzer/internal/domain"
	"github.com/paaalop/news-analyzer/internal/ports"
)

const defaultTimeout = 2 * time.Minute

// ChatGPTClient implements ports.LanguageModel backed by OpenAI-compatible chat APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	temperature  float64
	httpClient   *http.Client
}

var _ ports.LanguageModel = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		temperature:  cfg.SamplingTemperature(),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// Summarize condenses the given summaries into at most MaxSentences sentences.
func (c *ChatGPTClient) Summarize(ctx context.Context, req ports.SummarizeRequest) (string, error) {
	return c.complete(ctx, c.systemPrompt, summarizePrompt(req), c.temperature)
}

// Classify asks whether two summaries cover the same topic. The raw answer is returned.
func (c *ChatGPTClient) Classify(ctx context.Context, req ports.ClassifyRequest) (string, error) {
	return c.complete(ctx, classifySystemPrompt, classifyPrompt(req), 0)
}

// Reduce merges ordered topic blocks into the final numbered digest.
func (c *ChatGPTClient) Reduce(ctx context.Context, req ports.ReduceRequest) (string, error) {
	return c.complete(ctx, c.systemPrompt, reducePrompt(req), c.temperature)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *ChatGPTClient) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	if c == nil {
		return "", fmt.Errorf("%w: chatgpt client is nil", domain.ErrCapability)
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("%w: chatgpt client misconfigured", domain.ErrCapability)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(system)},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrCapability, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: chatgpt error %s: %s", domain.ErrCapability, resp.Status, strings.TrimSpace(string(payload)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode chat completion: %v", domain.ErrCapability, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: %v", domain.ErrCapability, errors.New("chat completion has no choices"))
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "너는 훌륭한 IT 뉴스 요약가야."
	}
	return prompt
}
