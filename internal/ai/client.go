// Package ai talks to OpenAI-compatible chat-completion providers.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/metrics"
)

// Provider describes an OpenAI-compatible endpoint.
type Provider struct {
	Name         string
	BaseURL      string
	DefaultModel string
}

// Providers are the supported chat-completion backends keyed by name.
var Providers = map[string]Provider{
	"openai": {Name: "openai", BaseURL: "https://api.openai.com/v1", DefaultModel: "gpt-3.5-turbo"},
	"groq":   {Name: "groq", BaseURL: "https://api.groq.com/openai/v1", DefaultModel: "llama-3.3-70b-versatile"},
}

// Config selects the provider and credentials.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	Timeout time.Duration
}

// Message is a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the request body of /chat/completions.
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// ChatCompletionResponse is the subset of the provider reply we read.
type ChatCompletionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// TextGenerator is the text half of the client.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string, opts ...Option) (string, error)
}

var _ TextGenerator = (*Client)(nil)

// Client sends prompts to the configured provider.
type Client struct {
	provider Provider
	apiKey   string
	model    string
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
}

// NewClient creates a client for cfg.Provider.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	provider, ok := Providers[strings.ToLower(cfg.Provider)]
	if !ok {
		return nil, fmt.Errorf("unsupported AI provider %q", cfg.Provider)
	}

	model := cfg.Model
	if model == "" {
		model = provider.DefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = provider.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		provider: provider,
		apiKey:   cfg.APIKey,
		model:    model,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(zap.String("provider", provider.Name)),
	}, nil
}

// Provider returns the name of the active provider.
func (c *Client) Provider() string {
	return c.provider.Name
}

type requestOptions struct {
	model       string
	temperature *float64
	maxTokens   int
}

// Option tunes a single request.
type Option func(*requestOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *requestOptions) { o.temperature = &t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *requestOptions) { o.maxTokens = n }
}

// GenerateText returns the first completion for prompt.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts ...Option) (string, error) {
	o := requestOptions{model: c.model}
	for _, opt := range opts {
		opt(&o)
	}

	reqBody := ChatCompletionRequest{
		Model:       o.model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveAIRequest(c.provider.Name, "transport_error", time.Since(start))
		c.logger.Error("AI request failed", zap.Error(err))
		return "", apperrors.New(apperrors.CodeProviderError, "AI provider unreachable", err.Error()).WithCause(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveAIRequest(c.provider.Name, "read_error", time.Since(start))
		return "", apperrors.New(apperrors.CodeProviderError, "Failed to read AI response", err.Error()).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.ObserveAIRequest(c.provider.Name, fmt.Sprintf("http_%d", resp.StatusCode), time.Since(start))
		c.logger.Warn("AI provider returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 500)))
		return "", mapStatus(resp.StatusCode, body)
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		metrics.ObserveAIRequest(c.provider.Name, "decode_error", time.Since(start))
		return "", apperrors.New(apperrors.CodeProviderError, "Unexpected AI response envelope", err.Error()).WithCause(err)
	}
	if len(result.Choices) == 0 {
		metrics.ObserveAIRequest(c.provider.Name, "empty", time.Since(start))
		return "", apperrors.New(apperrors.CodeProviderError, "AI response contained no choices", "")
	}

	metrics.ObserveAIRequest(c.provider.Name, "ok", time.Since(start))
	c.logger.Debug("AI completion received", zap.Duration("elapsed", time.Since(start)), zap.Int("length", len(result.Choices[0].Message.Content)))
	return result.Choices[0].Message.Content, nil
}

// GenerateJSON returns the completion for prompt parsed as a JSON object.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, opts ...Option) (map[string]interface{}, error) {
	text, err := c.GenerateText(ctx, prompt, opts...)
	if err != nil {
		return nil, err
	}
	return ParseJSON(text)
}

// ParseJSON strips incidental code fences and decodes a JSON object.
func ParseJSON(text string) (map[string]interface{}, error) {
	cleaned := StripCodeFences(text)

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, apperrors.New(apperrors.CodeMalformedResponse, "AI response is not valid JSON", err.Error()).
			WithCause(err).
			WithMetadata("excerpt", truncate(cleaned, 200))
	}
	return out, nil
}

// StripCodeFences removes a leading ``` or ```json marker and a trailing ```.
func StripCodeFences(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "json"), "JSON")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mapStatus(status int, body []byte) error {
	var parsed errorResponse
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Error.Message
	if message == "" {
		message = truncate(strings.TrimSpace(string(body)), 300)
	}

	switch status {
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.CodeRateLimited, "AI provider rate limit reached", message).WithMetadata("status", status)
	case http.StatusUnauthorized:
		// The caller's session is fine; our provider key is not.
		return apperrors.New(apperrors.CodeUnauthorized, "AI provider rejected the credentials", message).
			WithMetadata("status", status).
			WithStatus(http.StatusBadGateway)
	case http.StatusBadRequest:
		return apperrors.New(apperrors.CodeBadRequest, "AI provider rejected the request", message).WithMetadata("status", status)
	default:
		return apperrors.New(apperrors.CodeProviderError, fmt.Sprintf("AI provider returned status %d", status), message).WithMetadata("status", status)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
