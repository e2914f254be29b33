package imaging

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

	"github.com/pageza/mealplanner/backend/internal/prompt"
)

const (
	openAIImagesBaseURL = "https://api.openai.com/v1"
	openAIImageSize     = "512x512"
)

// OpenAIImages generates images with the OpenAI images endpoint.
type OpenAIImages struct {
	apiKey  string
	baseURL string
	size    string
	client  *http.Client
	store   ObjectStore
	logger  *zap.Logger
}

// NewOpenAIImages returns nil when no key is configured.
func NewOpenAIImages(apiKey string, store ObjectStore, logger *zap.Logger) *OpenAIImages {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIImages{
		apiKey:  apiKey,
		baseURL: openAIImagesBaseURL,
		size:    openAIImageSize,
		client:  &http.Client{Timeout: 60 * time.Second},
		store:   store,
		logger:  logger,
	}
}

// WithBaseURL points the provider at another host.
func (o *OpenAIImages) WithBaseURL(base string) *OpenAIImages {
	o.baseURL = strings.TrimRight(base, "/")
	return o
}

func (o *OpenAIImages) Name() string { return "openai" }

type imageGenerationRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageGenerationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (o *OpenAIImages) Resolve(ctx context.Context, q Query) (string, error) {
	body, err := json.Marshal(imageGenerationRequest{
		Prompt: prompt.RecipeImage(q.Name),
		N:      1,
		Size:   o.size,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image generation failed with status %d", resp.StatusCode)
	}

	var out imageGenerationResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Data) == 0 || !isHTTPURL(out.Data[0].URL) {
		return "", ErrNoCandidates
	}
	imageURL := out.Data[0].URL

	if o.store == nil {
		return imageURL, nil
	}
	hosted, err := rehost(ctx, o.client, o.store, imageURL)
	if err != nil {
		o.logger.Warn("Failed to rehost generated image, keeping provider URL",
			zap.String("recipe", q.Name), zap.Error(err))
		return imageURL, nil
	}
	return hosted, nil
}
