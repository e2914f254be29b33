package imaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pageza/mealplanner/backend/internal/prompt"
	"go.uber.org/zap"
)

const (
	replicateBaseURL     = "https://api.replicate.com"
	replicatePollEvery   = 2 * time.Second
	replicateMaxAttempts = 30
	replicateSubmitWait  = 30 * time.Second
	replicatePollWait    = 10 * time.Second
	replicateMaxSide     = 1024
	replicateStyleSuffix = ", professional food photography, high quality, appetizing, well lit, realistic, detailed"
)

// ErrPredictionTimeout is returned when a prediction never settles.
var ErrPredictionTimeout = errors.New("prediction did not finish in time")

// Replicate generates images with a hosted diffusion model.
type Replicate struct {
	token        string
	version      string
	baseURL      string
	client       *http.Client
	store        ObjectStore
	logger       *zap.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration
	maxAttempts  int
	width        int
	height       int
}

// NewReplicate returns nil when no token is configured.
func NewReplicate(token, version string, store ObjectStore, logger *zap.Logger) *Replicate {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicate{
		token:        token,
		version:      version,
		baseURL:      replicateBaseURL,
		client:       &http.Client{Timeout: replicateSubmitWait},
		store:        store,
		logger:       logger,
		pollInterval: replicatePollEvery,
		pollTimeout:  replicatePollWait,
		maxAttempts:  replicateMaxAttempts,
		width:        512,
		height:       512,
	}
}

// WithBaseURL points the provider at another host.
func (r *Replicate) WithBaseURL(base string) *Replicate {
	r.baseURL = strings.TrimRight(base, "/")
	return r
}

// WithPolling overrides the poll interval and attempt budget.
func (r *Replicate) WithPolling(interval time.Duration, attempts int) *Replicate {
	r.pollInterval = interval
	r.maxAttempts = attempts
	return r
}

// WithPollTimeout bounds each status request.
func (r *Replicate) WithPollTimeout(d time.Duration) *Replicate {
	r.pollTimeout = d
	return r
}

func (r *Replicate) Name() string { return "replicate" }

type predictionInput struct {
	Prompt            string  `json:"prompt"`
	Width             int     `json:"width"`
	Height            int     `json:"height"`
	NumOutputs        int     `json:"num_outputs"`
	GuidanceScale     float64 `json:"guidance_scale"`
	NumInferenceSteps int     `json:"num_inference_steps"`
}

type predictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  interface{}     `json:"error"`
}

func (r *Replicate) Resolve(ctx context.Context, q Query) (string, error) {
	p, err := r.submit(ctx, prompt.RecipeImage(q.Name))
	if err != nil {
		return "", err
	}

	imageURL, err := r.wait(ctx, p.ID)
	if err != nil {
		return "", err
	}

	if r.store == nil {
		return imageURL, nil
	}
	hosted, err := rehost(ctx, r.client, r.store, imageURL)
	if err != nil {
		r.logger.Warn("Failed to rehost generated image, keeping provider URL",
			zap.String("recipe", q.Name), zap.Error(err))
		return imageURL, nil
	}
	return hosted, nil
}

func (r *Replicate) submit(ctx context.Context, text string) (*prediction, error) {
	body, err := json.Marshal(predictionRequest{
		Version: r.version,
		Input: predictionInput{
			Prompt:            text + replicateStyleSuffix,
			Width:             min(r.width, replicateMaxSide),
			Height:            min(r.height, replicateMaxSide),
			NumOutputs:        1,
			GuidanceScale:     7.5,
			NumInferenceSteps: 25,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, replicateSubmitWait)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var p prediction
	if err := r.do(req, &p, http.StatusOK, http.StatusCreated); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("prediction response without id")
	}
	return &p, nil
}

func (r *Replicate) wait(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		p, err := r.poll(ctx, id)
		if err != nil {
			return "", err
		}

		switch p.Status {
		case "succeeded":
			return firstOutput(p.Output)
		case "failed", "canceled":
			return "", fmt.Errorf("prediction %s: %v", p.Status, p.Error)
		}
	}
	return "", ErrPredictionTimeout
}

func (r *Replicate) poll(ctx context.Context, id string) (*prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.pollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/v1/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var p prediction
	if err := r.do(req, &p, http.StatusOK); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Replicate) do(req *http.Request, out interface{}, accepted ...int) error {
	req.Header.Set("Authorization", "Token "+r.token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	ok := false
	for _, status := range accepted {
		if resp.StatusCode == status {
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("replicate request failed with status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// firstOutput accepts either a list of URLs or a single URL.
func firstOutput(raw json.RawMessage) (string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 && isHTTPURL(list[0]) {
		return list[0], nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && isHTTPURL(single) {
		return single, nil
	}
	return "", ErrNoCandidates
}
