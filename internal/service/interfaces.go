package service

import (
	"context"

	"github.com/pageza/mealplanner/backend/internal/ai"
	"github.com/pageza/mealplanner/backend/internal/imaging"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/worker"
)

// JSONGenerator produces a decoded JSON object from a prompt.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, opts ...ai.Option) (map[string]interface{}, error)
}

// Sampling settings for structured generation. The token cap leaves room
// for five full recipes.
const (
	generationTemperature = 0.7
	generationMaxTokens   = 4000
)

func generationCallOptions() []ai.Option {
	return []ai.Option{ai.WithTemperature(generationTemperature), ai.WithMaxTokens(generationMaxTokens)}
}

// ImageResolver finds display images for recipes.
type ImageResolver interface {
	Resolve(ctx context.Context, q imaging.Query, strategy imaging.Strategy) imaging.Result
	ResolveBatch(ctx context.Context, qs []imaging.Query, strategy imaging.Strategy) []imaging.Result
	ResolveAI(ctx context.Context, q imaging.Query) (string, error)
	HasAI() bool
}

// TaskRunner schedules work that must not block the request.
type TaskRunner interface {
	Submit(name string, fn worker.TaskFunc) error
}

// Notifier delivers generated recipes to their owner.
type Notifier interface {
	SendRecipesEmail(ctx context.Context, to string, recipes []*models.Recipe) error
}

// GenerationOptions tune one generation request.
type GenerationOptions struct {
	GenerateImages bool
	// ImageStrategy is one of stock, ai or hybrid. Empty uses the
	// configured default.
	ImageStrategy string
	Overwrite     bool
}

// DefaultGenerationOptions resolves images with the configured strategy.
func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{GenerateImages: true}
}
