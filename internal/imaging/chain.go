package imaging

import (
	"context"
	"errors"
	"time"

	"github.com/pageza/mealplanner/backend/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Strategy selects how images are produced for a generation request.
type Strategy string

const (
	StrategyStock  Strategy = "stock"
	StrategyAI     Strategy = "ai"
	StrategyHybrid Strategy = "hybrid"
)

// ParseStrategy returns the strategy named by s, or fallback.
func ParseStrategy(s string, fallback Strategy) Strategy {
	switch Strategy(s) {
	case StrategyStock, StrategyAI, StrategyHybrid:
		return Strategy(s)
	}
	return fallback
}

// ErrNoAIProvider is returned by ResolveAI when no AI provider is set.
var ErrNoAIProvider = errors.New("no AI image provider configured")

// ProviderPlaceholder names the last resort in a Result.
const ProviderPlaceholder = "placeholder"

// Result is the outcome of one resolution.
type Result struct {
	URL      string
	Provider string
}

// IsPlaceholder reports whether every real provider failed.
func (r Result) IsPlaceholder() bool {
	return r.Provider == ProviderPlaceholder
}

// Chain tries stock providers in order, optionally led by an AI provider,
// and falls back to a placeholder.
type Chain struct {
	stock   []Provider
	ai      []Provider
	stagger time.Duration
	logger  *zap.Logger
}

// NewChain builds a chain. Nil providers are skipped so optional ones can
// be passed straight from their constructors.
func NewChain(logger *zap.Logger, ai Provider, stock ...Provider) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chain{logger: logger}
	if !isNil(ai) {
		c.ai = append(c.ai, ai)
	}
	for _, p := range stock {
		if !isNil(p) {
			c.stock = append(c.stock, p)
		}
	}
	return c
}

// WithAIFallback adds an AI provider tried after the existing ones. A nil
// provider is ignored.
func (c *Chain) WithAIFallback(p Provider) *Chain {
	if !isNil(p) {
		c.ai = append(c.ai, p)
	}
	return c
}

// WithStagger spaces the start of batch resolutions by d.
func (c *Chain) WithStagger(d time.Duration) *Chain {
	c.stagger = d
	return c
}

// HasAI reports whether an AI image provider is configured.
func (c *Chain) HasAI() bool {
	return len(c.ai) > 0
}

func (c *Chain) providers(strategy Strategy) []Provider {
	if strategy == StrategyAI && len(c.ai) > 0 {
		return append(append([]Provider{}, c.ai...), c.stock...)
	}
	return c.stock
}

// Resolve returns an image for q. It never fails: when no provider
// produces a URL the deterministic placeholder for q.Name is returned.
func (c *Chain) Resolve(ctx context.Context, q Query, strategy Strategy) Result {
	for _, p := range c.providers(strategy) {
		if ctx.Err() != nil {
			break
		}
		url, err := p.Resolve(ctx, q)
		if err == nil && isHTTPURL(url) {
			metrics.ObserveImageResolution(p.Name())
			return Result{URL: url, Provider: p.Name()}
		}
		c.logger.Debug("Image provider failed",
			zap.String("provider", p.Name()),
			zap.String("recipe", q.Name),
			zap.Error(err))
	}

	metrics.ObserveImageResolution(ProviderPlaceholder)
	return Result{URL: Placeholder(q.Name), Provider: ProviderPlaceholder}
}

// ResolveAI runs only the AI providers, in order. It errors when none is
// configured or none produced an image.
func (c *Chain) ResolveAI(ctx context.Context, q Query) (string, error) {
	if len(c.ai) == 0 {
		return "", ErrNoAIProvider
	}
	var lastErr error
	for _, p := range c.ai {
		url, err := p.Resolve(ctx, q)
		if err == nil && !isHTTPURL(url) {
			err = ErrNoCandidates
		}
		if err == nil {
			metrics.ObserveImageResolution(p.Name())
			return url, nil
		}
		lastErr = err
		c.logger.Debug("AI image provider failed",
			zap.String("provider", p.Name()),
			zap.String("recipe", q.Name),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// ResolveBatch resolves every query concurrently. Results keep the input
// order and a failure in one never affects the others.
func (c *Chain) ResolveBatch(ctx context.Context, qs []Query, strategy Strategy) []Result {
	results := make([]Result, len(qs))

	var limiter *rate.Limiter
	if c.stagger > 0 {
		limiter = rate.NewLimiter(rate.Every(c.stagger), 1)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range qs {
		g.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(gctx); err != nil {
					results[i] = Result{URL: Placeholder(q.Name), Provider: ProviderPlaceholder}
					return nil
				}
			}
			results[i] = c.Resolve(gctx, q, strategy)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func isNil(p Provider) bool {
	if p == nil {
		return true
	}
	switch v := p.(type) {
	case *Unsplash:
		return v == nil
	case *Pexels:
		return v == nil
	case *Foodish:
		return v == nil
	case *Replicate:
		return v == nil
	case *OpenAIImages:
		return v == nil
	}
	return false
}
