package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/config"
	"github.com/pageza/mealplanner/backend/internal/ai"
	"github.com/pageza/mealplanner/backend/internal/api"
	"github.com/pageza/mealplanner/backend/internal/database"
	"github.com/pageza/mealplanner/backend/internal/imaging"
	"github.com/pageza/mealplanner/backend/internal/logger"
	"github.com/pageza/mealplanner/backend/internal/middleware"
	"github.com/pageza/mealplanner/backend/internal/router"
	"github.com/pageza/mealplanner/backend/internal/server"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Development: cfg.Environment.IsDevelopment(),
	})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := middleware.RegisterValidators(); err != nil {
		return err
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, log); err != nil {
		return err
	}

	// Redis is optional: without it the rate limiter and the candidate
	// cache are disabled.
	rdb, err := database.NewRedisClient(cfg, log)
	if err != nil {
		log.Warn("Redis unavailable, continuing without it", zap.Error(err))
	}

	images, err := buildImageChain(ctx, cfg, rdb, log)
	if err != nil {
		return err
	}

	aiClient, err := ai.NewClient(ai.Config{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey(),
		Model:    cfg.AI.Model(),
		Timeout:  cfg.AI.Timeout,
	}, log)
	if err != nil {
		return err
	}
	log.Info("AI client ready", zap.String("provider", aiClient.Provider()))

	pool := worker.NewPool(worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		QueueSize:   cfg.Worker.QueueSize,
		TaskTimeout: cfg.Worker.TaskTimeout,
	}, log)

	email := service.NewEmailService(cfg.SMTP, cfg.FrontendURL, log)
	authService := service.NewAuthService(db, cfg.JWTSecret)
	recipes := service.NewRecipeService(db, aiClient, images, pool, log,
		service.WithDefaultStrategy(imaging.ParseStrategy(cfg.Images.Strategy, imaging.StrategyStock)),
		service.WithImageTaskDelay(cfg.Images.TaskDelay),
		service.WithNotifier(email),
	)
	plans := service.NewMealPlanService(db, aiClient, images, log)

	deps := router.Dependencies{
		Logger:      log,
		FrontendURL: cfg.FrontendURL,
		Production:  cfg.Environment.IsProduction(),
		Auth:        authService,
		Profiles:    service.NewProfileService(db),
		Recipes:     recipes,
		MealPlans:   plans,
		Notifier:    email,
		HealthChecks: map[string]api.Pinger{
			"database": api.PingFunc(func(ctx context.Context) error { return database.HealthCheck(ctx, db) }),
		},
	}
	if rdb != nil {
		deps.HealthChecks["redis"] = api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		if cfg.GenerationRateLimit > 0 {
			deps.RateLimiter = middleware.NewGenerationRateLimiter(rdb, cfg.GenerationRateLimit, log)
		}
	}

	hooks := []server.ShutdownFunc{
		pool.Shutdown,
		func(context.Context) error { return database.Close(db) },
	}
	if rdb != nil {
		hooks = append(hooks, func(context.Context) error { return rdb.Close() })
	}

	srv := server.New(cfg.ServerHost, cfg.ServerPort, router.SetupRouter(deps), log, hooks...)
	return srv.Run(ctx)
}

// buildImageChain wires the providers that have credentials. Stock order is
// Unsplash, Pexels, Foodish; AI images come from Replicate, then OpenAI.
func buildImageChain(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (*imaging.Chain, error) {
	var cache imaging.CandidateCache
	if rdb != nil {
		cache = imaging.NewRedisCandidateCache(rdb, cfg.Images.CacheTTL)
	}

	s3cfg, err := config.NewS3Config(ctx, cfg)
	if err != nil {
		return nil, err
	}
	var store imaging.ObjectStore
	if s3 := imaging.NewS3Store(s3cfg); s3 != nil {
		store = s3
	}

	chain := imaging.NewChain(log,
		imaging.NewReplicate(cfg.Images.ReplicateToken, cfg.Images.ReplicateVersion, store, log),
		imaging.NewUnsplash(cfg.Images.UnsplashKey, cache),
		imaging.NewPexels(cfg.Images.PexelsKey, cache),
		imaging.NewFoodish(),
	).WithAIFallback(imaging.NewOpenAIImages(cfg.AI.OpenAIKey, store, log)).
		WithStagger(cfg.Images.StaggerDelay)

	log.Info("Image chain ready",
		zap.String("strategy", cfg.Images.Strategy),
		zap.Bool("ai", chain.HasAI()),
		zap.Bool("cache", cache != nil),
		zap.Bool("rehost", store != nil))
	return chain, nil
}
