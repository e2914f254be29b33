package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/api"
	"github.com/pageza/mealplanner/backend/internal/metrics"
	"github.com/pageza/mealplanner/backend/internal/middleware"
	"github.com/pageza/mealplanner/backend/internal/service"
)

// Auth both issues and validates tokens.
type Auth interface {
	api.Authenticator
	middleware.TokenValidator
}

// Dependencies are the services the routes are built from.
type Dependencies struct {
	Logger      *zap.Logger
	FrontendURL string
	Production  bool

	Auth      Auth
	Profiles  api.ProfileStore
	Recipes   api.RecipeStore
	MealPlans api.MealPlanStore
	Notifier  service.Notifier
	// RateLimiter guards the generation endpoints. Nil disables limiting.
	RateLimiter  *middleware.RateLimiter
	HealthChecks map[string]api.Pinger
}

// SetupRouter configures the application routes
func SetupRouter(deps Dependencies) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(metrics.Middleware())
	router.Use(middleware.CORS(deps.FrontendURL, deps.Production))

	router.GET("/health", api.NewHealthHandler(deps.HealthChecks).Health)
	router.GET("/metrics", metrics.Handler())

	// API v1 routes
	v1 := router.Group("/api/v1")
	api.NewAuthHandler(deps.Auth, logger).RegisterRoutes(v1)

	// Protected routes
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Auth))

	var guards []gin.HandlerFunc
	if deps.RateLimiter != nil {
		guards = append(guards, deps.RateLimiter.RateLimitMiddleware())
	}

	api.NewProfileHandler(deps.Profiles, logger).RegisterRoutes(protected)
	api.NewRecipeHandler(deps.Recipes, deps.Notifier, logger).RegisterRoutes(protected, guards...)
	api.NewMealPlanHandler(deps.MealPlans, logger).RegisterRoutes(protected, guards...)

	return router
}
