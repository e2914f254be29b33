package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/middleware"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// RecipeStore is the recipe side of the generation service.
type RecipeStore interface {
	GenerateRecipesFromIngredients(ctx context.Context, ingredients []string, userID uuid.UUID, opts service.GenerationOptions) ([]*models.Recipe, error)
	GetAllRecipes(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error)
	GetRecipeByID(ctx context.Context, id, userID uuid.UUID) (*models.Recipe, error)
	GetFavoriteRecipes(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error)
	ToggleFavorite(ctx context.Context, id, userID uuid.UUID) (*models.Recipe, error)
	SaveRecipes(ctx context.Context, userID uuid.UUID, raws []map[string]interface{}) ([]*models.Recipe, error)
	GetGeneratedRecipesByUser(ctx context.Context, userID uuid.UUID, opts service.ListOptions) ([]models.Recipe, int64, error)
	GetRecipesByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]*models.Recipe, error)
}

type RecipeHandler struct {
	recipes  RecipeStore
	notifier service.Notifier
	logger   *zap.Logger
}

func NewRecipeHandler(recipes RecipeStore, notifier service.Notifier, logger *zap.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, notifier: notifier, logger: logger}
}

// RegisterRoutes mounts the recipe routes on an authenticated group.
// generationGuards run in front of the generation endpoint only.
func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup, generationGuards ...gin.HandlerFunc) {
	recipes := router.Group("/recipes")
	{
		recipes.POST("/generate", withGuards(generationGuards, h.GenerateRecipes)...)
		recipes.GET("", h.ListRecipes)
		recipes.POST("", h.SaveRecipes)
		recipes.GET("/generated", h.ListGeneratedRecipes)
		recipes.GET("/favorites", h.ListFavoriteRecipes)
		recipes.POST("/email", h.EmailRecipes)
		recipes.GET("/:id", h.GetRecipe)
		recipes.PATCH("/:id/favorite", h.ToggleFavorite)
	}
}

func (h *RecipeHandler) GenerateRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req types.GenerateRecipesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	opts := service.GenerationOptions{
		GenerateImages: boolOr(req.GenerateImages, true),
		ImageStrategy:  req.ImageStrategy,
	}
	recipes, err := h.recipes.GenerateRecipesFromIngredients(c.Request.Context(), req.Ingredients, userID, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipes, err := h.recipes.GetAllRecipes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) ListGeneratedRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	opts := service.ListOptions{Sort: c.Query("sort")}
	if opts.Limit, err = queryInt(c, "limit"); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if opts.Offset, err = queryInt(c, "offset"); err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipes, total, err := h.recipes.GetGeneratedRecipesByUser(c.Request.Context(), userID, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	applied := opts.Effective()
	c.JSON(http.StatusOK, types.ListResponse{Items: recipes, Total: total, Limit: applied.Limit, Offset: applied.Offset})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewValidationError(name + " must be a non-negative integer")
	}
	return n, nil
}

func (h *RecipeHandler) ListFavoriteRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipes, err := h.recipes.GetFavoriteRecipes(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipe, err := h.recipes.GetRecipeByID(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) ToggleFavorite(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	id, err := uuidParam(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	recipe, err := h.recipes.ToggleFavorite(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (h *RecipeHandler) SaveRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req types.SaveRecipesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	recipes, err := h.recipes.SaveRecipes(c.Request.Context(), userID, req.Recipes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipes": recipes})
}

// EmailRecipes mails stored recipes to the given address, or to the
// account address when none is given.
func (h *RecipeHandler) EmailRecipes(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req types.EmailRecipesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}
	if h.notifier == nil {
		respondError(c, h.logger, apperrors.New(apperrors.CodeInternal, "email delivery is not available", ""))
		return
	}

	address := req.Email
	if address == "" {
		address = c.GetString(middleware.ContextEmail)
	}

	recipes, err := h.recipes.GetRecipesByIDs(c.Request.Context(), req.RecipeIDs, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.notifier.SendRecipesEmail(c.Request.Context(), address, recipes); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sent": len(recipes), "email": address})
}
