package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/service"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// MealPlanStore is the day plan side of the generation service.
type MealPlanStore interface {
	GenerateDailyMealPlan(ctx context.Context, date string, userID uuid.UUID, opts service.GenerationOptions) (*models.DayPlan, error)
	GetUserDayPlans(ctx context.Context, userID uuid.UUID, start, end string) ([]models.DayPlan, error)
	GetDayPlanByID(ctx context.Context, planID, userID uuid.UUID) (*models.DayPlan, error)
	GetWeekPlan(ctx context.Context, userID uuid.UUID, start string) (*service.WeekPlan, error)
}

type MealPlanHandler struct {
	plans  MealPlanStore
	logger *zap.Logger
}

func NewMealPlanHandler(plans MealPlanStore, logger *zap.Logger) *MealPlanHandler {
	return &MealPlanHandler{plans: plans, logger: logger}
}

// RegisterRoutes mounts the meal plan routes on an authenticated group.
// generationGuards run in front of the generation endpoint only.
func (h *MealPlanHandler) RegisterRoutes(router *gin.RouterGroup, generationGuards ...gin.HandlerFunc) {
	plans := router.Group("/meal-plans")
	{
		plans.POST("/daily", withGuards(generationGuards, h.GenerateDailyPlan)...)
		plans.GET("", h.ListPlans)
		plans.GET("/week", h.GetWeek)
		plans.GET("/:id", h.GetPlan)
	}
}

func (h *MealPlanHandler) GenerateDailyPlan(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req types.DailyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, bindingError(err))
		return
	}

	opts := service.GenerationOptions{
		GenerateImages: boolOr(req.GenerateImages, true),
		ImageStrategy:  req.ImageStrategy,
		Overwrite:      req.Overwrite,
	}
	plan, err := h.plans.GenerateDailyMealPlan(c.Request.Context(), req.Date, userID, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, plan)
}

func (h *MealPlanHandler) ListPlans(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	plans, err := h.plans.GetUserDayPlans(c.Request.Context(), userID, c.Query("start"), c.Query("end"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func (h *MealPlanHandler) GetWeek(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	start := c.Query("start")
	if start == "" {
		respondError(c, h.logger, apperrors.NewValidationError("start is required"))
		return
	}

	week, err := h.plans.GetWeekPlan(c.Request.Context(), userID, start)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, week)
}

func (h *MealPlanHandler) GetPlan(c *gin.Context) {
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

	plan, err := h.plans.GetDayPlanByID(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}
