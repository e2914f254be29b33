package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/imaging"
	"github.com/pageza/mealplanner/backend/internal/metrics"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/normalizer"
	"github.com/pageza/mealplanner/backend/internal/prompt"
)

// DateLayout is the calendar date format used by day plans.
const DateLayout = "2006-01-02"

// MealPlanService generates and serves daily meal plans.
type MealPlanService struct {
	db         *gorm.DB
	ai         JSONGenerator
	normalizer *normalizer.Normalizer
	images     ImageResolver
	logger     *zap.Logger
	now        func() time.Time
}

func NewMealPlanService(db *gorm.DB, gen JSONGenerator, images ImageResolver, logger *zap.Logger) *MealPlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MealPlanService{
		db:         db,
		ai:         gen,
		normalizer: normalizer.New(logger),
		images:     images,
		logger:     logger.With(zap.String("service", "meal_plan")),
		now:        time.Now,
	}
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return t, nil
}

func (s *MealPlanService) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// plannedMeal is one slot prepared before anything is written.
type plannedMeal struct {
	name   string
	typ    string
	time   string
	recipe *models.Recipe
}

// GenerateDailyMealPlan generates breakfast, lunch and dinner for date
// and stores them as the user's plan for that day. An existing plan is
// replaced only when opts.Overwrite is set. Nothing is stored unless every
// slot succeeds.
func (s *MealPlanService) GenerateDailyMealPlan(ctx context.Context, date string, userID uuid.UUID, opts GenerationOptions) (*models.DayPlan, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	if day.Before(s.today()) {
		return nil, apperrors.NewValidationError("date cannot be in the past")
	}
	date = day.Format(DateLayout)

	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	existing, err := s.findPlan(ctx, user.ID, date)
	if err != nil {
		return nil, err
	}
	if existing != nil && !opts.Overwrite {
		return nil, apperrors.NewConflictError(fmt.Sprintf("a meal plan already exists for %s", date)).
			WithMetadata("planId", existing.ID.String())
	}

	payload, err := s.ai.GenerateJSON(ctx, prompt.DailyMealPlan(date, preferencesOf(user)), generationCallOptions()...)
	if err != nil {
		return nil, err
	}

	meals, err := s.prepareMeals(payload, date)
	if err != nil {
		return nil, err
	}
	for _, m := range meals {
		m.recipe.UserID = user.ID
		m.recipe.IsGenerated = true
		m.recipe.ImageStatus = models.ImageStatusCompleted
	}
	s.attachImages(ctx, meals, opts)

	planID, err := s.persist(ctx, user.ID, date, existing, meals)
	if err != nil {
		return nil, err
	}
	metrics.AddRecipesGenerated("daily_plan", len(meals))
	s.logger.Info("Generated daily meal plan",
		zap.String("user_id", user.ID.String()),
		zap.String("date", date),
		zap.Bool("overwrite", existing != nil))

	return s.loadPlan(ctx, planID)
}

// prepareMeals validates the AI payload and normalizes every slot.
func (s *MealPlanService) prepareMeals(payload map[string]interface{}, date string) ([]*plannedMeal, error) {
	raws, ok := normalizer.ToRawList(payload["meals"])
	if !ok || len(raws) != len(prompt.DailySlots) {
		return nil, apperrors.NewUpstreamFormatError(
			fmt.Sprintf("expected %d meals in the plan", len(prompt.DailySlots)))
	}

	meals := make([]*plannedMeal, len(raws))
	for i, raw := range raws {
		slot := prompt.DailySlots[i]
		typ := s.normalizer.NormalizeType(stringValue(raw["type"]), slot.Type)

		recipeRaw, ok := raw["recipe"].(map[string]interface{})
		if !ok {
			return nil, apperrors.NewUpstreamFormatError(fmt.Sprintf("meal %d has no recipe", i+1))
		}
		recipe, err := s.normalizer.NormalizeRecipe(recipeRaw, typ)
		if err != nil {
			return nil, apperrors.NewUpstreamFormatError(fmt.Sprintf("meal %d recipe unusable", i+1)).WithCause(err)
		}

		name := stringValue(raw["name"])
		if name == "" {
			name = recipe.Name
		}
		at := stringValue(raw["time"])
		if !strings.HasPrefix(at, date+"T") {
			at = prompt.SlotTime(date, slot)
		}
		meals[i] = &plannedMeal{name: name, typ: typ, time: at, recipe: recipe}
	}
	return meals, nil
}

func (s *MealPlanService) attachImages(ctx context.Context, meals []*plannedMeal, opts GenerationOptions) {
	if !opts.GenerateImages {
		for _, m := range meals {
			m.recipe.URLImage = imaging.Placeholder(m.recipe.Name)
		}
		return
	}

	strategy := imaging.StrategyStock
	if imaging.ParseStrategy(opts.ImageStrategy, imaging.StrategyStock) == imaging.StrategyAI {
		strategy = imaging.StrategyAI
	}
	qs := make([]imaging.Query, len(meals))
	for i, m := range meals {
		qs[i] = queryOf(m.recipe)
	}
	for i, res := range s.images.ResolveBatch(ctx, qs, strategy) {
		meals[i].recipe.URLImage = res.URL
	}
}

// persist writes recipes, meals and the plan in one transaction. On
// overwrite the old slots and meals are removed; their recipes stay in the
// user's history.
func (s *MealPlanService) persist(ctx context.Context, userID uuid.UUID, date string, existing *models.DayPlan, meals []*plannedMeal) (uuid.UUID, error) {
	var planID uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		plan := existing
		if plan == nil {
			plan = &models.DayPlan{UserID: userID, Date: date}
			if err := tx.Create(plan).Error; err != nil {
				return err
			}
		} else {
			if err := clearPlan(tx, plan.ID); err != nil {
				return err
			}
			if err := tx.Model(plan).Update("updated_at", time.Now()).Error; err != nil {
				return err
			}
		}
		planID = plan.ID

		for i, m := range meals {
			if err := tx.Create(m.recipe).Error; err != nil {
				return err
			}
			meal := &models.Meal{Name: m.name, Type: m.typ, RecipeID: m.recipe.ID, Time: m.time}
			if err := tx.Create(meal).Error; err != nil {
				return err
			}
			slot := &models.DayPlanMeal{DayPlanID: plan.ID, MealID: meal.ID, Position: i, Time: m.time}
			if err := tx.Create(slot).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return uuid.Nil, apperrors.NewConflictError(fmt.Sprintf("a meal plan already exists for %s", date))
	}
	if err != nil {
		return uuid.Nil, apperrors.NewInternalError("failed to save meal plan", err)
	}
	return planID, nil
}

func clearPlan(tx *gorm.DB, planID uuid.UUID) error {
	var mealIDs []uuid.UUID
	if err := tx.Model(&models.DayPlanMeal{}).Where("day_plan_id = ?", planID).
		Pluck("meal_id", &mealIDs).Error; err != nil {
		return err
	}
	if err := tx.Where("day_plan_id = ?", planID).Delete(&models.DayPlanMeal{}).Error; err != nil {
		return err
	}
	if len(mealIDs) == 0 {
		return nil
	}
	return tx.Where("id IN ?", mealIDs).Delete(&models.Meal{}).Error
}

func (s *MealPlanService) findPlan(ctx context.Context, userID uuid.UUID, date string) (*models.DayPlan, error) {
	var plan models.DayPlan
	err := s.db.WithContext(ctx).Where("user_id = ? AND date = ?", userID, date).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to look up meal plan", err)
	}
	return &plan, nil
}

func withMeals(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Meals", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Meals.Meal.Recipe")
}

func (s *MealPlanService) loadPlan(ctx context.Context, id uuid.UUID) (*models.DayPlan, error) {
	var plan models.DayPlan
	err := withMeals(s.db.WithContext(ctx)).First(&plan, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("meal plan")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load meal plan", err)
	}
	return &plan, nil
}

// GetUserDayPlans lists the user's plans between the optional start and
// end dates, inclusive, ordered by date.
func (s *MealPlanService) GetUserDayPlans(ctx context.Context, userID uuid.UUID, start, end string) ([]models.DayPlan, error) {
	q := withMeals(s.db.WithContext(ctx)).Where("user_id = ?", userID)
	if start != "" {
		d, err := ParseDate(start)
		if err != nil {
			return nil, err
		}
		q = q.Where("date >= ?", d.Format(DateLayout))
	}
	if end != "" {
		d, err := ParseDate(end)
		if err != nil {
			return nil, err
		}
		q = q.Where("date <= ?", d.Format(DateLayout))
	}

	var plans []models.DayPlan
	if err := q.Order("date ASC").Find(&plans).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to list meal plans", err)
	}
	return plans, nil
}

// GetDayPlanByID returns a plan owned by userID.
func (s *MealPlanService) GetDayPlanByID(ctx context.Context, planID, userID uuid.UUID) (*models.DayPlan, error) {
	plan, err := s.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.UserID != userID {
		return nil, apperrors.NewForbiddenError("meal plan belongs to another user")
	}
	return plan, nil
}

// WeekDay is one date of a week view. Plan is nil when nothing is planned.
type WeekDay struct {
	Date string          `json:"date"`
	Plan *models.DayPlan `json:"plan"`
}

// WeekPlan is seven consecutive days of a user's plans.
type WeekPlan struct {
	Start string    `json:"start"`
	End   string    `json:"end"`
	Days  []WeekDay `json:"days"`
}

// GetWeekPlan assembles the seven days starting at start.
func (s *MealPlanService) GetWeekPlan(ctx context.Context, userID uuid.UUID, start string) (*WeekPlan, error) {
	first, err := ParseDate(start)
	if err != nil {
		return nil, err
	}
	last := first.AddDate(0, 0, 6)

	plans, err := s.GetUserDayPlans(ctx, userID, first.Format(DateLayout), last.Format(DateLayout))
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*models.DayPlan, len(plans))
	for i := range plans {
		byDate[plans[i].Date] = &plans[i]
	}

	week := &WeekPlan{Start: first.Format(DateLayout), End: last.Format(DateLayout)}
	for d := 0; d < 7; d++ {
		date := first.AddDate(0, 0, d).Format(DateLayout)
		week.Days = append(week.Days, WeekDay{Date: date, Plan: byDate[date]})
	}
	return week, nil
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
