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

const (
	taskAIImages      = "images:ai"
	taskImproveImages = "images:improve"
	taskRecipesEmail  = "email:recipes"

	settleTimeout = 5 * time.Second
)

// recipeListKeys are the top-level keys that may hold the generated array.
var recipeListKeys = []string{"recipes", "recetas"}

// RecipeService generates, stores and serves recipes.
type RecipeService struct {
	db         *gorm.DB
	ai         JSONGenerator
	normalizer *normalizer.Normalizer
	images     ImageResolver
	tasks      TaskRunner
	notifier   Notifier
	logger     *zap.Logger

	defaultStrategy imaging.Strategy
	taskDelay       time.Duration
}

// RecipeOption configures a RecipeService.
type RecipeOption func(*RecipeService)

// WithDefaultStrategy sets the strategy used when a request names none.
func WithDefaultStrategy(s imaging.Strategy) RecipeOption {
	return func(r *RecipeService) { r.defaultStrategy = s }
}

// WithImageTaskDelay sets the pause between items of the async image task.
func WithImageTaskDelay(d time.Duration) RecipeOption {
	return func(r *RecipeService) { r.taskDelay = d }
}

// WithNotifier enables recipe emails after generation.
func WithNotifier(n Notifier) RecipeOption {
	return func(r *RecipeService) { r.notifier = n }
}

func NewRecipeService(db *gorm.DB, gen JSONGenerator, images ImageResolver, tasks TaskRunner, logger *zap.Logger, opts ...RecipeOption) *RecipeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &RecipeService{
		db:              db,
		ai:              gen,
		normalizer:      normalizer.New(logger),
		images:          images,
		tasks:           tasks,
		logger:          logger.With(zap.String("service", "recipe")),
		defaultStrategy: imaging.StrategyStock,
		taskDelay:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateRecipesFromIngredients asks the AI for recipes built around
// ingredients, attaches images according to opts and stores the batch.
// With the ai strategy the returned recipes still carry placeholders and
// are completed by a background task.
func (s *RecipeService) GenerateRecipesFromIngredients(ctx context.Context, ingredients []string, userID uuid.UUID, opts GenerationOptions) ([]*models.Recipe, error) {
	cleaned := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			cleaned = append(cleaned, ing)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.NewValidationError("at least one ingredient is required")
	}

	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	payload, err := s.ai.GenerateJSON(ctx, prompt.RecipesFromIngredients(cleaned, preferencesOf(user)), generationCallOptions()...)
	if err != nil {
		return nil, err
	}

	raws, ok := recipeList(payload)
	if !ok {
		return nil, apperrors.NewUpstreamFormatError("response has no recipes array")
	}

	recipes, err := s.normalizer.NormalizeRecipes(raws)
	if err != nil {
		return nil, err
	}
	for _, r := range recipes {
		r.UserID = user.ID
		r.IsGenerated = true
	}

	strategy := imaging.ParseStrategy(opts.ImageStrategy, s.defaultStrategy)
	var background string
	switch {
	case !opts.GenerateImages:
		setPlaceholders(recipes, models.ImageStatusCompleted)
	case strategy == imaging.StrategyAI:
		setPlaceholders(recipes, models.ImageStatusPending)
		background = taskAIImages
	default:
		s.attachStockImages(ctx, recipes)
		if strategy == imaging.StrategyHybrid && s.images.HasAI() {
			background = taskImproveImages
		}
	}

	if err := s.db.WithContext(ctx).Create(&recipes).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to save recipes", err)
	}
	metrics.AddRecipesGenerated("ingredients", len(recipes))
	s.logger.Info("Generated recipes",
		zap.String("user_id", user.ID.String()),
		zap.Int("count", len(recipes)),
		zap.String("strategy", string(strategy)),
		zap.Bool("images", opts.GenerateImages))

	switch background {
	case taskAIImages:
		s.scheduleAIImages(recipes)
	case taskImproveImages:
		s.scheduleImprovement(recipes)
	}
	s.notify(user, recipes)

	return recipes, nil
}

func recipeList(payload map[string]interface{}) ([]map[string]interface{}, bool) {
	for _, key := range recipeListKeys {
		if raws, ok := normalizer.ToRawList(payload[key]); ok {
			return raws, true
		}
	}
	return nil, false
}

func setPlaceholders(recipes []*models.Recipe, status string) {
	for _, r := range recipes {
		r.URLImage = imaging.Placeholder(r.Name)
		r.ImageStatus = status
	}
}

func queryOf(r *models.Recipe) imaging.Query {
	return imaging.Query{Name: r.Name, Ingredients: r.Ingredients}
}

func (s *RecipeService) attachStockImages(ctx context.Context, recipes []*models.Recipe) {
	qs := make([]imaging.Query, len(recipes))
	for i, r := range recipes {
		qs[i] = queryOf(r)
	}
	for i, res := range s.images.ResolveBatch(ctx, qs, imaging.StrategyStock) {
		recipes[i].URLImage = res.URL
		recipes[i].ImageStatus = models.ImageStatusCompleted
	}
}

// imageJob is the detached copy of a recipe the background tasks work on.
type imageJob struct {
	id          uuid.UUID
	placeholder string
	query       imaging.Query
}

func jobsOf(recipes []*models.Recipe) []imageJob {
	jobs := make([]imageJob, len(recipes))
	for i, r := range recipes {
		jobs[i] = imageJob{id: r.ID, placeholder: r.URLImage, query: queryOf(r)}
	}
	return jobs
}

func (s *RecipeService) scheduleAIImages(recipes []*models.Recipe) {
	jobs := jobsOf(recipes)
	err := s.tasks.Submit(taskAIImages, func(ctx context.Context) error {
		return s.completeAIImages(ctx, jobs)
	})
	if err == nil {
		return
	}

	s.logger.Error("Failed to schedule image task, marking images failed", zap.Error(err))
	ids := make([]uuid.UUID, len(jobs))
	for i, j := range jobs {
		ids[i] = j.id
	}
	if err := s.db.Model(&models.Recipe{}).Where("id IN ?", ids).
		Update("image_status", models.ImageStatusFailed).Error; err != nil {
		s.logger.Error("Failed to mark images failed", zap.Error(err))
	}
	for _, r := range recipes {
		r.ImageStatus = models.ImageStatusFailed
	}
}

func (s *RecipeService) scheduleImprovement(recipes []*models.Recipe) {
	jobs := jobsOf(recipes)
	err := s.tasks.Submit(taskImproveImages, func(ctx context.Context) error {
		return s.improveImages(ctx, jobs)
	})
	if err != nil {
		s.logger.Warn("Failed to schedule image improvement", zap.Error(err))
	}
}

// completeAIImages walks jobs one at a time, pausing between items. When
// ctx ends early every job not yet finished is marked failed.
func (s *RecipeService) completeAIImages(ctx context.Context, jobs []imageJob) error {
	var failed int
	for i, job := range jobs {
		if i > 0 {
			if err := sleep(ctx, s.taskDelay); err != nil {
				s.abandonImages(ctx, jobs[i:])
				return err
			}
		}
		if err := s.completeAIImage(ctx, job); err != nil {
			failed++
			s.logger.Warn("Image generation failed",
				zap.String("recipe_id", job.id.String()),
				zap.Error(err))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(jobs))
	}
	return nil
}

func (s *RecipeService) completeAIImage(ctx context.Context, job imageJob) error {
	err := s.setImage(ctx, job.id, "", models.ImageStatusProcessing)
	if err == nil {
		res := s.images.Resolve(ctx, job.query, imaging.StrategyAI)
		if res.IsPlaceholder() {
			s.markImageFailed(ctx, job)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.New("no provider produced an image")
		}
		if err = s.settleImage(ctx, job.id, res.URL, models.ImageStatusCompleted); err == nil {
			return nil
		}
	}

	// One stock rescue before giving up on the record.
	res := s.images.Resolve(ctx, job.query, imaging.StrategyStock)
	if !res.IsPlaceholder() {
		if rescueErr := s.settleImage(ctx, job.id, res.URL, models.ImageStatusCompleted); rescueErr == nil {
			return nil
		}
	}
	s.markImageFailed(ctx, job)
	return err
}

func (s *RecipeService) abandonImages(ctx context.Context, jobs []imageJob) {
	for _, job := range jobs {
		s.markImageFailed(ctx, job)
	}
	s.logger.Warn("Image task stopped early", zap.Int("abandoned", len(jobs)), zap.Error(ctx.Err()))
}

func (s *RecipeService) markImageFailed(ctx context.Context, job imageJob) {
	if err := s.settleImage(ctx, job.id, job.placeholder, models.ImageStatusFailed); err != nil {
		s.logger.Error("Failed to mark image failed",
			zap.String("recipe_id", job.id.String()),
			zap.Error(err))
	}
}

// settleImage writes a terminal status. The write outlives a cancelled
// task context by at most settleTimeout.
func (s *RecipeService) settleImage(ctx context.Context, id uuid.UUID, url, status string) error {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	return s.setImage(sctx, id, url, status)
}

// improveImages swaps stock images for AI ones. Failures keep the stock
// image and its completed status.
func (s *RecipeService) improveImages(ctx context.Context, jobs []imageJob) error {
	for i, job := range jobs {
		if i > 0 {
			if err := sleep(ctx, s.taskDelay); err != nil {
				return err
			}
		}
		url, err := s.images.ResolveAI(ctx, job.query)
		if err != nil {
			s.logger.Info("Keeping stock image",
				zap.String("recipe_id", job.id.String()),
				zap.Error(err))
			continue
		}
		if err := s.settleImage(ctx, job.id, url, models.ImageStatusCompleted); err != nil {
			s.logger.Warn("Failed to store improved image",
				zap.String("recipe_id", job.id.String()),
				zap.Error(err))
		}
	}
	return nil
}

func (s *RecipeService) setImage(ctx context.Context, id uuid.UUID, url, status string) error {
	updates := map[string]interface{}{"image_status": status}
	if url != "" {
		updates["url_image"] = url
	}
	return s.db.WithContext(ctx).Model(&models.Recipe{}).Where("id = ?", id).Updates(updates).Error
}

func (s *RecipeService) notify(user *models.User, recipes []*models.Recipe) {
	if s.notifier == nil || user.Email == "" {
		return
	}
	snapshot := make([]*models.Recipe, len(recipes))
	for i, r := range recipes {
		cp := *r
		snapshot[i] = &cp
	}
	err := s.tasks.Submit(taskRecipesEmail, func(ctx context.Context) error {
		return s.notifier.SendRecipesEmail(ctx, user.Email, snapshot)
	})
	if err != nil {
		s.logger.Warn("Failed to schedule recipe email", zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetAllRecipes returns every recipe the user owns, newest first.
func (s *RecipeService) GetAllRecipes(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Find(&recipes).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to list recipes", err)
	}
	return recipes, nil
}

// GetRecipeByID returns one of the user's recipes.
func (s *RecipeService) GetRecipeByID(ctx context.Context, id, userID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("recipe")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load recipe", err)
	}
	return &recipe, nil
}

// GetFavoriteRecipes returns the user's favorite recipes, newest first.
func (s *RecipeService) GetFavoriteRecipes(ctx context.Context, userID uuid.UUID) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("user_id = ? AND is_favorite = ?", userID, true).
		Order("created_at DESC").Find(&recipes).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to list favorites", err)
	}
	return recipes, nil
}

// ToggleFavorite flips the favorite flag on one of the user's recipes.
func (s *RecipeService) ToggleFavorite(ctx context.Context, id, userID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.GetRecipeByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	recipe.IsFavorite = !recipe.IsFavorite
	if err := s.db.WithContext(ctx).Model(recipe).Update("is_favorite", recipe.IsFavorite).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to update favorite", err)
	}
	return recipe, nil
}

// SaveRecipes normalizes and stores recipes submitted by the user.
func (s *RecipeService) SaveRecipes(ctx context.Context, userID uuid.UUID, raws []map[string]interface{}) ([]*models.Recipe, error) {
	if len(raws) == 0 {
		return nil, apperrors.NewValidationError("at least one recipe is required")
	}
	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	recipes, err := s.normalizer.NormalizeRecipes(raws)
	if err != nil {
		return nil, err
	}
	for _, r := range recipes {
		r.UserID = user.ID
		if !strings.HasPrefix(r.URLImage, "http") {
			r.URLImage = imaging.Placeholder(r.Name)
		}
		r.ImageStatus = models.ImageStatusCompleted
	}

	if err := s.db.WithContext(ctx).Create(&recipes).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to save recipes", err)
	}
	return recipes, nil
}

// ListOptions page and sort recipe listings.
type ListOptions struct {
	Limit  int
	Offset int
	// Sort is a field name with an optional leading "-" for descending.
	Sort string
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
	defaultListSort  = "-createdAt"
)

var sortColumns = map[string]string{
	"createdAt":       "created_at",
	"name":            "name",
	"preparationTime": "preparation_time",
	"caloricRate":     "caloric_rate",
}

// Effective returns the options with the default and maximum limit and a
// non-negative offset applied.
func (o ListOptions) Effective() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	o.Limit = min(o.Limit, maxListLimit)
	o.Offset = max(o.Offset, 0)
	return o
}

func (o ListOptions) orderClause() (string, error) {
	sort := o.Sort
	if sort == "" {
		sort = defaultListSort
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	column, ok := sortColumns[sort]
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("unsupported sort field %q", sort))
	}
	return column + " " + dir, nil
}

// GetGeneratedRecipesByUser pages through the user's AI-generated recipes.
// It also returns the total number of generated recipes.
func (s *RecipeService) GetGeneratedRecipesByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]models.Recipe, int64, error) {
	order, err := opts.orderClause()
	if err != nil {
		return nil, 0, err
	}
	opts = opts.Effective()

	q := s.db.WithContext(ctx).Model(&models.Recipe{}).
		Where("user_id = ? AND is_generated = ?", userID, true).
		Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count recipes", err)
	}

	var recipes []models.Recipe
	if err := q.Order(order).Limit(opts.Limit).Offset(opts.Offset).Find(&recipes).Error; err != nil {
		return nil, 0, apperrors.NewInternalError("failed to list recipes", err)
	}
	return recipes, total, nil
}

func loadUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFoundError("user")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load user", err)
	}
	return &user, nil
}

func preferencesOf(u *models.User) prompt.Preferences {
	return prompt.Preferences{
		Objective:  u.Objective,
		SkillLevel: u.SkillLevel,
		DietType:   u.DietType,
		Allergy:    u.Allergy,
	}
}

// GetRecipesByIDs returns the user's recipes among ids. Any id the user
// does not own makes the whole lookup fail with NOT_FOUND.
func (s *RecipeService) GetRecipesByIDs(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) ([]*models.Recipe, error) {
	if len(ids) == 0 {
		return nil, apperrors.NewValidationError("at least one recipe id is required")
	}
	unique := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		unique[id] = true
	}

	var recipes []*models.Recipe
	if err := s.db.WithContext(ctx).Where("id IN ? AND user_id = ?", ids, userID).
		Order("created_at ASC").Find(&recipes).Error; err != nil {
		return nil, apperrors.NewInternalError("failed to load recipes", err)
	}
	if len(recipes) != len(unique) {
		return nil, apperrors.NewNotFoundError("recipe")
	}
	return recipes, nil
}
