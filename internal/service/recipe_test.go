package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/ai"
	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/imaging"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/testhelpers"
)

type recipeFixture struct {
	db    *gorm.DB
	user  *models.User
	gen   *testhelpers.MockJSONGenerator
	tasks *testhelpers.InlineTasks
	stock *fakeProvider
	ai    *fakeProvider
	svc   *RecipeService
}

func newRecipeFixture(t *testing.T, opts ...RecipeOption) *recipeFixture {
	t.Helper()
	f := &recipeFixture{
		db:    testhelpers.NewSQLiteDB(t),
		gen:   new(testhelpers.MockJSONGenerator),
		tasks: &testhelpers.InlineTasks{},
		stock: &fakeProvider{name: "stock"},
		ai:    &fakeProvider{name: "replicate"},
	}
	f.user = testhelpers.CreateTestUser(t, f.db)
	chain := imaging.NewChain(nil, f.ai, f.stock)
	opts = append([]RecipeOption{WithImageTaskDelay(0)}, opts...)
	f.svc = NewRecipeService(f.db, f.gen, chain, f.tasks, zap.NewNop(), opts...)
	return f
}

func (f *recipeFixture) count(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&models.Recipe{}).Count(&n).Error)
	return n
}

func TestGenerateRecipesFromIngredients(t *testing.T) {
	ctx := context.Background()

	t.Run("should persist five completed recipes with stock images", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.MatchedBy(func(p string) bool {
			return assert.Contains(t, p, "chicken, tomato") && assert.Contains(t, p, "peanuts")
		})).Return(recipesPayload(5), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken", " tomato ", ""}, f.user.ID, DefaultGenerationOptions())
		require.NoError(t, err)
		require.Len(t, recipes, 5)

		for _, r := range recipes {
			assert.NotEmpty(t, r.URLImage)
			assert.Contains(t, r.URLImage, "https://stock.test/")
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
			assert.True(t, r.IsGenerated)
			assert.Equal(t, f.user.ID, r.UserID)
		}
		assert.Equal(t, int64(5), f.count(t))
		assert.Empty(t, f.tasks.Names())
		assert.Equal(t, int32(0), f.ai.calls.Load())
	})

	t.Run("should fall back to placeholders when every stock provider fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.stock.fail = true
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(5), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, DefaultGenerationOptions())
		require.NoError(t, err)
		for _, r := range recipes {
			assert.True(t, imaging.IsPlaceholder(r.URLImage))
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
		}
	})

	t.Run("should reject blank ingredients before calling the AI", func(t *testing.T) {
		f := newRecipeFixture(t)
		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{" ", ""}, f.user.ID, DefaultGenerationOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
		f.gen.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
	})

	t.Run("should report a missing user", func(t *testing.T) {
		f := newRecipeFixture(t)
		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, uuid.New(), DefaultGenerationOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	})

	t.Run("should reject a payload without a recipes array", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).
			Return(map[string]interface{}{"recipes": "none"}, nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, DefaultGenerationOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeUpstreamFormat))
		assert.Zero(t, f.count(t))
	})

	t.Run("should accept the legacy recetas key", func(t *testing.T) {
		f := newRecipeFixture(t)
		payload := recipesPayload(2)
		payload["recetas"] = payload["recipes"]
		delete(payload, "recipes")
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(payload, nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, DefaultGenerationOptions())
		require.NoError(t, err)
		assert.Len(t, recipes, 2)
	})

	t.Run("should keep five recipes when one lacks a name", func(t *testing.T) {
		f := newRecipeFixture(t)
		payload := recipesPayload(5)
		bad := payload["recipes"].([]interface{})[2].(map[string]interface{})
		delete(bad, "name")
		bad["type"] = "supper snack thing"
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(payload, nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, DefaultGenerationOptions())
		require.NoError(t, err)
		require.Len(t, recipes, 5)
		assert.Equal(t, "Recipe 3", recipes[2].Name)
		assert.Contains(t, []string{"breakfast", "lunch", "dinner"}, recipes[2].Type)
	})

	t.Run("should fail with BATCH_FAILED when nothing survives", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(map[string]interface{}{
			"recipes": []interface{}{map[string]interface{}{"name": "Empty"}},
		}, nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, DefaultGenerationOptions())
		assert.True(t, apperrors.Is(err, apperrors.CodeBatchFailed))
		assert.Zero(t, f.count(t))
	})

	t.Run("should store placeholders without images", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(3), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, GenerationOptions{GenerateImages: false})
		require.NoError(t, err)
		for _, r := range recipes {
			assert.Equal(t, imaging.Placeholder(r.Name), r.URLImage)
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
		}
		assert.Equal(t, int32(0), f.stock.calls.Load())
		assert.Empty(t, f.tasks.Names())
	})

	t.Run("should schedule the recipe email when a notifier is set", func(t *testing.T) {
		notifier := new(testhelpers.MockNotifier)
		f := newRecipeFixture(t, WithNotifier(notifier))
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(2), nil)
		notifier.On("SendRecipesEmail", mock.Anything, f.user.Email, mock.Anything).Return(nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, f.user.ID, DefaultGenerationOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{taskRecipesEmail}, f.tasks.Names())

		assert.Empty(t, f.tasks.Drain(ctx))
		notifier.AssertExpectations(t)
	})
}

func TestGenerateRecipesRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	client, err := ai.NewClient(ai.Config{Provider: "openai", APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	db := testhelpers.NewSQLiteDB(t)
	user := testhelpers.CreateTestUser(t, db)
	svc := NewRecipeService(db, client, imaging.NewChain(nil, nil), &testhelpers.InlineTasks{}, zap.NewNop())

	_, err = svc.GenerateRecipesFromIngredients(context.Background(), []string{"chicken", "tomato"}, user.ID, DefaultGenerationOptions())
	assert.True(t, apperrors.Is(err, apperrors.CodeRateLimited))

	var n int64
	require.NoError(t, db.Model(&models.Recipe{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestGenerationSamplingSettings(t *testing.T) {
	var got ai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := ai.NewClient(ai.Config{Provider: "groq", APIKey: "k", BaseURL: srv.URL}, zap.NewNop())
	require.NoError(t, err)

	db := testhelpers.NewSQLiteDB(t)
	user := testhelpers.CreateTestUser(t, db)
	svc := NewRecipeService(db, client, imaging.NewChain(nil, nil), &testhelpers.InlineTasks{}, zap.NewNop())

	t.Run("should send the generation temperature and token cap", func(t *testing.T) {
		_, err := svc.GenerateRecipesFromIngredients(context.Background(), []string{"rice"}, user.ID, DefaultGenerationOptions())
		require.Error(t, err)
		require.NotNil(t, got.Temperature)
		assert.InDelta(t, generationTemperature, *got.Temperature, 1e-9)
		assert.Equal(t, generationMaxTokens, got.MaxTokens)
		assert.Equal(t, "llama-3.3-70b-versatile", got.Model)
	})
}

func TestAIImageStrategy(t *testing.T) {
	ctx := context.Background()
	opts := GenerationOptions{GenerateImages: true, ImageStrategy: "ai"}

	t.Run("should return pending recipes and complete them in the background", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(5), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		require.Len(t, recipes, 5)
		for _, r := range recipes {
			assert.Equal(t, models.ImageStatusPending, r.ImageStatus)
			assert.True(t, imaging.IsPlaceholder(r.URLImage))
		}
		assert.Equal(t, []string{taskAIImages}, f.tasks.Names())

		assert.Empty(t, f.tasks.Drain(ctx))

		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		require.Len(t, stored, 5)
		for _, r := range stored {
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
			assert.Contains(t, r.URLImage, "https://replicate.test/")
		}
	})

	t.Run("should fall back to stock when the AI provider fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.ai.fail = true
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(2), nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		assert.Empty(t, f.tasks.Drain(ctx))

		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		for _, r := range stored {
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
			assert.Contains(t, r.URLImage, "https://stock.test/")
		}
	})

	t.Run("should mark recipes failed and keep the placeholder when every provider fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.ai.fail = true
		f.stock.fail = true
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(5), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		placeholders := map[uuid.UUID]string{}
		for _, r := range recipes {
			placeholders[r.ID] = r.URLImage
		}

		errs := f.tasks.Drain(ctx)
		assert.Len(t, errs, 1)

		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		require.Len(t, stored, 5)
		for _, r := range stored {
			assert.Equal(t, models.ImageStatusFailed, r.ImageStatus)
			assert.Equal(t, placeholders[r.ID], r.URLImage)
		}
	})

	t.Run("should mark unfinished images failed when the task is cancelled between items", func(t *testing.T) {
		f := newRecipeFixture(t, WithImageTaskDelay(time.Hour))
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(3), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		placeholders := map[uuid.UUID]string{}
		for _, r := range recipes {
			placeholders[r.ID] = r.URLImage
		}

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		errs := f.tasks.Drain(cctx)
		require.Len(t, errs, 1)

		statuses := map[string]int{}
		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		for _, r := range stored {
			statuses[r.ImageStatus]++
			if r.ImageStatus == models.ImageStatusFailed {
				assert.Equal(t, placeholders[r.ID], r.URLImage)
			}
		}
		assert.Equal(t, map[string]int{models.ImageStatusCompleted: 1, models.ImageStatusFailed: 2}, statuses)
	})

	t.Run("should settle the in-flight image when the task times out", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.ai.block = true
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(2), nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		require.Len(t, f.tasks.Drain(cctx), 1)

		var unsettled int64
		require.NoError(t, f.db.Model(&models.Recipe{}).
			Where("image_status IN ?", []string{models.ImageStatusPending, models.ImageStatusProcessing}).
			Count(&unsettled).Error)
		assert.Zero(t, unsettled)

		var failed int64
		require.NoError(t, f.db.Model(&models.Recipe{}).Where("image_status = ?", models.ImageStatusFailed).Count(&failed).Error)
		assert.Equal(t, int64(2), failed)
	})
}

func TestHybridImageStrategy(t *testing.T) {
	ctx := context.Background()
	opts := GenerationOptions{GenerateImages: true, ImageStrategy: "hybrid"}

	t.Run("should return stock images and upgrade them to AI images", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(2), nil)

		recipes, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		for _, r := range recipes {
			assert.Contains(t, r.URLImage, "https://stock.test/")
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
		}
		assert.Equal(t, []string{taskImproveImages}, f.tasks.Names())

		assert.Empty(t, f.tasks.Drain(ctx))
		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		for _, r := range stored {
			assert.Contains(t, r.URLImage, "https://replicate.test/")
		}
	})

	t.Run("should keep stock images when the AI provider fails", func(t *testing.T) {
		f := newRecipeFixture(t)
		f.ai.fail = true
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(2), nil)

		_, err := f.svc.GenerateRecipesFromIngredients(ctx, []string{"chicken"}, f.user.ID, opts)
		require.NoError(t, err)
		assert.Empty(t, f.tasks.Drain(ctx))

		var stored []models.Recipe
		require.NoError(t, f.db.Find(&stored).Error)
		for _, r := range stored {
			assert.Contains(t, r.URLImage, "https://stock.test/")
			assert.Equal(t, models.ImageStatusCompleted, r.ImageStatus)
		}
	})

	t.Run("should skip the improvement pass without an AI provider", func(t *testing.T) {
		db := testhelpers.NewSQLiteDB(t)
		user := testhelpers.CreateTestUser(t, db)
		gen := new(testhelpers.MockJSONGenerator)
		gen.On("GenerateJSON", mock.Anything, mock.Anything).Return(recipesPayload(1), nil)
		tasks := &testhelpers.InlineTasks{}
		svc := NewRecipeService(db, gen, imaging.NewChain(nil, nil, &fakeProvider{name: "stock"}), tasks, zap.NewNop())

		_, err := svc.GenerateRecipesFromIngredients(ctx, []string{"rice"}, user.ID, opts)
		require.NoError(t, err)
		assert.Empty(t, tasks.Names())
	})
}

func seedRecipes(t *testing.T, db *gorm.DB, userID uuid.UUID) []models.Recipe {
	t.Helper()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	recipes := []models.Recipe{
		{Name: "Banana bread", PreparationTime: 60, CaloricRate: 300, IsGenerated: true},
		{Name: "Avocado toast", PreparationTime: 10, CaloricRate: 250, IsGenerated: true, IsFavorite: true},
		{Name: "Chili", PreparationTime: 90, CaloricRate: 700, IsGenerated: true},
		{Name: "Family lasagna", PreparationTime: 120, CaloricRate: 800, IsGenerated: false},
	}
	for i := range recipes {
		recipes[i].UserID = userID
		recipes[i].Type = models.MealTypeDinner
		recipes[i].Ingredients = models.StringList{"x"}
		recipes[i].Steps = models.StringList{"y"}
		recipes[i].People = 2
		recipes[i].CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, db.Create(&recipes[i]).Error)
	}
	return recipes
}

func TestRecipeQueries(t *testing.T) {
	ctx := context.Background()

	t.Run("should page generated recipes newest first by default", func(t *testing.T) {
		f := newRecipeFixture(t)
		seedRecipes(t, f.db, f.user.ID)

		recipes, total, err := f.svc.GetGeneratedRecipesByUser(ctx, f.user.ID, ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, recipes, 3)
		assert.Equal(t, "Chili", recipes[0].Name)
		assert.Equal(t, "Banana bread", recipes[2].Name)
	})

	t.Run("should sort and limit", func(t *testing.T) {
		f := newRecipeFixture(t)
		seedRecipes(t, f.db, f.user.ID)

		recipes, total, err := f.svc.GetGeneratedRecipesByUser(ctx, f.user.ID, ListOptions{Sort: "preparationTime", Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, recipes, 2)
		assert.Equal(t, "Avocado toast", recipes[0].Name)
		assert.Equal(t, "Banana bread", recipes[1].Name)

		recipes, _, err = f.svc.GetGeneratedRecipesByUser(ctx, f.user.ID, ListOptions{Sort: "-caloricRate", Offset: 1})
		require.NoError(t, err)
		require.Len(t, recipes, 2)
		assert.Equal(t, "Banana bread", recipes[0].Name)
	})

	t.Run("should reject unknown sort fields", func(t *testing.T) {
		f := newRecipeFixture(t)
		_, _, err := f.svc.GetGeneratedRecipesByUser(ctx, f.user.ID, ListOptions{Sort: "id; drop table"})
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})

	t.Run("should scope lookups to the owner", func(t *testing.T) {
		f := newRecipeFixture(t)
		seeded := seedRecipes(t, f.db, f.user.ID)
		other := testhelpers.CreateTestUser(t, f.db)

		got, err := f.svc.GetRecipeByID(ctx, seeded[0].ID, f.user.ID)
		require.NoError(t, err)
		assert.Equal(t, seeded[0].Name, got.Name)

		_, err = f.svc.GetRecipeByID(ctx, seeded[0].ID, other.ID)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

		all, err := f.svc.GetAllRecipes(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("should toggle favorites", func(t *testing.T) {
		f := newRecipeFixture(t)
		seeded := seedRecipes(t, f.db, f.user.ID)

		favs, err := f.svc.GetFavoriteRecipes(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, favs, 1)

		toggled, err := f.svc.ToggleFavorite(ctx, seeded[0].ID, f.user.ID)
		require.NoError(t, err)
		assert.True(t, toggled.IsFavorite)

		favs, err = f.svc.GetFavoriteRecipes(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, favs, 2)
	})

	t.Run("should load recipes by id for the owner only", func(t *testing.T) {
		f := newRecipeFixture(t)
		seeded := seedRecipes(t, f.db, f.user.ID)

		got, err := f.svc.GetRecipesByIDs(ctx, []uuid.UUID{seeded[1].ID, seeded[0].ID, seeded[0].ID}, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		_, err = f.svc.GetRecipesByIDs(ctx, []uuid.UUID{seeded[0].ID, uuid.New()}, f.user.ID)
		assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	})
}

func TestSaveRecipes(t *testing.T) {
	ctx := context.Background()

	t.Run("should normalize and store submitted recipes", func(t *testing.T) {
		f := newRecipeFixture(t)
		raw := rawRecipe("Shakshuka", "desayuno")
		raw["preparationTime"] = "9999"

		saved, err := f.svc.SaveRecipes(ctx, f.user.ID, []map[string]interface{}{raw})
		require.NoError(t, err)
		require.Len(t, saved, 1)
		assert.Equal(t, models.MealTypeBreakfast, saved[0].Type)
		assert.Equal(t, 30, saved[0].PreparationTime)
		assert.False(t, saved[0].IsGenerated)
		assert.True(t, imaging.IsPlaceholder(saved[0].URLImage))
	})

	t.Run("should reject an empty list", func(t *testing.T) {
		f := newRecipeFixture(t)
		_, err := f.svc.SaveRecipes(ctx, f.user.ID, nil)
		assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
	})
}
