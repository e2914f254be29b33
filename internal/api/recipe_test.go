package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
)

func recipeIDs(t *testing.T, body map[string]interface{}) []string {
	t.Helper()
	list, ok := body["recipes"].([]interface{})
	require.True(t, ok, "response has no recipes array")
	ids := make([]string, 0, len(list))
	for _, item := range list {
		ids = append(ids, item.(map[string]interface{})["id"].(string))
	}
	return ids
}

func TestGenerateRecipesHandler(t *testing.T) {
	t.Run("should generate recipes with stock images", func(t *testing.T) {
		f := newAPIFixture(t)
		f.expectGeneration(recipesPayload(5))

		status, body := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"rice", "beans"}})
		require.Equal(t, http.StatusCreated, status)

		recipes := body["recipes"].([]interface{})
		assert.Len(t, recipes, 5)
		first := recipes[0].(map[string]interface{})
		assert.Equal(t, "https://stock.test/Rice bowl 1.jpg", first["urlImage"])
		assert.Equal(t, "completed", first["imageStatus"])
		assert.Equal(t, true, first["isGenerated"])
	})

	t.Run("should use placeholders when images are disabled", func(t *testing.T) {
		f := newAPIFixture(t)
		f.expectGeneration(recipesPayload(2))

		status, body := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"rice"}, "generateImages": false})
		require.Equal(t, http.StatusCreated, status)
		first := body["recipes"].([]interface{})[0].(map[string]interface{})
		assert.NotContains(t, first["urlImage"], "stock.test")
	})

	t.Run("should reject an empty ingredient list", func(t *testing.T) {
		f := newAPIFixture(t)
		status, body := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
			map[string]interface{}{"ingredients": []string{}})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", body["code"])
		f.gen.AssertNotCalled(t, "GenerateJSON", mock.Anything, mock.Anything)
	})

	t.Run("should reject an unknown image strategy", func(t *testing.T) {
		f := newAPIFixture(t)
		status, _ := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"rice"}, "imageStrategy": "dalle"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should surface provider failures as bad gateway", func(t *testing.T) {
		f := newAPIFixture(t)
		f.gen.On("GenerateJSON", mock.Anything, mock.Anything).
			Return(nil, apperrors.New(apperrors.CodeProviderError, "AI provider request failed", "status 500")).Once()

		status, body := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"rice"}})
		assert.Equal(t, http.StatusBadGateway, status)
		assert.Equal(t, "PROVIDER_ERROR", body["code"])
		assert.Equal(t, "status 500", body["details"])
	})
}

func TestRecipeQueryHandlers(t *testing.T) {
	f := newAPIFixture(t)
	f.expectGeneration(recipesPayload(5))
	_, generated := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
		map[string]interface{}{"ingredients": []string{"rice"}})
	ids := recipeIDs(t, generated)
	require.Len(t, ids, 5)

	t.Run("should list every recipe", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body["recipes"], 5)
	})

	t.Run("should page generated recipes", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes/generated?limit=2&offset=1&sort=name", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(5), body["total"])
		items := body["items"].([]interface{})
		require.Len(t, items, 2)
		assert.Equal(t, "Rice bowl 2", items[0].(map[string]interface{})["name"])
		assert.Equal(t, float64(2), body["limit"])
		assert.Equal(t, float64(1), body["offset"])
	})

	t.Run("should report the limit actually applied", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes/generated", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(50), body["limit"])

		status, body = f.do(t, http.MethodGet, "/api/v1/recipes/generated?limit=1000", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(200), body["limit"])
	})

	t.Run("should reject an unknown sort field", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes/generated?sort=-calories", nil)
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", body["code"])
	})

	t.Run("should reject a negative limit", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, "/api/v1/recipes/generated?limit=-1", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should fetch one recipe", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes/"+ids[0], nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, ids[0], body["id"])
	})

	t.Run("should return not found for an unknown recipe", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/recipes/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "NOT_FOUND", body["code"])
	})

	t.Run("should reject a malformed id", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, "/api/v1/recipes/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should toggle a favorite and list it", func(t *testing.T) {
		status, body := f.do(t, http.MethodPatch, "/api/v1/recipes/"+ids[1]+"/favorite", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, true, body["isFavorite"])

		status, body = f.do(t, http.MethodGet, "/api/v1/recipes/favorites", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{ids[1]}, recipeIDs(t, body))
	})
}

func TestSaveRecipesHandler(t *testing.T) {
	f := newAPIFixture(t)

	t.Run("should store submitted recipes", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/v1/recipes",
			map[string]interface{}{"recipes": []interface{}{rawRecipe("Bean stew", "dinner")}})
		require.Equal(t, http.StatusCreated, status)
		saved := body["recipes"].([]interface{})[0].(map[string]interface{})
		assert.Equal(t, false, saved["isGenerated"])
		assert.Equal(t, "dinner", saved["type"])
	})

	t.Run("should reject an empty batch", func(t *testing.T) {
		status, _ := f.do(t, http.MethodPost, "/api/v1/recipes", map[string]interface{}{"recipes": []interface{}{}})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestEmailRecipesHandler(t *testing.T) {
	f := newAPIFixture(t)
	f.expectGeneration(recipesPayload(2))
	_, generated := f.do(t, http.MethodPost, "/api/v1/recipes/generate",
		map[string]interface{}{"ingredients": []string{"rice"}})
	ids := recipeIDs(t, generated)

	t.Run("should mail recipes to the account address by default", func(t *testing.T) {
		f.notifier.On("SendRecipesEmail", mock.Anything, f.user.Email, mock.Anything).Return(nil).Once()

		status, body := f.do(t, http.MethodPost, "/api/v1/recipes/email",
			map[string]interface{}{"recipeIds": ids})
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(2), body["sent"])
		f.notifier.AssertExpectations(t)
	})

	t.Run("should return not found when a recipe is not owned", func(t *testing.T) {
		status, _ := f.do(t, http.MethodPost, "/api/v1/recipes/email",
			map[string]interface{}{"email": "friend@example.com", "recipeIds": []string{ids[0], uuid.NewString()}})
		assert.Equal(t, http.StatusNotFound, status)
	})
}
