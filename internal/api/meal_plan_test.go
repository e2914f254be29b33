package api

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMealPlanHandlers(t *testing.T) {
	f := newAPIFixture(t)
	date := futureDate(3)

	var planID string
	t.Run("should generate a three meal plan", func(t *testing.T) {
		f.expectGeneration(mealsPayload(date))

		status, body := f.do(t, http.MethodPost, "/api/v1/meal-plans/daily",
			map[string]interface{}{"date": date})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, date, body["date"])
		assert.Len(t, body["meals"], 3)
		planID = body["id"].(string)
	})

	t.Run("should report a conflict with the existing plan id", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/v1/meal-plans/daily",
			map[string]interface{}{"date": date})
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "CONFLICT", body["code"])
		assert.Equal(t, planID, body["metadata"].(map[string]interface{})["planId"])
	})

	t.Run("should replace the plan when overwrite is set", func(t *testing.T) {
		f.expectGeneration(mealsPayload(date))

		status, body := f.do(t, http.MethodPost, "/api/v1/meal-plans/daily",
			map[string]interface{}{"date": date, "overwrite": true, "generateImages": false})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, planID, body["id"])
	})

	t.Run("should reject a malformed date", func(t *testing.T) {
		status, body := f.do(t, http.MethodPost, "/api/v1/meal-plans/daily",
			map[string]interface{}{"date": "next tuesday"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, "VALIDATION_FAILED", body["code"])
	})

	t.Run("should reject a past date", func(t *testing.T) {
		status, _ := f.do(t, http.MethodPost, "/api/v1/meal-plans/daily",
			map[string]interface{}{"date": "2001-01-01"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should list plans in a range", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/meal-plans?start="+date+"&end="+date, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Len(t, body["plans"], 1)
	})

	t.Run("should return a seven day week", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/meal-plans/week?start="+futureDate(1), nil)
		assert.Equal(t, http.StatusOK, status)
		days := body["days"].([]interface{})
		require.Len(t, days, 7)
		assert.NotNil(t, days[2].(map[string]interface{})["plan"])
		assert.Nil(t, days[0].(map[string]interface{})["plan"])
	})

	t.Run("should require a week start", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, "/api/v1/meal-plans/week", nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("should fetch a plan by id", func(t *testing.T) {
		status, body := f.do(t, http.MethodGet, "/api/v1/meal-plans/"+planID, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, planID, body["id"])
	})

	t.Run("should return not found for an unknown plan", func(t *testing.T) {
		status, _ := f.do(t, http.MethodGet, "/api/v1/meal-plans/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}
