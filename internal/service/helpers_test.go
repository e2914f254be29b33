package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/pageza/mealplanner/backend/internal/imaging"
)

type fakeProvider struct {
	name  string
	fail  bool
	// block makes Resolve wait for the context to end.
	block bool
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Resolve(ctx context.Context, q imaging.Query) (string, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.fail {
		return "", errors.New(f.name + " unavailable")
	}
	return fmt.Sprintf("https://%s.test/%s.jpg", f.name, q.Name), nil
}

func rawRecipe(name, typ string) map[string]interface{} {
	return map[string]interface{}{
		"name":            name,
		"urlImage":        "placeholder",
		"phrase":          "Tasty and quick",
		"preparationTime": float64(25),
		"ingredients":     []interface{}{"chicken", "tomato"},
		"people":          float64(2),
		"steps": []interface{}{
			"Dice the tomato into small cubes",
			"Sear the chicken over high heat for 4 minutes per side",
			"Simmer everything for 10 minutes",
			"Season with salt and serve hot",
		},
		"caloricRate": float64(520),
		"isFavorite":  false,
		"type":        typ,
	}
}

func recipesPayload(n int) map[string]interface{} {
	list := make([]interface{}, n)
	for i := range list {
		list[i] = rawRecipe(fmt.Sprintf("Chicken dish %d", i+1), "lunch")
	}
	return map[string]interface{}{"recipes": list}
}

func mealsPayload(date string, n int) map[string]interface{} {
	slots := []struct{ typ, hour string }{
		{"breakfast", "08:00:00"},
		{"almuerzo", "13:00:00"},
		{"Dinner", "20:00:00"},
	}
	meals := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		slot := slots[i%len(slots)]
		meals = append(meals, map[string]interface{}{
			"name":   fmt.Sprintf("%s meal", slot.typ),
			"type":   slot.typ,
			"time":   date + "T" + slot.hour,
			"recipe": rawRecipe(fmt.Sprintf("%s recipe %d", slot.typ, i+1), slot.typ),
		})
	}
	return map[string]interface{}{"date": date, "meals": meals}
}
