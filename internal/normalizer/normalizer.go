// Package normalizer coerces untrusted AI recipe output into valid
// models.Recipe values.
package normalizer

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/models"
)

// Field bounds and defaults applied during coercion.
const (
	MinPreparationTime     = 1
	MaxPreparationTime     = 600
	DefaultPreparationTime = 30
	MinPeople              = 1
	MaxPeople              = 20
	DefaultPeople          = 2
	MinCaloricRate         = 0.0
	MaxCaloricRate         = 5000.0
	DefaultCaloricRate     = 300.0
)

var (
	ErrMissingName        = errors.New("recipe name is required")
	ErrMissingIngredients = errors.New("recipe needs at least one ingredient")
	ErrMissingSteps       = errors.New("recipe needs at least one step")
)

var canonicalTypes = map[string]bool{
	models.MealTypeBreakfast: true,
	models.MealTypeLunch:     true,
	models.MealTypeDinner:    true,
}

type synonym struct {
	phrase    string
	canonical string
}

// synonyms is ordered: the containment search returns the first hit.
var synonyms = []synonym{
	{"breakfast", models.MealTypeBreakfast},
	{"morning meal", models.MealTypeBreakfast},
	{"brunch", models.MealTypeBreakfast},
	{"desayuno", models.MealTypeBreakfast},
	{"desayuno saludable", models.MealTypeBreakfast},
	{"desayuno ligero", models.MealTypeBreakfast},
	{"desayuno completo", models.MealTypeBreakfast},

	{"lunch", models.MealTypeLunch},
	{"midday meal", models.MealTypeLunch},
	{"luncheon", models.MealTypeLunch},
	{"comida", models.MealTypeLunch},
	{"almuerzo", models.MealTypeLunch},
	{"almuerzo ligero", models.MealTypeLunch},
	{"comida ligera", models.MealTypeLunch},
	{"comida completa", models.MealTypeLunch},

	{"dinner", models.MealTypeDinner},
	{"evening meal", models.MealTypeDinner},
	{"supper", models.MealTypeDinner},
	{"cena", models.MealTypeDinner},
	{"cena ligera", models.MealTypeDinner},
	{"cena completa", models.MealTypeDinner},
}

var synonymIndex = func() map[string]string {
	idx := make(map[string]string, len(synonyms))
	for _, s := range synonyms {
		idx[s.phrase] = s.canonical
	}
	return idx
}()

// Aliases consulted on the lenient retry pass.
var (
	ingredientAliases = []string{"ingredientes", "ingredient_list"}
	stepAliases       = []string{"instructions", "directions", "method", "pasos"}
)

// Normalizer validates and coerces raw recipes.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// NormalizeType maps free text to breakfast, lunch or dinner, returning
// fallback when nothing matches.
func (n *Normalizer) NormalizeType(value, fallback string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return fallback
	}
	if canonicalTypes[normalized] {
		return normalized
	}
	if canonical, ok := synonymIndex[normalized]; ok {
		return canonical
	}
	for _, s := range synonyms {
		if strings.Contains(normalized, s.phrase) || strings.Contains(s.phrase, normalized) {
			return s.canonical
		}
	}

	n.logger.Warn("unrecognized meal type, using fallback",
		zap.String("type", value),
		zap.String("fallback", fallback))
	return fallback
}

// NormalizeRecipe coerces raw into a recipe. It fails only when the name,
// the ingredients or the steps are missing.
func (n *Normalizer) NormalizeRecipe(raw map[string]interface{}, fallbackType string) (*models.Recipe, error) {
	return n.normalize(raw, fallbackType, false)
}

func (n *Normalizer) normalize(raw map[string]interface{}, fallbackType string, lenient bool) (*models.Recipe, error) {
	if raw == nil {
		return nil, apperrors.NewValidationError("recipe must be an object")
	}

	recipe := &models.Recipe{
		Name:            stringField(raw["name"]),
		URLImage:        stringField(raw["urlImage"]),
		Phrase:          stringField(raw["phrase"]),
		PreparationTime: intInRange(raw["preparationTime"], MinPreparationTime, MaxPreparationTime, DefaultPreparationTime),
		Ingredients:     stringList(raw["ingredients"]),
		People:          intInRange(raw["people"], MinPeople, MaxPeople, DefaultPeople),
		Steps:           stringList(raw["steps"]),
		CaloricRate:     floatInRange(raw["caloricRate"], MinCaloricRate, MaxCaloricRate, DefaultCaloricRate),
		IsFavorite:      boolField(raw["isFavorite"]),
		Type:            n.NormalizeType(stringField(raw["type"]), fallbackType),
	}

	if lenient {
		if len(recipe.Ingredients) == 0 {
			recipe.Ingredients = firstList(raw, ingredientAliases)
		}
		if len(recipe.Steps) == 0 {
			recipe.Steps = firstList(raw, stepAliases)
		}
	}

	switch {
	case recipe.Name == "":
		return nil, apperrors.NewValidationError(ErrMissingName.Error()).WithCause(ErrMissingName)
	case len(recipe.Ingredients) == 0:
		return nil, apperrors.NewValidationError(ErrMissingIngredients.Error()).WithCause(ErrMissingIngredients)
	case len(recipe.Steps) == 0:
		return nil, apperrors.NewValidationError(ErrMissingSteps.Error()).WithCause(ErrMissingSteps)
	}

	return recipe, nil
}

// NormalizeRecipes normalizes each entry independently. A failing entry is
// retried once with a synthesized name, a defaulted type and alias fields;
// entries that still fail are dropped. It errors only when no entry survives.
func (n *Normalizer) NormalizeRecipes(raws []map[string]interface{}) ([]*models.Recipe, error) {
	if len(raws) == 0 {
		return nil, apperrors.NewBatchError(0, errors.New("empty recipe list"))
	}

	out := make([]*models.Recipe, 0, len(raws))
	var lastErr error
	for i, raw := range raws {
		recipe, err := n.NormalizeRecipe(raw, models.MealTypeLunch)
		if err == nil {
			out = append(out, recipe)
			continue
		}

		n.logger.Warn("recipe failed normalization, retrying with defaults",
			zap.Int("index", i),
			zap.Error(err))

		patched := make(map[string]interface{}, len(raw)+2)
		for k, v := range raw {
			patched[k] = v
		}
		if stringField(raw["name"]) == "" {
			patched["name"] = fmt.Sprintf("Recipe %d", i+1)
		}
		patched["type"] = n.NormalizeType(stringField(raw["type"]), models.MealTypeLunch)

		recipe, err = n.normalize(patched, models.MealTypeLunch, true)
		if err != nil {
			n.logger.Error("dropping unsalvageable recipe", zap.Int("index", i), zap.Error(err))
			lastErr = err
			continue
		}
		out = append(out, recipe)
	}

	if len(out) == 0 {
		return nil, apperrors.NewBatchError(len(raws), lastErr)
	}
	return out, nil
}

// ToRawList converts a decoded JSON array into recipe maps, skipping
// entries that are not objects.
func ToRawList(value interface{}) ([]map[string]interface{}, bool) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		} else {
			out = append(out, map[string]interface{}{})
		}
	}
	return out, true
}

func stringField(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func stringList(v interface{}) models.StringList {
	var items []string
	switch t := v.(type) {
	case []interface{}:
		for _, item := range t {
			if item == nil {
				continue
			}
			items = append(items, stringField(item))
		}
	case []string:
		items = t
	case string:
		items = strings.Split(t, "\n")
	}

	out := make(models.StringList, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstList(raw map[string]interface{}, keys []string) models.StringList {
	for _, key := range keys {
		if list := stringList(raw[key]); len(list) > 0 {
			return list
		}
	}
	return models.StringList{}
}

func number(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func intInRange(v interface{}, min, max, def int) int {
	f, ok := number(v)
	if !ok {
		return def
	}
	i := int(math.Round(f))
	if i < min || i > max {
		return def
	}
	return i
}

func floatInRange(v interface{}, min, max, def float64) float64 {
	f, ok := number(v)
	if !ok || f < min || f > max {
		return def
	}
	return f
}

func boolField(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(t))
		return b
	default:
		return false
	}
}
