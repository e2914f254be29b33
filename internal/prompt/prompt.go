// Package prompt builds the instructions sent to the AI text provider.
// Every builder is pure: identical inputs produce identical prompts.
package prompt

import (
	"fmt"
	"strings"
)

// RecipeCount is the number of recipes requested per ingredient prompt.
const RecipeCount = 5

// Preferences are the user's cooking preferences. Empty fields are
// replaced by neutral defaults.
type Preferences struct {
	Objective  string
	SkillLevel string
	DietType   string
	Allergy    string
}

func (p Preferences) withDefaults() Preferences {
	return Preferences{
		Objective:  orDefault(p.Objective, "general"),
		SkillLevel: orDefault(p.SkillLevel, "intermediate"),
		DietType:   orDefault(p.DietType, "no restrictions"),
		Allergy:    orDefault(p.Allergy, "none"),
	}
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

func preferencesBlock(p Preferences) string {
	p = p.withDefaults()
	return fmt.Sprintf(`- Objective: %s
- Cooking skill: %s
- Diet type: %s
- Allergies: %s`, p.Objective, p.SkillLevel, p.DietType, p.Allergy)
}

const typeRules = `CRITICAL RULES FOR THE "type" FIELD:
- "type" may ONLY be one of these 3 EXACT values: "breakfast", "lunch" or "dinner"
- Do NOT use variations such as "brunch", "light lunch", "healthy breakfast", "supper", "snack" or "main course"
- Morning meal -> "breakfast"
- Midday meal -> "lunch"
- Evening meal -> "dinner"`

const stepRules = `RULES FOR "steps":
- Provide between 4 and 6 steps
- Each step is one imperative sentence naming a concrete technique, heat level or time (for example "Sear the chicken over high heat for 3 minutes per side")
- Never write vague steps such as "Cook the ingredients" or "Prepare the dish"`

const jsonOnly = `IMPORTANT: Reply ONLY with valid JSON. No extra text, no comments, no markdown code fences.`

const recipeShape = `{
      "name": "Recipe name",
      "urlImage": "placeholder",
      "phrase": "Short appealing description",
      "preparationTime": 30,
      "ingredients": ["ingredient 1", "ingredient 2"],
      "people": 2,
      "steps": ["Step 1", "Step 2", "Step 3", "Step 4"],
      "caloricRate": 450,
      "isFavorite": false,
      "type": "%s"
    }`

// RecipesFromIngredients asks for RecipeCount recipes built around ingredients.
func RecipesFromIngredients(ingredients []string, prefs Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d recipes using these ingredients: %s.\n\n", RecipeCount, strings.Join(ingredients, ", "))
	b.WriteString("Take these user preferences into account:\n")
	b.WriteString(preferencesBlock(prefs))
	b.WriteString("\n\n")
	b.WriteString(typeRules)
	b.WriteString("\n\n")
	b.WriteString(stepRules)
	b.WriteString("\n\n")
	b.WriteString(jsonOnly)
	b.WriteString("\nThe JSON must have exactly this structure:\n\n")
	b.WriteString("{\n  \"recipes\": [\n    ")
	fmt.Fprintf(&b, recipeShape, "lunch")
	b.WriteString("\n  ]\n}\n\n")
	b.WriteString(`Remember: "type" MUST be exactly "breakfast", "lunch" or "dinner". Nothing else.`)
	return b.String()
}

// MealSlot describes one fixed slot of a daily plan.
type MealSlot struct {
	Type string
	Hour string
}

// DailySlots are the three slots every daily plan fills, in order.
var DailySlots = []MealSlot{
	{Type: "breakfast", Hour: "08:00:00"},
	{Type: "lunch", Hour: "13:00:00"},
	{Type: "dinner", Hour: "20:00:00"},
}

// SlotTime returns the ISO local time of a slot on date.
func SlotTime(date string, slot MealSlot) string {
	return date + "T" + slot.Hour
}

// DailyMealPlan asks for a three-meal plan for date.
func DailyMealPlan(date string, prefs Preferences) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a meal plan for %s with these preferences:\n", date)
	b.WriteString(preferencesBlock(prefs))
	b.WriteString("\n\nThe plan must contain exactly 3 meals: breakfast, lunch and dinner.\n\n")
	b.WriteString(typeRules)
	b.WriteString("\n\n")
	b.WriteString(stepRules)
	b.WriteString("\n\n")
	b.WriteString(jsonOnly)
	b.WriteString("\nThe JSON must have exactly this structure:\n\n")
	fmt.Fprintf(&b, "{\n  \"date\": \"%s\",\n  \"meals\": [\n", date)
	for i, slot := range DailySlots {
		fmt.Fprintf(&b, "    {\n      \"name\": \"%s name\",\n      \"type\": \"%s\",\n      \"time\": \"%s\",\n      \"recipe\": ",
			slot.Type, slot.Type, SlotTime(date, slot))
		fmt.Fprintf(&b, recipeShape, slot.Type)
		b.WriteString("\n    }")
		if i < len(DailySlots)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ]\n}")
	return b.String()
}

// RecipeImage describes a recipe for an image generation model.
func RecipeImage(recipeName string) string {
	return fmt.Sprintf(`An appetizing, professional photograph of a dish called "%s". The image must be realistic, well lit and show the plate attractively.`, recipeName)
}
