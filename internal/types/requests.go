package types

import (
	"github.com/google/uuid"
)

// RegisterRequest creates an account with optional cooking preferences.
type RegisterRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=8,max=72"`
	Objective  string `json:"objective" binding:"max=100"`
	SkillLevel string `json:"skillLevel" binding:"max=50"`
	DietType   string `json:"dietType" binding:"max=100"`
	Allergy    string `json:"allergy" binding:"max=200"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// UpdateProfileRequest changes profile fields. Nil fields are left alone.
type UpdateProfileRequest struct {
	Name       *string  `json:"name,omitempty" binding:"omitempty,max=100"`
	Avatar     *string  `json:"avatar,omitempty" binding:"omitempty,url"`
	Gender     *string  `json:"gender,omitempty" binding:"omitempty,max=30"`
	Weight     *float64 `json:"weight,omitempty" binding:"omitempty,gte=0,lte=500"`
	Height     *float64 `json:"height,omitempty" binding:"omitempty,gte=0,lte=300"`
	Objective  *string  `json:"objective,omitempty" binding:"omitempty,max=100"`
	SkillLevel *string  `json:"skillLevel,omitempty" binding:"omitempty,max=50"`
	DietType   *string  `json:"dietType,omitempty" binding:"omitempty,max=100"`
	Allergy    *string  `json:"allergy,omitempty" binding:"omitempty,max=200"`
}

// GenerateRecipesRequest asks for recipes from a list of ingredients.
type GenerateRecipesRequest struct {
	Ingredients    []string `json:"ingredients" binding:"required,min=1,max=30,dive,max=100"`
	GenerateImages *bool    `json:"generateImages"`
	ImageStrategy  string   `json:"imageStrategy" binding:"omitempty,image_strategy"`
}

// DailyPlanRequest asks for a three-meal plan on Date.
type DailyPlanRequest struct {
	Date           string `json:"date" binding:"required,date_ymd"`
	Overwrite      bool   `json:"overwrite"`
	GenerateImages *bool  `json:"generateImages"`
	ImageStrategy  string `json:"imageStrategy" binding:"omitempty,image_strategy"`
}

// SaveRecipesRequest stores recipes the user picked.
type SaveRecipesRequest struct {
	Recipes []map[string]interface{} `json:"recipes" binding:"required,min=1,max=20"`
}

// EmailRecipesRequest mails stored recipes. Email defaults to the user's.
type EmailRecipesRequest struct {
	Email     string      `json:"email" binding:"omitempty,email"`
	RecipeIDs []uuid.UUID `json:"recipeIds" binding:"required,min=1,max=20"`
}

// ListResponse wraps a page of results.
type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}
