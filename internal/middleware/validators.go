package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/pageza/mealplanner/backend/internal/imaging"
)

// RegisterValidators adds the custom binding tags used by request types:
// date_ymd (YYYY-MM-DD) and image_strategy (stock, ai or hybrid).
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("date_ymd", validateDateYMD); err != nil {
		return fmt.Errorf("failed to register date_ymd: %w", err)
	}
	if err := v.RegisterValidation("image_strategy", validateImageStrategy); err != nil {
		return fmt.Errorf("failed to register image_strategy: %w", err)
	}
	return nil
}

func validateDateYMD(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateImageStrategy(fl validator.FieldLevel) bool {
	switch imaging.Strategy(fl.Field().String()) {
	case imaging.StrategyStock, imaging.StrategyAI, imaging.StrategyHybrid:
		return true
	}
	return false
}
