package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every problem found in one pass
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

var (
	supportedProviders  = map[string]bool{"openai": true, "groq": true}
	supportedStrategies = map[string]bool{"stock": true, "ai": true, "hybrid": true}
	supportedDrivers    = map[string]bool{"postgres": true, "sqlite": true}
)

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors

	if !supportedProviders[cfg.AI.Provider] {
		errs = append(errs, ValidationError{Field: "AI_PROVIDER", Message: fmt.Sprintf("unsupported provider %q (want openai or groq)", cfg.AI.Provider)})
	} else if cfg.Environment != Test && cfg.AI.APIKey() == "" {
		errs = append(errs, ValidationError{Field: strings.ToUpper(cfg.AI.Provider) + "_API_KEY", Message: "required for the selected AI provider"})
	}

	if !supportedStrategies[cfg.Images.Strategy] {
		errs = append(errs, ValidationError{Field: "IMAGE_STRATEGY", Message: fmt.Sprintf("unsupported strategy %q (want stock, ai or hybrid)", cfg.Images.Strategy)})
	}

	if !supportedDrivers[cfg.DBDriver] {
		errs = append(errs, ValidationError{Field: "DB_DRIVER", Message: fmt.Sprintf("unsupported driver %q", cfg.DBDriver)})
	}

	if cfg.Environment != Test && cfg.JWTSecret == "" {
		errs = append(errs, ValidationError{Field: "JWT_SECRET", Message: "jwt_secret secret or JWT_SECRET is required"})
	}

	if cfg.Environment.IsProduction() && cfg.DBDriver == "sqlite" {
		errs = append(errs, ValidationError{Field: "DB_DRIVER", Message: "sqlite is not allowed in production"})
	}

	if cfg.Worker.Concurrency < 1 {
		errs = append(errs, ValidationError{Field: "WORKER_CONCURRENCY", Message: "must be at least 1"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
