// Package api holds the HTTP handlers of the meal planner.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/middleware"
)

// respondError renders err as {"error", "code", "details"}. Errors without
// a code are logged and reported as internal.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError("", err)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("code", string(appErr.Code)),
			zap.Error(err))
	}

	body := gin.H{"error": appErr.Message, "code": appErr.Code}
	if appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if len(appErr.Metadata) > 0 {
		body["metadata"] = appErr.Metadata
	}
	c.JSON(appErr.StatusCode(), body)
}

// bindingError converts a ShouldBind failure into a validation error.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return apperrors.NewValidationError(fe.Field() + " failed on the '" + fe.Tag() + "' rule")
	}
	return apperrors.New(apperrors.CodeBadRequest, "Invalid request body", err.Error())
}

func currentUser(c *gin.Context) (uuid.UUID, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, apperrors.New(apperrors.CodeUnauthorized, "user not authenticated", "")
	}
	return id, nil
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(name + " must be a valid UUID")
	}
	return id, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func withGuards(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, handler)
}
