package service

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pageza/mealplanner/backend/internal/apperrors"
	"github.com/pageza/mealplanner/backend/internal/models"
	"github.com/pageza/mealplanner/backend/internal/types"
)

// ProfileService reads and updates the user's profile and preferences.
type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

func (s *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return loadUser(ctx, s.db, userID)
}

// UpdateProfile applies the non-nil fields of req.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req *types.UpdateProfileRequest) (*models.User, error) {
	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	setString("name", req.Name)
	setString("avatar", req.Avatar)
	setString("gender", req.Gender)
	setString("objective", req.Objective)
	setString("skill_level", req.SkillLevel)
	setString("diet_type", req.DietType)
	setString("allergy", req.Allergy)
	if req.Weight != nil {
		updates["weight"] = *req.Weight
	}
	if req.Height != nil {
		updates["height"] = *req.Height
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.NewInternalError("failed to update profile", err)
		}
	}
	return loadUser(ctx, s.db, userID)
}
