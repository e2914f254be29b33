package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meal types accepted on recipes and meals
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
)

// Image lifecycle states for asynchronous image completion
const (
	ImageStatusPending    = "pending"
	ImageStatusProcessing = "processing"
	ImageStatusCompleted  = "completed"
	ImageStatusFailed     = "failed"
)

type Recipe struct {
	ID              uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt       time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	UserID          uuid.UUID      `gorm:"type:varchar(36);not null;index:idx_recipes_user_generated" json:"userId"`
	IsGenerated     bool           `gorm:"not null;default:false;index:idx_recipes_user_generated" json:"isGenerated"`
	Name            string         `gorm:"size:255;not null" json:"name"`
	URLImage        string         `gorm:"type:text" json:"urlImage"`
	Phrase          string         `gorm:"type:text" json:"phrase"`
	PreparationTime int            `gorm:"not null" json:"preparationTime"`
	Ingredients     StringList     `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	People          int            `gorm:"not null" json:"people"`
	Steps           StringList     `gorm:"type:jsonb;not null;default:'[]'" json:"steps"`
	CaloricRate     float64        `gorm:"not null" json:"caloricRate"`
	IsFavorite      bool           `gorm:"not null;default:false" json:"isFavorite"`
	Type            string         `gorm:"size:20;not null" json:"type"`
	ImageStatus     string         `gorm:"size:20" json:"imageStatus,omitempty"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
