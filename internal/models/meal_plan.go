package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Meal attaches a recipe to a day plan slot
type Meal struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Type      string    `gorm:"size:20;not null" json:"type"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null" json:"recipeId"`
	Recipe    *Recipe   `json:"recipe,omitempty"`
	Time      string    `gorm:"size:32" json:"time"`
}

func (m *Meal) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// DayPlan is the set of meals a user plans for one calendar date.
// Date is stored as YYYY-MM-DD so range queries compare lexically.
type DayPlan struct {
	ID        uuid.UUID     `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	UserID    uuid.UUID     `gorm:"type:varchar(36);not null;uniqueIndex:idx_day_plans_user_date" json:"userId"`
	Date      string        `gorm:"type:varchar(10);not null;uniqueIndex:idx_day_plans_user_date" json:"date"`
	Meals     []DayPlanMeal `gorm:"constraint:OnDelete:CASCADE" json:"meals"`
}

func (p *DayPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// DayPlanMeal is one ordered slot of a day plan
type DayPlanMeal struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"-"`
	DayPlanID uuid.UUID `gorm:"type:varchar(36);not null;index" json:"-"`
	MealID    uuid.UUID `gorm:"type:varchar(36);not null" json:"mealId"`
	Meal      *Meal     `json:"meal,omitempty"`
	Position  int       `gorm:"not null" json:"position"`
	Time      string    `gorm:"size:32;not null" json:"time"`
}

func (s *DayPlanMeal) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// AllModels lists every persisted model in migration order
func AllModels() []interface{} {
	return []interface{}{&User{}, &Recipe{}, &Meal{}, &DayPlan{}, &DayPlanMeal{}}
}
