package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User owns recipes and day plans. The cooking preferences feed every
// generation prompt.
type User struct {
	ID           uuid.UUID      `gorm:"type:varchar(36);primarykey" json:"id"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `json:"name"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Avatar       string         `json:"avatar"`
	Gender       string         `json:"gender"`
	Weight       float64        `json:"weight"`
	Height       float64        `json:"height"`
	Objective    string         `json:"objective"`
	SkillLevel   string         `json:"skillLevel"`
	DietType     string         `json:"dietType"`
	Allergy      string         `json:"allergy"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
