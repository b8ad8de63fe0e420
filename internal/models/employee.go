package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Employee is the onboarding record tasks can be scoped to. Employee CRUD is
// owned by a separate service; this model only exists so task references
// resolve to a real row.
type Employee struct {
	ID              string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Name            string    `gorm:"not null" json:"name"`
	Email           string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Department      string    `gorm:"not null" json:"department"`
	Position        string    `gorm:"not null" json:"position"`
	StartDate       time.Time `gorm:"not null" json:"start_date"`
	Status          string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	OnboardingStage string    `gorm:"not null;default:'Pre-boarding'" json:"onboarding_stage"`
	CreatedAt       time.Time `json:"created_at"`

	// Relations
	Tasks []Task `gorm:"foreignKey:TargetEmployeeID" json:"-"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
