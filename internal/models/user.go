package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"type:varchar(36);primarykey" json:"id"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Role      string    `gorm:"type:varchar(50);not null;default:'hr'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	CreatedTasks []Task `gorm:"foreignKey:CreatedBy" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
