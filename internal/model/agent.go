package model

import (
	"time"

	"gorm.io/gorm"
)

type Agent struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	UserID       string    `gorm:"not null;index" json:"userId"`
	Instructions string    `gorm:"not null" json:"instructions"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	return assignID(&a.ID)
}
