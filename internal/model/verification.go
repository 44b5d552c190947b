package model

import (
	"time"

	"gorm.io/gorm"
)

// Verification holds a value that proves something out of band, e.g. an
// email confirmation token or a pending OAuth state.
type Verification struct {
	ID         string    `gorm:"primaryKey"`
	Identifier string    `gorm:"not null;index"`
	Value      string    `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (v *Verification) BeforeCreate(tx *gorm.DB) error {
	return assignID(&v.ID)
}
