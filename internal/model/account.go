package model

import (
	"time"

	"gorm.io/gorm"
)

// CredentialProvider is the provider id used for email/password accounts.
const CredentialProvider = "credential"

// Account links a user to a way of signing in. Social providers store their
// OAuth tokens here, email/password accounts store the password hash.
type Account struct {
	ID                    string     `gorm:"primaryKey" json:"id"`
	AccountID             string     `gorm:"not null;uniqueIndex:idx_accounts_provider_account" json:"accountId"`
	ProviderID            string     `gorm:"not null;uniqueIndex:idx_accounts_provider_account" json:"providerId"`
	UserID                string     `gorm:"not null;index" json:"userId"`
	AccessToken           *string    `json:"-"`
	RefreshToken          *string    `json:"-"`
	IDToken               *string    `json:"-"`
	AccessTokenExpiresAt  *time.Time `json:"accessTokenExpiresAt,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refreshTokenExpiresAt,omitempty"`
	Scope                 *string    `json:"scope,omitempty"`
	Password              *string    `json:"-"`
	CreatedAt             time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt             time.Time  `gorm:"not null" json:"updatedAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	return assignID(&a.ID)
}
