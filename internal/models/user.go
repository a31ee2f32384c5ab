package models

import (
	"time"

	"gorm.io/gorm"
)

// User is created on the first successful code login or admin SSO.
type User struct {
	gorm.Model
	Email       string `gorm:"uniqueIndex:idx_users_email_not_deleted,where:deleted_at IS NULL;not null"`
	Name        string `gorm:"not null;default:''"`
	IsAdmin     bool   `gorm:"not null;default:false"`
	LastLoginAt *time.Time

	Identities []AdminIdentity `gorm:"constraint:OnDelete:CASCADE;"`
}

// AdminIdentity links a user to an external SSO account.
type AdminIdentity struct {
	gorm.Model
	UserID         uint   `gorm:"not null;index"`
	Provider       string `gorm:"not null"`
	ProviderUserID string `gorm:"not null;uniqueIndex:idx_admin_identities_provider_user,where:deleted_at IS NULL"`
	LastSSOAt      *time.Time
}
