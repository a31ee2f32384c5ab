package models

import (
	"time"
)

// LoginCode is a hashed one-time login code.
type LoginCode struct {
	ID         uint      `gorm:"primarykey"`
	Email      string    `gorm:"not null;index"`
	CodeHash   string    `gorm:"not null"`
	Purpose    string    `gorm:"not null;default:'login'"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	ConsumedAt *time.Time
	Attempts   int `gorm:"not null;default:0"`
	IPAddress  string
	UserAgent  string `gorm:"type:text"`
	CreatedAt  time.Time
}

// Login audit actions.
const (
	AuditRequestCode            = "request_code"
	AuditRequestCodeRateLimited = "request_code_rate_limited"
	AuditVerifyCode             = "verify_code"
	AuditVerifyCodeInvalid      = "verify_code_invalid"
	AuditVerifyCodeAlreadyUsed  = "verify_code_already_used"
	AuditVerifyCodeExpired      = "verify_code_expired"
	AuditVerifyCodeTooMany      = "verify_code_too_many_attempts"
	AuditAdminSSO               = "admin_sso"
	AuditAdminSSODenied         = "admin_sso_denied"
)

// LoginAudit is an append-only record of login attempts.
type LoginAudit struct {
	ID        uint   `gorm:"primarykey"`
	Email     string `gorm:"index"`
	Action    string `gorm:"not null;index"`
	Success   bool
	IPAddress string
	UserAgent string `gorm:"type:text"`
	CreatedAt time.Time
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{&User{}, &AdminIdentity{}, &Briefing{}, &BriefingDraft{}, &Analysis{}, &Report{}, &LoginCode{}, &LoginAudit{}}
}
