// Package auth implements passwordless login with emailed one-time codes,
// HS256 session tokens and optional Google SSO for admins.
package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/logging"
	"github.com/jimdaga/ki-report/internal/mail"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/store"
)

var (
	ErrRateLimited     = errors.New("too many code requests")
	ErrInvalidCode     = errors.New("invalid code")
	ErrCodeExpired     = errors.New("code expired")
	ErrCodeUsed        = errors.New("code already used")
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrInvalidEmail    = errors.New("invalid email")
)

var (
	reCode  = regexp.MustCompile(`^\d{6}$`)
	reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

const purposeLogin = "login"

// Options tunes the code lifecycle.
type Options struct {
	CodeTTL     time.Duration
	MaxAttempts int
	RatePerHour int
	HashCost    int
	IsAdmin     func(email string) bool
}

// Service issues and verifies login codes.
type Service struct {
	db     *gorm.DB
	kv     store.Store
	sender *mail.Sender
	tokens *TokenIssuer
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a Service. Zero options fall back to 10 minutes,
// 5 attempts and 3 requests per hour.
func NewService(db *gorm.DB, kv store.Store, sender *mail.Sender, tokens *TokenIssuer, opts Options, logger *slog.Logger) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.RatePerHour <= 0 {
		opts.RatePerHour = 3
	}
	if opts.HashCost == 0 {
		opts.HashCost = bcrypt.DefaultCost
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(string) bool { return false }
	}
	return &Service{db: db, kv: kv, sender: sender, tokens: tokens, opts: opts, logger: logger, now: time.Now}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequestCode emails a fresh code to email. Delivery failures are logged and
// audited but not returned, so callers cannot probe addresses.
func (s *Service) RequestCode(ctx context.Context, email, ip, ua string) error {
	email = NormalizeEmail(email)
	if !reEmail.MatchString(email) {
		return ErrInvalidEmail
	}
	now := s.now()

	if _, err := s.CleanupExpired(ctx); err != nil {
		s.logger.Warn("failed to purge expired login codes", "error", err)
	}

	n, err := s.kv.Incr(ctx, "login:rate:"+email, time.Hour)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if n > int64(s.opts.RatePerHour) {
		s.audit(ctx, email, models.AuditRequestCodeRateLimited, false, ip, ua)
		return ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.opts.HashCost)
	if err != nil {
		return fmt.Errorf("failed to hash code: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LoginCode{}).
			Where("email = ? AND purpose = ? AND consumed_at IS NULL", email, purposeLogin).
			Update("consumed_at", now).Error; err != nil {
			return fmt.Errorf("failed to invalidate previous codes: %w", err)
		}
		lc := models.LoginCode{
			Email:     email,
			CodeHash:  string(hash),
			Purpose:   purposeLogin,
			ExpiresAt: now.Add(s.opts.CodeTTL),
			IPAddress: ip,
			UserAgent: ua,
			CreatedAt: now,
		}
		if err := tx.Create(&lc).Error; err != nil {
			return fmt.Errorf("failed to store login code: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	ok, errMsg := s.sender.Send(ctx, mail.LoginCode(email, code, s.opts.CodeTTL))
	if !ok {
		s.logger.Warn("login code email not delivered", "email", logging.MaskEmail(email), "error", errMsg)
	}
	s.audit(ctx, email, models.AuditRequestCode, ok, ip, ua)
	return nil
}

// VerifyCode checks code against the latest code issued for email and, on
// success, upserts the user and returns a session token.
func (s *Service) VerifyCode(ctx context.Context, email, code, ip, ua string) (string, *models.User, error) {
	email = NormalizeEmail(email)
	code = strings.TrimSpace(code)
	now := s.now()
	db := s.db.WithContext(ctx)

	if !reCode.MatchString(code) {
		s.audit(ctx, email, models.AuditVerifyCodeInvalid, false, ip, ua)
		return "", nil, ErrInvalidCode
	}

	var lc models.LoginCode
	err := db.Where("email = ? AND purpose = ?", email, purposeLogin).Order("id DESC").First(&lc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.audit(ctx, email, models.AuditVerifyCodeInvalid, false, ip, ua)
		return "", nil, ErrInvalidCode
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load login code: %w", err)
	}

	switch {
	case lc.ConsumedAt != nil:
		s.audit(ctx, email, models.AuditVerifyCodeAlreadyUsed, false, ip, ua)
		return "", nil, ErrCodeUsed
	case !now.Before(lc.ExpiresAt):
		s.audit(ctx, email, models.AuditVerifyCodeExpired, false, ip, ua)
		return "", nil, ErrCodeExpired
	}

	// Claim the attempt before comparing so concurrent guesses cannot all
	// slip under the limit.
	claim := db.Model(&models.LoginCode{}).
		Where("id = ? AND attempts < ? AND consumed_at IS NULL", lc.ID, s.opts.MaxAttempts).
		UpdateColumn("attempts", gorm.Expr("attempts + 1"))
	if claim.Error != nil {
		return "", nil, fmt.Errorf("failed to count attempt: %w", claim.Error)
	}
	if claim.RowsAffected == 0 {
		s.audit(ctx, email, models.AuditVerifyCodeTooMany, false, ip, ua)
		return "", nil, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(lc.CodeHash), []byte(code)) != nil {
		s.audit(ctx, email, models.AuditVerifyCodeInvalid, false, ip, ua)
		return "", nil, ErrInvalidCode
	}

	consume := db.Model(&models.LoginCode{}).
		Where("id = ? AND consumed_at IS NULL", lc.ID).
		UpdateColumn("consumed_at", now)
	if consume.Error != nil {
		return "", nil, fmt.Errorf("failed to consume code: %w", consume.Error)
	}
	if consume.RowsAffected == 0 {
		s.audit(ctx, email, models.AuditVerifyCodeAlreadyUsed, false, ip, ua)
		return "", nil, ErrCodeUsed
	}

	user, err := s.UpsertUser(ctx, email, "")
	if err != nil {
		return "", nil, err
	}
	token, err := s.tokens.Issue(user.Email, user.IsAdmin)
	if err != nil {
		return "", nil, err
	}

	s.audit(ctx, email, models.AuditVerifyCode, true, ip, ua)
	s.logger.Info("user logged in", "email", logging.MaskEmail(email), "admin", user.IsAdmin)
	return token, user, nil
}

// UpsertUser creates or refreshes the user row. The admin flag follows the
// configured admin list on every login.
func (s *Service) UpsertUser(ctx context.Context, email, name string) (*models.User, error) {
	now := s.now()
	db := s.db.WithContext(ctx)
	isAdmin := s.opts.IsAdmin(email)

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Email: email, Name: name, IsAdmin: isAdmin, LastLoginAt: &now}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load user: %w", err)
	default:
		updates := map[string]interface{}{
			"is_admin":      isAdmin,
			"last_login_at": now,
		}
		if name != "" {
			updates["name"] = name
		}
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
	}
	return &user, nil
}

// CleanupExpired deletes login codes whose expiry has passed.
func (s *Service) CleanupExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", s.now()).Delete(&models.LoginCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Service) audit(ctx context.Context, email, action string, success bool, ip, ua string) {
	entry := models.LoginAudit{
		Email:     email,
		Action:    action,
		Success:   success,
		IPAddress: ip,
		UserAgent: ua,
		CreatedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.logger.Error("failed to write login audit", "action", action, "error", err)
	}
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
