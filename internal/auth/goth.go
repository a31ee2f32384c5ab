package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/config"
	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/logging"
	"github.com/jimdaga/ki-report/internal/models"
)

const providerGoogle = "google"

// InitProviders configures Google SSO for admins. It reports false when no
// client ID is set and the SSO routes should stay unregistered.
func InitProviders(cfg *config.Config, logger *slog.Logger) bool {
	// gothic keeps its OAuth state in its own gorilla store.
	gothStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	gothStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = gothStore

	if cfg.GoogleClientID == "" {
		logger.Info("GOOGLE_CLIENT_ID not set, admin SSO disabled")
		return false
	}

	goth.UseProviders(google.New(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, "email", "profile"))
	logger.Info("admin SSO enabled", "provider", providerGoogle)
	return true
}

// HandleSSOLogin starts the Google OAuth flow.
func HandleSSOLogin(c *gin.Context) {
	withProvider(c)
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// HandleSSOCallback completes the OAuth flow. Only configured admins are
// accepted; they get the same session token as a code login.
func (h *Handlers) HandleSSOCallback(c *gin.Context) {
	withProvider(c)
	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		h.logger.Warn("SSO callback failed", "error", err)
		httpx.Unauthorized(c, "SSO failed")
		return
	}

	ctx := c.Request.Context()
	email := NormalizeEmail(gothUser.Email)
	if !h.svc.opts.IsAdmin(email) {
		h.svc.audit(ctx, email, models.AuditAdminSSODenied, false, c.ClientIP(), c.Request.UserAgent())
		httpx.Forbidden(c, "admin access required")
		return
	}

	user, err := h.svc.UpsertUser(ctx, email, gothUser.Name)
	if err != nil {
		h.logger.Error("failed to upsert SSO admin", "error", err)
		httpx.Internal(c, "could not sign in")
		return
	}
	if err := linkIdentity(h.svc.db.WithContext(ctx), user.ID, gothUser.UserID, h.svc.now()); err != nil {
		h.logger.Error("failed to link SSO identity", "error", err)
	}

	token, err := h.svc.tokens.Issue(user.Email, true)
	if err != nil || !storeSessionToken(c, token, h.logger) {
		httpx.Internal(c, "could not create session")
		return
	}

	h.svc.audit(ctx, email, models.AuditAdminSSO, true, c.ClientIP(), c.Request.UserAgent())
	h.logger.Info("admin signed in via SSO", "email", logging.MaskEmail(email))
	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer", "email": user.Email, "is_admin": true})
}

func linkIdentity(db *gorm.DB, userID uint, providerUserID string, now time.Time) error {
	var ident models.AdminIdentity
	err := db.Where("provider = ? AND provider_user_id = ?", providerGoogle, providerUserID).First(&ident).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&models.AdminIdentity{
			UserID:         userID,
			Provider:       providerGoogle,
			ProviderUserID: providerUserID,
			LastSSOAt:      &now,
		}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&ident).Updates(map[string]interface{}{"user_id": userID, "last_sso_at": now}).Error
}

// gothic reads the provider from the query string.
func withProvider(c *gin.Context) {
	q := c.Request.URL.Query()
	q.Set("provider", providerGoogle)
	c.Request.URL.RawQuery = q.Encode()
}
