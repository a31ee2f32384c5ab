package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/ki-report/internal/httpx"
)

// Handlers exposes the code login endpoints.
type Handlers struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandlers creates Handlers.
func NewHandlers(svc *Service, logger *slog.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

type requestCodeBody struct {
	Email string `json:"email" binding:"required"`
}

type verifyCodeBody struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// HandleRequestCode answers 204 whether or not the mail went out.
func (h *Handlers) HandleRequestCode(c *gin.Context) {
	var body requestCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httpx.BadRequest(c, "email is required")
		return
	}

	err := h.svc.RequestCode(c.Request.Context(), body.Email, c.ClientIP(), c.Request.UserAgent())
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, ErrInvalidEmail):
		httpx.BadRequest(c, "invalid email")
	case errors.Is(err, ErrRateLimited):
		httpx.TooManyRequests(c, "too many code requests, try again later")
	default:
		h.logger.Error("failed to issue login code", "error", err)
		httpx.Internal(c, "could not issue login code")
	}
}

// HandleVerifyCode returns the session token and also stores it in the
// session cookie.
func (h *Handlers) HandleVerifyCode(c *gin.Context) {
	var body verifyCodeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		httpx.BadRequest(c, "email and code are required")
		return
	}

	token, user, err := h.svc.VerifyCode(c.Request.Context(), body.Email, body.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrCodeExpired), errors.Is(err, ErrCodeUsed):
			httpx.Unauthorized(c, err.Error())
		case errors.Is(err, ErrTooManyAttempts):
			httpx.TooManyRequests(c, err.Error())
		default:
			h.logger.Error("failed to verify login code", "error", err)
			httpx.Internal(c, "could not verify code")
		}
		return
	}

	if !storeSessionToken(c, token, h.logger) {
		httpx.Internal(c, "could not create session")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"email":        user.Email,
		"is_admin":     user.IsAdmin,
	})
}

// HandleLogout clears the session cookie.
func HandleLogout(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		session.Clear()
		if err := session.Save(); err != nil {
			logger.Error("failed to clear session", "error", err)
		}
		c.Status(http.StatusNoContent)
	}
}

func storeSessionToken(c *gin.Context, token string, logger *slog.Logger) bool {
	session := sessions.Default(c)
	session.Set(sessionToken, token)
	if err := session.Save(); err != nil {
		logger.Error("failed to save session", "error", err)
		return false
	}
	return true
}
