package auth

import (
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/jimdaga/ki-report/internal/httpx"
)

// Context and session keys.
const (
	ContextEmail = "user_email"
	ContextAdmin = "is_admin"
	sessionToken = "token"
)

// Authenticate resolves the caller from a Bearer token or the session
// cookie and stores email and admin flag in the gin context. Anonymous
// requests pass through.
func Authenticate(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			if v, ok := sessions.Default(c).Get(sessionToken).(string); ok {
				raw = v
			}
		}
		if raw != "" {
			if claims, err := tokens.Parse(raw); err == nil {
				c.Set(ContextEmail, claims.Subject)
				c.Set(ContextAdmin, claims.Admin)
			}
		}
		c.Next()
	}
}

// RequireAuth rejects requests without a valid session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentEmail(c) == "" {
			httpx.Unauthorized(c, "authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects authenticated users without the admin claim.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentEmail(c) == "" {
			httpx.Unauthorized(c, "authentication required")
			return
		}
		if !c.GetBool(ContextAdmin) {
			httpx.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

// CurrentEmail returns the authenticated email or "".
func CurrentEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
