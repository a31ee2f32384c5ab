// Package server assembles the gin engine from the feature handlers.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/admin"
	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/briefings"
	"github.com/jimdaga/ki-report/internal/config"
	"github.com/jimdaga/ki-report/internal/health"
	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/reports"
)

const sessionName = "ki_session"

// Handlers are the feature handler sets mounted by NewRouter.
type Handlers struct {
	Auth      *auth.Handlers
	Briefings *briefings.Handlers
	Reports   *reports.Handlers
	Admin     *admin.Handlers
	// SSO mounts the Google admin login routes.
	SSO bool
}

// NewRouter builds the engine with the shared middleware stack and every
// route of the API.
func NewRouter(cfg *config.Config, db *gorm.DB, tokens *auth.TokenIssuer, h Handlers, logger *slog.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(httpx.Recovery(logger))
	r.Use(httpx.RequestLogger(logger))
	r.Use(httpx.SecurityHeaders())
	r.Use(httpx.CORS(cfg.CORSOrigins))

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWTTTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(auth.Authenticate(tokens))

	r.GET("/health", gin.WrapF(health.Handler))
	r.GET("/readyz", health.Ready(db))

	if h.SSO {
		r.GET("/auth/google/login", auth.HandleSSOLogin)
		r.GET("/auth/google/callback", h.Auth.HandleSSOCallback)
	}

	api := r.Group("/api")
	{
		a := api.Group("/auth")
		a.POST("/request-code", h.Auth.HandleRequestCode)
		a.POST("/verify-code", h.Auth.HandleVerifyCode)
		a.POST("/logout", auth.HandleLogout(logger))

		api.POST("/briefings", h.Briefings.HandleCreate)
		api.GET("/briefings/draft", auth.RequireAuth(), h.Briefings.HandleGetDraft)
		api.PUT("/briefings/draft", auth.RequireAuth(), h.Briefings.HandlePutDraft)
		api.DELETE("/briefings/draft", auth.RequireAuth(), h.Briefings.HandleDeleteDraft)
		api.GET("/briefings/me/latest", auth.RequireAuth(), h.Briefings.HandleLatest)
		api.GET("/briefings/:id", auth.RequireAuth(), h.Briefings.HandleGet)
		api.POST("/briefings/:id/analyze", auth.RequireAuth(), h.Briefings.HandleAnalyze)

		api.GET("/reports/:id", h.Reports.HandleGet)
		api.GET("/reports/:id/ws", h.Reports.HandleWatch)

		adm := api.Group("/admin", auth.RequireAdmin())
		adm.GET("/briefings", h.Admin.HandleListBriefings)
		adm.GET("/briefings/:id/export", h.Admin.HandleExport)
		adm.POST("/briefings/:id/analyze", h.Admin.HandleAnalyze)
	}

	r.NoRoute(func(c *gin.Context) {
		httpx.NotFound(c, "route not found")
	})
	return r
}
