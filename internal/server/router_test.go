package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jimdaga/ki-report/internal/admin"
	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/briefings"
	"github.com/jimdaga/ki-report/internal/config"
	"github.com/jimdaga/ki-report/internal/mail"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/reports"
	"github.com/jimdaga/ki-report/internal/store"
)

type nopQueue struct{}

func (nopQueue) EnqueueReport(context.Context, uint, string) (string, error) {
	return "task-test", nil
}

type nopAnalyzer struct{}

func (nopAnalyzer) Analyze(context.Context, uint) (*models.Analysis, error) {
	return &models.Analysis{}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{Env: "test", SessionSecret: "s3cret", JWTTTL: time.Hour, CORSOrigins: []string{"https://ki-sicherheit.jetzt"}}
	tokens := auth.NewTokenIssuer("s3cret", time.Hour)
	kv := store.NewStores(nil, log)
	svc := auth.NewService(db, kv.Auth, mail.NewSender(mail.LogTransport{Logger: log}, log), tokens, auth.Options{IsAdmin: func(string) bool { return false }}, log)
	v, err := briefings.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	r := NewRouter(cfg, db, tokens, Handlers{
		Auth:      auth.NewHandlers(svc, log),
		Briefings: briefings.NewHandlers(db, nopQueue{}, kv.Idempotency, v, time.Minute, log),
		Reports:   reports.NewHandlers(db, reports.NewHub(cfg.CORSOrigins, log), log),
		Admin:     admin.NewHandlers(db, nopAnalyzer{}, log),
	}, log)
	return r, tokens
}

func TestRoutes(t *testing.T) {
	r, tokens := newTestRouter(t)
	userToken, _ := tokens.Issue("max@example.com", false)
	adminToken, _ := tokens.Issue("ops@example.com", true)

	cases := []struct {
		method, path, body, token string
		want                      int
	}{
		{http.MethodGet, "/health", "", "", http.StatusOK},
		{http.MethodGet, "/readyz", "", "", http.StatusOK},
		{http.MethodGet, "/api/reports/task-none", "", "", http.StatusOK},
		{http.MethodGet, "/api/briefings/1", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/briefings/draft", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/briefings/draft", "", userToken, http.StatusUnauthorized},
		{http.MethodGet, "/api/briefings/me/latest", "", userToken, http.StatusUnauthorized},
		{http.MethodPost, "/api/briefings/me/analyze", "", userToken, http.StatusBadRequest},
		{http.MethodGet, "/api/admin/briefings", "", "", http.StatusUnauthorized},
		{http.MethodGet, "/api/admin/briefings", "", userToken, http.StatusForbidden},
		{http.MethodGet, "/api/admin/briefings", "", adminToken, http.StatusOK},
		{http.MethodPost, "/api/briefings", `{"data":{"email":"a@example.com"}}`, "", http.StatusAccepted},
		{http.MethodPost, "/api/auth/request-code", `{}`, "", http.StatusBadRequest},
		{http.MethodGet, "/auth/google/login", "", "", http.StatusNotFound},
		{http.MethodGet, "/nope", "", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Content-Type", "application/json")
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}

func TestSecurityAndCORSHeaders(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/briefings", nil)
	req.Header.Set("Origin", "https://ki-sicherheit.jetzt")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "https://ki-sicherheit.jetzt" {
		t.Errorf("unexpected allow-origin %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}
}
