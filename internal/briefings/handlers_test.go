package briefings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/store"
	"github.com/jimdaga/ki-report/internal/worker"
)

type fakeQueue struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (q *fakeQueue) EnqueueReport(_ context.Context, briefingID uint, email string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, fmt.Sprintf("%d:%s", briefingID, email))
	return fmt.Sprintf("task-%d", len(q.jobs)), nil
}

type fixture struct {
	db     *gorm.DB
	queue  *fakeQueue
	router *gin.Engine
}

func newFixture(t *testing.T) *fixture {
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
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}

	f := &fixture{db: db, queue: &fakeQueue{}}
	h := NewHandlers(db, f.queue, store.NewMemoryStore(0), v, 10*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	// Stands in for auth.Authenticate: X-Test-User carries the caller.
	r.Use(func(c *gin.Context) {
		if email := c.GetHeader("X-Test-User"); email != "" {
			c.Set(auth.ContextEmail, email)
			c.Set(auth.ContextAdmin, c.GetHeader("X-Test-Admin") == "1")
		}
		c.Next()
	})
	r.POST("/api/briefings", h.HandleCreate)
	r.GET("/api/briefings/:id", auth.RequireAuth(), h.HandleGet)
	r.POST("/api/briefings/:id/analyze", auth.RequireAuth(), h.HandleAnalyze)
	r.GET("/api/briefings/draft", auth.RequireAuth(), h.HandleGetDraft)
	r.PUT("/api/briefings/draft", auth.RequireAuth(), h.HandlePutDraft)
	r.DELETE("/api/briefings/draft", auth.RequireAuth(), h.HandleDeleteDraft)
	r.GET("/api/briefings/me/latest", auth.RequireAuth(), h.HandleLatest)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
}

const validBody = `{"data":{"branche":"beratung","unternehmensgroesse":"solo","email":"Anna@Example.com","ki_usecases":["texte","marketing"],"neu_unbekannt":true}}`

func TestCreateAnonymous(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/briefings", validBody, nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	var resp submitResponse
	decode(t, w, &resp)
	if resp.BriefingID == 0 || resp.TaskID != "task-1" || resp.Status != models.ReportStatusPending {
		t.Errorf("unexpected response %+v", resp)
	}
	if f.queue.jobs[0] != fmt.Sprintf("%d:anna@example.com", resp.BriefingID) {
		t.Errorf("unexpected job %v", f.queue.jobs)
	}

	var br models.Briefing
	if err := f.db.First(&br, resp.BriefingID).Error; err != nil {
		t.Fatalf("load briefing: %v", err)
	}
	a, err := br.DecodeAnswers()
	if err != nil {
		t.Fatalf("decode answers: %v", err)
	}
	if br.UserID != nil || br.Lang != "de" || !a.Has("neu_unbekannt") {
		t.Errorf("unexpected briefing %+v answers %v", br, a)
	}
}

func TestCreateRequiresEmail(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/api/briefings", `{"data":{"branche":"handel"}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = f.do(http.MethodPost, "/api/briefings", `{"data":{"branche":"handel"}}`, map[string]string{"X-Test-User": "max@example.com"})
	if w.Code != http.StatusAccepted {
		t.Errorf("expected session email to be used, got %d", w.Code)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"missing data":   `{}`,
		"wrong type":     `{"data":{"hauptleistung":42,"email":"a@b.de"}}`,
		"nested object":  `{"data":{"email":"a@b.de","extra":{"x":1}}}`,
		"malformed mail": `{"data":{"email":"not-an-email"}}`,
	}
	for name, body := range cases {
		w := f.do(http.MethodPost, "/api/briefings", body, nil)
		if w.Code != http.StatusBadRequest && w.Code != http.StatusUnprocessableEntity {
			t.Errorf("%s: expected rejection, got %d", name, w.Code)
		}
	}
	if len(f.queue.jobs) != 0 {
		t.Errorf("nothing should be queued, got %v", f.queue.jobs)
	}
}

func TestCreateIdempotent(t *testing.T) {
	f := newFixture(t)
	h := map[string]string{IdempotencyHeader: "abc-123"}

	first := f.do(http.MethodPost, "/api/briefings", validBody, h)
	second := f.do(http.MethodPost, "/api/briefings", validBody, h)
	if first.Code != http.StatusAccepted || second.Code != http.StatusAccepted {
		t.Fatalf("unexpected status %d/%d", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Errorf("replay differs: %s vs %s", first.Body.String(), second.Body.String())
	}
	if len(f.queue.jobs) != 1 {
		t.Errorf("expected one job, got %v", f.queue.jobs)
	}
}

func TestIdempotencyKeyScopedToSubmitter(t *testing.T) {
	f := newFixture(t)
	h := map[string]string{IdempotencyHeader: "k1"}
	bodyA := `{"data":{"branche":"beratung","email":"anna@example.com"}}`
	bodyB := `{"data":{"branche":"handel","email":"bert@example.com"}}`

	var a, b submitResponse
	wa := f.do(http.MethodPost, "/api/briefings", bodyA, h)
	decode(t, wa, &a)
	wb := f.do(http.MethodPost, "/api/briefings", bodyB, h)
	if wb.Code != http.StatusAccepted {
		t.Fatalf("second submitter: expected 202, got %d: %s", wb.Code, wb.Body.String())
	}
	decode(t, wb, &b)

	if a.TaskID == b.TaskID || a.BriefingID == b.BriefingID {
		t.Errorf("second submitter must not receive the first task: %+v vs %+v", a, b)
	}
	if len(f.queue.jobs) != 2 {
		t.Errorf("expected two jobs, got %v", f.queue.jobs)
	}
}

func TestIdempotencyKeyRejectsDifferentBody(t *testing.T) {
	f := newFixture(t)
	h := map[string]string{IdempotencyHeader: "k2"}

	if w := f.do(http.MethodPost, "/api/briefings", `{"data":{"branche":"beratung","email":"anna@example.com"}}`, h); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	w := f.do(http.MethodPost, "/api/briefings", `{"data":{"branche":"handel","email":"anna@example.com"}}`, h)
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409 for a reused key with another body, got %d: %s", w.Code, w.Body.String())
	}
	if len(f.queue.jobs) != 1 {
		t.Errorf("expected one job, got %v", f.queue.jobs)
	}
}

func TestCreateQueueFull(t *testing.T) {
	f := newFixture(t)
	f.queue.err = worker.ErrQueueFull
	if w := f.do(http.MethodPost, "/api/briefings", validBody, nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestGetAndAnalyzeAccess(t *testing.T) {
	f := newFixture(t)
	owner := models.User{Email: "owner@example.com"}
	other := models.User{Email: "other@example.com"}
	f.db.Create(&owner)
	f.db.Create(&other)
	br := models.Briefing{UserID: &owner.ID, Lang: "de", Answers: []byte(`{"branche":"handel"}`)}
	f.db.Create(&br)
	f.db.Create(&models.Report{BriefingID: br.ID, TaskID: "task-x", Status: models.ReportStatusDone, PDFURL: "https://pdf/x.pdf"})

	path := fmt.Sprintf("/api/briefings/%d", br.ID)
	if w := f.do(http.MethodGet, path, "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, path, "", map[string]string{"X-Test-User": other.Email}); w.Code != http.StatusNotFound {
		t.Errorf("foreign: expected 404, got %d", w.Code)
	}
	if w := f.do(http.MethodGet, path, "", map[string]string{"X-Test-User": "ops@example.com", "X-Test-Admin": "1"}); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}

	w := f.do(http.MethodGet, path, "", map[string]string{"X-Test-User": owner.Email})
	if w.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", w.Code)
	}
	var view briefingView
	decode(t, w, &view)
	if len(view.Reports) != 1 || view.Reports[0].PDFURL != "https://pdf/x.pdf" || !strings.Contains(string(view.Answers), "handel") {
		t.Errorf("unexpected view %+v", view)
	}

	w = f.do(http.MethodPost, path+"/analyze", `{"email":"Neu@Example.com"}`, map[string]string{"X-Test-User": owner.Email})
	if w.Code != http.StatusAccepted {
		t.Fatalf("analyze: expected 202, got %d", w.Code)
	}
	if f.queue.jobs[0] != fmt.Sprintf("%d:neu@example.com", br.ID) {
		t.Errorf("unexpected job %v", f.queue.jobs)
	}
	if w := f.do(http.MethodPost, "/api/briefings/abc/analyze", "", map[string]string{"X-Test-User": owner.Email}); w.Code != http.StatusBadRequest {
		t.Errorf("bad id: expected 400, got %d", w.Code)
	}
}

func TestDraftLifecycle(t *testing.T) {
	f := newFixture(t)
	user := models.User{Email: "draft@example.com"}
	f.db.Create(&user)
	as := map[string]string{"X-Test-User": user.Email}

	if w := f.do(http.MethodGet, "/api/briefings/draft", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous: expected 401, got %d", w.Code)
	}

	var got draftResponse
	w := f.do(http.MethodGet, "/api/briefings/draft", "", as)
	decode(t, w, &got)
	if w.Code != http.StatusOK || got.Draft != nil {
		t.Fatalf("expected empty draft, got %d %s", w.Code, w.Body.String())
	}

	if w := f.do(http.MethodPut, "/api/briefings/draft", `{"answers":{"branche":"it"},"lang":"DE"}`, as); w.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if w := f.do(http.MethodPut, "/api/briefings/draft?lang=de", `{"branche":"handel"}`, as); w.Code != http.StatusOK {
		t.Fatalf("put bare answers: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	var rows int64
	f.db.Model(&models.BriefingDraft{}).Where("user_id = ?", user.ID).Count(&rows)
	if rows != 1 {
		t.Errorf("expected one draft per user and language, got %d", rows)
	}

	got = draftResponse{}
	decode(t, f.do(http.MethodGet, "/api/briefings/draft?lang=DE", "", as), &got)
	if got.Draft == nil || got.Draft.Lang != "de" || !strings.Contains(string(got.Draft.Answers), "handel") {
		t.Fatalf("unexpected draft %+v", got.Draft)
	}

	if w := f.do(http.MethodPut, "/api/briefings/draft", `{"answers":[1,2]}`, as); w.Code != http.StatusBadRequest {
		t.Errorf("non-object answers: expected 400, got %d", w.Code)
	}

	var del struct {
		Deleted bool `json:"deleted"`
	}
	decode(t, f.do(http.MethodDelete, "/api/briefings/draft", "", as), &del)
	if !del.Deleted {
		t.Error("expected the draft to be deleted")
	}
	decode(t, f.do(http.MethodDelete, "/api/briefings/draft", "", as), &del)
	if del.Deleted {
		t.Error("second delete must report nothing deleted")
	}
}

func TestDraftLangIsTruncated(t *testing.T) {
	cases := map[string]string{"": "de", " EN ": "en", "de-DE-x-long": "de-de"}
	for in, want := range cases {
		if got := draftLang(in); got != want {
			t.Errorf("draftLang(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLatestBriefing(t *testing.T) {
	f := newFixture(t)
	user := models.User{Email: "latest@example.com"}
	f.db.Create(&user)
	as := map[string]string{"X-Test-User": user.Email}

	var got latestResponse
	decode(t, f.do(http.MethodGet, "/api/briefings/me/latest", "", as), &got)
	if got.Briefing != nil {
		t.Fatalf("expected no briefing, got %+v", got.Briefing)
	}

	for _, b := range []string{`{"branche":"bau"}`, `{"branche":"medien"}`} {
		f.db.Create(&models.Briefing{UserID: &user.ID, Lang: "de", Answers: []byte(b)})
	}
	f.db.Create(&models.Briefing{Lang: "de", Answers: []byte(`{"branche":"fremd"}`)})

	decode(t, f.do(http.MethodGet, "/api/briefings/me/latest", "", as), &got)
	if got.Briefing == nil || !strings.Contains(string(got.Briefing.Answers), "medien") {
		t.Errorf("expected the newest own briefing, got %+v", got.Briefing)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	if err.Error() != "briefing validation failed: a: one; b: two" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
