package reports

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/events"
	"github.com/jimdaga/ki-report/internal/models"
)

type fixture struct {
	db     *gorm.DB
	hub    *Hub
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

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{db: db, hub: NewHub(nil, log)}
	h := NewHandlers(db, f.hub, log)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if email := c.GetHeader("X-Test-User"); email != "" {
			c.Set(auth.ContextEmail, email)
			c.Set(auth.ContextAdmin, c.GetHeader("X-Test-Admin") == "1")
		}
		c.Next()
	})
	r.GET("/api/reports/:id", h.HandleGet)
	r.GET("/api/reports/:id/ws", h.HandleWatch)
	f.router = r
	return f
}

func (f *fixture) get(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestGetByTaskAndID(t *testing.T) {
	f := newFixture(t)
	rep := models.Report{BriefingID: 3, UserEmail: "anna@example.com", TaskID: "task-1", Status: models.ReportStatusFailed, ErrorMessage: "PDF generation failed: HTTP 502"}
	if err := f.db.Create(&rep).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}

	w := f.get("/api/reports/task-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "HTTP 502") {
		t.Error("internal error detail must not be exposed")
	}
	var view reportView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ID != rep.ID || view.Status != models.ReportStatusFailed {
		t.Errorf("unexpected view %+v", view)
	}

	id := fmt.Sprintf("/api/reports/%d", rep.ID)
	cases := []struct {
		headers map[string]string
		want    int
	}{
		{nil, http.StatusNotFound},
		{map[string]string{"X-Test-User": "other@example.com"}, http.StatusNotFound},
		{map[string]string{"X-Test-User": "Anna@Example.com"}, http.StatusOK},
		{map[string]string{"X-Test-User": "ops@example.com", "X-Test-Admin": "1"}, http.StatusOK},
	}
	for i, tc := range cases {
		if w := f.get(id, tc.headers); w.Code != tc.want {
			t.Errorf("case %d: expected %d, got %d", i, tc.want, w.Code)
		}
	}
}

func TestGetQueuedTask(t *testing.T) {
	f := newFixture(t)
	w := f.get("/api/reports/task-unknown", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"queued"`) {
		t.Errorf("expected queued status, got %d %s", w.Code, w.Body.String())
	}
	if w := f.get("/api/reports/999", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWatchPushesUntilTerminal(t *testing.T) {
	f := newFixture(t)
	rep := models.Report{BriefingID: 3, TaskID: "task-7", Status: models.ReportStatusPending}
	f.db.Create(&rep)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	conn := dial(t, srv, "/api/reports/task-7/ws")
	defer conn.Close()

	var msg StatusMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Status != models.ReportStatusPending || msg.ReportID != rep.ID {
		t.Errorf("unexpected snapshot %+v", msg)
	}

	f.hub.NotifyReport(events.ReportEvent{TaskID: "task-7", ReportID: rep.ID, Status: models.ReportStatusDone, PDFURL: "https://pdf/x.pdf"})
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Status != models.ReportStatusDone || msg.PDFURL != "https://pdf/x.pdf" {
		t.Errorf("unexpected update %+v", msg)
	}

	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected normal close after terminal status, got %v", err)
	}
}

func TestWatchQueuedTask(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()
	conn := dial(t, srv, "/api/reports/task-9/ws")
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.hub.Subscribers("task-9") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	f.hub.NotifyReport(events.ReportEvent{TaskID: "task-9", ReportID: 12, Status: models.ReportStatusPending})
	var msg StatusMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.ReportID != 12 || msg.Status != models.ReportStatusPending {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestWatchRejectsUnknownReport(t *testing.T) {
	f := newFixture(t)
	if w := f.get("/api/reports/55/ws", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 before upgrade, got %d", w.Code)
	}
}

func TestNotifyDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sub := hub.subscribe("task-1")
	for i := 0; i < sendBuffer+3; i++ {
		hub.NotifyReport(events.ReportEvent{TaskID: "task-1", ReportID: 1, Status: models.ReportStatusPending})
	}
	if len(sub.send) != sendBuffer {
		t.Errorf("expected buffer to cap at %d, got %d", sendBuffer, len(sub.send))
	}
	hub.unsubscribe("task-1", sub)
	if hub.Subscribers("task-1") != 0 {
		t.Error("expected subscription removed")
	}
}
