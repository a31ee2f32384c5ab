// Package reports serves report status by polling and by websocket push.
package reports

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/models"
)

// StatusQueued is reported for a known task whose run has not started.
const StatusQueued = "queued"

const taskPrefix = "task-"

// Handlers serves the report endpoints.
type Handlers struct {
	db     *gorm.DB
	hub    *Hub
	logger *slog.Logger
}

// NewHandlers creates Handlers.
func NewHandlers(db *gorm.DB, hub *Hub, logger *slog.Logger) *Handlers {
	return &Handlers{db: db, hub: hub, logger: logger}
}

// reportView is the public status. Internal errors are not exposed.
type reportView struct {
	ID             uint      `json:"id,omitempty"`
	BriefingID     uint      `json:"briefing_id,omitempty"`
	TaskID         string    `json:"task_id"`
	Status         string    `json:"status"`
	PDFURL         string    `json:"pdf_url,omitempty"`
	PDFBytesLen    int       `json:"pdf_bytes_len,omitempty"`
	EmailSentUser  bool      `json:"email_sent_user"`
	EmailSentAdmin bool      `json:"email_sent_admin"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

func newView(r *models.Report) reportView {
	return reportView{
		ID:             r.ID,
		BriefingID:     r.BriefingID,
		TaskID:         r.TaskID,
		Status:         r.Status,
		PDFURL:         r.PDFURL,
		PDFBytesLen:    r.PDFBytesLen,
		EmailSentUser:  r.EmailSentUser,
		EmailSentAdmin: r.EmailSentAdmin,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func statusOf(r *models.Report) *StatusMessage {
	return &StatusMessage{ReportID: r.ID, BriefingID: r.BriefingID, TaskID: r.TaskID, Status: r.Status, PDFURL: r.PDFURL}
}

// HandleGet returns the status for :id, which is either a report ID or a
// task ID from the submission response.
func (h *Handlers) HandleGet(c *gin.Context) {
	key := c.Param("id")
	rep, err := h.lookup(c, key)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, newView(rep))
	case errors.Is(err, gorm.ErrRecordNotFound) && strings.HasPrefix(key, taskPrefix):
		c.JSON(http.StatusOK, reportView{TaskID: key, Status: StatusQueued})
	case errors.Is(err, gorm.ErrRecordNotFound):
		httpx.NotFound(c, "report not found")
	default:
		h.logger.Error("failed to load report", "key", key, "error", err)
		httpx.Internal(c, "failed to load report")
	}
}

// HandleWatch pushes status changes for :id over a websocket.
func (h *Handlers) HandleWatch(c *gin.Context) {
	key := c.Param("id")
	if !strings.HasPrefix(key, taskPrefix) {
		// Numeric IDs must exist and be visible to the caller before upgrading.
		if _, err := h.lookup(c, key); err != nil {
			httpx.NotFound(c, "report not found")
			return
		}
	}

	h.hub.serve(c.Writer, c.Request, key, func() *StatusMessage {
		rep, err := h.lookup(c, key)
		if err != nil {
			return nil
		}
		return statusOf(rep)
	})
}

// lookup resolves key by task ID or by numeric report ID. Numeric lookups
// are restricted to the report's recipient and admins.
func (h *Handlers) lookup(c *gin.Context, key string) (*models.Report, error) {
	db := h.db.WithContext(c.Request.Context())
	var rep models.Report

	if strings.HasPrefix(key, taskPrefix) {
		if err := db.Where("task_id = ?", key).Order("id DESC").First(&rep).Error; err != nil {
			return nil, err
		}
		return &rep, nil
	}

	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil || id == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	if err := db.First(&rep, id).Error; err != nil {
		return nil, err
	}
	if c.GetBool(auth.ContextAdmin) {
		return &rep, nil
	}
	email := auth.CurrentEmail(c)
	if email == "" || !strings.EqualFold(email, rep.UserEmail) {
		return nil, gorm.ErrRecordNotFound
	}
	return &rep, nil
}
