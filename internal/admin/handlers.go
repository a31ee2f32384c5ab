package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/models"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Analyzer renders and stores an analysis without sending anything.
type Analyzer interface {
	Analyze(ctx context.Context, briefingID uint) (*models.Analysis, error)
}

// Handlers serves the admin API. Routes must sit behind auth.RequireAdmin.
type Handlers struct {
	db       *gorm.DB
	analyzer Analyzer
	logger   *slog.Logger
}

// NewHandlers creates Handlers.
func NewHandlers(db *gorm.DB, analyzer Analyzer, logger *slog.Logger) *Handlers {
	return &Handlers{db: db, analyzer: analyzer, logger: logger}
}

type briefingRow struct {
	ID           uint      `json:"id"`
	UserID       *uint     `json:"user_id"`
	Lang         string    `json:"lang"`
	Branche      string    `json:"branche"`
	Groesse      string    `json:"unternehmensgroesse"`
	ReportStatus string    `json:"report_status,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// HandleListBriefings pages through briefings, newest first.
func (h *Handlers) HandleListBriefings(c *gin.Context) {
	limit, offset := page(c)
	db := h.db.WithContext(c.Request.Context())

	var total int64
	if err := db.Model(&models.Briefing{}).Count(&total).Error; err != nil {
		httpx.Internal(c, "failed to count briefings")
		return
	}
	var list []models.Briefing
	if err := db.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		httpx.Internal(c, "failed to list briefings")
		return
	}

	ids := make([]uint, 0, len(list))
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	status := h.latestStatuses(db, ids)

	rows := make([]briefingRow, 0, len(list))
	for _, b := range list {
		row := briefingRow{ID: b.ID, UserID: b.UserID, Lang: b.Lang, ReportStatus: status[b.ID], CreatedAt: b.CreatedAt}
		if a, err := b.DecodeAnswers(); err == nil {
			row.Branche = a.Str("branche")
			row.Groesse = a.Str("unternehmensgroesse")
		}
		rows = append(rows, row)
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": total, "limit": limit, "offset": offset})
}

func (h *Handlers) latestStatuses(db *gorm.DB, briefingIDs []uint) map[uint]string {
	out := make(map[uint]string, len(briefingIDs))
	if len(briefingIDs) == 0 {
		return out
	}
	var reports []models.Report
	if err := db.Select("id", "briefing_id", "status").
		Where("briefing_id IN ?", briefingIDs).
		Order("id ASC").
		Find(&reports).Error; err != nil {
		h.logger.Warn("failed to load report statuses", "error", err)
		return out
	}
	for _, r := range reports {
		out[r.BriefingID] = r.Status
	}
	return out
}

// HandleExport streams the briefing archive as a download.
func (h *Handlers) HandleExport(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := WriteExport(c.Request.Context(), h.db, id, &buf); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.NotFound(c, "briefing not found")
			return
		}
		h.logger.Error("failed to export briefing", "briefing_id", id, "error", err)
		httpx.Internal(c, "failed to export briefing")
		return
	}

	name := fmt.Sprintf("briefing-%d-%s.zip", id, uuid.NewString()[:8])
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// HandleAnalyze re-renders the analysis synchronously and returns its meta.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return
	}
	an, err := h.analyzer.Analyze(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.NotFound(c, "briefing not found")
			return
		}
		h.logger.Error("manual analysis failed", "briefing_id", id, "error", err)
		httpx.Internal(c, "analysis failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"analysis_id": an.ID,
		"briefing_id": an.BriefingID,
		"run_id":      an.RunID,
		"html_bytes":  len(an.HTML),
		"meta":        an.Meta,
	})
}

func page(c *gin.Context) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
