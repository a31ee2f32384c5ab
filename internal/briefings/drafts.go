package briefings

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/models"
)

type draftView struct {
	Lang      string          `json:"lang"`
	Answers   json.RawMessage `json:"answers"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type draftResponse struct {
	Draft *draftView `json:"draft"`
}

// draftLang lowercases and truncates a language tag; empty means "de".
func draftLang(v string) string {
	lang := strings.ToLower(strings.TrimSpace(v))
	if lang == "" {
		return "de"
	}
	if len(lang) > 5 {
		lang = lang[:5]
	}
	return lang
}

// requireUser resolves the signed-in user's id or answers 401.
func (h *Handlers) requireUser(c *gin.Context) (uint, bool) {
	uid := h.currentUserID(c.Request.Context(), c)
	if uid == nil {
		httpx.Unauthorized(c, "user not found")
		return 0, false
	}
	return *uid, true
}

// HandleGetDraft returns the caller's draft for ?lang= or a null draft.
func (h *Handlers) HandleGetDraft(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var drafts []models.BriefingDraft
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND lang = ?", uid, draftLang(c.Query("lang"))).
		Limit(1).
		Find(&drafts).Error; err != nil {
		httpx.Internal(c, "failed to load draft")
		return
	}
	if len(drafts) == 0 {
		c.JSON(http.StatusOK, draftResponse{})
		return
	}
	d := drafts[0]
	c.JSON(http.StatusOK, draftResponse{Draft: &draftView{Lang: d.Lang, Answers: json.RawMessage(d.Answers), UpdatedAt: d.UpdatedAt}})
}

// HandlePutDraft upserts the caller's draft. The body is either
// {"answers": {...}, "lang": "de"} or the bare answers object.
func (h *Handlers) HandlePutDraft(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var payload map[string]json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpx.BadRequest(c, "invalid body")
		return
	}

	raw, hasAnswers := payload["answers"]
	if !hasAnswers {
		whole, err := json.Marshal(payload)
		if err != nil {
			httpx.BadRequest(c, "invalid body")
			return
		}
		raw = whole
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		httpx.BadRequest(c, "answers must be an object")
		return
	}
	var lang string
	if v, ok := payload["lang"]; ok && hasAnswers {
		_ = json.Unmarshal(v, &lang)
	}
	if lang == "" {
		lang = c.Query("lang")
	}

	draft := models.BriefingDraft{UserID: uid, Lang: draftLang(lang), Answers: datatypes.JSON(raw)}
	if err := h.db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lang"}},
		DoUpdates: clause.AssignmentColumns([]string{"answers", "updated_at"}),
	}).Create(&draft).Error; err != nil {
		h.logger.Error("failed to save draft", "user_id", uid, "error", err)
		httpx.Internal(c, "failed to save draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "lang": draft.Lang})
}

// HandleDeleteDraft removes the caller's draft for ?lang=.
func (h *Handlers) HandleDeleteDraft(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	res := h.db.WithContext(c.Request.Context()).
		Where("user_id = ? AND lang = ?", uid, draftLang(c.Query("lang"))).
		Delete(&models.BriefingDraft{})
	if res.Error != nil {
		httpx.Internal(c, "failed to delete draft")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": res.RowsAffected > 0})
}

type latestResponse struct {
	Briefing *briefingView `json:"briefing"`
}

// HandleLatest returns the caller's most recent briefing or null.
func (h *Handlers) HandleLatest(c *gin.Context) {
	uid, ok := h.requireUser(c)
	if !ok {
		return
	}
	var found []models.Briefing
	if err := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", uid).
		Order("id DESC").
		Limit(1).
		Find(&found).Error; err != nil {
		httpx.Internal(c, "failed to load briefing")
		return
	}
	if len(found) == 0 {
		c.JSON(http.StatusOK, latestResponse{})
		return
	}
	b := found[0]
	c.JSON(http.StatusOK, latestResponse{Briefing: &briefingView{
		ID:        b.ID,
		Lang:      b.Lang,
		CreatedAt: b.CreatedAt,
		Answers:   json.RawMessage(b.Answers),
		Reports:   []reportSummary{},
	}})
}
