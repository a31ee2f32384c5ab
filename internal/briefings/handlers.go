package briefings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/auth"
	"github.com/jimdaga/ki-report/internal/httpx"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/store"
	"github.com/jimdaga/ki-report/internal/worker"
)

// IdempotencyHeader lets clients retry a submission without a second report.
const IdempotencyHeader = "Idempotency-Key"

// Handlers serves the briefing endpoints.
type Handlers struct {
	db        *gorm.DB
	queue     worker.Queue
	kv        store.Store
	validator *Validator
	idemTTL   time.Duration
	logger    *slog.Logger
}

// NewHandlers creates Handlers. idemTTL bounds how long an Idempotency-Key
// replays its first response.
func NewHandlers(db *gorm.DB, queue worker.Queue, kv store.Store, validator *Validator, idemTTL time.Duration, logger *slog.Logger) *Handlers {
	return &Handlers{db: db, queue: queue, kv: kv, validator: validator, idemTTL: idemTTL, logger: logger}
}

type submitBody struct {
	Data  map[string]interface{} `json:"data" binding:"required"`
	Email string                 `json:"email"`
	Lang  string                 `json:"lang"`
}

type submitResponse struct {
	BriefingID uint   `json:"briefing_id"`
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
}

// idempotentReplay is what an Idempotency-Key stores: the first response and
// a hash of the body that produced it.
type idempotentReplay struct {
	BodyHash string         `json:"body_hash"`
	Response submitResponse `json:"response"`
}

// HandleCreate stores a briefing and queues its report. Authentication is
// optional; anonymous submissions need a contact email. An Idempotency-Key is
// scoped to the submitter and replays only for an identical body.
func (h *Handlers) HandleCreate(c *gin.Context) {
	ctx := c.Request.Context()

	var body submitBody
	if err := c.ShouldBindBodyWith(&body, binding.JSON); err != nil {
		httpx.BadRequest(c, "data is required")
		return
	}
	if err := h.validator.Validate(body.Data); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			httpx.ValidationFailed(c, verr.Fields)
			return
		}
		httpx.BadRequest(c, err.Error())
		return
	}

	ans := answers.Normalize(answers.Answers(body.Data))
	email := firstNonEmpty(body.Email, ans.Str("email"), ans.Str("kontakt_email"), auth.CurrentEmail(c))
	email = auth.NormalizeEmail(email)
	if email == "" {
		httpx.BadRequest(c, "email is required")
		return
	}

	var idemKey, bodyHash string
	if k := strings.TrimSpace(c.GetHeader(IdempotencyHeader)); k != "" {
		submitter := firstNonEmpty(auth.NormalizeEmail(auth.CurrentEmail(c)), email)
		idemKey = idempotencyKey(submitter, k)
		bodyHash = hashBody(c)
		if replay, ok := h.lookupReplay(ctx, idemKey); ok {
			if replay.BodyHash != bodyHash {
				httpx.Conflict(c, "Idempotency-Key was already used with a different body")
				return
			}
			c.JSON(http.StatusAccepted, replay.Response)
			return
		}
	}

	raw, err := json.Marshal(ans)
	if err != nil {
		httpx.Internal(c, "failed to encode briefing")
		return
	}
	lang := body.Lang
	if lang == "" {
		lang = "de"
	}
	briefing := models.Briefing{
		UserID:  h.currentUserID(ctx, c),
		Lang:    lang,
		Answers: raw,
	}
	if err := h.db.WithContext(ctx).Create(&briefing).Error; err != nil {
		h.logger.Error("failed to create briefing", "error", err)
		httpx.Internal(c, "failed to create briefing")
		return
	}

	taskID, ok := h.enqueue(c, briefing.ID, email)
	if !ok {
		return
	}

	resp := submitResponse{BriefingID: briefing.ID, TaskID: taskID, Status: models.ReportStatusPending}
	if idemKey != "" {
		if cached, err := json.Marshal(idempotentReplay{BodyHash: bodyHash, Response: resp}); err == nil {
			if err := h.kv.Put(ctx, idemKey, string(cached), h.idemTTL); err != nil {
				h.logger.Warn("failed to store idempotency key", "error", err)
			}
		}
	}
	h.logger.Info("briefing submitted", "briefing_id", briefing.ID, "task_id", taskID, "anonymous", briefing.UserID == nil)
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handlers) lookupReplay(ctx context.Context, key string) (idempotentReplay, bool) {
	var replay idempotentReplay
	cached, ok := h.kv.Get(ctx, key)
	if !ok {
		return replay, false
	}
	if err := json.Unmarshal([]byte(cached), &replay); err != nil {
		h.logger.Warn("discarding unreadable idempotency entry", "error", err)
		return replay, false
	}
	return replay, true
}

type reportSummary struct {
	ID        uint      `json:"id"`
	TaskID    string    `json:"task_id"`
	Status    string    `json:"status"`
	PDFURL    string    `json:"pdf_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type briefingView struct {
	ID        uint            `json:"id"`
	Lang      string          `json:"lang"`
	CreatedAt time.Time       `json:"created_at"`
	Answers   json.RawMessage `json:"answers"`
	Reports   []reportSummary `json:"reports"`
}

// HandleGet returns a briefing with its reports to its owner or an admin.
func (h *Handlers) HandleGet(c *gin.Context) {
	briefing, ok := h.loadAccessible(c)
	if !ok {
		return
	}

	var reports []models.Report
	if err := h.db.WithContext(c.Request.Context()).
		Where("briefing_id = ?", briefing.ID).
		Order("id DESC").
		Find(&reports).Error; err != nil {
		httpx.Internal(c, "failed to load reports")
		return
	}

	view := briefingView{
		ID:        briefing.ID,
		Lang:      briefing.Lang,
		CreatedAt: briefing.CreatedAt,
		Answers:   json.RawMessage(briefing.Answers),
		Reports:   make([]reportSummary, 0, len(reports)),
	}
	for _, r := range reports {
		view.Reports = append(view.Reports, reportSummary{ID: r.ID, TaskID: r.TaskID, Status: r.Status, PDFURL: r.PDFURL, CreatedAt: r.CreatedAt})
	}
	c.JSON(http.StatusOK, view)
}

type analyzeBody struct {
	Email string `json:"email"`
}

// HandleAnalyze queues another report run for an existing briefing.
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	briefing, ok := h.loadAccessible(c)
	if !ok {
		return
	}
	var body analyzeBody
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			httpx.BadRequest(c, "invalid body")
			return
		}
	}

	taskID, ok := h.enqueue(c, briefing.ID, auth.NormalizeEmail(body.Email))
	if !ok {
		return
	}
	h.logger.Info("report re-queued", "briefing_id", briefing.ID, "task_id", taskID)
	c.JSON(http.StatusAccepted, submitResponse{BriefingID: briefing.ID, TaskID: taskID, Status: models.ReportStatusPending})
}

func (h *Handlers) enqueue(c *gin.Context, briefingID uint, email string) (string, bool) {
	taskID, err := h.queue.EnqueueReport(c.Request.Context(), briefingID, email)
	if err != nil {
		h.logger.Error("failed to enqueue report", "briefing_id", briefingID, "error", err)
		if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrQueueClosed) {
			httpx.ServiceUnavailable(c, "report queue unavailable, try again later")
		} else {
			httpx.Internal(c, "failed to enqueue report generation")
		}
		return "", false
	}
	return taskID, true
}

// loadAccessible loads the :id briefing if the caller owns it or is an
// admin. Foreign briefings answer 404.
func (h *Handlers) loadAccessible(c *gin.Context) (*models.Briefing, bool) {
	id, ok := httpx.ParamID(c, "id")
	if !ok {
		return nil, false
	}
	var briefing models.Briefing
	if err := h.db.WithContext(c.Request.Context()).First(&briefing, id).Error; err != nil {
		httpx.NotFound(c, "briefing not found")
		return nil, false
	}
	if c.GetBool(auth.ContextAdmin) {
		return &briefing, true
	}
	uid := h.currentUserID(c.Request.Context(), c)
	if uid == nil || briefing.UserID == nil || *uid != *briefing.UserID {
		httpx.NotFound(c, "briefing not found")
		return nil, false
	}
	return &briefing, true
}

func (h *Handlers) currentUserID(ctx context.Context, c *gin.Context) *uint {
	email := auth.CurrentEmail(c)
	if email == "" {
		return nil
	}
	var user models.User
	if err := h.db.WithContext(ctx).Select("id").Where("email = ?", email).First(&user).Error; err != nil {
		return nil
	}
	return &user.ID
}

// idempotencyKey scopes a client key to the submitter.
func idempotencyKey(submitter, k string) string {
	sum := sha256.Sum256([]byte(submitter + "\x00" + k))
	return "idem:briefing:" + hex.EncodeToString(sum[:])
}

// hashBody hashes the raw request body cached by ShouldBindBodyWith.
func hashBody(c *gin.Context) string {
	var raw []byte
	if v, ok := c.Get(gin.BodyBytesKey); ok {
		raw, _ = v.([]byte)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
