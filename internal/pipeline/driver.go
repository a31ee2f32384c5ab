package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/events"
	"github.com/jimdaga/ki-report/internal/logging"
	"github.com/jimdaga/ki-report/internal/mail"
	"github.com/jimdaga/ki-report/internal/models"
	"github.com/jimdaga/ki-report/internal/pdf"
)

// Notifier receives every report status change of this process.
type Notifier interface {
	NotifyReport(ev events.ReportEvent)
}

// Deps are the collaborators of a Driver. Events and Notifier are optional.
type Deps struct {
	DB       *gorm.DB
	Analyzer *Analyzer
	PDF      pdf.Renderer
	Mail     *mail.Sender
	Admins   []string
	Events   *events.Publisher
	Notifier Notifier
	Logger   *slog.Logger
}

// Driver runs the full report flow for one briefing.
type Driver struct {
	Deps
}

// NewDriver creates a Driver.
func NewDriver(deps Deps) *Driver {
	if deps.PDF == nil {
		deps.PDF = pdf.Disabled{}
	}
	return &Driver{Deps: deps}
}

// Analyze renders and stores an analysis without creating a report.
func (d *Driver) Analyze(ctx context.Context, briefingID uint) (*models.Analysis, error) {
	br, err := d.loadBriefing(ctx, briefingID)
	if err != nil {
		return nil, err
	}
	an, _, err := d.analyze(ctx, NewRunID(), br)
	return an, err
}

// Run analyzes the briefing, renders the PDF and sends the emails. Only a
// missing PDF fails the run; email problems are recorded on the report.
func (d *Driver) Run(ctx context.Context, briefingID uint, emailOverride string) error {
	runID := NewRunID()
	logger := d.Logger.With("run_id", runID, "briefing_id", briefingID)
	logger.Info("report run started")

	br, err := d.loadBriefing(ctx, briefingID)
	if err != nil {
		return err
	}
	an, out, err := d.analyze(ctx, runID, br)
	if err != nil {
		return err
	}

	taskID := TaskIDFrom(ctx)
	if taskID == "" {
		taskID = "local-" + uuid.NewString()
	}
	rep := &models.Report{
		UserID:     br.UserID,
		UserEmail:  d.resolveEmail(ctx, br, out.Answers, emailOverride),
		BriefingID: br.ID,
		AnalysisID: &an.ID,
		TaskID:     taskID,
		RunID:      runID,
		Status:     models.ReportStatusPending,
	}
	if err := d.DB.WithContext(ctx).Create(rep).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	logger = logger.With("report_id", rep.ID)
	logger.Info("report pending")
	d.notify(rep, out, "")

	filename := fmt.Sprintf("KI-Status-Report-%d.pdf", rep.ID)
	res, err := d.PDF.Render(ctx, out.HTML, filename, map[string]any{
		"analysis_id": an.ID,
		"briefing_id": br.ID,
		"run_id":      runID,
	})
	if err == nil && (res == nil || (res.URL == "" && len(res.Bytes) == 0)) {
		err = pdf.ErrNoOutput
	}
	if err != nil {
		msg := "PDF generation failed: " + err.Error()
		logger.Error("pdf rendering failed", "error", err)
		if uerr := d.DB.WithContext(ctx).Model(rep).Updates(map[string]interface{}{
			"status":        models.ReportStatusFailed,
			"error_message": msg,
		}).Error; uerr != nil {
			logger.Error("failed to mark report failed", "error", uerr)
		}
		rep.Status = models.ReportStatusFailed
		d.publish(ctx, logger, rep, out, msg)
		return fmt.Errorf("failed to render PDF for report %d: %w", rep.ID, err)
	}

	if err := d.DB.WithContext(ctx).Model(rep).Updates(map[string]interface{}{
		"status":        models.ReportStatusDone,
		"pdf_url":       res.URL,
		"pdf_bytes_len": len(res.Bytes),
	}).Error; err != nil {
		return fmt.Errorf("failed to mark report done: %w", err)
	}
	rep.Status = models.ReportStatusDone
	rep.PDFURL = res.URL
	rep.PDFBytesLen = len(res.Bytes)
	logger.Info("report done", "pdf_url", res.URL != "", "pdf_bytes", len(res.Bytes), "pages", res.Pages)

	d.sendEmails(ctx, logger, rep, br, out, res)
	d.publish(ctx, logger, rep, out, "")
	return nil
}

func (d *Driver) loadBriefing(ctx context.Context, id uint) (*models.Briefing, error) {
	var br models.Briefing
	if err := d.DB.WithContext(ctx).First(&br, id).Error; err != nil {
		return nil, fmt.Errorf("failed to load briefing %d: %w", id, err)
	}
	return &br, nil
}

func (d *Driver) analyze(ctx context.Context, runID string, br *models.Briefing) (*models.Analysis, *Output, error) {
	raw, err := br.DecodeAnswers()
	if err != nil {
		return nil, nil, err
	}
	out, err := d.Analyzer.Analyze(ctx, runID, raw)
	if err != nil {
		return nil, nil, err
	}

	meta, err := json.Marshal(out.Meta)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal analysis meta: %w", err)
	}
	an := &models.Analysis{
		UserID:     br.UserID,
		BriefingID: br.ID,
		HTML:       out.HTML,
		Meta:       datatypes.JSON(meta),
		RunID:      runID,
	}
	if err := d.DB.WithContext(ctx).Create(an).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to save analysis: %w", err)
	}
	d.Logger.Info("analysis created", "run_id", runID, "analysis_id", an.ID, "briefing_id", br.ID)
	return an, out, nil
}

// resolveEmail picks the override, then the owner's account email, then the
// contact address from the answers.
func (d *Driver) resolveEmail(ctx context.Context, br *models.Briefing, a answers.Answers, override string) string {
	if e := strings.TrimSpace(override); e != "" {
		return e
	}
	if br.UserID != nil {
		var u models.User
		err := d.DB.WithContext(ctx).Select("email").First(&u, *br.UserID).Error
		if err == nil && u.Email != "" {
			return u.Email
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			d.Logger.Warn("failed to load briefing owner", "briefing_id", br.ID, "error", err)
		}
	}
	if e := a.Str("email"); e != "" {
		return e
	}
	return a.Str("kontakt_email")
}

func (d *Driver) sendEmails(ctx context.Context, logger *slog.Logger, rep *models.Report, br *models.Briefing, out *Output, res *pdf.Result) {
	var pdfAttachment []mail.Attachment
	if len(res.Bytes) > 0 && res.URL == "" {
		pdfAttachment = []mail.Attachment{{
			Filename: fmt.Sprintf("KI-Status-Report-%d.pdf", rep.ID),
			Content:  res.Bytes,
			MimeType: "application/pdf",
		}}
	}
	updates := map[string]interface{}{}

	if rep.UserEmail != "" {
		msg := mail.ReportReady(mail.AudienceUser, []string{rep.UserEmail}, res.URL)
		msg.Attachments = pdfAttachment
		logger.Debug("sending user email", "to", logging.MaskEmail(rep.UserEmail), "attach_pdf", len(pdfAttachment) > 0)
		ok, errMsg := d.Mail.Send(ctx, msg)
		updates["email_sent_user"] = ok
		if !ok {
			updates["email_error_user"] = errMsg
			logger.Warn("user email failed", "error", errMsg)
		}
	}

	if len(d.Admins) > 0 {
		attachments := []mail.Attachment{briefingAttachment(br)}
		if len(out.TimelineCSV) > 0 {
			attachments = append(attachments, mail.Attachment{
				Filename: "ai-act-timeline.csv",
				Content:  out.TimelineCSV,
				MimeType: "text/csv",
			})
		}
		attachments = append(attachments, pdfAttachment...)
		anyOK := false
		var failures []string
		for _, addr := range d.Admins {
			msg := mail.ReportReady(mail.AudienceAdmin, []string{addr}, res.URL)
			msg.Attachments = attachments
			ok, errMsg := d.Mail.Send(ctx, msg)
			anyOK = anyOK || ok
			if !ok {
				failures = append(failures, addr+": "+errMsg)
			}
		}
		updates["email_sent_admin"] = anyOK
		if len(failures) > 0 {
			updates["email_error_admin"] = strings.Join(failures, "; ")
			logger.Warn("admin email failed", "failures", len(failures))
		}
	}

	if len(updates) == 0 {
		return
	}
	if err := d.DB.WithContext(ctx).Model(rep).Updates(updates).Error; err != nil {
		logger.Error("failed to record email results", "error", err)
	}
}

func briefingAttachment(br *models.Briefing) mail.Attachment {
	content := []byte(br.Answers)
	var v any
	if err := json.Unmarshal(br.Answers, &v); err == nil {
		if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
			content = pretty
		}
	}
	return mail.Attachment{
		Filename: fmt.Sprintf("briefing-%d.json", br.ID),
		Content:  content,
		MimeType: "application/json",
	}
}

func (d *Driver) event(rep *models.Report, out *Output, errMsg string) events.ReportEvent {
	return events.ReportEvent{
		RunID:      rep.RunID,
		TaskID:     rep.TaskID,
		BriefingID: rep.BriefingID,
		ReportID:   rep.ID,
		Status:     rep.Status,
		Email:      rep.UserEmail,
		Branche:    out.Answers.Str("branche"),
		Groesse:    out.Answers.Str("unternehmensgroesse"),
		Overall:    out.Meta.Scores.Overall,
		PDFURL:     rep.PDFURL,
		Error:      errMsg,
	}
}

func (d *Driver) notify(rep *models.Report, out *Output, errMsg string) {
	if d.Notifier != nil {
		d.Notifier.NotifyReport(d.event(rep, out, errMsg))
	}
}

// publish emits a terminal status to the local notifier and the lead stream.
func (d *Driver) publish(ctx context.Context, logger *slog.Logger, rep *models.Report, out *Output, errMsg string) {
	d.notify(rep, out, errMsg)
	if _, err := d.Events.PublishReportEvent(ctx, d.event(rep, out, errMsg)); err != nil {
		logger.Warn("failed to publish report event", "error", err)
	}
}
