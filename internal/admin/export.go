// Package admin serves the operator endpoints: briefing listing, ZIP export
// and synchronous re-analysis.
package admin

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/models"
)

type briefingEntry struct {
	ID        uint            `json:"id"`
	UserID    *uint           `json:"user_id"`
	Lang      string          `json:"lang"`
	Answers   json.RawMessage `json:"answers"`
	CreatedAt time.Time       `json:"created_at"`
}

type reportEntry struct {
	ID              uint      `json:"id"`
	TaskID          string    `json:"task_id"`
	RunID           string    `json:"run_id"`
	Status          string    `json:"status"`
	PDFURL          string    `json:"pdf_url"`
	PDFBytesLen     int       `json:"pdf_bytes_len"`
	EmailSentUser   bool      `json:"email_sent_user"`
	EmailSentAdmin  bool      `json:"email_sent_admin"`
	EmailErrorUser  string    `json:"email_error_user,omitempty"`
	EmailErrorAdmin string    `json:"email_error_admin,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// WriteExport writes the briefing plus its latest analysis and report as a
// ZIP archive. It returns gorm.ErrRecordNotFound for an unknown briefing.
func WriteExport(ctx context.Context, db *gorm.DB, briefingID uint, w io.Writer) error {
	db = db.WithContext(ctx)

	var br models.Briefing
	if err := db.First(&br, briefingID).Error; err != nil {
		return err
	}
	var an models.Analysis
	hasAnalysis, err := latest(db.Where("briefing_id = ?", briefingID), &an)
	if err != nil {
		return fmt.Errorf("failed to load analysis: %w", err)
	}
	var rep models.Report
	hasReport, err := latest(db.Where("briefing_id = ?", briefingID), &rep)
	if err != nil {
		return fmt.Errorf("failed to load report: %w", err)
	}

	zw := zip.NewWriter(w)
	if err := writeJSON(zw, "briefing.json", briefingEntry{
		ID:        br.ID,
		UserID:    br.UserID,
		Lang:      br.Lang,
		Answers:   json.RawMessage(br.Answers),
		CreatedAt: br.CreatedAt,
	}); err != nil {
		return err
	}

	if hasAnalysis {
		if err := writeJSON(zw, "analysis/meta.json", json.RawMessage(an.Meta)); err != nil {
			return err
		}
		if err := writeFile(zw, "analysis/report.html", []byte(an.HTML)); err != nil {
			return err
		}
	}

	if hasReport {
		if err := writeJSON(zw, "report/info.json", reportEntry{
			ID:              rep.ID,
			TaskID:          rep.TaskID,
			RunID:           rep.RunID,
			Status:          rep.Status,
			PDFURL:          rep.PDFURL,
			PDFBytesLen:     rep.PDFBytesLen,
			EmailSentUser:   rep.EmailSentUser,
			EmailSentAdmin:  rep.EmailSentAdmin,
			EmailErrorUser:  rep.EmailErrorUser,
			EmailErrorAdmin: rep.EmailErrorAdmin,
			ErrorMessage:    rep.ErrorMessage,
			CreatedAt:       rep.CreatedAt,
		}); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func latest(q *gorm.DB, dest any) (bool, error) {
	err := q.Order("id DESC").First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func writeJSON(zw *zip.Writer, name string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	return writeFile(zw, name, payload)
}

func writeFile(zw *zip.Writer, name string, data []byte) error {
	fw, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
