package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jimdaga/ki-report/internal/answers"
)

// Briefing is a submitted questionnaire. Answers are stored normalized and
// never change after creation.
type Briefing struct {
	gorm.Model
	UserID  *uint          `gorm:"index"`
	Lang    string         `gorm:"not null;default:'de'"`
	Answers datatypes.JSON `gorm:"type:jsonb"`
}

// DecodeAnswers unmarshals the stored answers.
func (b *Briefing) DecodeAnswers() (answers.Answers, error) {
	a := answers.Answers{}
	if len(b.Answers) == 0 {
		return a, nil
	}
	if err := json.Unmarshal(b.Answers, &a); err != nil {
		return nil, fmt.Errorf("failed to decode briefing %d answers: %w", b.ID, err)
	}
	return a, nil
}

// BriefingDraft is the autosaved questionnaire of a signed-in user, one per
// language.
type BriefingDraft struct {
	ID        uint           `gorm:"primarykey"`
	UserID    uint           `gorm:"not null;uniqueIndex:idx_briefing_drafts_user_lang"`
	Lang      string         `gorm:"not null;default:'de';uniqueIndex:idx_briefing_drafts_user_lang"`
	Answers   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Analysis is the rendered report HTML plus the scoring meta of one run.
type Analysis struct {
	gorm.Model
	UserID     *uint          `gorm:"index"`
	BriefingID uint           `gorm:"not null;index"`
	HTML       string         `gorm:"type:text"`
	Meta       datatypes.JSON `gorm:"type:jsonb"`
	RunID      string         `gorm:"index"`
}

// Report status values.
const (
	ReportStatusPending = "pending"
	ReportStatusDone    = "done"
	ReportStatusFailed  = "failed"
)

// Report tracks PDF and email delivery for one analysis.
type Report struct {
	gorm.Model
	UserID          *uint  `gorm:"index"`
	UserEmail       string `gorm:"type:text"`
	BriefingID      uint   `gorm:"not null;index"`
	AnalysisID      *uint  `gorm:"index"`
	TaskID          string `gorm:"index"`
	RunID           string `gorm:"index"`
	Status          string `gorm:"not null;default:'pending';index"`
	PDFURL          string `gorm:"column:pdf_url;type:text"`
	PDFBytesLen     int    `gorm:"column:pdf_bytes_len"`
	EmailSentUser   bool
	EmailSentAdmin  bool
	EmailErrorUser  string `gorm:"type:text"`
	EmailErrorAdmin string `gorm:"type:text"`
	ErrorMessage    string `gorm:"column:error_message;type:text"`
}

// BeforeSave seals the contact email.
func (r *Report) BeforeSave(tx *gorm.DB) error {
	return sealField(&r.UserEmail)
}

// AfterSave restores the plaintext on the in-memory record.
func (r *Report) AfterSave(tx *gorm.DB) error {
	return openField(&r.UserEmail)
}

// AfterFind opens the contact email.
func (r *Report) AfterFind(tx *gorm.DB) error {
	return openField(&r.UserEmail)
}
