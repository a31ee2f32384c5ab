// Package events publishes report lifecycle events to a Redis stream for CRM
// ingestion and lets web instances follow the same stream for live status.
package events

import "time"

// SchemaVersionV1 is stamped on every stream entry.
const SchemaVersionV1 = "v1"

// ReportEvent is one report status change.
type ReportEvent struct {
	RunID      string    `json:"run_id"`
	TaskID     string    `json:"task_id,omitempty"`
	BriefingID uint      `json:"briefing_id"`
	ReportID   uint      `json:"report_id"`
	Status     string    `json:"status"`
	Email      string    `json:"email,omitempty"`
	Branche    string    `json:"branche,omitempty"`
	Groesse    string    `json:"unternehmensgroesse,omitempty"`
	Overall    int       `json:"score_gesamt"`
	PDFURL     string    `json:"pdf_url,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
