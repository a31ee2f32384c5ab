package events

import (
	"context"
	"testing"
)

func TestNilPublisherIsNoop(t *testing.T) {
	var p *Publisher
	id, err := p.PublishReportEvent(context.Background(), ReportEvent{Status: "done"})
	if err != nil || id != "" {
		t.Errorf("expected no-op, got %q, %v", id, err)
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, err := decodeEvent(map[string]interface{}{
		"payload": `{"run_id":"run-1a2b3c4d","briefing_id":4,"report_id":9,"status":"done","score_gesamt":57}`,
	})
	if err != nil {
		t.Fatalf("decodeEvent: %v", err)
	}
	if ev.RunID != "run-1a2b3c4d" || ev.ReportID != 9 || ev.Overall != 57 {
		t.Errorf("unexpected event %+v", ev)
	}

	if _, err := decodeEvent(map[string]interface{}{}); err == nil {
		t.Error("expected error for missing payload")
	}
	if _, err := decodeEvent(map[string]interface{}{"payload": "{"}); err == nil {
		t.Error("expected error for bad JSON")
	}
}
