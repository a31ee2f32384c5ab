package scoring

import (
	"math"
	"testing"

	"github.com/jimdaga/ki-report/internal/answers"
)

func affirmativeBriefing() answers.Answers {
	return answers.Answers{
		"roadmap_vorhanden":      "ja",
		"governance_richtlinien": "alle",
		"investitionsbudget":     "10000_50000",
		"ki_ziele":               []any{"effizienz", "qualitaet"},
		"anwendungsfaelle":       []any{"Angebotserstellung", "Kundenservice-Chatbot", "Wissensmanagement"},
		"ki_projekte":            "Pilot mit internem Wissens-Assistenten seit Q2",
		"datenschutz":            true,
		"technische_massnahmen":  "alle",
		"folgenabschaetzung":     "ja",
		"trainings_interessen":   []any{"prompting", "datenschutz", "ai_act"},
		"vision_prioritaet":      "wachstum",
		"strategische_ziele":     "Umsatz +20% durch Automatisierung",
		"pilot_bereich":          "vertrieb",
		"ki_kompetenz":           "hoch",
		"zeitbudget":             "ueber_10",
		"change_management":      "hoch",
		"innovationsprozess":     "alle",
	}
}

func TestScoreEmptyBriefing(t *testing.T) {
	r := Score(answers.Answers{})

	if r.Scores.Governance != 0 || r.Scores.Security != 0 || r.Scores.Enablement != 0 {
		t.Errorf("expected zero buckets for empty briefing, got %+v", r.Scores)
	}
	// A missing priority still maps to "low" ROI expectation (+3).
	if r.Scores.Value != 12 {
		t.Errorf("expected value 12, got %d", r.Scores.Value)
	}
	if r.Scores.Overall != 3 {
		t.Errorf("expected overall 3, got %d", r.Scores.Overall)
	}
}

func TestScoreAffirmativeBriefing(t *testing.T) {
	r := Score(affirmativeBriefing())

	want := Scores{Governance: 100, Security: 100, Value: 100, Enablement: 100, Overall: 100}
	if r.Scores != want {
		t.Errorf("expected %+v, got %+v", want, r.Scores)
	}
	if len(r.Details["governance"]) != 4 {
		t.Errorf("expected 4 governance details, got %v", r.Details["governance"])
	}
}

func TestScoreInvariants(t *testing.T) {
	briefings := []answers.Answers{
		{},
		affirmativeBriefing(),
		{"investitionsbudget": "2000_10000", "ki_kompetenz": "niedrig", "ki_projekte": "kurz"},
		{"roadmap_vorhanden": "teilweise", "governance_richtlinien": "teilweise", "trainings_interessen": []any{"x"}},
		{"datenschutzbeauftragter": "ja", "technische_massnahmen": "einige", "change_management": "mittel"},
	}
	for i, b := range briefings {
		s := Score(b).Scores
		for name, v := range map[string]int{"governance": s.Governance, "security": s.Security, "value": s.Value, "enablement": s.Enablement} {
			if v < 0 || v > 100 {
				t.Errorf("case %d: %s out of range: %d", i, name, v)
			}
		}
		mean := float64(s.Governance+s.Security+s.Value+s.Enablement) / 4
		if s.Overall != int(math.Round(mean)) {
			t.Errorf("case %d: overall %d != round(mean %.2f)", i, s.Overall, mean)
		}
	}
}

func TestScorePartialPoints(t *testing.T) {
	r := Score(answers.Answers{
		"investitionsbudget": "2000_10000",
		"ki_kompetenz":       "niedrig",
		"ki_projekte":        "kurz",
	})
	// governance: budget 3 + use cases 4 = 7 -> 28
	if r.Scores.Governance != 28 {
		t.Errorf("expected governance 28, got %d", r.Scores.Governance)
	}
	// value: use cases 4 + low roi 3 + pilot in progress 4 = 11 -> 44
	if r.Scores.Value != 44 {
		t.Errorf("expected value 44, got %d", r.Scores.Value)
	}
	// enablement: basic skills 4 -> 16
	if r.Scores.Enablement != 16 {
		t.Errorf("expected enablement 16, got %d", r.Scores.Enablement)
	}
}

func TestMapFeaturesDefaults(t *testing.T) {
	f := MapFeatures(answers.Answers{})
	if f.Strategy != LevelNo || f.Budget != BudgetNone || f.InnovationCulture != LevelWeak || f.ROIExpected != LevelLow {
		t.Errorf("unexpected defaults: %+v", f)
	}

	f = MapFeatures(answers.Answers{"vision_3_jahre": "Marktführer im Umkreis"})
	if f.Strategy != LevelInProgress {
		t.Errorf("expected vision to imply in_progress strategy, got %s", f.Strategy)
	}
}
