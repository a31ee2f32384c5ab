package ensemble

import (
	"math"
	"strings"
	"testing"

	"github.com/jimdaga/ki-report/internal/answers"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateComplianceEmpty(t *testing.T) {
	e := EvaluateCompliance(answers.Answers{})
	// Only the EU hosting default contributes.
	if !near(e.Score, 0.15) {
		t.Errorf("expected 0.15, got %v", e.Score)
	}
	if len(e.Risks) != 4 {
		t.Errorf("expected 4 risks, got %v", e.Risks)
	}
}

func TestEvaluateComplianceHosting(t *testing.T) {
	hybrid := EvaluateCompliance(answers.Answers{"hosting_region": "us", "it_infrastruktur": "hybrid"})
	if !near(hybrid.Breakdown["hosting"], 0.8*0.15) {
		t.Errorf("expected hybrid hosting weight, got %v", hybrid.Breakdown["hosting"])
	}
	other := EvaluateCompliance(answers.Answers{"hosting_region": "us"})
	if !near(other.Breakdown["hosting"], 0.6*0.15) {
		t.Errorf("expected non-EU hosting weight, got %v", other.Breakdown["hosting"])
	}
}

func TestEvaluateScoresBounded(t *testing.T) {
	briefings := []answers.Answers{
		{},
		{"prozesse_papierlos": "81-100", "zeitbudget": "ueber_10", "automatisierungsgrad": "sehr_hoch", "ki_kompetenz": "hoch"},
		{"prozesse_papierlos": "x-y"},
		{"digitalisierungsgrad": 25.0},
	}
	for i, b := range briefings {
		for _, e := range []Evaluation{EvaluateCompliance(b), EvaluateInnovation(b), EvaluateEfficiency(b)} {
			if e.Score < 0 || e.Score > 1 {
				t.Errorf("case %d: %s score out of range: %v", i, e.Name, e.Score)
			}
		}
	}
}

func TestDigitalisation(t *testing.T) {
	cases := []struct {
		in   answers.Answers
		want float64
	}{
		{answers.Answers{"prozesse_papierlos": "81-100"}, 0.905},
		{answers.Answers{"prozesse_papierlos": "a-b"}, 0.5},
		{answers.Answers{"digitalisierungsgrad": 7.0}, 0.7},
		{answers.Answers{"digitalisierungsgrad": "hoch"}, 0.5},
		{answers.Answers{}, 0},
	}
	for _, tc := range cases {
		if got := digitalisation(tc.in); !near(got, tc.want) {
			t.Errorf("digitalisation(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestWeightsFor(t *testing.T) {
	if w := WeightsFor("finanzen"); w.Compliance != 0.55 {
		t.Errorf("expected finance compliance weight 0.55, got %v", w.Compliance)
	}
	if w := WeightsFor(""); w != defaultWeights {
		t.Errorf("expected default weights, got %+v", w)
	}
	if w := WeightsFor("handel"); w != defaultWeights {
		t.Errorf("expected default weights for unmapped branch, got %+v", w)
	}
}

func TestDetectConflicts(t *testing.T) {
	if got := DetectConflicts(0.5, 0.8, 0.8); len(got) != 2 {
		t.Errorf("expected 2 conflicts, got %v", got)
	}
	if got := DetectConflicts(0.9, 0.3, 0.4); len(got) != 1 || !strings.Contains(got[0], "Umsetzungskraft") {
		t.Errorf("expected execution conflict, got %v", got)
	}
	if got := DetectConflicts(0.7, 0.5, 0.6); len(got) != 0 {
		t.Errorf("expected no conflicts, got %v", got)
	}
}

func TestPrioritizeActions(t *testing.T) {
	a := Evaluation{Actions: []string{"[M] b", "[H] a", "untagged", "[L] z"}}
	b := Evaluation{Actions: []string{"[H] a", "[h] c"}}

	got := PrioritizeActions(a, b)
	want := []string{"[H] a", "[h] c", "[M] b", "untagged", "[L] z"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestEvaluateCapsActionsAndRendersHTML(t *testing.T) {
	r := Evaluate(answers.Answers{"branche": "it_software"})

	if len(r.Actions) > maxActions {
		t.Errorf("expected at most %d actions, got %d", maxActions, len(r.Actions))
	}
	if !strings.HasPrefix(r.Actions[0], "[H]") {
		t.Errorf("expected high priority first, got %q", r.Actions[0])
	}
	if r.Weights.Innovation != 0.35 {
		t.Errorf("expected it_software weights, got %+v", r.Weights)
	}
	if r.Overall < 0 || r.Overall > 100 {
		t.Errorf("overall out of range: %d", r.Overall)
	}
	if !strings.Contains(r.SummaryHTML(), "Gesamt (gewichtet)") {
		t.Error("expected summary table")
	}
	if !strings.HasPrefix(r.ActionsHTML(), "<ul><li>") {
		t.Errorf("unexpected actions HTML: %s", r.ActionsHTML())
	}
}
