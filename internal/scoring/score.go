// Package scoring computes the four AI-readiness maturity scores
// (governance, security, value, enablement) with a weighted-points model.
package scoring

import (
	"fmt"
	"math"

	"github.com/jimdaga/ki-report/internal/answers"
)

const (
	bucketCap   = 25
	bucketScale = 4
)

// Scores are 0..100 sub-scores plus their rounded mean.
type Scores struct {
	Governance int `json:"governance"`
	Security   int `json:"security"`
	Value      int `json:"value"`
	Enablement int `json:"enablement"`
	Overall    int `json:"overall"`
}

// Result bundles the scores with raw points and the reasoning per bucket.
type Result struct {
	Scores  Scores              `json:"scores"`
	Raw     map[string]int      `json:"raw_points"`
	Details map[string][]string `json:"details"`
}

type bucket struct {
	points  int
	details []string
}

func (b *bucket) award(cond bool, pts int, hit, miss string) {
	if cond {
		b.points += pts
		b.details = append(b.details, fmt.Sprintf("✅ %s (+%d)", hit, pts))
		return
	}
	b.details = append(b.details, fmt.Sprintf("❌ %s (-%d)", miss, pts))
}

func (b *bucket) partial(pts int, text string) {
	b.points += pts
	b.details = append(b.details, fmt.Sprintf("⚠️ %s (+%d)", text, pts))
}

func (b *bucket) score() int {
	return min(b.points, bucketCap) * bucketScale
}

// Score maps answers to features and accumulates points per bucket. It never
// fails; missing answers score as the least-favorable category.
func Score(a answers.Answers) Result {
	return ScoreFeatures(MapFeatures(a))
}

// ScoreFeatures is Score on an already mapped feature record.
func ScoreFeatures(f Features) Result {
	var gov, sec, val, ena bucket

	gov.award(f.Strategy == LevelYes || f.Strategy == LevelInProgress, 8,
		"KI-Strategie vorhanden/in Arbeit", "Keine KI-Strategie")
	gov.award(f.Responsible == LevelYes || f.Responsible == LevelShared, 7,
		"KI-Verantwortlicher benannt", "Kein KI-Verantwortlicher")
	switch f.Budget {
	case Budget10To50k, Budget50To100k, BudgetOver100k:
		gov.award(true, 6, "KI-Budget vorhanden: "+f.Budget, "")
	case BudgetUnder10k:
		gov.partial(3, "Geringes KI-Budget: unter 10k")
	default:
		gov.award(false, 6, "", "Kein KI-Budget")
	}
	gov.award(f.Goals != "" || f.UseCases != "", 4,
		"KI-Ziele definiert", "Keine konkreten KI-Ziele")

	sec.award(f.GDPRAware, 8, "DSGVO-Bewusstsein vorhanden", "Keine DSGVO-Awareness")
	sec.award(f.DataProtection == LevelComprehensive || f.DataProtection == LevelBasic, 7,
		"Datenschutz-Maßnahmen implementiert", "Keine Datenschutz-Maßnahmen")
	sec.award(f.RiskAssessment, 6, "Risiko-Assessment durchgeführt", "Kein Risiko-Assessment")
	sec.award(f.SecurityTraining == LevelRegular || f.SecurityTraining == LevelOccasional, 4,
		"Sicherheits-Schulungen vorhanden", "Keine Sicherheits-Schulungen")

	switch {
	case len(f.UseCases) > 50:
		val.award(true, 8, "Konkrete Use Cases definiert", "")
	case f.UseCases != "":
		val.partial(4, "Use Cases ansatzweise definiert")
	default:
		val.award(false, 8, "", "Keine Use Cases definiert")
	}
	switch f.ROIExpected {
	case LevelHigh, LevelMedium:
		val.award(true, 7, "ROI-Erwartung: "+string(f.ROIExpected), "")
	case LevelLow:
		val.partial(3, "Geringe ROI-Erwartung")
	default:
		val.award(false, 7, "", "Keine ROI-Erwartung")
	}
	val.award(f.MeasurableGoals, 6, "Messbare Ziele definiert", "Keine messbaren Ziele")
	val.award(f.Pilot == LevelYes || f.Pilot == LevelInProgress, 4,
		"Pilot-Projekt geplant/läuft", "Kein Pilot-Projekt geplant")

	switch f.Skills {
	case LevelAdvanced, LevelIntermediate:
		ena.award(true, 8, "KI-Kenntnisse: "+string(f.Skills), "")
	case LevelBasic:
		ena.partial(4, "Basis KI-Kenntnisse")
	default:
		ena.award(false, 8, "", "Keine KI-Kenntnisse")
	}
	ena.award(f.TrainingBudget == LevelYes || f.TrainingBudget == LevelPlanned, 7,
		"Weiterbildungs-Budget vorhanden", "Kein Weiterbildungs-Budget")
	ena.award(f.ChangeManagement == LevelYes, 6, "Change-Management geplant", "Kein Change-Management")
	ena.award(f.InnovationCulture == LevelStrong || f.InnovationCulture == LevelModerate, 4,
		"Innovationskultur: "+string(f.InnovationCulture), "Schwache Innovationskultur")

	s := Scores{
		Governance: gov.score(),
		Security:   sec.score(),
		Value:      val.score(),
		Enablement: ena.score(),
	}
	s.Overall = overall(s)

	return Result{
		Scores: s,
		Raw: map[string]int{
			"governance": gov.points,
			"security":   sec.points,
			"value":      val.points,
			"enablement": ena.points,
		},
		Details: map[string][]string{
			"governance": gov.details,
			"security":   sec.details,
			"value":      val.details,
			"enablement": ena.details,
		},
	}
}

func overall(s Scores) int {
	sum := s.Governance + s.Security + s.Value + s.Enablement
	return int(math.Round(float64(sum) / 4))
}

// Map flattens Scores into the template keys the report uses.
func (s Scores) Map() map[string]any {
	return map[string]any{
		"score_governance":  s.Governance,
		"score_sicherheit":  s.Security,
		"score_nutzen":      s.Value,
		"score_befaehigung": s.Enablement,
		"score_gesamt":      s.Overall,
	}
}
