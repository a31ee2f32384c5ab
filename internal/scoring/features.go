package scoring

import (
	"strings"

	"github.com/jimdaga/ki-report/internal/answers"
)

// Level is a coarse maturity category derived from one or more answers.
type Level string

const (
	LevelNo            Level = "no"
	LevelYes           Level = "yes"
	LevelInProgress    Level = "in_progress"
	LevelShared        Level = "shared"
	LevelPlanned       Level = "planned"
	LevelNone          Level = "none"
	LevelBasic         Level = "basic"
	LevelComprehensive Level = "comprehensive"
	LevelOccasional    Level = "occasional"
	LevelRegular       Level = "regular"
	LevelLow           Level = "low"
	LevelMedium        Level = "medium"
	LevelHigh          Level = "high"
	LevelIntermediate  Level = "intermediate"
	LevelAdvanced      Level = "advanced"
	LevelWeak          Level = "weak"
	LevelModerate      Level = "moderate"
	LevelStrong        Level = "strong"
)

// Budget tiers.
const (
	BudgetNone     = "none"
	BudgetUnder10k = "under_10k"
	Budget10To50k  = "10k-50k"
	Budget50To100k = "50k-100k"
	BudgetOver100k = "over_100k"
)

// Features is the intermediate record the scorer works on. Every field has a
// least-favorable default that applies when the underlying answer is missing.
type Features struct {
	// Governance
	Strategy    Level  // roadmap_vorhanden, vision_3_jahre, ki_ziele; default no
	Responsible Level  // governance_richtlinien; default no
	Budget      string // investitionsbudget; default none
	Goals       string // ki_ziele joined, else strategische_ziele; default ""
	UseCases    string // anwendungsfaelle + ki_projekte; default ""

	// Security & compliance
	GDPRAware        bool  // datenschutz or datenschutzbeauftragter=ja
	DataProtection   Level // technische_massnahmen; default none
	RiskAssessment   bool  // folgenabschaetzung=ja
	SecurityTraining Level // trainings_interessen count; default no

	// Value
	ROIExpected     Level // vision_prioritaet; default low
	MeasurableGoals bool  // strategische_ziele or ki_ziele
	Pilot           Level // pilot_bereich, ki_projekte; default no

	// Enablement
	Skills            Level // ki_kompetenz; default none
	TrainingBudget    Level // zeitbudget; default no
	ChangeManagement  Level // change_management; default no
	InnovationCulture Level // innovationsprozess; default weak
}

var budgetTiers = map[string]string{
	"unter_2000":   BudgetUnder10k,
	"2000_10000":   BudgetUnder10k,
	"10000_50000":  Budget10To50k,
	"50000_100000": Budget50To100k,
	"ueber_100000": BudgetOver100k,
}

var skillLevels = map[string]Level{
	"hoch":    LevelAdvanced,
	"mittel":  LevelIntermediate,
	"niedrig": LevelBasic,
	"keine":   LevelNone,
}

// MapFeatures translates German questionnaire answers into Features.
func MapFeatures(a answers.Answers) Features {
	f := Features{
		Strategy:          LevelNo,
		Responsible:       LevelNo,
		Budget:            BudgetNone,
		DataProtection:    LevelNone,
		SecurityTraining:  LevelNo,
		ROIExpected:       LevelLow,
		Pilot:             LevelNo,
		Skills:            LevelNone,
		TrainingBudget:    LevelNo,
		ChangeManagement:  LevelNo,
		InnovationCulture: LevelWeak,
	}

	switch a.Lower("roadmap_vorhanden") {
	case "ja":
		f.Strategy = LevelYes
	case "teilweise":
		f.Strategy = LevelInProgress
	default:
		if a.Has("vision_3_jahre") || a.Has("ki_ziele") {
			f.Strategy = LevelInProgress
		}
	}

	switch a.Lower("governance_richtlinien") {
	case "ja", "alle":
		f.Responsible = LevelYes
	case "teilweise":
		f.Responsible = LevelShared
	}

	if tier, ok := budgetTiers[a.Lower("investitionsbudget")]; ok {
		f.Budget = tier
	}

	if goals := a.List("ki_ziele"); len(goals) > 0 {
		f.Goals = strings.Join(goals, ", ")
	} else {
		f.Goals = a.Str("strategische_ziele")
	}

	projekte := a.Str("ki_projekte")
	if faelle := a.List("anwendungsfaelle"); len(faelle) > 0 {
		f.UseCases = strings.Join(faelle, ", ") + ". " + projekte
	} else {
		f.UseCases = projekte
	}

	f.GDPRAware = a.Bool("datenschutz") || a.Lower("datenschutzbeauftragter") == "ja"

	switch m := a.Lower("technische_massnahmen"); {
	case m == "alle":
		f.DataProtection = LevelComprehensive
	case m != "":
		f.DataProtection = LevelBasic
	}

	f.RiskAssessment = a.Lower("folgenabschaetzung") == "ja"

	switch n := len(a.List("trainings_interessen")); {
	case n > 2:
		f.SecurityTraining = LevelRegular
	case n > 0:
		f.SecurityTraining = LevelOccasional
	}

	switch p := a.Lower("vision_prioritaet"); {
	case p == "marktfuehrerschaft" || p == "wachstum":
		f.ROIExpected = LevelHigh
	case p != "":
		f.ROIExpected = LevelMedium
	}

	f.MeasurableGoals = a.Has("strategische_ziele") || a.Has("ki_ziele")

	switch {
	case a.Has("pilot_bereich"):
		f.Pilot = LevelYes
	case a.Has("ki_projekte"):
		f.Pilot = LevelInProgress
	}

	if s, ok := skillLevels[a.Lower("ki_kompetenz")]; ok {
		f.Skills = s
	}

	switch z := a.Lower("zeitbudget"); {
	case z == "ueber_10" || z == "5_10":
		f.TrainingBudget = LevelYes
	case z != "":
		f.TrainingBudget = LevelPlanned
	}

	switch a.Lower("change_management") {
	case "hoch":
		f.ChangeManagement = LevelYes
	case "mittel", "niedrig":
		f.ChangeManagement = LevelPlanned
	}

	switch i := a.Lower("innovationsprozess"); {
	case i == "mitarbeitende" || i == "alle":
		f.InnovationCulture = LevelStrong
	case i != "":
		f.InnovationCulture = LevelModerate
	}

	return f
}
