// Package metrics derives hourly rate, quick-win hours, savings and cost
// defaults from a briefing using static lookup tables.
package metrics

import (
	"math"
	"strings"

	"github.com/jimdaga/ki-report/internal/answers"
)

var stundensatzByUmsatz = map[string]int{
	"unter_100k": 60,
	"100_500k":   80,
	"500k_2m":    100,
	"ueber_2m":   120,
}

// zeitbudgetHours maps the weekly time-budget category to hours per week.
var zeitbudgetHours = map[string]float64{
	"unter_2":  1.5,
	"2_5":      4,
	"5_10":     8,
	"ueber_10": 12,
}

var usecaseBaseSavings = map[string]float64{
	"texterstellung":         4,
	"prozessautomatisierung": 6,
	"datenanalyse":           3,
	"kundensupport":          3,
	"marketing":              4,
}

const (
	defaultStundensatz  = 80
	soloStundensatz     = 60
	defaultWeeklyHours  = 6.0
	defaultBaseSavings  = 12.0
	capShare            = 0.6
	capFloor            = 8.0
	capCeiling          = 32.0
	thirdBucketMinTotal = 20.0
)

// Costs holds capex/opex under conservative and realistic assumptions (EUR).
type Costs struct {
	CapexKonservativ int `json:"capex_konservativ_eur"`
	OpexKonservativ  int `json:"opex_konservativ_eur"`
	CapexRealistisch int `json:"capex_realistisch_eur"`
	OpexRealistisch  int `json:"opex_realistisch_eur"`
}

var (
	costsSmall   = Costs{4000, 2500, 6000, 4000}
	costsMedium  = Costs{12000, 6000, 18000, 9000}
	costsDefault = Costs{5000, 3000, 8000, 5000}
)

// Metrics is the derived ROI record. JSON names match the template placeholders.
type Metrics struct {
	Stundensatz  int     `json:"stundensatz_eur"`
	QW1Hours     float64 `json:"qw1_monat_stunden"`
	QW2Hours     float64 `json:"qw2_monat_stunden"`
	QW3Hours     float64 `json:"qw3_monat_stunden"`
	MonthlyHours float64 `json:"monatsersparnis_stunden"`
	MonthlyEUR   int     `json:"monatsersparnis_eur"`
	YearlyHours  int     `json:"jahresersparnis_stunden"`
	YearlyEUR    int     `json:"jahresersparnis_eur"`
	WeeklyBudget float64 `json:"zeitbudget_woche_stunden"`
	QuickWinCap  float64 `json:"qw_cap_stunden"`
	Costs
}

// Derive computes Metrics. It never fails: missing or unrecognized answers
// fall back to the table defaults.
func Derive(a answers.Answers) Metrics {
	return DeriveWithRate(a, 0)
}

// DeriveWithRate is Derive with a configured hourly rate for companies that
// match neither a revenue bracket nor the solo sizes. Zero keeps the built-in
// default.
func DeriveWithRate(a answers.Answers, fallbackRate int) Metrics {
	rate := hourlyRate(a, fallbackRate)
	weekly := WeeklyHours(a)
	qw1, qw2, qw3, total, limit := QuickWinHours(a, weekly)

	yearlyHours := int(math.Round(total * 12))
	return Metrics{
		Stundensatz:  rate,
		QW1Hours:     qw1,
		QW2Hours:     qw2,
		QW3Hours:     qw3,
		MonthlyHours: total,
		MonthlyEUR:   int(math.Round(total * float64(rate))),
		YearlyHours:  yearlyHours,
		YearlyEUR:    int(math.Round(float64(yearlyHours) * float64(rate))),
		WeeklyBudget: weekly,
		QuickWinCap:  limit,
		Costs:        CostDefaults(a),
	}
}

// HourlyRate looks up the rate by revenue bracket, falling back to the
// company size and then to the global default.
func HourlyRate(a answers.Answers) int {
	return hourlyRate(a, 0)
}

func hourlyRate(a answers.Answers, fallback int) int {
	if r, ok := stundensatzByUmsatz[a.Lower("jahresumsatz")]; ok {
		return r
	}
	switch a.Lower("unternehmensgroesse") {
	case "solo", "freiberufler":
		return soloStundensatz
	}
	if fallback > 0 {
		return fallback
	}
	return defaultStundensatz
}

// WeeklyHours returns the hours per week the company can invest.
func WeeklyHours(a answers.Answers) float64 {
	if h, ok := zeitbudgetHours[a.Lower("zeitbudget")]; ok {
		return h
	}
	return defaultWeeklyHours
}

// QuickWinHours sums the base savings of the selected use cases, scales the
// total down to the monthly cap and splits it 60/40. A third 10% bucket is
// added when the total reaches 20 hours; the displayed total then becomes the
// sum of all three buckets and may exceed the cap.
func QuickWinHours(a answers.Answers, weekly float64) (qw1, qw2, qw3, total, limit float64) {
	var base float64
	for _, uc := range a.List("ki_usecases") {
		base += usecaseBaseSavings[strings.ToLower(uc)]
	}
	if base == 0 {
		base = defaultBaseSavings
	}

	limit = math.Max(capFloor, math.Min(weekly*4*capShare, capCeiling))
	scale := math.Min(1, limit/base)
	total = round1(base * scale)

	qw1 = round1(total * 0.6)
	qw2 = round1(total * 0.4)
	if total >= thirdBucketMinTotal {
		qw3 = round1(total * 0.1)
		total = round1(qw1 + qw2 + qw3)
	}
	return qw1, qw2, qw3, total, limit
}

// CostDefaults picks the capex/opex quadruple from the investment budget.
func CostDefaults(a answers.Answers) Costs {
	budget := a.Lower("investitionsbudget")
	switch {
	case strings.Contains(budget, "2000_10000"):
		return costsSmall
	case strings.Contains(budget, "10000_50000"):
		return costsMedium
	default:
		return costsDefault
	}
}

// ROI compares the realistic investment with the monthly savings.
type ROI struct {
	Investment      int     `json:"investment_eur"`
	MonthlyValue    int     `json:"monthly_value_eur"`
	BreakEvenMonths float64 `json:"break_even_months"`
	ROI12MonthsPct  float64 `json:"roi_12m_pct"`
}

// ROI returns break-even and 12-month return against the realistic capex.
func (m Metrics) ROI() ROI {
	invest := m.CapexRealistisch
	r := ROI{Investment: invest, MonthlyValue: m.MonthlyEUR}
	if m.MonthlyEUR > 0 {
		r.BreakEvenMonths = round1(float64(invest) / float64(m.MonthlyEUR))
	}
	r.ROI12MonthsPct = round1((float64(m.MonthlyEUR*12) - float64(invest)) / math.Max(float64(invest), 1) * 100)
	return r
}

// Map flattens Metrics into template placeholder keys.
func (m Metrics) Map() map[string]any {
	return map[string]any{
		"stundensatz_eur":         m.Stundensatz,
		"qw1_monat_stunden":       m.QW1Hours,
		"qw2_monat_stunden":       m.QW2Hours,
		"qw3_monat_stunden":       m.QW3Hours,
		"monatsersparnis_stunden": m.MonthlyHours,
		"monatsersparnis_eur":     m.MonthlyEUR,
		"jahresersparnis_stunden": m.YearlyHours,
		"jahresersparnis_eur":     m.YearlyEUR,
		"capex_konservativ_eur":   m.CapexKonservativ,
		"opex_konservativ_eur":    m.OpexKonservativ,
		"capex_realistisch_eur":   m.CapexRealistisch,
		"opex_realistisch_eur":    m.OpexRealistisch,
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
