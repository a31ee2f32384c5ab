package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/industry"
	"github.com/jimdaga/ki-report/internal/metrics"
	"github.com/jimdaga/ki-report/internal/scoring"
	"github.com/jimdaga/ki-report/internal/scoring/ensemble"
	"github.com/jimdaga/ki-report/internal/security"
	"github.com/jimdaga/ki-report/internal/timeline"
)

const transparencyText = "Dieser Report wurde teilautomatisiert mit KI erstellt. Alle Kennzahlen sind Schätzwerte auf Basis Ihrer Angaben und ersetzen keine Rechts- oder Steuerberatung."

// Input is everything a report context is built from. Placeholders names the
// fragments that only hold a failed-section placeholder. A nil Industry
// leaves the playbook and branch KPI blocks empty.
type Input struct {
	Answers      answers.Answers
	Scores       scoring.Scores
	Metrics      metrics.Metrics
	Fragments    map[string]string
	Placeholders []string
	Timeline     timeline.Timeline
	Ensemble     *ensemble.Result
	Industry     *industry.Catalog
	Security     security.Roadmap
	Now          time.Time
}

// BuildContext merges profile labels, scores, metrics, section fragments and
// the static blocks into the placeholder map consumed by Render. Generated
// fragments win over derived fallbacks of the same key; empty fragments and
// placeholders do not.
func BuildContext(in Input) map[string]any {
	a := in.Answers
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	ctx := map[string]any{
		"report_date":           now.Format("02.01.2006"),
		"report_year":           now.Format("2006"),
		"unternehmen_name":      html.EscapeString(firstNonEmpty(a.Str("unternehmen_name"), a.Str("hauptleistung"), answers.Placeholder)),
		"hauptleistung":         html.EscapeString(firstNonEmpty(a.Str("hauptleistung"), answers.Placeholder)),
		"branche":               html.EscapeString(firstNonEmpty(a.Str("branche"), answers.Placeholder)),
		"branche_label":         html.EscapeString(a.Str("branche_label")),
		"groesse_label":         html.EscapeString(a.Str("groesse_label")),
		"bundesland_label":      html.EscapeString(a.Str("bundesland_label")),
		"umsatz_label":          html.EscapeString(a.Str("umsatz_label")),
		"benchmark_avg":         escaped(orPlaceholder(a["benchmark_avg"])),
		"benchmark_top":         escaped(orPlaceholder(a["benchmark_top"])),
		"stundensatz_benchmark": orPlaceholder(a["stundensatz_benchmark"]),
		"eu_ai_act_risk":        "gering (assistierend, menschliche Kontrolle)",
		"TRANSPARENCY_TEXT":     transparencyText,
		"AI_ACT_TABLE_HTML":     in.Timeline.TableHTML,
		"AI_ACT_PHASE_LABEL":    in.Timeline.PhaseLabel,
		"KPI_HTML":              KPIHTML(in.Scores),
		"KPI_BRANCHE_HTML":      "",
		"PLAYBOOKS_HTML":        "",
		"BENCHMARK_HTML":        BranchKPIHTML(in.Scores, a),
		"SECURITY_ROADMAP_HTML": in.Security.HTML(),
		"ROI_HTML":              ROIHTML(in.Metrics),
		"COSTS_OVERVIEW_HTML":   CostsHTML(in.Metrics.Costs),
	}
	if in.Industry != nil {
		label := a.Str("branche_label")
		if label == answers.Placeholder {
			label = ""
		}
		ctx["KPI_BRANCHE_HTML"] = in.Industry.KPITableHTML(a.Str("branche"))
		ctx["PLAYBOOKS_HTML"] = in.Industry.PlaybooksHTML(a.Str("branche"), label)
	}
	for k, v := range in.Scores.Map() {
		ctx[k] = v
	}
	for k, v := range in.Metrics.Map() {
		ctx[k] = v
	}
	if in.Ensemble != nil {
		ctx["ENSEMBLE_SUMMARY_HTML"] = in.Ensemble.SummaryHTML()
		ctx["ENSEMBLE_ACTIONS_HTML"] = in.Ensemble.ActionsHTML()
		ctx["ENSEMBLE_CONFLICTS_HTML"] = in.Ensemble.ConflictsHTML()
	}
	degraded := make(map[string]bool, len(in.Placeholders))
	for _, k := range in.Placeholders {
		degraded[k] = true
	}
	for k, v := range in.Fragments {
		if strings.TrimSpace(v) == "" || degraded[k] {
			if derived, _ := ctx[k].(string); derived != "" {
				continue
			}
		}
		ctx[k] = v
	}
	return ctx
}

// KPIHTML renders the four sub-scores and the overall score as a table.
func KPIHTML(s scoring.Scores) string {
	var b strings.Builder
	b.WriteString(`<table class="table kpi"><tbody>`)
	row := func(label string, v int) {
		fmt.Fprintf(&b, `<tr><td>%s</td><td><div class="bar"><span style="width:%d%%"></span></div></td><td>%d</td></tr>`, label, v, v)
	}
	row("Governance", s.Governance)
	row("Sicherheit", s.Security)
	row("Nutzen", s.Value)
	row("Befähigung", s.Enablement)
	fmt.Fprintf(&b, `<tr><th>Gesamt</th><th></th><th>%d</th></tr></tbody></table>`, s.Overall)
	return b.String()
}

// BranchKPIHTML compares the overall score against the branch benchmark.
func BranchKPIHTML(s scoring.Scores, a answers.Answers) string {
	avg, top := a.Str("benchmark_avg"), a.Str("benchmark_top")
	if avg == "" && top == "" {
		return ""
	}
	return fmt.Sprintf(`<table class="table"><thead><tr><th>Ihr Score</th><th>Branchenschnitt</th><th>Top 10 %%</th></tr></thead><tbody><tr><td>%d</td><td>%s</td><td>%s</td></tr></tbody></table>`,
		s.Overall, html.EscapeString(firstNonEmpty(avg, answers.Placeholder)), html.EscapeString(firstNonEmpty(top, answers.Placeholder)))
}

// ROIHTML is the fallback business-case block derived from Metrics.
func ROIHTML(m metrics.Metrics) string {
	r := m.ROI()
	breakEven := answers.Placeholder
	if r.BreakEvenMonths > 0 {
		breakEven = fmt.Sprintf("%s Monate", stringify(r.BreakEvenMonths))
	}
	return fmt.Sprintf(`<table class="table"><tbody><tr><td>Investition (realistisch)</td><td>%s €</td></tr><tr><td>Monatlicher Nutzen</td><td>%s €</td></tr><tr><td>Break-even</td><td>%s</td></tr><tr><td>ROI nach 12 Monaten</td><td>%s %%</td></tr></tbody></table>`,
		euro(r.Investment), euro(r.MonthlyValue), breakEven, stringify(r.ROI12MonthsPct))
}

// CostsHTML renders capex and opex under both assumptions.
func CostsHTML(c metrics.Costs) string {
	return fmt.Sprintf(`<table class="table"><thead><tr><th></th><th>Konservativ</th><th>Realistisch</th></tr></thead><tbody><tr><td>Einmalig (Capex)</td><td>%s €</td><td>%s €</td></tr><tr><td>Laufend p.a. (Opex)</td><td>%s €</td><td>%s €</td></tr></tbody></table>`,
		euro(c.CapexKonservativ), euro(c.CapexRealistisch), euro(c.OpexKonservativ), euro(c.OpexRealistisch))
}

// euro formats an integer amount with German thousands separators.
func euro(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprint(v)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// escaped HTML-escapes string values and passes numbers through.
func escaped(v any) any {
	if s, ok := v.(string); ok {
		return html.EscapeString(s)
	}
	return v
}

func orPlaceholder(v any) any {
	if v == nil {
		return answers.Placeholder
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return answers.Placeholder
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
