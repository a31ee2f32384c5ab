// Package security derives the security gap analysis of a briefing: what
// keeps the security score below 100 and the next steps that close it.
package security

import (
	"fmt"
	"html"
	"strings"

	"github.com/jimdaga/ki-report/internal/scoring"
)

// Gap is a missing measure and the security-score points it costs.
type Gap struct {
	Item   string `json:"item"`
	Points int    `json:"points"`
}

// Step is a recommended measure. ImpactPoints is zero for hardening steps
// that do not move the score.
type Step struct {
	Title        string `json:"title"`
	ImpactPoints int    `json:"impact_points"`
	Effort       string `json:"effort"`
	Cost         string `json:"cost"`
}

// Roadmap is the gap list plus the ordered next steps.
type Roadmap struct {
	Gaps  []Gap  `json:"gaps"`
	Steps []Step `json:"steps"`
}

// rule ties one security feature check to its gap and step. Points are on
// the 0..100 security score.
type rule struct {
	missing func(f scoring.Features) bool
	gap     string
	step    Step
}

var rules = []rule{
	{
		missing: func(f scoring.Features) bool { return !f.GDPRAware },
		gap:     "Datenschutzverantwortung (DSGVO, Datenschutzbeauftragter)",
		step:    Step{Title: "Datenschutzbeauftragten benennen oder extern beauftragen", ImpactPoints: 32, Effort: "1 Tag", Cost: "0–150 €/Monat"},
	},
	{
		missing: func(f scoring.Features) bool { return f.DataProtection == scoring.LevelNone || f.DataProtection == "" },
		gap:     "Technische Schutzmaßnahmen (2FA, Verschlüsselung at rest, Backups)",
		step:    Step{Title: "2FA für Admin-Zugänge und Verschlüsselung at rest aktivieren", ImpactPoints: 28, Effort: "< 1 Tag", Cost: "~0–100 €"},
	},
	{
		missing: func(f scoring.Features) bool { return !f.RiskAssessment },
		gap:     "Datenschutz-Folgenabschätzung (DPIA)",
		step:    Step{Title: "DPIA durchführen (falls zutreffend)", ImpactPoints: 24, Effort: "1 Tag", Cost: "0–500 €"},
	},
	{
		missing: func(f scoring.Features) bool {
			return f.SecurityTraining != scoring.LevelRegular && f.SecurityTraining != scoring.LevelOccasional
		},
		gap:  "Sicherheits-Schulungen für Mitarbeitende",
		step: Step{Title: "Security-Awareness-Schulung für alle Mitarbeitenden", ImpactPoints: 16, Effort: "½ Tag", Cost: "0–300 €"},
	},
}

var pentest = Step{Title: "Penetrationstest beauftragen", Effort: "2 Wochen", Cost: "2.000–5.000 €"}

// BuildRoadmap lists every missing security measure in descending score
// impact. Unless the technical measures are comprehensive a penetration test
// closes the list.
func BuildRoadmap(f scoring.Features) Roadmap {
	var r Roadmap
	for _, rl := range rules {
		if rl.missing(f) {
			r.Gaps = append(r.Gaps, Gap{Item: rl.gap, Points: rl.step.ImpactPoints})
			r.Steps = append(r.Steps, rl.step)
		}
	}
	if f.DataProtection != scoring.LevelComprehensive {
		r.Steps = append(r.Steps, pentest)
	}
	return r
}

// HTML renders the roadmap; an empty roadmap renders as "".
func (r Roadmap) HTML() string {
	var b strings.Builder
	if len(r.Gaps) > 0 {
		b.WriteString(`<h3>Warum nicht 100/100?</h3><ul>`)
		for _, g := range r.Gaps {
			fmt.Fprintf(&b, `<li>%s – fehlt (≈ +%d Punkte)</li>`, html.EscapeString(g.Item), g.Points)
		}
		b.WriteString(`</ul>`)
	}
	if len(r.Steps) > 0 {
		b.WriteString(`<h3>Nächste Schritte</h3><ol>`)
		for _, s := range r.Steps {
			fmt.Fprintf(&b, `<li><strong>%s</strong>`, html.EscapeString(s.Title))
			if s.ImpactPoints > 0 {
				fmt.Fprintf(&b, ` · Wirkung: +%d`, s.ImpactPoints)
			}
			fmt.Fprintf(&b, ` · Aufwand: %s · Kosten: %s</li>`, html.EscapeString(s.Effort), html.EscapeString(s.Cost))
		}
		b.WriteString(`</ol>`)
	}
	return b.String()
}
