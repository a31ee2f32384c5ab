// Package ensemble is the alternate scoring path: three evaluators
// (compliance, innovation, efficiency) combined with branch weights. It feeds
// extra report blocks and never replaces the canonical scores.
package ensemble

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/jimdaga/ki-report/internal/answers"
)

// Weights is the (compliance, innovation, efficiency) triple.
type Weights struct {
	Compliance float64 `json:"compliance"`
	Innovation float64 `json:"innovation"`
	Efficiency float64 `json:"efficiency"`
}

var defaultWeights = Weights{0.40, 0.25, 0.35}

// branchWeights is ordered so substring matching is deterministic.
var branchWeights = []struct {
	key string
	w   Weights
}{
	{"finanzen", Weights{0.55, 0.20, 0.25}},
	{"gesundheit", Weights{0.55, 0.20, 0.25}},
	{"verwaltung", Weights{0.55, 0.20, 0.25}},
	{"it_software", Weights{0.35, 0.35, 0.30}},
	{"industrie", Weights{0.40, 0.25, 0.35}},
	{"beratung", Weights{0.35, 0.30, 0.35}},
}

const (
	maxActions     = 10
	fallbackAction = "[M] Zwei Quick‑Wins identifizieren und bis Tag 60 umsetzen."
)

// Result is the combined ensemble verdict.
type Result struct {
	Compliance Evaluation `json:"compliance"`
	Innovation Evaluation `json:"innovation"`
	Efficiency Evaluation `json:"efficiency"`
	Weights    Weights    `json:"weights"`
	Overall    int        `json:"overall"`
	Conflicts  []string   `json:"conflicts"`
	Actions    []string   `json:"actions"`
}

// WeightsFor returns the weight triple for a branch code.
func WeightsFor(branche string) Weights {
	b := strings.ToLower(strings.TrimSpace(branche))
	if b == "" {
		return defaultWeights
	}
	for _, bw := range branchWeights {
		if strings.Contains(b, bw.key) {
			return bw.w
		}
	}
	return defaultWeights
}

// Evaluate runs the three evaluators and combines them.
func Evaluate(a answers.Answers) Result {
	comp := EvaluateCompliance(a)
	inno := EvaluateInnovation(a)
	effi := EvaluateEfficiency(a)
	w := WeightsFor(a.Str("branche"))

	r := Result{
		Compliance: comp,
		Innovation: inno,
		Efficiency: effi,
		Weights:    w,
		Overall:    int(math.Round((comp.Score*w.Compliance + inno.Score*w.Innovation + effi.Score*w.Efficiency) * 100)),
		Conflicts:  DetectConflicts(comp.Score, inno.Score, effi.Score),
	}

	actions := PrioritizeActions(comp, inno, effi)
	if len(actions) == 0 {
		actions = []string{fallbackAction}
	}
	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	r.Actions = actions
	return r
}

// DetectConflicts flags tension patterns between the three scores.
func DetectConflicts(comp, inno, effi float64) []string {
	var out []string
	if inno >= 0.7 && comp < 0.6 {
		out = append(out, "Hohe Innovationsambition bei schwacher Compliance – priorisiere DPA/Retention.")
	}
	if effi >= 0.7 && comp < 0.6 {
		out = append(out, "Hohe Effizienzhebel, aber Compliance-Basis unsicher – TOMs/DPIA zuerst.")
	}
	if comp >= 0.8 && effi < 0.5 {
		out = append(out, "Gute Compliance, aber geringe Umsetzungskraft – Quick‑Wins & SOPs forcieren.")
	}
	return out
}

// PrioritizeActions buckets actions by their [H]/[M]/[L] tag, dedups each
// bucket preserving order and concatenates high, medium, low. Untagged
// actions count as medium.
func PrioritizeActions(evals ...Evaluation) []string {
	var high, medium, low []string
	for _, e := range evals {
		for _, act := range e.Actions {
			switch priorityTag(act) {
			case 'H':
				high = append(high, act)
			case 'L':
				low = append(low, act)
			default:
				medium = append(medium, act)
			}
		}
	}
	out := dedup(high)
	out = append(out, dedup(medium)...)
	return append(out, dedup(low)...)
}

func priorityTag(act string) byte {
	s := strings.TrimSpace(act)
	if !strings.HasPrefix(s, "[") || len(s) < 2 {
		return 'M'
	}
	return strings.ToUpper(s[1:2])[0]
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SummaryHTML renders the score table.
func (r Result) SummaryHTML() string {
	var b strings.Builder
	b.WriteString(`<table class="table"><thead><tr><th>Dimension</th><th>Score</th><th>Gewicht</th></tr></thead><tbody>`)
	row := func(name string, score, weight float64) {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d/100</td><td>%d%%</td></tr>", name, int(math.Round(score*100)), int(math.Round(weight*100)))
	}
	row("Compliance", r.Compliance.Score, r.Weights.Compliance)
	row("Innovation", r.Innovation.Score, r.Weights.Innovation)
	row("Effizienz", r.Efficiency.Score, r.Weights.Efficiency)
	fmt.Fprintf(&b, "<tr><th>Gesamt (gewichtet)</th><th>%d/100</th><th>—</th></tr></tbody></table>", r.Overall)
	return b.String()
}

// ActionsHTML renders the prioritized actions as a list.
func (r Result) ActionsHTML() string {
	return listHTML(r.Actions)
}

// ConflictsHTML renders the detected conflicts, or "" when there are none.
func (r Result) ConflictsHTML() string {
	if len(r.Conflicts) == 0 {
		return ""
	}
	return listHTML(r.Conflicts)
}

func listHTML(items []string) string {
	var b strings.Builder
	b.WriteString("<ul>")
	for _, it := range items {
		b.WriteString("<li>" + html.EscapeString(it) + "</li>")
	}
	b.WriteString("</ul>")
	return b.String()
}
