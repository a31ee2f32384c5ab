package ensemble

import (
	"strconv"
	"strings"

	"github.com/jimdaga/ki-report/internal/answers"
)

// Evaluation is one evaluator's verdict. Score is 0..1; Breakdown holds the
// weighted sub-factors that sum to Score.
type Evaluation struct {
	Name      string             `json:"name"`
	Score     float64            `json:"score"`
	Findings  []string           `json:"findings"`
	Risks     []string           `json:"risks"`
	Actions   []string           `json:"actions"`
	Breakdown map[string]float64 `json:"breakdown"`
}

func clamp01(x float64) float64 {
	return max(0, min(1, x))
}

func sum(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

// EvaluateCompliance weighs GDPR awareness, technical measures, DPIA,
// retention policy and hosting region.
func EvaluateCompliance(a answers.Answers) Evaluation {
	gdpr := 0.0
	if a.Bool("datenschutz") || a.Lower("datenschutzbeauftragter") == "ja" {
		gdpr = 1
	}
	tech := 0.0
	switch tm := a.Lower("technische_massnahmen"); {
	case tm == "alle":
		tech = 1
	case tm != "":
		tech = 0.6
	}
	dpia := 0.0
	if a.Lower("folgenabschaetzung") == "ja" {
		dpia = 1
	}
	retention := 0.0
	if a.Lower("loeschregeln") == "ja" {
		retention = 1
	}
	region := a.Lower("hosting_region")
	if region == "" {
		region = "eu"
	}
	hosting := 0.6
	switch {
	case strings.Contains(region, "eu"):
		hosting = 1
	case a.Lower("it_infrastruktur") == "hybrid":
		hosting = 0.8
	}

	e := Evaluation{
		Name: "compliance",
		Breakdown: map[string]float64{
			"gdpr_awareness":     gdpr * 0.25,
			"technical_measures": tech * 0.25,
			"dpia":               dpia * 0.20,
			"retention":          retention * 0.15,
			"hosting":            hosting * 0.15,
		},
	}
	e.Score = clamp01(sum(e.Breakdown))

	if gdpr == 1 {
		e.Findings = append(e.Findings, "DSGVO‑Awareness/DPO vorhanden")
	} else {
		e.Risks = append(e.Risks, "Fehlende DSGVO‑Awareness/DPO")
		e.Actions = append(e.Actions, "[H] Datenschutzverantwortliche/n benennen (30 Tage)")
	}
	if tech > 0 {
		e.Findings = append(e.Findings, "Technische Maßnahmen implementiert")
	} else {
		e.Risks = append(e.Risks, "Keine dokumentierten TOMs")
	}
	if tech < 1 {
		e.Actions = append(e.Actions, "[M] TOMs konsolidieren (Verschlüsselung, Protokollierung, RBAC) (60 Tage)")
	}
	if dpia == 1 {
		e.Findings = append(e.Findings, "Risikoprüfung (DPIA) durchgeführt")
	} else {
		e.Risks = append(e.Risks, "Keine DPIA (ggf. erforderlich)")
		e.Actions = append(e.Actions, "[M] DPIA‑Screening durchführen (30 Tage)")
	}
	if retention == 1 {
		e.Findings = append(e.Findings, "Lösch-/Retention‑Policy vorhanden")
	} else {
		e.Risks = append(e.Risks, "Kein Löschkonzept/Retention‑Policy")
		e.Actions = append(e.Actions, "[H] Retention‑Policy & Löschkonzept festlegen (60 Tage)")
	}
	if hosting >= 0.8 {
		e.Findings = append(e.Findings, "EU‑Hosting/Hybrid mit Schwerpunkt EU")
	} else {
		e.Risks = append(e.Risks, "Unklarer Datenstandort/Transfers")
		e.Actions = append(e.Actions, "[M] EU‑Hosting/DPA‑Nachweise für kritische Tools (60 Tage)")
	}
	return e
}

// EvaluateInnovation weighs vision, culture, use-case variety and
// willingness to experiment.
func EvaluateInnovation(a answers.Answers) Evaluation {
	vision := 0.3
	switch {
	case a.Has("vision_3_jahre"):
		vision = 1
	case a.Has("roadmap_vorhanden"):
		vision = 0.6
	}
	culture := 0.3
	switch ip := a.Lower("innovationsprozess"); {
	case ip == "alle" || ip == "mitarbeitende":
		culture = 1
	case ip != "":
		culture = 0.6
	}
	novelty := 0.2
	switch n := len(a.List("anwendungsfaelle")); {
	case n >= 3:
		novelty = 1
	case n == 2:
		novelty = 0.7
	case n == 1:
		novelty = 0.5
	}
	exp := 0.3
	switch {
	case a.Has("pilot_bereich"):
		exp = 1
	case a.Has("ki_projekte"):
		exp = 0.6
	}

	e := Evaluation{
		Name: "innovation",
		Breakdown: map[string]float64{
			"vision":           vision * 0.35,
			"culture":          culture * 0.25,
			"use_case_novelty": novelty * 0.25,
			"experimentation":  exp * 0.15,
		},
		Actions: []string{
			"[M] Quartalsweiser Use‑Case‑Pitch (Top‑3 auswählen) (30 Tage)",
			"[M] Pilot‑Prozess standardisieren (Hypothesen, Erfolgskriterien) (30–60 Tage)",
		},
	}
	e.Score = clamp01(sum(e.Breakdown))

	if vision >= 0.6 {
		e.Findings = append(e.Findings, "Vision/Roadmap vorhanden")
	} else {
		e.Risks = append(e.Risks, "Vision/Roadmap unklar")
		e.Actions = append(e.Actions, "[H] Zielbild/Portfolio in 1‑seitiger Strategy‑Map festhalten (30 Tage)")
	}
	if culture >= 0.6 {
		e.Findings = append(e.Findings, "Innovationskultur aktiv")
	} else {
		e.Risks = append(e.Risks, "Geringe Partizipation in Innovationsprozessen")
	}
	if novelty >= 0.7 {
		e.Findings = append(e.Findings, "Mehrere Use Cases in Pipeline")
	} else {
		e.Risks = append(e.Risks, "Zu wenig differenzierte Use Cases")
	}
	if exp >= 0.6 {
		e.Findings = append(e.Findings, "Pilot/PoC‑Bereitschaft ersichtlich")
	} else {
		e.Risks = append(e.Risks, "Keine Testkultur/PoC‑Routine")
	}
	return e
}

var automationLevels = map[string]float64{
	"sehr_hoch": 1.0,
	"hoch":      0.8,
	"mittel":    0.6,
	"niedrig":   0.3,
}

// EvaluateEfficiency weighs digitalisation, time budget, automation
// potential and skills.
func EvaluateEfficiency(a answers.Answers) Evaluation {
	dig := digitalisation(a)

	z := 0.3
	switch zb := a.Lower("zeitbudget"); {
	case zb == "ueber_10":
		z = 1
	case zb == "5_10":
		z = 0.7
	case zb != "":
		z = 0.4
	}

	auto, ok := automationLevels[a.Lower("automatisierungsgrad")]
	if !ok {
		auto = 0.6
	}

	skills := 0.3
	switch k := a.Lower("ki_kompetenz"); {
	case k == "hoch" || k == "mittel":
		skills = 1
	case k != "":
		skills = 0.5
	}

	e := Evaluation{
		Name: "efficiency",
		Breakdown: map[string]float64{
			"digital":        dig * 0.25,
			"zeitbudget":     z * 0.25,
			"auto_potential": auto * 0.30,
			"skills":         skills * 0.20,
		},
		Actions: []string{
			"[H] 2–3 Quick‑Wins mit klaren SOPs umsetzen (30–60 Tage)",
			"[M] KPI‑Dashboard (Einsparungen/Qualität) einführen (30 Tage)",
			"[M] Automations‑Backlog mit ROI‑Schätzung pflegen (laufend)",
		},
	}
	e.Score = clamp01(sum(e.Breakdown))

	if dig >= 0.6 {
		e.Findings = append(e.Findings, "Guter Digitalisierungsgrad")
	} else {
		e.Risks = append(e.Risks, "Digitalisierungsgrad begrenzt → Vorarbeiten nötig")
	}
	if z >= 0.7 {
		e.Findings = append(e.Findings, "Zeitbudget vorhanden")
	} else {
		e.Risks = append(e.Risks, "Geringes Zeitbudget für Umsetzung")
	}
	if auto >= 0.6 {
		e.Findings = append(e.Findings, "Hohe Automationshebel erkennbar")
	}
	if skills >= 0.5 {
		e.Findings = append(e.Findings, "KI‑Kompetenz ausreichend")
	}
	return e
}

// digitalisation reads prozesse_papierlos ("61-80" -> midpoint share) or a
// 0..10 digitalisierungsgrad. Unparsable values count as 0.5.
func digitalisation(a answers.Answers) float64 {
	if p := a.Str("prozesse_papierlos"); strings.Contains(p, "-") {
		lo, hi, _ := strings.Cut(p, "-")
		l, err1 := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(lo), "%")), 64)
		h, err2 := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(hi), "%")), 64)
		if err1 != nil || err2 != nil {
			return 0.5
		}
		return (l + h) / 200
	}
	raw := a.Str("digitalisierungsgrad")
	if raw == "" {
		return 0
	}
	g, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.5
	}
	return min(1, g/10)
}
