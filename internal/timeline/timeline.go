// Package timeline builds the EU AI Act milestone block of the report: an
// HTML table, a spreadsheet-friendly CSV and two dated follow-up tasks.
package timeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "02.01.2006"

// Milestone is one row of the timeline table.
type Milestone struct {
	Date       time.Time
	Section    string
	Rule       string
	Audience   string
	Checkpoint string
}

// Timeline is the rendered block.
type Timeline struct {
	Milestones []Milestone
	TableHTML  string
	CSV        []byte
	Tasks      []string
	PhaseLabel string
}

var defaults = []Milestone{
	{day(2025, 2, 2), "Kap. I–II / Verbote", "Verbote unzulässiger Systeme; Allg. Bestimmungen wirksam", "alle", "Blacklist & Transparenzhinweise in Richtlinie"},
	{day(2025, 8, 2), "GPAI & Governance", "GPAI‑Pflichten, Governance & Durchsetzung greifen", "Anbieter/Nutzer GPAI", "Modellklasse klären; Hinweise/Policy ergänzen"},
	{day(2026, 8, 2), "Hochrisiko‑Kern", "Pflichten für Hochrisiko‑KI (Doku, Logging, POMM) gelten", "Anbieter/Betreiber HR", "Risikomanagement & Nachweise aufsetzen"},
	{day(2027, 8, 2), "Erweiterte Kategorien", "Erweiterte/Anhang‑Regeln vollständig anzuwenden", "betroffene Kategorien", "Konformitätsbewertung/Registry (falls zutreffend)"},
}

var headers = []string{"Datum", "Regel/Abschnitt", "Was gilt", "Zielgruppe", "Praxis‑Checkpoint"}

var months = map[string]time.Month{
	"januar":    time.January,
	"jan":       time.January,
	"februar":   time.February,
	"feb":       time.February,
	"maerz":     time.March,
	"märz":      time.March,
	"mrz":       time.March,
	"april":     time.April,
	"apr":       time.April,
	"mai":       time.May,
	"juni":      time.June,
	"jun":       time.June,
	"juli":      time.July,
	"jul":       time.July,
	"august":    time.August,
	"aug":       time.August,
	"september": time.September,
	"sep":       time.September,
	"sept":      time.September,
	"oktober":   time.October,
	"okt":       time.October,
	"november":  time.November,
	"nov":       time.November,
	"dezember":  time.December,
	"dez":       time.December,
}

var reGermanDate = regexp.MustCompile(`(\d{1,2})\.\s*([A-Za-zäöüÄÖÜß]+)\s*(20\d{2})`)

var bom = []byte{0xEF, 0xBB, 0xBF}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDates extracts German long-form dates ("2. August 2026") from text,
// deduplicated and sorted. Impossible dates such as "31. Februar" are skipped.
func ParseDates(text string) []time.Time {
	seen := map[time.Time]struct{}{}
	var out []time.Time
	for _, m := range reGermanDate.FindAllStringSubmatch(text, -1) {
		d, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		month, ok := months[strings.ToLower(m[2])]
		if !ok {
			continue
		}
		y, _ := strconv.Atoi(m[3])
		t := day(y, month, d)
		if t.Day() != d || t.Month() != month {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Build merges dates found in text with the default milestones and renders
// the table, CSV and the two follow-up tasks dated now+14 and now+21 days.
func Build(text string, now time.Time) Timeline {
	rows := append([]Milestone(nil), defaults...)
	known := make(map[time.Time]struct{}, len(rows))
	for _, r := range rows {
		known[r.Date] = struct{}{}
	}
	for _, d := range ParseDates(text) {
		if _, ok := known[d]; ok {
			continue
		}
		known[d] = struct{}{}
		rows = append(rows, Milestone{d, "Meilenstein", "Stichtag laut AI‑Act‑Info", "—", "—"})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	return Timeline{
		Milestones: rows,
		TableHTML:  tableHTML(rows),
		CSV:        csvBytes(rows),
		Tasks:      Tasks(now),
		PhaseLabel: "2025–2027",
	}
}

// Tasks returns the two 30-day follow-up items as <li> elements.
func Tasks(now time.Time) []string {
	t1 := now.AddDate(0, 0, 14).Format(dateLayout)
	t2 := now.AddDate(0, 0, 21).Format(dateLayout)
	return []string{
		fmt.Sprintf("<li>👤 Compliance · ⏱ ½ Tag · 🎯 hoch · 📆 %s: Verbotene Praktiken prüfen & Transparenzhinweise in die KI‑Policy übernehmen (AI‑Act Kap. I–II).</li>", t1),
		fmt.Sprintf("<li>👤 IT/DSB · ⏱ 1 Tag · 🎯 hoch · 📆 %s: GPAI‑Nutzung/Modellklassen klären; Governance‑Owner & Nachweise festlegen.</li>", t2),
	}
}

func tableHTML(rows []Milestone) string {
	var b strings.Builder
	b.WriteString(`<table class="table"><thead><tr>`)
	for _, h := range headers {
		b.WriteString("<th>" + html.EscapeString(h) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, r := range rows {
		b.WriteString("<tr>")
		for _, cell := range r.cells() {
			b.WriteString("<td>" + html.EscapeString(cell) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func csvBytes(rows []Milestone) []byte {
	var buf bytes.Buffer
	buf.Write(bom)
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	_ = w.Write(headers)
	for _, r := range rows {
		_ = w.Write(r.cells())
	}
	w.Flush()
	return buf.Bytes()
}

func (m Milestone) cells() []string {
	return []string{m.Date.Format(dateLayout), m.Section, m.Rule, m.Audience, m.Checkpoint}
}
