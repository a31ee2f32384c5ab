// Package sections drafts the narrative report sections. The catalog lists
// every section with its prompt; the Generator turns a catalog entry and a
// briefing into one HTML fragment with a single LLM call.
package sections

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/htmlsafe"
	"github.com/jimdaga/ki-report/internal/llm"
	"github.com/jimdaga/ki-report/internal/metrics"
	"github.com/jimdaga/ki-report/internal/scoring"
)

const (
	oneLinerInputRunes = 1800
	oneLinerMaxTokens  = 120
)

// profileKeys are the briefing answers quoted in every prompt.
var profileKeys = []struct{ key, label string }{
	{"branche_label", "Branche"},
	{"groesse_label", "Unternehmensgröße"},
	{"bundesland_label", "Bundesland"},
	{"umsatz_label", "Jahresumsatz"},
	{"hauptleistung", "Hauptleistung"},
	{"ki_usecases", "Gewünschte KI-Use-Cases"},
	{"ki_ziele", "Ziele"},
	{"ki_hemmnisse", "Hemmnisse"},
	{"zeitbudget", "Zeitbudget"},
	{"investitionsbudget", "Investitionsbudget"},
}

// Generator drafts sections through an llm.Client.
type Generator struct {
	client llm.Client
	cat    *Catalog
	md     *converter.Converter
	logger *slog.Logger
}

// NewGenerator creates a Generator for the given catalog.
func NewGenerator(client llm.Client, cat *Catalog, logger *slog.Logger) *Generator {
	return &Generator{
		client: client,
		cat:    cat,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: logger,
	}
}

// Generate drafts one section from the briefing, its scores and the metrics
// the report shows. It fails soft: any client error is logged and
// reported as ("", false). Output that does not look like HTML gets one
// repair call; if that fails too the cleaned original is kept.
func (g *Generator) Generate(ctx context.Context, sec *Section, a answers.Answers, s scoring.Scores, m metrics.Metrics) (string, bool) {
	raw, err := g.client.Complete(ctx, llm.Request{
		System:      g.cat.SystemRole,
		Prompt:      g.Prompt(sec, a, s, m),
		Temperature: sec.Temperature,
		MaxTokens:   sec.MaxTokens,
		Section:     sec.Name,
		Purpose:     llm.PurposeSection,
	})
	if err != nil {
		g.logger.Warn("section generation failed", "section", sec.Name, "error", err)
		return "", false
	}

	out := htmlsafe.NormalizeModelHTML(raw)
	if out == "" {
		g.logger.Warn("section generation returned no content", "section", sec.Name)
		return "", false
	}
	if htmlsafe.LooksLikeHTML(out) {
		return out, true
	}

	g.logger.Info("section output is not HTML, requesting repair", "section", sec.Name)
	repaired, err := g.client.Complete(ctx, llm.Request{
		System:      g.cat.SystemRole,
		Prompt:      g.cat.RepairPrompt + "\n\n" + out,
		Temperature: llm.Temp(0),
		MaxTokens:   sec.MaxTokens,
		Section:     sec.Name,
		Purpose:     llm.PurposeRepair,
	})
	if err != nil {
		g.logger.Warn("section repair failed, keeping original", "section", sec.Name, "error", err)
		return out, true
	}
	if fixed := htmlsafe.NormalizeModelHTML(repaired); htmlsafe.LooksLikeHTML(fixed) {
		return fixed, true
	}
	return out, true
}

// OneLiner condenses a generated section into a single sentence. It returns
// "" on any failure.
func (g *Generator) OneLiner(ctx context.Context, sec *Section, html string) string {
	text := g.PlainText(html)
	if text == "" {
		return ""
	}
	out, err := g.client.Complete(ctx, llm.Request{
		System:      g.cat.SystemRole,
		Prompt:      fmt.Sprintf("%s\n\nAbschnitt: %s\n\n%s", g.cat.OneLinerPrompt, sec.Title, text),
		Temperature: llm.Temp(0.2),
		MaxTokens:   oneLinerMaxTokens,
		Section:     sec.Name,
		Purpose:     llm.PurposeOneLine,
	})
	if err != nil {
		g.logger.Warn("one-liner generation failed", "section", sec.Name, "error", err)
		return ""
	}
	line := strings.TrimSpace(htmlsafe.StripCodeFences(out))
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line
}

// PlainText converts an HTML fragment to markdown-flavoured text, truncated
// to the one-liner input budget.
func (g *Generator) PlainText(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text, err := g.md.ConvertString(html)
	if err != nil {
		g.logger.Debug("html to text conversion failed", "error", err)
		text = html
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > oneLinerInputRunes {
		text = string(r[:oneLinerInputRunes])
	}
	return text
}

// Prompt assembles the user prompt for a section: role, task, scores, key
// figures, company profile and the format rules.
func (g *Generator) Prompt(sec *Section, a answers.Answers, s scoring.Scores, m metrics.Metrics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rolle: %s\nAbschnitt: %s\n\nAufgabe: %s\n\n", sec.Role, sec.Title, strings.TrimSpace(sec.Instruction))
	fmt.Fprintf(&b, "KI-Reifegrad (0–100): Governance %d, Sicherheit %d, Nutzen %d, Befähigung %d, Gesamt %d\n",
		s.Governance, s.Security, s.Value, s.Enablement, s.Overall)
	fmt.Fprintf(&b, "Kennzahlen: Stundensatz %d €, Quick-Win-Ersparnis %.1f h/Monat (%d €/Monat), Capex realistisch %d €, Opex realistisch %d €\n\n",
		m.Stundensatz, m.MonthlyHours, m.MonthlyEUR, m.CapexRealistisch, m.OpexRealistisch)

	b.WriteString("Unternehmensprofil:\n")
	for _, pk := range profileKeys {
		if v := a.Str(pk.key); v != "" && v != answers.Placeholder {
			fmt.Fprintf(&b, "- %s: %s\n", pk.label, v)
		}
	}
	b.WriteString("\nFormat: ")
	b.WriteString(strings.TrimSpace(g.cat.FormatRules))
	return b.String()
}
