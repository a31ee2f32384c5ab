// Package compose runs the section generator over the whole catalog and
// post-processes the fragments: quick-win columns and hours, the timeline
// tasks in the next-actions list, one-liners and quality gates.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/metrics"
	"github.com/jimdaga/ki-report/internal/scoring"
	"github.com/jimdaga/ki-report/internal/sections"
)

const (
	quickWinsSection   = "quick_wins"
	nextActionsSection = "next_actions"
)

// Hour sources recorded in QW_HOURS_SOURCE.
const (
	SourceScan     = "scan"
	SourceMetrics  = "metrics"
	SourceDefaults = "defaults"
)

var sourceLabels = map[string]string{
	SourceScan:     "aus den Quick Wins",
	SourceMetrics:  "Modellschätzung",
	SourceDefaults: "Standardannahme",
}

// Generator is the part of sections.Generator the composer needs.
type Generator interface {
	Generate(ctx context.Context, sec *sections.Section, a answers.Answers, s scoring.Scores, m metrics.Metrics) (string, bool)
	OneLiner(ctx context.Context, sec *sections.Section, html string) string
}

// HourDefaults are the configured fallbacks for quick-win hours.
type HourDefaults struct {
	QW1      float64
	QW2      float64
	Fallback float64
}

// Options toggles optional post-processing.
type Options struct {
	OneLiners    bool
	QualityGates bool
	Hours        HourDefaults
}

// Sections is the composed output. Placeholders lists the fragment keys that
// carry a placeholder instead of generated content.
type Sections struct {
	Fragments     map[string]string `json:"-"`
	Placeholders  []string          `json:"-"`
	Generated     []string          `json:"generated"`
	Failed        []string          `json:"failed"`
	QuickWinHours float64           `json:"quick_win_hours"`
	HoursSource   string            `json:"hours_source"`
	Issues        []string          `json:"quality_issues,omitempty"`
}

// Composer sequences section generation in catalog order.
type Composer struct {
	gen    Generator
	reg    *sections.Registry
	opts   Options
	logger *slog.Logger
}

// NewComposer creates a Composer. A nil generator disables generation and
// every section gets its placeholder.
func NewComposer(gen Generator, reg *sections.Registry, opts Options, logger *slog.Logger) *Composer {
	return &Composer{gen: gen, reg: reg, opts: opts, logger: logger}
}

// Placeholder is the fragment used for a section whose generation failed.
func Placeholder(sec *sections.Section) string {
	return fmt.Sprintf("[%s – generation disabled]", sec.Title)
}

// Compose generates every section sequentially. A failing section never
// aborts the run; it degrades to its placeholder. tasks are appended to the
// next-actions list.
func (c *Composer) Compose(ctx context.Context, a answers.Answers, s scoring.Scores, m metrics.Metrics, tasks []string) Sections {
	out := Sections{Fragments: make(map[string]string, c.reg.Count()*2+4)}

	for _, sec := range c.reg.List() {
		html, ok := "", false
		if c.gen != nil {
			html, ok = c.gen.Generate(ctx, sec, a, s, m)
		}
		if !ok {
			c.logger.Warn("section degraded to placeholder", "section", sec.Name)
			out.Failed = append(out.Failed, sec.Name)
			ph := Placeholder(sec)
			switch sec.Name {
			case nextActionsSection:
				ph = AppendToOrderedList(ph, tasks)
			case quickWinsSection:
				out.Fragments[sec.Key+"_LEFT"] = ph
				out.Fragments[sec.Key+"_RIGHT"] = ""
			}
			out.Fragments[sec.Key] = ph
			out.Placeholders = append(out.Placeholders, sec.Key)
			continue
		}
		out.Generated = append(out.Generated, sec.Name)

		switch sec.Name {
		case nextActionsSection:
			html = AppendToOrderedList(html, tasks)
		case quickWinsSection:
			left, right := SplitListItems(html)
			out.Fragments[sec.Key+"_LEFT"] = left
			out.Fragments[sec.Key+"_RIGHT"] = right
			out.QuickWinHours = ScanHours(html)
		}
		out.Fragments[sec.Key] = html

		if c.opts.OneLiners && sec.OneLiner {
			out.Fragments[sec.OneLinerKey()] = c.gen.OneLiner(ctx, sec, html)
		}
		if c.opts.QualityGates {
			for _, issue := range ValidateSection(html) {
				out.Issues = append(out.Issues, sec.Key+": "+issue)
			}
		}
	}

	hours, source := ResolveQuickWinHours(out.QuickWinHours, m, c.opts.Hours)
	out.QuickWinHours = hours
	out.HoursSource = source
	out.Fragments["QW_HOURS_SOURCE"] = sourceLabels[source]
	out.Fragments["qw_monat_stunden_gesamt"] = strconv.FormatFloat(hours, 'f', -1, 64)
	out.Fragments["qw_monat_eur"] = strconv.Itoa(int(math.Round(hours * float64(m.Stundensatz))))

	if c.opts.QualityGates {
		out.Issues = append(out.Issues, ValidateReport(out.Fragments, s.Overall)...)
		if len(out.Issues) > 0 {
			c.logger.Warn("quality gate issues", "count", len(out.Issues))
		}
	}
	return out
}

// ResolveQuickWinHours picks the displayed quick-win hours: the scan of the
// generated list wins when positive, then the derived metrics total, then
// the configured defaults (max of qw1+qw2 and the fallback).
func ResolveQuickWinHours(scanned float64, m metrics.Metrics, d HourDefaults) (float64, string) {
	if scanned > 0 {
		return math.Round(scanned*10) / 10, SourceScan
	}
	if m.MonthlyHours > 0 {
		return m.MonthlyHours, SourceMetrics
	}
	return math.Max(d.QW1+d.QW2, d.Fallback), SourceDefaults
}
