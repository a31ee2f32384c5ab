package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/compose"
	"github.com/jimdaga/ki-report/internal/htmlsafe"
	"github.com/jimdaga/ki-report/internal/industry"
	"github.com/jimdaga/ki-report/internal/metrics"
	"github.com/jimdaga/ki-report/internal/render"
	"github.com/jimdaga/ki-report/internal/scoring"
	"github.com/jimdaga/ki-report/internal/scoring/ensemble"
	"github.com/jimdaga/ki-report/internal/security"
	"github.com/jimdaga/ki-report/internal/timeline"
)

// Meta is the summary persisted next to the rendered HTML.
type Meta struct {
	RunID        string              `json:"run_id"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Scores       scoring.Scores      `json:"scores"`
	ScoreDetails map[string][]string `json:"score_details"`
	RawPoints    map[string]int      `json:"raw_points"`
	Metrics      metrics.Metrics     `json:"metrics"`
	Sections     compose.Sections    `json:"sections"`
	Security     security.Roadmap    `json:"security_roadmap"`
	Ensemble     *ensemble.Result    `json:"ensemble,omitempty"`
}

// Output is one analysis run.
type Output struct {
	HTML    string
	Meta    Meta
	Answers answers.Answers
	// TimelineCSV is the AI Act milestone table for the admin mail.
	TimelineCSV []byte
}

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// Template is the report HTML with {{placeholders}}.
	Template string
	// AIActText is scanned for extra timeline dates. May be empty.
	AIActText string
	Ensemble  bool
	// HourlyRate replaces the built-in default rate when positive.
	HourlyRate int
	Now        func() time.Time
}

// Analyzer runs the pure part of the pipeline: normalize, score, derive,
// compose, sanitize and render. It does not touch the database.
type Analyzer struct {
	composer *compose.Composer
	industry *industry.Catalog
	opts     AnalyzerOptions
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer. An empty template selects the embedded one.
func NewAnalyzer(composer *compose.Composer, opts AnalyzerOptions, logger *slog.Logger) (*Analyzer, error) {
	if opts.Template == "" {
		tmpl, err := render.Template("")
		if err != nil {
			return nil, fmt.Errorf("failed to load report template: %w", err)
		}
		opts.Template = tmpl
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ind, err := industry.Default()
	if err != nil {
		return nil, err
	}
	return &Analyzer{composer: composer, industry: ind, opts: opts, logger: logger}, nil
}

// Analyze produces the report HTML for raw answers. Section failures degrade
// to placeholders, so the only error is a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, runID string, raw answers.Answers) (*Output, error) {
	now := a.opts.Now()
	logger := a.logger.With("run_id", runID)

	ans := answers.Normalize(raw)
	features := scoring.MapFeatures(ans)
	scored := scoring.ScoreFeatures(features)
	m := metrics.DeriveWithRate(ans, a.opts.HourlyRate)
	roadmap := security.BuildRoadmap(features)

	var ens *ensemble.Result
	if a.opts.Ensemble {
		r := ensemble.Evaluate(ans)
		ens = &r
	}

	tl := timeline.Build(a.opts.AIActText, now)
	secs := a.composer.Compose(ctx, ans, scored.Scores, m, tl.Tasks)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	fragments := htmlsafe.SanitizeAll(secs.Fragments)
	rctx := render.BuildContext(render.Input{
		Answers:      ans,
		Scores:       scored.Scores,
		Metrics:      m,
		Fragments:    fragments,
		Placeholders: secs.Placeholders,
		Timeline:     tl,
		Ensemble:     ens,
		Industry:     a.industry,
		Security:     roadmap,
		Now:          now,
	})
	html := render.Render(a.opts.Template, rctx, "")

	logger.Info("analysis rendered",
		"score_overall", scored.Scores.Overall,
		"sections_generated", len(secs.Generated),
		"sections_failed", len(secs.Failed),
		"quick_win_hours", secs.QuickWinHours,
		"hours_source", secs.HoursSource,
		"html_bytes", len(html),
	)

	return &Output{
		HTML:        html,
		Answers:     ans,
		TimelineCSV: tl.CSV,
		Meta: Meta{
			RunID:        runID,
			GeneratedAt:  now.UTC(),
			Scores:       scored.Scores,
			ScoreDetails: scored.Details,
			RawPoints:    scored.Raw,
			Metrics:      m,
			Sections:     secs,
			Security:     roadmap,
			Ensemble:     ens,
		},
	}, nil
}
