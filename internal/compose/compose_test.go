package compose

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jimdaga/ki-report/internal/answers"
	"github.com/jimdaga/ki-report/internal/llm"
	"github.com/jimdaga/ki-report/internal/metrics"
	"github.com/jimdaga/ki-report/internal/scoring"
	"github.com/jimdaga/ki-report/internal/sections"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSplitListItemsFive(t *testing.T) {
	in := "<ul><li>a</li><li>b</li><li>c</li><li>d</li><li>e</li></ul>"
	left, right := SplitListItems(in)

	l, r := strings.Count(left, "<li>"), strings.Count(right, "<li>")
	if l+r != 5 {
		t.Fatalf("expected 5 items in total, got %d+%d", l, r)
	}
	if l != 3 || r != 2 {
		t.Errorf("expected 3+2 split, got %d+%d", l, r)
	}
	for _, item := range []string{"a", "b", "c", "d", "e"} {
		n := strings.Count(left+right, "<li>"+item+"</li>")
		if n != 1 {
			t.Errorf("item %s appears %d times", item, n)
		}
	}
}

func TestSplitListItemsEdgeCases(t *testing.T) {
	left, right := SplitListItems("<p>kein Listenpunkt</p>")
	if left != "<p>kein Listenpunkt</p>" || right != "" {
		t.Errorf("expected fragment unchanged, got %q / %q", left, right)
	}

	left, right = SplitListItems("<ul><li>a<ul><li>nested</li></ul></li><li>b</li></ul>")
	if strings.Count(left, "nested") != 1 || strings.Contains(right, "nested") {
		t.Errorf("nested item must stay with its parent: %q / %q", left, right)
	}
	if !strings.Contains(right, "<li>b</li>") {
		t.Errorf("expected second item on the right, got %q", right)
	}
}

func TestScanHours(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"<ul><li>Vorlagen: 4 h/Monat</li><li>Ersparnis: 6 Stunden pro Monat</li></ul>", 10},
		{"<li>Protokolle 2–4 h/Monat</li>", 3},
		{"<li>Protokolle 2 bis 4 Stunden</li><li>1,5 h</li>", 4.5},
		{"<li>Unrealistisch: 500 h/Monat</li><li>3 h</li>", 3},
		{"<p>keine Angaben</p>", 0},
		{"<li>0 h</li>", 0},
	}
	for _, tc := range cases {
		if got := ScanHours(tc.in); got != tc.want {
			t.Errorf("ScanHours(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestResolveQuickWinHours(t *testing.T) {
	m := metrics.Metrics{MonthlyHours: 14}
	d := HourDefaults{QW1: 10, QW2: 8, Fallback: 18}

	if h, src := ResolveQuickWinHours(12, m, d); h != 12 || src != SourceScan {
		t.Errorf("scan should win, got %v %s", h, src)
	}
	if h, src := ResolveQuickWinHours(0, m, d); h != 14 || src != SourceMetrics {
		t.Errorf("metrics should be next, got %v %s", h, src)
	}
	if h, src := ResolveQuickWinHours(0, metrics.Metrics{}, HourDefaults{QW1: 5, QW2: 4, Fallback: 18}); h != 18 || src != SourceDefaults {
		t.Errorf("defaults should be last, got %v %s", h, src)
	}
}

func TestAppendToOrderedList(t *testing.T) {
	tasks := []string{"<li>T1</li>", "<li>T2</li>"}

	got := AppendToOrderedList("<p>Intro</p><ol><li>A</li></ol>", tasks)
	if !strings.Contains(got, "<ol><li>A</li><li>T1</li><li>T2</li></ol>") {
		t.Errorf("tasks not appended to existing list: %q", got)
	}

	got = AppendToOrderedList("<p>Nur Text</p>", tasks)
	if !strings.HasSuffix(got, "<ol><li>T1</li><li>T2</li></ol>") || !strings.HasPrefix(got, "<p>Nur Text</p>") {
		t.Errorf("expected synthesized list, got %q", got)
	}

	if got := AppendToOrderedList("<ol></ol>", nil); got != "<ol></ol>" {
		t.Errorf("no tasks must leave fragment untouched, got %q", got)
	}
}

func TestValidateSection(t *testing.T) {
	good := "<p>" + strings.Repeat("Inhalt ", 30) + "</p>"
	if issues := ValidateSection(good); len(issues) != 0 {
		t.Errorf("expected no issues, got %v", issues)
	}
	if issues := ValidateSection("<div>ERROR: Failed to generate content</div>"); len(issues) < 2 {
		t.Errorf("expected short + error marker issues, got %v", issues)
	}
	if issues := ValidateSection(strings.Repeat("Nur Text ohne Tags ", 10)); len(issues) != 1 {
		t.Errorf("expected missing tags issue, got %v", issues)
	}
}

func TestValidateReport(t *testing.T) {
	frag := map[string]string{"EXEC_SUMMARY_HTML": "<p>x</p>", "QUICK_WINS_HTML": "[Quick Wins – generation disabled]"}
	issues := ValidateReport(frag, 0)
	if len(issues) != 3 {
		t.Errorf("expected 3 issues (quick wins, recommendations, zero score), got %v", issues)
	}
}

func testRegistry(t *testing.T) *sections.Registry {
	t.Helper()
	cat, err := sections.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	reg, err := sections.NewRegistryFromCatalog(cat)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func TestComposeWithStub(t *testing.T) {
	reg := testRegistry(t)
	cat, _ := sections.DefaultCatalog()
	gen := sections.NewGenerator(llm.StubClient{}, cat, discardLogger())
	c := NewComposer(gen, reg, Options{OneLiners: true, QualityGates: true, Hours: HourDefaults{10, 8, 18}}, discardLogger())

	a := answers.Normalize(answers.Answers{"branche": "beratung"})
	res := scoring.Score(a)
	out := c.Compose(context.Background(), a, res.Scores, metrics.Derive(a), []string{"<li>Task</li>"})

	if len(out.Generated) != reg.Count() || len(out.Failed) != 0 {
		t.Fatalf("expected all sections generated, got %d ok / %v failed", len(out.Generated), out.Failed)
	}
	if out.HoursSource != SourceScan || out.QuickWinHours != 12 {
		t.Errorf("expected 12 scanned hours, got %v (%s)", out.QuickWinHours, out.HoursSource)
	}
	if strings.Count(out.Fragments["QUICK_WINS_HTML_LEFT"], "<li>") != 2 {
		t.Errorf("unexpected left column %q", out.Fragments["QUICK_WINS_HTML_LEFT"])
	}
	if !strings.Contains(out.Fragments["NEXT_ACTIONS_HTML"], "<li>Task</li></ol>") {
		t.Errorf("timeline task missing from next actions: %q", out.Fragments["NEXT_ACTIONS_HTML"])
	}
	if out.Fragments["EXEC_SUMMARY_HTML_ONE_LINER"] == "" {
		t.Error("expected one-liner for executive summary")
	}
	if _, ok := out.Fragments["GAMECHANGER_HTML_ONE_LINER"]; ok {
		t.Error("gamechanger has no one-liner")
	}
}

func TestComposeWithoutGenerator(t *testing.T) {
	reg := testRegistry(t)
	c := NewComposer(nil, reg, Options{QualityGates: true}, discardLogger())

	m := metrics.Metrics{MonthlyHours: 14, Stundensatz: 60}
	out := c.Compose(context.Background(), answers.Answers{}, scoring.Scores{Overall: 40}, m, []string{"<li>Task</li>"})

	if len(out.Failed) != reg.Count() {
		t.Fatalf("expected every section to fail, got %v", out.Failed)
	}
	if got := out.Fragments["EXEC_SUMMARY_HTML"]; got != "[Executive Summary – generation disabled]" {
		t.Errorf("unexpected placeholder %q", got)
	}
	if len(out.Placeholders) != reg.Count() || out.Placeholders[0] != "EXEC_SUMMARY_HTML" {
		t.Errorf("expected every section key marked as placeholder, got %v", out.Placeholders)
	}
	if !strings.Contains(out.Fragments["NEXT_ACTIONS_HTML"], "<ol><li>Task</li></ol>") {
		t.Errorf("tasks must survive a failed next-actions section: %q", out.Fragments["NEXT_ACTIONS_HTML"])
	}
	if out.HoursSource != SourceMetrics || out.Fragments["qw_monat_eur"] != "840" {
		t.Errorf("expected metrics fallback, got %s / %s", out.HoursSource, out.Fragments["qw_monat_eur"])
	}
	if len(out.Issues) == 0 {
		t.Error("expected quality issues to be recorded")
	}
}
