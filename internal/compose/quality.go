package compose

import (
	"fmt"
	"strings"
)

const minSectionChars = 100

var errorMarkers = []string{
	"error:", "fehler:", "warnung:", "warning:",
	"[error]", "[fehler]", "failed to generate",
	"konnte nicht erstellt werden", "generation disabled",
}

var placeholderMarkers = []string{
	"[placeholder", "[todo", "[insert", "...", "lorem ipsum",
	"beispieltext", "dummy text",
}

// RequiredSections must be present and non-empty in every report.
var RequiredSections = []string{"EXEC_SUMMARY_HTML", "QUICK_WINS_HTML", "RECOMMENDATIONS_HTML"}

// ValidateSection checks a generated fragment and returns its issues.
func ValidateSection(html string) []string {
	var issues []string
	trimmed := strings.TrimSpace(html)
	if len(trimmed) < minSectionChars {
		issues = append(issues, fmt.Sprintf("content too short: %d chars", len(trimmed)))
	}
	lower := strings.ToLower(html)
	for _, m := range errorMarkers {
		if strings.Contains(lower, m) {
			issues = append(issues, "error marker found: "+m)
		}
	}
	if !strings.Contains(html, "<") || !strings.Contains(html, ">") {
		issues = append(issues, "no HTML tags found")
	}
	n := 0
	for _, m := range placeholderMarkers {
		if strings.Contains(lower, m) {
			n++
		}
	}
	if n > 3 {
		issues = append(issues, fmt.Sprintf("too many placeholders: %d", n))
	}
	return issues
}

// ValidateReport checks the composed report before PDF rendering.
func ValidateReport(fragments map[string]string, overall int) []string {
	var issues []string
	for _, key := range RequiredSections {
		v := strings.TrimSpace(fragments[key])
		if v == "" || strings.Contains(v, "generation disabled") {
			issues = append(issues, "missing required section: "+key)
		}
	}
	if overall == 0 {
		issues = append(issues, "overall score is zero")
	}
	return issues
}
