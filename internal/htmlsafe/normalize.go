package htmlsafe

import (
	"regexp"
	"strings"

	"github.com/jimdaga/ki-report/internal/answers"
)

var (
	reCodeFence          = regexp.MustCompile("(?m)^```[a-zA-Z0-9]*\\s*|\\s*```$")
	reLeadingH1          = regexp.MustCompile(`(?is)^\s*<h1[^>]*>.*?</h1>\s*`)
	reLeadingHeadingText = regexp.MustCompile(`(?i)^\s*(Executive\s+Summary|Quick\s+Wins|Business\s+Case.*|Risiko.*|Gamechanger).*`)
	reBlockTag           = regexp.MustCompile(`(?i)<(p|ul|ol|li|table|thead|tbody|tr|td|th|div|section|h[1-6]|blockquote)\b`)
)

// StripCodeFences removes markdown fences (```html ... ```) around model output.
func StripCodeFences(s string) string {
	if s == "" {
		return ""
	}
	s = answers.FixMojibake(s)
	s = strings.TrimSpace(reCodeFence.ReplaceAllString(s, ""))
	s = strings.ReplaceAll(s, "```html", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// DropLeadingHeading removes a leading <h1> or a plain heading line such as
// "Executive Summary" that duplicates the section title.
func DropLeadingHeading(s string) string {
	s = strings.TrimSpace(reLeadingH1.ReplaceAllString(StripCodeFences(s), ""))
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && reLeadingHeadingText.MatchString(lines[0]) {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// NormalizeModelHTML repairs encoding, strips fences and drops a duplicated heading.
func NormalizeModelHTML(s string) string {
	if s == "" {
		return ""
	}
	return DropLeadingHeading(s)
}

// LooksLikeHTML reports whether s contains at least one block-level tag.
func LooksLikeHTML(s string) bool {
	return reBlockTag.MatchString(s)
}
