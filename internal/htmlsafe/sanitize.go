// Package htmlsafe cleans LLM-produced HTML fragments before they are
// embedded in the report. It is best-effort: a regex pass strips document
// wrappers, active content and javascript: URIs, then a bluemonday policy
// drops whatever markup the report layout does not use.
package htmlsafe

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var (
	reDoctype   = regexp.MustCompile(`(?is)<!DOCTYPE.*?>`)
	reHeadBlock = regexp.MustCompile(`(?is)<\s*head\b.*?>.*?</\s*head\s*>`)
	reHTMLTags  = regexp.MustCompile(`(?is)</?\s*html\b.*?>`)
	reBodyTags  = regexp.MustCompile(`(?is)</?\s*body\b.*?>`)

	reScriptBlock = regexp.MustCompile(`(?is)<\s*script\b.*?>.*?</\s*script\s*>`)
	reIframeBlock = regexp.MustCompile(`(?is)<\s*iframe\b.*?>.*?</\s*iframe\s*>`)
	reObjectBlock = regexp.MustCompile(`(?is)<\s*object\b.*?>.*?</\s*object\s*>`)
	reEmbedBlock  = regexp.MustCompile(`(?is)<\s*embed\b.*?>(.*?</\s*embed\s*>)?`)
	reLinkTag     = regexp.MustCompile(`(?is)<\s*link\b.*?/?>`)
	reMetaTag     = regexp.MustCompile(`(?is)<\s*meta\b.*?/?>`)

	reOnEventAttr = regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*')`)
	reJSProtocol  = regexp.MustCompile(`(?is)(\s(?:href|src)\s*=\s*['"])\s*javascript:[^'"]*(['"])`)

	reTrailingWS = regexp.MustCompile(`[ \t]+\n`)
	reManyLines  = regexp.MustCompile(`\n{3,}`)
	reManySpaces = regexp.MustCompile(`[ \t]{2,}`)
)

var policy = newPolicy()

// newPolicy allows the markup the report sections are drawn with.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Globally()
	p.AllowElements("section", "article", "header", "footer", "figure", "figcaption", "small", "mark")
	p.AllowAttrs("colspan", "rowspan").OnElements("td", "th")
	return p
}

// Sanitize strips document wrappers, script/iframe/object/embed blocks,
// link/meta tags, inline event handlers and javascript: URIs, compresses
// whitespace and finally runs the bluemonday policy.
func Sanitize(html string) string {
	return policy.Sanitize(StripActive(html, true))
}

// StripActive is the regex-only pass of Sanitize.
func StripActive(html string, compressWS bool) string {
	if html == "" {
		return ""
	}
	s := reDoctype.ReplaceAllString(html, "")
	s = reHeadBlock.ReplaceAllString(s, "")
	s = reHTMLTags.ReplaceAllString(s, "")
	s = reBodyTags.ReplaceAllString(s, "")

	s = reScriptBlock.ReplaceAllString(s, "")
	s = reIframeBlock.ReplaceAllString(s, "")
	s = reObjectBlock.ReplaceAllString(s, "")
	s = reEmbedBlock.ReplaceAllString(s, "")
	s = reLinkTag.ReplaceAllString(s, "")
	s = reMetaTag.ReplaceAllString(s, "")

	s = reOnEventAttr.ReplaceAllString(s, "")
	s = reJSProtocol.ReplaceAllString(s, "${1}#${2}")

	if compressWS {
		s = CompressWhitespace(s)
	}
	return s
}

// CompressWhitespace trims trailing blanks, collapses blank-line runs and
// squeezes repeated spaces.
func CompressWhitespace(s string) string {
	s = reTrailingWS.ReplaceAllString(s, "\n")
	s = reManyLines.ReplaceAllString(s, "\n\n")
	return reManySpaces.ReplaceAllString(s, " ")
}

// SanitizeAll applies Sanitize to every value of a fragment map.
func SanitizeAll(fragments map[string]string) map[string]string {
	out := make(map[string]string, len(fragments))
	for k, v := range fragments {
		out[k] = Sanitize(v)
	}
	return out
}
