package compose

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const maxPlausibleHours = 200.0

var (
	reHoursRange  = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*(?:-|–|bis)\s*([0-9]+(?:[.,][0-9]+)?)\s*(?:stunden|std|h)\b`)
	reHoursSingle = regexp.MustCompile(`(?i)([0-9]+(?:[.,][0-9]+)?)\s*(?:stunden|std|h)\b`)
)

// parseFragment parses an HTML fragment in a <body> context.
func parseFragment(fragment string) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	return html.ParseFragment(strings.NewReader(fragment), body)
}

func renderNodes(nodes []*html.Node) string {
	var buf bytes.Buffer
	for _, n := range nodes {
		_ = html.Render(&buf, n)
	}
	return buf.String()
}

// listItems returns the outermost <li> elements in document order.
func listItems(nodes []*html.Node) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Li {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return out
}

// SplitListItems splits the <li> items of a list into two <ul> columns. The
// left column gets ceil(n/2) items. Fragments without list items come back
// unchanged as the left column.
func SplitListItems(fragment string) (left, right string) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment, ""
	}
	items := listItems(nodes)
	if len(items) == 0 {
		return fragment, ""
	}
	half := (len(items) + 1) / 2
	return wrapList("ul", items[:half]), wrapList("ul", items[half:])
}

func wrapList(tag string, items []*html.Node) string {
	var b strings.Builder
	b.WriteString("<" + tag + ">")
	for _, li := range items {
		_ = html.Render(&b, li)
	}
	b.WriteString("</" + tag + ">")
	return b.String()
}

// ScanHours sums the monthly hours mentioned in a fragment: "4 h/Monat",
// "Ersparnis: 4 Stunden" and ranges such as "2–4 h", which count as their
// midpoint. Implausible values outside (0, 200] are discarded, as is an
// implausible total.
func ScanHours(fragment string) float64 {
	text := TextContent(fragment)
	total := 0.0
	for _, m := range reHoursRange.FindAllStringSubmatch(text, -1) {
		a, errA := parseDecimal(m[1])
		b, errB := parseDecimal(m[2])
		if errA != nil || errB != nil {
			continue
		}
		total += plausible((a + b) / 2)
	}
	for _, m := range reHoursSingle.FindAllStringSubmatch(reHoursRange.ReplaceAllString(text, " "), -1) {
		v, err := parseDecimal(m[1])
		if err != nil {
			continue
		}
		total += plausible(v)
	}
	return plausible(total)
}

func plausible(v float64) float64 {
	if v <= 0 || v > maxPlausibleHours {
		return 0
	}
	return v
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
}

// TextContent returns the text of a fragment with tags removed.
func TextContent(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment
	}
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.DataAtom == atom.Li || n.DataAtom == atom.P || n.DataAtom == atom.Br || n.DataAtom == atom.Tr) {
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return b.String()
}

// AppendToOrderedList appends <li> items to the first <ol> of fragment. When
// the fragment has no <ol>, a new one holding the items is appended.
func AppendToOrderedList(fragment string, items []string) string {
	if len(items) == 0 {
		return fragment
	}
	joined := strings.Join(items, "")
	nodes, err := parseFragment(fragment)
	if err != nil {
		return fragment + "<ol>" + joined + "</ol>"
	}
	ol := findFirst(nodes, atom.Ol)
	if ol == nil {
		return renderNodes(nodes) + "<ol>" + joined + "</ol>"
	}
	lis, err := html.ParseFragment(strings.NewReader(joined), ol)
	if err != nil {
		return fragment + "<ol>" + joined + "</ol>"
	}
	for _, li := range lis {
		ol.AppendChild(li)
	}
	return renderNodes(nodes)
}

func findFirst(nodes []*html.Node, a atom.Atom) *html.Node {
	for _, n := range nodes {
		if n.Type == html.ElementNode && n.DataAtom == a {
			return n
		}
		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		if found := findFirst(children, a); found != nil {
			return found
		}
	}
	return nil
}
