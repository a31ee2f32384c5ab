// Package render fills the report template. Substitution is a flat
// mail-merge: one pass over {{key}} placeholders with no escaping, so every
// value must already be safe HTML.
package render

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strconv"
)

//go:embed templates/report.html
var defaultTemplate string

var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes every {{key}} in tmpl. Missing keys yield def, nil
// values yield "".
func Render(tmpl string, ctx map[string]any, def string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholder.FindStringSubmatch(m)[1]
		v, ok := ctx[key]
		if !ok {
			return def
		}
		return stringify(v)
	})
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Template returns the report template at path, or the embedded default when
// path is empty.
func Template(path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read report template: %w", err)
	}
	return string(b), nil
}
