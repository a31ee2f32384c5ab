// Package answers holds the questionnaire answer map and the helpers that
// read loosely typed values out of it.
package answers

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Answers is a briefing: question keys mapped to strings, category codes,
// lists of codes, numbers or booleans. Unknown keys are preserved.
type Answers map[string]any

// Parse decodes a JSON object into Answers.
func Parse(raw []byte) (Answers, error) {
	if len(raw) == 0 {
		return Answers{}, nil
	}
	var a Answers
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	if a == nil {
		a = Answers{}
	}
	return a, nil
}

// Clone returns a shallow copy with list values copied.
func (a Answers) Clone() Answers {
	out := make(Answers, len(a))
	for k, v := range a {
		switch t := v.(type) {
		case []any:
			out[k] = append([]any(nil), t...)
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			out[k] = v
		}
	}
	return out
}

// Str returns the value at key as a trimmed string. Lists are joined with ", ".
func (a Answers) Str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case []any, []string:
		return strings.Join(a.List(key), ", ")
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// Lower returns Str(key) lowercased.
func (a Answers) Lower(key string) string {
	return strings.ToLower(a.Str(key))
}

// List returns the value at key as a list of non-empty strings.
// A scalar string becomes a one-element list.
func (a Answers) List(key string) []string {
	v, ok := a[key]
	if !ok || v == nil {
		return nil
	}
	var out []string
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if item == nil {
				continue
			}
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
	case string:
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Bool interprets booleans and "ja"/"yes"/"true" strings.
func (a Answers) Bool(key string) bool {
	v, ok := a[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "ja", "yes", "true", "1", "on":
			return true
		}
	}
	return false
}

// Has reports whether key holds a non-empty value.
func (a Answers) Has(key string) bool {
	switch v := a[key].(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	case bool:
		return v
	default:
		return true
	}
}

// Keys returns the answer keys in sorted order.
func (a Answers) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
