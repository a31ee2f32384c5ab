package answers

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var intFields = []string{"research_days", "tools_days", "funding_days"}

// Normalize canonicalizes a briefing. It never fails, leaves unknown keys
// untouched and is idempotent.
func Normalize(in Answers) Answers {
	out := in.Clone()

	for k, v := range out {
		out[k] = repairValue(v)
	}

	if b := strings.ToLower(out.Str("branche")); b != "" {
		if canon, ok := brancheAliases[b]; ok {
			out["branche"] = canon
		}
	}
	if g := strings.ToLower(out.Str("unternehmensgroesse")); g != "" {
		if canon, ok := groesseAliases[g]; ok {
			out["unternehmensgroesse"] = canon
		}
	}
	if _, ok := out["bundesland"]; ok {
		out["bundesland"] = canonicalState(out.Str("bundesland"))
	}

	for _, k := range intFields {
		if v, ok := out[k]; ok {
			if n, ok := toInt(v); ok {
				out[k] = n
			}
		}
	}

	out["stundensatz_benchmark"] = BenchmarkRate(out)
	if bm, ok := branchBenchmark[out.Str("branche")]; ok {
		out["benchmark_avg"] = bm[0]
		out["benchmark_top"] = bm[1]
	}

	out["branche_label"] = BranchLabel(out.Str("branche"))
	out["groesse_label"] = SizeLabel(out.Str("unternehmensgroesse"))
	out["bundesland_label"] = StateLabel(out.Str("bundesland"))
	out["umsatz_label"] = labelOr(revenueLabels, out.Str("jahresumsatz"))

	return out
}

// BenchmarkRate derives an hourly-rate benchmark. An explicit
// stundensatz_von/stundensatz_bis band wins (midpoint); otherwise the branch
// base rate is scaled by company size. The result is floored at 40.
func BenchmarkRate(a Answers) int {
	lo, okLo := toFloat(a["stundensatz_von"])
	hi, okHi := toFloat(a["stundensatz_bis"])
	var rate float64
	switch {
	case okLo && okHi && hi >= lo && lo > 0:
		rate = (lo + hi) / 2
	default:
		base, ok := branchBaseRate[a.Str("branche")]
		if !ok {
			base = defaultBaseRate
		}
		mult, ok := sizeMultiplier[a.Str("unternehmensgroesse")]
		if !ok {
			mult = 1.0
		}
		rate = base * mult
	}
	return int(math.Round(math.Max(rate, minBenchmarkRate)))
}

func canonicalState(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for code, name := range stateLabels {
		if strings.EqualFold(name, s) {
			return code
		}
	}
	lower := strings.ToLower(s)
	if r := []rune(lower); len(r) > 2 {
		return string(r[:2])
	}
	return lower
}

func repairValue(v any) any {
	switch t := v.(type) {
	case string:
		return FixMojibake(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			if s, ok := item.(string); ok {
				out[i] = FixMojibake(s)
			} else {
				out[i] = item
			}
		}
		return out
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = FixMojibake(s)
		}
		return out
	default:
		return v
	}
}

// FixMojibake repairs UTF-8 text that was decoded as Latin-1 ("fÃ¼r" -> "für").
// The repaired form is only accepted if it removes the corruption marker.
// The result is NFC-normalized.
func FixMojibake(s string) string {
	if strings.ContainsAny(s, "Ãâ") {
		if repaired, ok := latin1RoundTrip(s); ok && !strings.Contains(repaired, "Ã") {
			s = repaired
		}
	}
	return norm.NFC.String(s)
}

func latin1RoundTrip(s string) (string, bool) {
	enc := charmap.ISO8859_1
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		b, ok := enc.EncodeRune(r)
		if !ok {
			// Windows-1252 covers the typographic quotes that show up in "â€œ".
			b, ok = charmap.Windows1252.EncodeRune(r)
			if !ok {
				return "", false
			}
		}
		buf = append(buf, b)
	}
	out := string(buf)
	if !utf8.ValidString(out) {
		return "", false
	}
	return out, true
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
		return 0, false
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(t), ",", "."), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}
