package answers

import (
	"reflect"
	"testing"
)

func TestNormalizeCanonicalCodes(t *testing.T) {
	in := Answers{
		"branche":             "IT & Software",
		"unternehmensgroesse": "2–10 (kleines Team)",
		"bundesland":          "Bayern",
		"research_days":       "30",
		"tools_days":          "abc",
		"custom_field":        "kept",
	}

	out := Normalize(in)

	if out["branche"] != "it_software" {
		t.Errorf("expected it_software, got %v", out["branche"])
	}
	if out["unternehmensgroesse"] != "team_2_10" {
		t.Errorf("expected team_2_10, got %v", out["unternehmensgroesse"])
	}
	if out["bundesland"] != "by" {
		t.Errorf("expected by, got %v", out["bundesland"])
	}
	if out["research_days"] != 30 {
		t.Errorf("expected research_days 30, got %#v", out["research_days"])
	}
	if out["tools_days"] != "abc" {
		t.Errorf("expected unparsable tools_days untouched, got %#v", out["tools_days"])
	}
	if out["custom_field"] != "kept" {
		t.Error("expected unknown key to pass through")
	}
	if out["bundesland_label"] != "Bayern" {
		t.Errorf("expected Bayern label, got %v", out["bundesland_label"])
	}
	if _, ok := in["branche_label"]; ok {
		t.Error("Normalize must not mutate its input")
	}
}

func TestNormalizeLabelsDefaultToPlaceholder(t *testing.T) {
	out := Normalize(Answers{})
	for _, key := range []string{"branche_label", "groesse_label", "bundesland_label", "umsatz_label"} {
		if out[key] != Placeholder {
			t.Errorf("expected %s to be placeholder, got %v", key, out[key])
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []Answers{
		{},
		{"branche": "Beratung & Dienstleistungen", "unternehmensgroesse": "solo", "bundesland": "NRW"},
		{"branche": "marketing", "bundesland": "Nordrhein-Westfalen", "hauptleistung": "fÃ¼r Kunden", "ki_usecases": []any{"texterstellung", "MÃ¤rkte"}},
		{"funding_days": 60.0, "stundensatz_von": "80", "stundensatz_bis": 120.0},
	}
	for i, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("case %d: normalize not idempotent:\n once=%v\ntwice=%v", i, once, twice)
		}
	}
}

func TestFixMojibake(t *testing.T) {
	cases := map[string]string{
		"fÃ¼r":       "für",
		"GrÃ¶ÃŸe":    "Größe",
		"schon gut":  "schon gut",
		"château":    "château",
		"Ãœbersicht": "Übersicht",
	}
	for in, want := range cases {
		if got := FixMojibake(in); got != want {
			t.Errorf("FixMojibake(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBenchmarkRate(t *testing.T) {
	cases := []struct {
		name string
		in   Answers
		want int
	}{
		{"explicit band", Answers{"stundensatz_von": 80.0, "stundensatz_bis": 120.0}, 100},
		{"branch times size", Answers{"branche": "beratung", "unternehmensgroesse": "solo"}, 76},
		{"unknown branch", Answers{}, 80},
		{"floored", Answers{"stundensatz_von": "10", "stundensatz_bis": "20"}, 40},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BenchmarkRate(tc.in); got != tc.want {
				t.Errorf("BenchmarkRate = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAnswersAccessors(t *testing.T) {
	a := Answers{
		"list":   []any{"a", " ", "b"},
		"scalar": " x ",
		"flag":   "ja",
		"num":    12.0,
	}
	if got := a.List("list"); len(got) != 2 {
		t.Errorf("expected 2 list items, got %v", got)
	}
	if got := a.List("scalar"); len(got) != 1 || got[0] != "x" {
		t.Errorf("expected scalar as single item, got %v", got)
	}
	if !a.Bool("flag") {
		t.Error("expected ja to be true")
	}
	if a.Str("num") != "12" {
		t.Errorf("expected 12, got %q", a.Str("num"))
	}
	if a.Has("missing") {
		t.Error("expected missing key to be absent")
	}
}
