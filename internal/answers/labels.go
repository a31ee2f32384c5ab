package answers

// Placeholder is shown for labels that cannot be derived.
const Placeholder = "—"

// brancheAliases maps UI labels onto canonical branch tokens.
var brancheAliases = map[string]string{
	"beratung & dienstleistungen": "beratung",
	"marketing & werbung":         "marketing",
	"it & software":               "it_software",
	"finanzen & versicherungen":   "finanzen",
	"handel & e-commerce":         "handel",
	"bildung":                     "bildung",
	"verwaltung":                  "verwaltung",
	"gesundheit & pflege":         "gesundheit",
	"bauwesen & architektur":      "bau",
	"medien & kreativwirtschaft":  "medien",
	"industrie & produktion":      "industrie",
	"transport & logistik":        "logistik",
}

var groesseAliases = map[string]string{
	"1 (solo-selbstständig/freiberuflich)": "solo",
	"solo":                                 "solo",
	"2–10 (kleines team)":                  "team_2_10",
	"2-10":                                 "team_2_10",
	"11–100 (kmu)":                         "kmu_11_100",
	"11-100":                               "kmu_11_100",
}

var branchLabels = map[string]string{
	"marketing":   "Marketing & Werbung",
	"beratung":    "Beratung & Dienstleistungen",
	"it":          "IT & Software",
	"it_software": "IT & Software",
	"finanzen":    "Finanzen & Versicherungen",
	"handel":      "Handel & E-Commerce",
	"bildung":     "Bildung",
	"verwaltung":  "Verwaltung",
	"gesundheit":  "Gesundheit & Pflege",
	"bau":         "Bauwesen & Architektur",
	"medien":      "Medien & Kreativwirtschaft",
	"industrie":   "Industrie & Produktion",
	"logistik":    "Transport & Logistik",
}

var sizeLabels = map[string]string{
	"solo":       "1 (Solo-Selbstständig/Freiberuflich)",
	"team":       "2-10 (Kleines Team)",
	"team_2_10":  "2-10 (Kleines Team)",
	"kmu":        "11-100 (KMU)",
	"kmu_11_100": "11-100 (KMU)",
}

var stateLabels = map[string]string{
	"bw": "Baden-Württemberg",
	"by": "Bayern",
	"be": "Berlin",
	"bb": "Brandenburg",
	"hb": "Bremen",
	"hh": "Hamburg",
	"he": "Hessen",
	"mv": "Mecklenburg-Vorpommern",
	"ni": "Niedersachsen",
	"nw": "Nordrhein-Westfalen",
	"rp": "Rheinland-Pfalz",
	"sl": "Saarland",
	"sn": "Sachsen",
	"st": "Sachsen-Anhalt",
	"sh": "Schleswig-Holstein",
	"th": "Thüringen",
}

var revenueLabels = map[string]string{
	"unter_100k": "unter 100.000 €",
	"100_500k":   "100.000 – 500.000 €",
	"500k_2m":    "500.000 € – 2 Mio. €",
	"ueber_2m":   "über 2 Mio. €",
}

// branchBaseRate is the typical external hourly rate (EUR) per branch.
var branchBaseRate = map[string]float64{
	"marketing":   85,
	"beratung":    95,
	"it_software": 100,
	"finanzen":    110,
	"handel":      65,
	"bildung":     60,
	"verwaltung":  60,
	"gesundheit":  70,
	"bau":         75,
	"medien":      80,
	"industrie":   85,
	"logistik":    65,
}

var sizeMultiplier = map[string]float64{
	"solo":       0.8,
	"team_2_10":  1.0,
	"kmu_11_100": 1.15,
}

const (
	defaultBaseRate  = 80.0
	minBenchmarkRate = 40.0
)

// branchBenchmark is the share of companies using AI (avg) and the top quartile, per branch.
var branchBenchmark = map[string][2]int{
	"marketing":   {72, 90},
	"beratung":    {55, 80},
	"it_software": {60, 85},
	"finanzen":    {75, 90},
	"handel":      {22, 45},
	"bildung":     {20, 50},
	"verwaltung":  {13, 30},
	"gesundheit":  {15, 30},
	"bau":         {12, 25},
	"medien":      {96, 100},
	"industrie":   {40, 70},
	"logistik":    {20, 45},
}

// BranchLabel returns the display label for a branch code.
func BranchLabel(code string) string {
	return labelOr(branchLabels, code)
}

// SizeLabel returns the display label for a company-size code.
func SizeLabel(code string) string {
	return labelOr(sizeLabels, code)
}

// StateLabel returns the display label for a two-letter state code.
func StateLabel(code string) string {
	return labelOr(stateLabels, code)
}

func labelOr(table map[string]string, code string) string {
	if code == "" {
		return Placeholder
	}
	if l, ok := table[code]; ok {
		return l
	}
	return code
}
