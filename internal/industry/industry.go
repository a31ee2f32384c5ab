// Package industry holds the per-branch playbooks and KPI sets shown in the
// report. The catalog is embedded YAML; unknown branches fall back to the
// catalog's default branch.
package industry

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed industries.yaml
var defaultCatalog []byte

// Risk is one risk of a playbook with its mitigation.
type Risk struct {
	Risk       string `yaml:"risk"`
	Mitigation string `yaml:"mitigation"`
}

// Playbook is a ready-to-run workflow for a branch.
type Playbook struct {
	Title string   `yaml:"title"`
	Goal  string   `yaml:"goal"`
	Steps []string `yaml:"steps"`
	Tools []string `yaml:"tools"`
	KPIs  []string `yaml:"kpis"`
	Risks []Risk   `yaml:"risks"`
}

// KPI is a branch metric with definition, formula and a target hint.
type KPI struct {
	Name       string `yaml:"name"`
	Definition string `yaml:"definition"`
	Formula    string `yaml:"formula"`
	Target     string `yaml:"target"`
}

// Industry groups the playbooks and KPIs of one branch.
type Industry struct {
	Playbooks []Playbook `yaml:"playbooks"`
	KPIs      []KPI      `yaml:"kpis"`
}

// Catalog is the parsed industries file.
type Catalog struct {
	Version    string               `yaml:"version"`
	Fallback   string               `yaml:"fallback"`
	Industries map[string]*Industry `yaml:"industries"`
}

// aliases maps branch codes and UI labels onto catalog keys.
var aliases = map[string]string{
	"it_software":                 "it",
	"it & software":               "it",
	"beratung & dienstleistungen": "beratung",
	"handel & e-commerce":         "handel",
	"e-commerce":                  "handel",
	"gesundheit & pflege":         "gesundheit",
	"industrie & produktion":      "industrie",
	"produktion":                  "industrie",
	"transport & logistik":        "logistik",
	"marketing & werbung":         "marketing",
	"werbung":                     "marketing",
	"finanzen & versicherungen":   "finanzen",
	"versicherung":                "finanzen",
	"bauwesen & architektur":      "bau",
	"architektur":                 "bau",
	"medien & kreativwirtschaft":  "medien",
	"kreativwirtschaft":           "medien",
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a catalog strictly. The fallback branch must exist and every
// branch needs at least one playbook and one KPI.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse industry catalog: %w", err)
	}
	if _, ok := cat.Industries[cat.Fallback]; !ok {
		return nil, fmt.Errorf("industry catalog fallback %q is not a branch", cat.Fallback)
	}
	for key, ind := range cat.Industries {
		switch {
		case ind == nil || len(ind.Playbooks) == 0:
			return nil, fmt.Errorf("industry %s has no playbooks", key)
		case len(ind.KPIs) == 0:
			return nil, fmt.Errorf("industry %s has no KPIs", key)
		}
		for i, pb := range ind.Playbooks {
			if pb.Title == "" || len(pb.Steps) == 0 {
				return nil, fmt.Errorf("industry %s playbook %d needs a title and steps", key, i)
			}
		}
	}
	return &cat, nil
}

// Key resolves a branch code or label to a catalog key: exact match, alias,
// first word, then the fallback.
func (c *Catalog) Key(branche string) string {
	v := strings.Join(strings.Fields(strings.ToLower(branche)), " ")
	if v == "" {
		return c.Fallback
	}
	if _, ok := c.Industries[v]; ok {
		return v
	}
	if k, ok := aliases[v]; ok {
		return k
	}
	if first, _, _ := strings.Cut(v, " "); first != v {
		if _, ok := c.Industries[first]; ok {
			return first
		}
	}
	return c.Fallback
}

// Lookup returns the industry for a branch code or label.
func (c *Catalog) Lookup(branche string) *Industry {
	return c.Industries[c.Key(branche)]
}

// PlaybooksHTML renders the playbooks of a branch as cards. label is the
// display name used in the intro line.
func (c *Catalog) PlaybooksHTML(branche, label string) string {
	if label == "" {
		label = "Ihre Branche"
	}
	var b strings.Builder
	fmt.Fprintf(&b, `<p>Playbooks für <strong>%s</strong>. Die Workflows sind praxiserprobt, DSGVO-sensibel und auf schnelle Wirkung ausgelegt.</p>`, html.EscapeString(label))
	for _, pb := range c.Lookup(branche).Playbooks {
		b.WriteString(`<div class="card">`)
		fmt.Fprintf(&b, `<h3>%s</h3><p><strong>Ziel:</strong> %s</p>`, html.EscapeString(pb.Title), html.EscapeString(pb.Goal))
		b.WriteString(`<h4>Ablauf</h4><ol>`)
		for _, s := range pb.Steps {
			fmt.Fprintf(&b, `<li>%s</li>`, html.EscapeString(s))
		}
		b.WriteString(`</ol>`)
		if len(pb.Tools) > 0 {
			fmt.Fprintf(&b, `<p><strong>Empfohlene Tools:</strong> %s</p>`, html.EscapeString(strings.Join(pb.Tools, ", ")))
		}
		if len(pb.KPIs) > 0 {
			fmt.Fprintf(&b, `<p><strong>KPI-Vorschläge:</strong> %s</p>`, html.EscapeString(strings.Join(pb.KPIs, ", ")))
		}
		if len(pb.Risks) > 0 {
			b.WriteString(`<h4>Risiken &amp; Mitigation</h4><table class="table"><thead><tr><th>Risiko</th><th>Mitigation</th></tr></thead><tbody>`)
			for _, r := range pb.Risks {
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td></tr>`, html.EscapeString(r.Risk), html.EscapeString(r.Mitigation))
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</div>`)
	}
	return b.String()
}

// KPITableHTML renders the KPI set of a branch.
func (c *Catalog) KPITableHTML(branche string) string {
	var b strings.Builder
	b.WriteString(`<table class="table"><thead><tr><th>KPI</th><th>Definition</th><th>Formel</th><th>Zielwert (Richtwert)</th></tr></thead><tbody>`)
	for _, k := range c.Lookup(branche).KPIs {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(k.Name), html.EscapeString(k.Definition), html.EscapeString(k.Formula), html.EscapeString(k.Target))
	}
	b.WriteString(`</tbody></table>`)
	return b.String()
}
