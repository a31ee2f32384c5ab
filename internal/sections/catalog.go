package sections

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Section describes one generated report section. A nil Temperature leaves
// it to the client default.
type Section struct {
	Name        string   `yaml:"name"`
	Key         string   `yaml:"key"`
	Title       string   `yaml:"title"`
	Role        string   `yaml:"role"`
	Instruction string   `yaml:"instruction"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
	OneLiner    bool     `yaml:"one_liner"`
}

// OneLinerKey is the context key of the section's one-line summary.
func (s *Section) OneLinerKey() string {
	return s.Key + "_ONE_LINER"
}

// Catalog is the parsed catalog file.
type Catalog struct {
	Version        string     `yaml:"version"`
	SystemRole     string     `yaml:"system_role"`
	FormatRules    string     `yaml:"format_rules"`
	RepairPrompt   string     `yaml:"repair_prompt"`
	OneLinerPrompt string     `yaml:"one_liner_prompt"`
	Sections       []*Section `yaml:"sections"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read section catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog strictly: unknown keys are rejected and
// every section needs a name, key, title and instruction.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cat); err != nil {
		return nil, fmt.Errorf("failed to parse section catalog: %w", err)
	}
	if cat.Version == "" {
		cat.Version = "v1"
	}
	if cat.SystemRole == "" {
		return nil, fmt.Errorf("section catalog missing required field: system_role")
	}
	for i, s := range cat.Sections {
		switch {
		case s.Name == "":
			return nil, fmt.Errorf("section %d missing required field: name", i)
		case s.Key == "":
			return nil, fmt.Errorf("section %s missing required field: key", s.Name)
		case s.Title == "":
			return nil, fmt.Errorf("section %s missing required field: title", s.Name)
		case s.Instruction == "":
			return nil, fmt.Errorf("section %s missing required field: instruction", s.Name)
		}
	}
	return &cat, nil
}
