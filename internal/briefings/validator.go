package briefings

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var schemaJSON []byte

// ValidationError lists the schema violations of one submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "briefing validation failed: " + strings.Join(msgs, "; ")
}

// Validator checks answer maps against the embedded briefing schema. The
// schema only bounds value types and sizes; unknown keys are allowed.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to compile briefing schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate returns a *ValidationError when data does not match the schema.
func (v *Validator) Validate(data map[string]interface{}) error {
	result := v.schema.Validate(data)
	if result.IsValid() {
		return nil
	}
	fields := make(map[string]string, len(result.Errors))
	for field, evalErr := range result.Errors {
		fields[field] = evalErr.Error()
	}
	if len(fields) == 0 {
		fields["briefing"] = "does not match schema"
	}
	return &ValidationError{Fields: fields}
}
