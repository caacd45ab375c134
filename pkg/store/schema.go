package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// templateSchema is the JSON Schema every template document must satisfy
// before it is accepted or persisted.
const templateSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "fields"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1,
      "pattern": "^[A-Za-z0-9_-]+$"
    },
    "description": {"type": "string"},
    "fields": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "dataType"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "dataType": {
            "enum": ["int", "float", "string", "bool", "timestamp", "uuid", "location"]
          },
          "pattern": {
            "enum": ["random", "sine_wave", "linear", "constant", "gaussian", "expression", ""]
          },
          "minValue": {"type": "number"},
          "maxValue": {"type": "number"},
          "stepSize": {"type": "number"},
          "amplitude": {"type": "number"},
          "frequency": {"type": "number"},
          "mean": {"type": "number"},
          "stdDev": {"type": "number", "minimum": 0},
          "expression": {"type": "string"}
        }
      }
    }
  }
}`

func compileTemplateSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("template.json", strings.NewReader(templateSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("template.json")
}

// validateDocument checks a document against the template schema. The
// document is round-tripped through JSON so the schema sees plain types.
func (s *Store) validateDocument(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to unmarshal template: %w", err)
	}
	if err := s.schema.Validate(generic); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	return nil
}
