// Package schemas validates the uploaded graph schema document before it is
// forwarded to the builder: a malformed document is a request-validation
// failure and never reaches the downstream service.
package schemas

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// graphSchemaMeta is the meta-schema every uploaded schema document must
// satisfy: node and relationship mappings from the tabular columns.
const graphSchemaMeta = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["label"],
        "properties": {
          "label": {"type": "string", "minLength": 1},
          "id_column": {"type": "string"},
          "properties": {"type": "object"}
        }
      }
    },
    "relationships": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "start", "end"],
        "properties": {
          "type": {"type": "string", "minLength": 1},
          "start": {"type": "string"},
          "end": {"type": "string"},
          "properties": {"type": "object"}
        }
      }
    }
  }
}`

// ValidationError lists the fields at which a schema document failed.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single validation error at a specific field.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("schema document validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// ValidateGraphSchema checks an uploaded schema document against the graph
// meta-schema. The document must be valid JSON and describe at least one
// node mapping.
func ValidateGraphSchema(document string) error {
	schemaLoader := gojsonschema.NewStringLoader(graphSchemaMeta)
	documentLoader := gojsonschema.NewStringLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &ValidationError{Errors: []FieldError{{
			Field:   "(root)",
			Message: "document is not valid JSON: " + err.Error(),
		}}}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
