package util

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema reflects a JSON schema from a Go struct. Fields tagged with
// omitempty are optional, everything else is required. Descriptions are taken
// from the jsonschema "description=" tag.
func CreateSchema(structType any) map[string]any {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}

	s := r.Reflect(structType)

	b, err := json.Marshal(s)
	if err != nil {
		return emptyObjectSchema()
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return emptyObjectSchema()
	}

	delete(out, "$schema")
	delete(out, "$id")

	if _, ok := out["properties"]; !ok {
		out["properties"] = map[string]any{}
	}

	return out
}

func emptyObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// ValidateParameters validates args against a JSON schema. The first
// violation is returned as *ValidationError; a nil or empty schema accepts
// anything.
func ValidateParameters(args map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	if result.Valid() {
		return nil
	}

	first := result.Errors()[0]

	field := first.Field()
	if field == "(root)" || field == "" {
		if p, ok := first.Details()["property"].(string); ok {
			field = p
		}
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.Description())
	}

	return &ValidationError{
		Field:   field,
		Value:   first.Value(),
		Message: strings.Join(msgs, "; "),
	}
}
