package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildElementsSchema returns a JSON-Schema (draft 2020-12 subset) for the
// extractor response: an array of typed elements. Metadata is deliberately
// left open so new extractor fields pass through.
func BuildElementsSchema() map[string]any {
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":     "object",
			"required": []string{"type"},
			"properties": map[string]any{
				"type":       map[string]any{"type": "string", "minLength": 1},
				"element_id": map[string]any{"type": "string"},
				"text":       map[string]any{"type": "string"},
				"metadata": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source":      map[string]any{"type": "string"},
						"page_number": map[string]any{"type": []string{"integer", "number"}},
						"url":         map[string]any{"type": "string"},
					},
					"additionalProperties": true,
				},
			},
			"additionalProperties": true,
		},
	}
}

// ValidateElementsJSON validates a raw extractor response body against the
// elements schema before decoding.
func ValidateElementsJSON(data []byte) error {
	b, err := json.Marshal(BuildElementsSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("elements.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("elements.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("response does not match elements schema: %w", err)
	}
	return nil
}
