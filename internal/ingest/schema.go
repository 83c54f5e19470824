package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// workFileSchema describes the batch work file. Amounts may arrive as JSON
// strings or numbers; both decode into exact decimals.
func workFileSchema() map[string]any {
	str := map[string]any{"type": "string"}
	amount := map[string]any{"type": []any{"string", "number"}}

	return map[string]any{
		"type":     "object",
		"required": []any{"items"},
		"properties": map[string]any{
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"student", "payment"},
					"properties": map[string]any{
						"student": map[string]any{
							"type":     "object",
							"required": []any{"name", "enrollment_no"},
							"properties": map[string]any{
								"name":           str,
								"father_name":    str,
								"enrollment_no":  str,
								"seat_number":    str,
								"shift":          str,
								"timing":         str,
								"address":        str,
								"contact":        str,
								"monthly_fees":   amount,
								"join_date":      str,
								"fees_paid_till": str,
								"photo_path":     str,
							},
						},
						"payment": map[string]any{
							"type":     "object",
							"required": []any{"amount", "billing_month", "billing_year"},
							"properties": map[string]any{
								"amount":        amount,
								"payment_date":  str,
								"billing_month": map[string]any{"type": "integer", "minimum": 1, "maximum": 12},
								"billing_year":  map[string]any{"type": "integer", "minimum": 2000},
								"txn_ref":       str,
								"method":        str,
							},
						},
					},
				},
			},
		},
	}
}

// validateJSONAgainstSchema validates data against schemaMap.
func validateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
