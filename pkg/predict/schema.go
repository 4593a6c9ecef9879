package predict

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// responseSchema is the contract for a successful classification response.
var responseSchema = map[string]any{
	"type":     "object",
	"required": []any{"category", "confidence"},
	"properties": map[string]any{
		"category":   map[string]any{"type": "string", "minLength": 1},
		"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
		"reasoning":  map[string]any{"type": "string"},
		"taxNotes":   map[string]any{"type": []any{"string", "null"}},
		"sources": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	},
}

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(responseSchema)
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("prediction.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("prediction.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateResponse checks data against the prediction schema.
func validateResponse(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
