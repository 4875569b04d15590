package llm

import (
	"encoding/json"
	"errors"
	"testing"
)

func planSchema() *Schema {
	return &Schema{
		Name: "test-plan",
		Definition: map[string]any{
			"type":     "object",
			"required": []any{"complexity", "steps"},
			"properties": map[string]any{
				"complexity": map[string]any{
					"type": "string",
					"enum": []any{"Low", "Medium", "High"},
				},
				"steps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []any{"step", "title"},
						"properties": map[string]any{
							"step":  map[string]any{"type": "integer"},
							"title": map[string]any{"type": "string"},
						},
					},
				},
			},
		},
	}
}

func TestValidate_ConformingOutput(t *testing.T) {
	raw := json.RawMessage(`{"complexity":"Low","steps":[{"step":1,"title":"Setup"}]}`)
	if err := validateOutput(planSchema(), raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_NotJSON(t *testing.T) {
	err := validateOutput(planSchema(), json.RawMessage(`not json at all`))
	var bad *BadOutputError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadOutputError, got %v", err)
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	err := validateOutput(planSchema(), json.RawMessage(`{"complexity":"Low"}`))
	var bad *BadOutputError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadOutputError, got %v", err)
	}
}

func TestValidate_EnumViolation(t *testing.T) {
	raw := json.RawMessage(`{"complexity":"Extreme","steps":[]}`)
	err := validateOutput(planSchema(), raw)
	var bad *BadOutputError
	if !errors.As(err, &bad) {
		t.Fatalf("expected BadOutputError, got %v", err)
	}
	if string(bad.Content) != string(raw) {
		t.Fatalf("rejected content not preserved: %s", bad.Content)
	}
}

func TestValidate_NilSchemaPasses(t *testing.T) {
	if err := validateOutput(nil, json.RawMessage(`anything`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SchemaCached(t *testing.T) {
	s := planSchema()
	raw := json.RawMessage(`{"complexity":"High","steps":[]}`)
	for range 3 {
		if err := validateOutput(s, raw); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, ok := schemaCache.Load(s.Name); !ok {
		t.Fatal("compiled schema was not cached")
	}
}
