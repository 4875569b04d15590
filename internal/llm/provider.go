// Package llm abstracts the model providers used for offline roadmap and
// quiz generation. Every request is single-turn: a system role, one user
// prompt, and a JSON schema the output must conform to.
package llm

import (
	"context"
	"encoding/json"
)

// Provider produces schema-conforming JSON from a prompt.
type Provider interface {
	// Complete sends the request and returns validated JSON. When
	// req.Schema is set the provider uses its native structured-output
	// mechanism and the content is checked against the schema before
	// being returned.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Name identifies the configured provider/model for diagnostics.
	Name() string
}

// Request is one generation call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Prompt is the single user message.
	Prompt string

	// Schema, when set, constrains the output JSON.
	Schema *Schema

	// MaxTokens caps the response length.
	MaxTokens int

	// Temperature controls randomness, 0.0-1.0. Zero means deterministic.
	Temperature float64
}

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case, e.g. "proposed-plan". Used as the schema name
	// for OpenAI and the output format name for Anthropic.
	Name string

	// Description guides the model.
	Description string

	// Definition is the JSON Schema document as a map.
	Definition map[string]any
}

// Response is the model output.
type Response struct {
	// Content is the generated JSON (validated when a schema was given).
	Content json.RawMessage

	// Model is the model that actually served the request.
	Model string

	// InputTokens and OutputTokens report usage for this call.
	InputTokens  int
	OutputTokens int
}

// resolveModel maps a friendly alias through the provider's table,
// passing unknown names straight through so raw model IDs keep working.
func resolveModel(name string, table map[string]string) string {
	if id, ok := table[name]; ok {
		return id
	}
	return name
}
