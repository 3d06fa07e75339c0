package llm

import "context"

// Schema is a named JSON Schema enforced server-side via structured outputs.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Provider sends a prompt pair to an LLM and returns the raw JSON response
// conforming to the given schema.
type Provider interface {
	Complete(ctx context.Context, system, user string, schema Schema) ([]byte, error)
}
