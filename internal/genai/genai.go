// Package genai defines the boundary to the external text-generation service.
//
// The service is treated as an opaque best-effort parser: callers hand it a
// schema instruction and free text and receive raw response text with no
// guarantee of well-formed output.
package genai

import "context"

// Prompt is the two-part instruction sent to the generator.
type Prompt struct {
	// System describes the exact output shape the generator must produce.
	System string
	// User is the free text to derive structured data from.
	User string
}

// Generator produces raw response text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt Prompt) (string, error)

// Generate implements Generator.
func (f GeneratorFunc) Generate(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}
