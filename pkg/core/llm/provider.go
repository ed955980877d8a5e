// Package llm wraps the model backends used for document understanding.
// The extraction pipeline itself is deterministic; these providers serve
// the optional vision pass over scanned statements and free-text repair.
package llm

import "context"

// Provider generates a text completion for a prompt.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
}

// VisionProvider generates a completion from a prompt plus page images,
// used for scanned statements where no text layer exists.
type VisionProvider interface {
	GenerateFromImages(ctx context.Context, prompt string, images [][]byte, mimeType string) (string, error)
}
