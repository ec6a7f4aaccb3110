package llm

import "context"

// LLMClient is the narrow seam to a text-generation endpoint. Cross-cutting
// concerns (throttling, retries, logging, hooks) are layered on top via
// Middleware; implementations only make the call.
type LLMClient interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}
