package llmclient

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (throttling, retries, logging, hooks) are applied via middleware.
type GeminiClient struct {
	cli   *genai.Client
	model string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{Backend: genai.BackendGeminiAPI}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }

// Generate sends one prompt and returns the model's text verbatim. JSON
// recovery happens downstream; the response is not forced into a MIME type
// so prose-wrapped and fenced output reach the extraction path unchanged.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// classify maps provider errors onto the retry layer's vocabulary.
func classify(err error) error {
	up := strings.ToUpper(err.Error())
	if strings.Contains(up, "429") || strings.Contains(up, "RESOURCE_EXHAUSTED") {
		return &RateLimitedError{Err: err}
	}
	if strings.Contains(up, "INVALID_ARGUMENT") ||
		strings.Contains(up, "PERMISSION_DENIED") ||
		strings.Contains(up, "NOT_FOUND") {
		return NewPermanentError(err)
	}
	return fmt.Errorf("gemini: %w", err)
}
