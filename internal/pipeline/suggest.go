package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/llmtool"
	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/util/jsonutil"
	"github.com/dharaneesh71/Financeflow-ai/internal/utils"
)

// Degraded suggestion texts. The batch still completes; the reasoning field
// tells the user what happened instead of a proposal.
const (
	msgHighDemand   = "The AI service is currently experiencing high demand. Please wait a moment and try again."
	msgBadResponse  = "The model response could not be interpreted. Please try again."
	msgNoSuggestion = "No extractable metrics were identified in the document."
)

// SuggestMetrics proposes a metric set from the first parsed document. Model
// trouble degrades the proposal rather than failing the batch: the user can
// always retry or type metrics by hand.
type SuggestMetrics struct {
	LLM  llm.LLMClient
	Docs docstore.Store
	Log  zerolog.Logger
}

func (n *SuggestMetrics) Name() string { return "suggest_metrics" }

func (n *SuggestMetrics) Run(ctx context.Context, s *State) error {
	md, err := n.Docs.Get(ctx, s.MarkdownPaths[0])
	if err != nil {
		return fmt.Errorf("read markdown %s: %w", s.MarkdownPaths[0], err)
	}
	text := utils.Preview(utils.MarkDownClean(string(md)), utils.DefaultPreviewLimit)

	prompt, err := suggestPrompt(text, s.UserPrompt)
	if err != nil {
		return err
	}
	out, err := n.LLM.Generate(llm.WithWorker(ctx, "suggest"), prompt)
	if err != nil {
		if llm.IsRateLimitExceeded(err) {
			n.Log.Warn().Err(err).Msg("metric suggestion rate limited")
			s.Reasoning = msgHighDemand
			return nil
		}
		return &ServiceUnavailableError{Service: "language model", Err: err}
	}

	var parsed struct {
		SuggestedMetrics metric.Set `json:"suggested_metrics"`
		Reasoning        string     `json:"reasoning"`
	}
	if err := jsonutil.ExtractInto(out, &parsed); err != nil {
		n.Log.Warn().Err(err).Msg("metric suggestion unparseable")
		s.Reasoning = msgBadResponse
		return nil
	}

	s.SuggestedMetrics = keepValid(parsed.SuggestedMetrics, n.Log)
	s.Reasoning = parsed.Reasoning
	if len(s.SuggestedMetrics) == 0 && s.Reasoning == "" {
		s.Reasoning = msgNoSuggestion
	}
	return nil
}

func suggestPrompt(markdown, userPrompt string) (string, error) {
	spec := llmtool.StructuredPromptSpec{
		Purpose:    "Propose financial metrics worth extracting from the document below.",
		Background: "Each metric becomes a column of a warehouse table, so every proposal must be a value documents of this kind actually state.",
		Document:   markdown,
		OutputFields: []llmtool.PromptField{
			{Name: "suggested_metrics", Type: "array", Required: true,
				Description: "objects with name, type, description; name is a lowercase identifier, type is one of string, int, float, bool"},
			{Name: "reasoning", Type: "string", Required: true,
				Description: "why these metrics fit the document"},
		},
		OutputFormat: `{"suggested_metrics": [{"name": "...", "type": "...", "description": "..."}], "reasoning": "..."}`,
	}
	if strings.TrimSpace(userPrompt) != "" {
		spec.Input = map[string]any{"user_focus": userPrompt}
	}
	spec = llmtool.ApplyPresets(spec, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent())
	return llmtool.Render(spec)
}

// Model output uses looser type vocabulary than the closed tag set.
var typeAliases = map[string]string{
	"number":  metric.TypeFloat,
	"decimal": metric.TypeFloat,
	"double":  metric.TypeFloat,
	"integer": metric.TypeInt,
	"text":    metric.TypeString,
	"str":     metric.TypeString,
	"boolean": metric.TypeBool,
}

// keepValid drops proposals the schema builder would reject: malformed
// names, unknown types, duplicates. Order is preserved.
func keepValid(proposed metric.Set, lg zerolog.Logger) metric.Set {
	kept := make(metric.Set, 0, len(proposed))
	seen := make(map[string]struct{}, len(proposed))
	for _, d := range proposed {
		d.Name = strings.TrimSpace(d.Name)
		d.Type = strings.ToLower(strings.TrimSpace(d.Type))
		if alias, ok := typeAliases[d.Type]; ok {
			d.Type = alias
		}
		if err := (metric.Set{d}).Validate(); err != nil {
			lg.Warn().Err(err).Str("metric", d.Name).Msg("dropping invalid metric proposal")
			continue
		}
		key := strings.ToLower(d.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, d)
	}
	return kept
}
