package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/llmtool"
	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/util/jsonutil"
	"github.com/dharaneesh71/Financeflow-ai/internal/utils"
)

// ExtractMetrics parses each document and extracts the confirmed metric set
// from it. A document that cannot be parsed or whose extraction degrades is
// recorded with empty values and the batch continues; only a dependency
// being down halts the node.
type ExtractMetrics struct {
	LLM    llm.LLMClient
	Docs   docstore.Store
	Parser docai.Parser
	Log    zerolog.Logger
}

func (n *ExtractMetrics) Name() string { return "extract_metrics" }

func (n *ExtractMetrics) Run(ctx context.Context, s *State) error {
	byDoc := make(map[string]metric.Values, len(s.FilePaths))
	paths := make([]string, 0, len(s.FilePaths))
	for _, key := range s.FilePaths {
		vals, mdKey, err := n.extractOne(ctx, s.SelectedMetrics, key)
		if err != nil {
			return err
		}
		if mdKey != "" {
			paths = append(paths, mdKey)
		}
		byDoc[key] = vals
	}
	s.MarkdownPaths = paths
	s.ExtractedMetrics = byDoc
	return nil
}

// extractOne returns the document's values and its markdown key. Degraded
// documents come back with empty values and no error; mdKey is empty when
// the document never parsed.
func (n *ExtractMetrics) extractOne(ctx context.Context, set metric.Set, key string) (metric.Values, string, error) {
	mdKey, md, err := parseAndStage(ctx, n.Docs, n.Parser, key)
	if err != nil {
		if docFailure(err) {
			n.Log.Warn().Err(err).Str("document", key).Msg("document not parseable, no values extracted")
			return metric.Values{}, "", nil
		}
		return nil, "", err
	}

	prompt, err := extractPrompt(utils.Preview(utils.MarkDownClean(md), utils.DefaultPreviewLimit), set)
	if err != nil {
		return nil, "", err
	}
	out, err := n.LLM.Generate(llm.WithWorker(ctx, "extract"), prompt)
	if err != nil {
		if llm.IsRateLimitExceeded(err) {
			n.Log.Warn().Err(err).Str("document", key).Msg("extraction rate limited, no values extracted")
			return metric.Values{}, mdKey, nil
		}
		return nil, "", &ServiceUnavailableError{Service: "language model", Err: err}
	}

	var vals metric.Values
	if err := jsonutil.ExtractInto(out, &vals); err != nil {
		n.Log.Warn().Err(err).Str("document", key).Msg("extraction output unparseable, no values extracted")
		return metric.Values{}, mdKey, nil
	}
	n.Log.Debug().Str("document", key).Int("values", len(vals)).Msg("metrics extracted")
	return vals, mdKey, nil
}

func extractPrompt(markdown string, set metric.Set) (string, error) {
	if len(set) == 0 {
		return "", fmt.Errorf("empty metric set")
	}
	fields := make([]llmtool.PromptField, len(set))
	for i, d := range set {
		fields[i] = llmtool.PromptField{Name: d.Name, Type: d.Type, Description: d.Description}
	}
	spec := llmtool.StructuredPromptSpec{
		Purpose:      "Extract the requested metric values from the financial document below.",
		Document:     markdown,
		OutputFields: fields,
		Constraints: []string{
			"Emit numbers as bare JSON numbers without currency symbols, thousands separators, or percent signs.",
		},
		OutputFormat: "A single JSON object keyed by metric name.",
	}
	spec = llmtool.ApplyPresets(spec, llmtool.PresetStrictJSON(), llmtool.PresetNoInvent(), llmtool.PresetCautious())
	return llmtool.Render(spec)
}
