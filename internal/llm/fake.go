package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeClient returns deterministic payloads for offline runs and tests.
// Scripted responses are served first, in order; once the script is
// exhausted it falls back to a canned payload per pipeline worker.
type FakeClient struct {
	mu     sync.Mutex
	script []string
	calls  int
}

func NewFakeClient(script ...string) *FakeClient {
	return &FakeClient{script: script}
}

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

// Calls reports how many Generate calls were made.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) Generate(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	if len(f.script) > 0 {
		out := f.script[0]
		f.script = f.script[1:]
		f.mu.Unlock()
		return out, nil
	}
	f.mu.Unlock()

	var obj any
	switch WorkerFrom(ctx) {
	case "suggest":
		obj = map[string]any{
			"suggested_metrics": []any{
				map[string]any{"name": "total_assets", "type": "float", "description": "Total assets at period end"},
				map[string]any{"name": "total_liabilities", "type": "float", "description": "Total liabilities at period end"},
				map[string]any{"name": "revenue", "type": "float", "description": "Total revenue for the period"},
				map[string]any{"name": "net_income", "type": "float", "description": "Net income for the period"},
				map[string]any{"name": "fiscal_year", "type": "int", "description": "Fiscal year of the statement"},
			},
			"reasoning": "Core balance sheet and income statement figures present in the document.",
		}
	case "extract":
		obj = map[string]any{
			"total_assets":        203200.00,
			"total_liabilities":   131250.00,
			"owners_equity":       71950.00,
			"cash":                25000.00,
			"revenue":             523456.78,
			"net_income":          188456.78,
			"operating_cash_flow": 150000.00,
			"fiscal_year":         2024,
		}
	case "analysis_sql":
		obj = map[string]any{
			"sql_query": "SELECT DOCUMENT_NAME, TOTAL_ASSETS FROM EXTRACTED_METRICS ORDER BY DOCUMENT_NAME",
		}
	case "analysis_insights":
		obj = map[string]any{
			"sql_query":  "SELECT DOCUMENT_NAME, TOTAL_ASSETS FROM EXTRACTED_METRICS ORDER BY DOCUMENT_NAME",
			"chart_type": "bar",
			"chart_config": map[string]any{
				"title":  "Total assets by document",
				"x_axis": "DOCUMENT_NAME",
				"y_axis": "TOTAL_ASSETS",
				"series": []string{"TOTAL_ASSETS"},
			},
			"summary":  "Total assets are stable across the loaded documents.",
			"insights": []string{"All loaded documents report total assets."},
		}
	default:
		obj = map[string]any{}
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
