package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

type scriptClient struct {
	fn      func(ctx context.Context, prompt string) (string, error)
	prompts []string
}

func (c *scriptClient) Name() string { return "script" }
func (c *scriptClient) Close() error { return nil }

func (c *scriptClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.fn(ctx, prompt)
}

// loadedExec returns a memory warehouse holding the metric table with
// company, assets and liabilities columns.
func loadedExec(t *testing.T) *warehouse.MemoryExecutor {
	t.Helper()
	mem := warehouse.NewMemory()
	design, err := schema.BuildMetricTable(metric.Set{
		{Name: "company_name", Type: metric.TypeString},
		{Name: "total_assets", Type: metric.TypeFloat},
		{Name: "total_liabilities", Type: metric.TypeFloat},
	})
	require.NoError(t, err)
	require.NoError(t, mem.ExecDDL(context.Background(), design.TableDDL(design.Tables[0])))
	return mem
}

func TestAnalyzeTwoStepHappyPath(t *testing.T) {
	mem := loadedExec(t)
	dataRows := []map[string]any{
		{"COMPANY_NAME": "Alpha Corp", "TOTAL_ASSETS": 100.0},
		{"COMPANY_NAME": "Beta LLC", "TOTAL_ASSETS": 200.0},
	}
	mem.QueryFn = func(stmt string, args []any) ([]map[string]any, error) {
		if strings.Contains(stmt, "DISTINCT") {
			return []map[string]any{
				{"COMPANY_NAME": "Beta LLC"},
				{"COMPANY_NAME": "Alpha Corp"},
			}, nil
		}
		return dataRows, nil
	}

	client := &scriptClient{fn: func(ctx context.Context, prompt string) (string, error) {
		switch llm.WorkerFrom(ctx) {
		case "analysis_sql":
			return `{"sql_query": "SELECT COMPANY_NAME, SUM(TOTAL_ASSETS) as TOTAL_ASSETS FROM EXTRACTED_METRICS GROUP BY COMPANY_NAME"}`, nil
		case "analysis_insights":
			return "```json\n" + `{
				"sql_query": "SELECT ...",
				"chart_type": "bar",
				"chart_config": {"title": "Assets by company", "x_axis": "COMPANY_NAME", "y_axis": "TOTAL_ASSETS", "series": ["TOTAL_ASSETS"]},
				"summary": "Beta LLC holds twice the assets of Alpha Corp.",
				"insights": ["Beta LLC reports 200.00 in total assets versus 100.00 for Alpha Corp."]
			}` + "\n```", nil
		}
		return "", fmt.Errorf("unexpected worker %s", llm.WorkerFrom(ctx))
	}}

	agent := New(client, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	resp, err := agent.Analyze(context.Background(), "compare company assets", nil)
	require.NoError(t, err)

	assert.Equal(t, "Beta LLC holds twice the assets of Alpha Corp.", resp.Summary)
	require.Len(t, resp.Insights, 1)
	assert.Empty(t, resp.Error)
	assert.Equal(t, []string{"Alpha Corp", "Beta LLC"}, resp.AvailableCompanies)
	assert.Contains(t, resp.AvailableColumns, "TOTAL_ASSETS")
	assert.Contains(t, resp.AvailableColumns, "DOCUMENT_NAME")

	require.NotNil(t, resp.Chart)
	assert.Equal(t, "bar", resp.Chart.ChartType)
	assert.Equal(t, "Assets by company", resp.Chart.Title)
	assert.Equal(t, dataRows, resp.Chart.Data)

	require.Len(t, client.prompts, 2)
	assert.Contains(t, client.prompts[0], "AVAILABLE COLUMNS IN EXTRACTED_METRICS")
	assert.Contains(t, client.prompts[0], "NET_WORTH")
	assert.Contains(t, client.prompts[0], "User Query: compare company assets")
	assert.Contains(t, client.prompts[1], "QUERY RESULTS (ACTUAL DATA)")
	assert.Contains(t, client.prompts[1], "Alpha Corp")
}

func TestAnalyzeRateLimitDegrades(t *testing.T) {
	mem := loadedExec(t)
	client := &scriptClient{fn: func(context.Context, string) (string, error) {
		return "", &llm.RateLimitExceededError{Attempts: 3, Err: errors.New("429")}
	}}

	agent := New(client, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	resp, err := agent.Analyze(context.Background(), "how are my companies doing", nil)
	require.NoError(t, err)

	assert.Equal(t, msgHighDemand, resp.Summary)
	assert.Equal(t, []string{insightRateLimit}, resp.Insights)
	assert.Equal(t, errRateLimit, resp.Error)
	assert.Contains(t, resp.AvailableColumns, "TOTAL_ASSETS")
	assert.Nil(t, resp.Chart)
}

func TestAnalyzeQueryFailureDegrades(t *testing.T) {
	mem := loadedExec(t)
	mem.QueryFn = func(stmt string, args []any) ([]map[string]any, error) {
		if strings.Contains(stmt, "DISTINCT") {
			return nil, nil
		}
		return nil, errors.New("relation does not exist")
	}
	client := &scriptClient{fn: func(ctx context.Context, prompt string) (string, error) {
		return `{"sql_query": "SELECT MISSING FROM NOWHERE"}`, nil
	}}

	agent := New(client, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	resp, err := agent.Analyze(context.Background(), "show assets", nil)
	require.NoError(t, err)

	assert.Equal(t, "Unable to retrieve data: relation does not exist", resp.Summary)
	assert.Equal(t, []string{insightCheckQuery}, resp.Insights)
	assert.Equal(t, "relation does not exist", resp.Error)
	require.Len(t, client.prompts, 1, "insight step must not run after a failed query")
}

func TestAnalyzeUnusableModelOutput(t *testing.T) {
	mem := loadedExec(t)
	client := &scriptClient{fn: func(context.Context, string) (string, error) {
		return "I would rather chat about the weather.", nil
	}}

	agent := New(client, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	resp, err := agent.Analyze(context.Background(), "show assets", nil)
	require.NoError(t, err)

	assert.Equal(t, msgCatchAll, resp.Summary)
	require.Len(t, resp.Insights, 1)
	assert.True(t, strings.HasPrefix(resp.Insights[0], "Error details: "))
	assert.NotEmpty(t, resp.Error)
}

func TestAnalyzeGreetingSkipsQuery(t *testing.T) {
	mem := loadedExec(t)
	queried := false
	mem.QueryFn = func(stmt string, args []any) ([]map[string]any, error) {
		if !strings.Contains(stmt, "DISTINCT") {
			queried = true
		}
		return nil, nil
	}
	client := &scriptClient{fn: func(ctx context.Context, prompt string) (string, error) {
		if llm.WorkerFrom(ctx) == "analysis_sql" {
			return `{"sql_query": null}`, nil
		}
		return `{"sql_query": null, "chart_type": "null", "summary": "Hello! Ask me about company financials.", "insights": []}`, nil
	}}

	agent := New(client, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	resp, err := agent.Analyze(context.Background(), "hi there", nil)
	require.NoError(t, err)

	assert.False(t, queried, "greeting must not hit the warehouse")
	assert.Equal(t, "Hello! Ask me about company financials.", resp.Summary)
	assert.Nil(t, resp.Chart, "no chart without rows")
	assert.Empty(t, resp.Error)
}

func TestAvailableDataWithoutMetricTable(t *testing.T) {
	mem := warehouse.NewMemory()
	require.NoError(t, mem.ExecDDL(context.Background(), "CREATE TABLE IF NOT EXISTS notes (\n  ID INTEGER\n);"))

	agent := New(nil, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	md := agent.AvailableData(context.Background())

	assert.Equal(t, []string{"NOTES"}, md.Tables)
	assert.Empty(t, md.Columns)
	assert.Empty(t, md.Companies)
}

func TestAvailableDataSkipsCompaniesWithoutColumn(t *testing.T) {
	mem := warehouse.NewMemory()
	design, err := schema.BuildMetricTable(metric.Set{{Name: "total_assets", Type: metric.TypeFloat}})
	require.NoError(t, err)
	require.NoError(t, mem.ExecDDL(context.Background(), design.TableDDL(design.Tables[0])))
	mem.QueryFn = func(stmt string, args []any) ([]map[string]any, error) {
		t.Fatalf("unexpected query %q", stmt)
		return nil, nil
	}

	agent := New(nil, mem, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())
	md := agent.AvailableData(context.Background())

	assert.Contains(t, md.Columns, "TOTAL_ASSETS")
	assert.NotContains(t, md.Columns, CompanyColumn)
	assert.Empty(t, md.Companies)
}

func TestSystemPromptAdaptsToCatalog(t *testing.T) {
	agent := New(nil, nil, "FINANCIAL_DATA", "PUBLIC", zerolog.Nop())

	bare := agent.systemPrompt(Metadata{})
	assert.Contains(t, bare, "AVAILABLE TABLES: None")
	assert.NotContains(t, bare, "EXAMPLE QUERIES")

	companies := make([]string, 25)
	for i := range companies {
		companies[i] = fmt.Sprintf("Company %02d", i)
	}
	full := agent.systemPrompt(Metadata{
		Tables:    []string{"EXTRACTED_METRICS"},
		Columns:   []string{"DOCUMENT_NAME", "COMPANY_NAME", "TOTAL_ASSETS", "TOTAL_LIABILITIES"},
		Companies: companies,
	})
	assert.Contains(t, full, "1. DOCUMENT_NAME")
	assert.Contains(t, full, "SAMPLE COMPANIES (25 total)")
	assert.Contains(t, full, "Company 19...")
	assert.NotContains(t, full, "Company 20,")
	assert.Contains(t, full, "NET_WORTH DESC")

	companyOnly := agent.systemPrompt(Metadata{
		Tables:  []string{"EXTRACTED_METRICS"},
		Columns: []string{"DOCUMENT_NAME", "COMPANY_NAME", "REVENUE"},
	})
	assert.Contains(t, companyOnly, "SUM(REVENUE) as REVENUE")
	assert.NotContains(t, companyOnly, "NET_WORTH")
}

func TestHistoryWindowKeepsLastFive(t *testing.T) {
	var history []Message
	for i := 1; i <= 7; i++ {
		history = append(history, Message{Role: "user", Content: fmt.Sprintf("question %d", i)})
	}
	block := historyBlock(history)

	assert.Contains(t, block, "Conversation History:")
	assert.Contains(t, block, "user: question 3")
	assert.Contains(t, block, "user: question 7")
	assert.NotContains(t, block, "question 2")
	assert.Empty(t, historyBlock(nil))
}
