// Package analysis answers natural-language questions about the loaded
// metrics. The agent discovers what the warehouse currently holds, asks the
// model for a SQL query, runs it, and asks again for insights grounded in
// the returned rows. Every failure mode degrades into a well-formed Response
// so the conversation surface never breaks mid-chat.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/util/jsonutil"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

// CompanyColumn is recognized specially when present: it feeds the sample
// company list and the aggregate-by-company prompt examples.
const CompanyColumn = "COMPANY_NAME"

const historyWindow = 5

// Degraded response texts. These are user-facing chat content, not errors.
const (
	msgHighDemand = "The AI service is currently experiencing high demand. Please wait a moment and try again."
	msgCatchAll   = "An error occurred while processing your request. Please try rephrasing your query or contact support if the issue persists."

	insightRateLimit  = "Rate limit exceeded - please try again in a few seconds"
	insightCheckQuery = "Please verify the query parameters or check data availability"

	errRateLimit = "Rate limit exceeded"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chart describes a visualization of the query rows.
type Chart struct {
	ChartType string           `json:"chart_type"`
	Title     string           `json:"title"`
	XAxis     string           `json:"x_axis"`
	YAxis     string           `json:"y_axis"`
	Series    []string         `json:"series"`
	Data      []map[string]any `json:"data"`
}

// Response is the chat answer. Error is set on degraded answers; Summary and
// Insights are always present so the client can render something.
type Response struct {
	Summary            string   `json:"summary"`
	Insights           []string `json:"insights"`
	Chart              *Chart   `json:"chart,omitempty"`
	Error              string   `json:"error,omitempty"`
	AvailableCompanies []string `json:"available_companies,omitempty"`
	AvailableColumns   []string `json:"available_columns,omitempty"`
}

// Metadata is what the warehouse currently holds, upper-folded for display
// and presence checks regardless of how the backend cases identifiers.
type Metadata struct {
	Tables    []string
	Columns   []string
	Companies []string
}

// Agent answers analysis questions against one warehouse.
type Agent struct {
	llm      llm.LLMClient
	exec     warehouse.Executor
	database string
	schema   string
	lg       zerolog.Logger
}

func New(client llm.LLMClient, exec warehouse.Executor, database, schemaName string, lg zerolog.Logger) *Agent {
	return &Agent{llm: client, exec: exec, database: database, schema: schemaName, lg: lg}
}

// AvailableData reads the warehouse catalog: tables, the metric table's
// columns, and the distinct company names when that column exists. Catalog
// trouble logs and returns what was gathered; the agent still answers with
// whatever context it has.
func (a *Agent) AvailableData(ctx context.Context) Metadata {
	var md Metadata
	tables, err := a.exec.ListTables(ctx)
	if err != nil {
		a.lg.Warn().Err(err).Msg("listing warehouse tables failed")
		return md
	}
	for _, t := range tables {
		md.Tables = append(md.Tables, strings.ToUpper(t))
	}
	if !containsFold(md.Tables, schema.MetricTable) {
		return md
	}

	cols, err := a.exec.ListColumns(ctx, schema.MetricTable)
	if err != nil {
		a.lg.Warn().Err(err).Msg("listing metric table columns failed")
		return md
	}
	for _, c := range cols {
		md.Columns = append(md.Columns, strings.ToUpper(c))
	}
	if !containsFold(md.Columns, CompanyColumn) {
		return md
	}

	stmt := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s IS NOT NULL", CompanyColumn, schema.MetricTable, CompanyColumn)
	rows, err := a.exec.Query(ctx, stmt)
	if err != nil {
		a.lg.Warn().Err(err).Msg("listing companies failed")
		return md
	}
	for _, row := range rows {
		for k, v := range row {
			if strings.EqualFold(k, CompanyColumn) && v != nil {
				md.Companies = append(md.Companies, fmt.Sprint(v))
			}
		}
	}
	sort.Strings(md.Companies)
	return md
}

// Analyze runs the two-step answer: ask for SQL, execute it, then ask for
// insights over the actual rows. The returned error is non-nil only when the
// context ended; everything else comes back as a degraded Response.
func (a *Agent) Analyze(ctx context.Context, userQuery string, history []Message) (Response, error) {
	md := a.AvailableData(ctx)
	sys := a.systemPrompt(md)
	hist := historyBlock(history)

	out, err := a.llm.Generate(llm.WithWorker(ctx, "analysis_sql"), sqlPrompt(sys, hist, userQuery))
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if llm.IsRateLimitExceeded(err) {
			return Response{
				Summary:            msgHighDemand,
				Insights:           []string{insightRateLimit},
				Error:              errRateLimit,
				AvailableCompanies: md.Companies,
				AvailableColumns:   md.Columns,
			}, nil
		}
		return a.catchAll(err, md), nil
	}

	var gen struct {
		SQLQuery string `json:"sql_query"`
	}
	if err := jsonutil.ExtractInto(out, &gen); err != nil {
		return a.catchAll(err, md), nil
	}

	var rows []map[string]any
	if strings.TrimSpace(gen.SQLQuery) != "" {
		rows, err = a.exec.Query(ctx, gen.SQLQuery)
		if err != nil {
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			a.lg.Warn().Err(err).Str("sql", gen.SQLQuery).Msg("analysis query failed")
			return Response{
				Summary:            "Unable to retrieve data: " + err.Error(),
				Insights:           []string{insightCheckQuery},
				Error:              err.Error(),
				AvailableCompanies: md.Companies,
				AvailableColumns:   md.Columns,
			}, nil
		}
	}

	out, err = a.llm.Generate(llm.WithWorker(ctx, "analysis_insights"), insightPrompt(sys, hist, userQuery, gen.SQLQuery, rows))
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		if llm.IsRateLimitExceeded(err) {
			return Response{
				Summary:  msgHighDemand,
				Insights: []string{insightRateLimit},
				Error:    errRateLimit,
			}, nil
		}
		return a.catchAll(err, md), nil
	}

	var ans struct {
		ChartType   string          `json:"chart_type"`
		ChartConfig json.RawMessage `json:"chart_config"`
		Summary     string          `json:"summary"`
		Insights    []string        `json:"insights"`
	}
	if err := jsonutil.ExtractInto(out, &ans); err != nil {
		return a.catchAll(err, md), nil
	}

	resp := Response{
		Summary:            ans.Summary,
		Insights:           ans.Insights,
		AvailableCompanies: md.Companies,
		AvailableColumns:   md.Columns,
	}
	if resp.Summary == "" {
		resp.Summary = "Analysis complete"
	}

	// A chart needs both a declared type and rows to draw.
	ct := strings.ToLower(strings.TrimSpace(ans.ChartType))
	if ct != "" && ct != "null" && len(rows) > 0 {
		var cfg struct {
			Title  string   `json:"title"`
			XAxis  string   `json:"x_axis"`
			YAxis  string   `json:"y_axis"`
			Series []string `json:"series"`
		}
		// Best effort: a malformed chart_config loses the chart labels, not
		// the whole analysis.
		_ = json.Unmarshal(ans.ChartConfig, &cfg)
		if cfg.Title == "" {
			cfg.Title = "Analysis Results"
		}
		resp.Chart = &Chart{
			ChartType: ct,
			Title:     cfg.Title,
			XAxis:     cfg.XAxis,
			YAxis:     cfg.YAxis,
			Series:    cfg.Series,
			Data:      rows,
		}
	}
	return resp, nil
}

func (a *Agent) catchAll(err error, md Metadata) Response {
	a.lg.Error().Err(err).Msg("analysis failed")
	return Response{
		Summary:            msgCatchAll,
		Insights:           []string{"Error details: " + err.Error()},
		Error:              err.Error(),
		AvailableCompanies: md.Companies,
		AvailableColumns:   md.Columns,
	}
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}

func historyBlock(history []Message) string {
	if len(history) == 0 {
		return ""
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	b.WriteString("\n\nConversation History:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}
