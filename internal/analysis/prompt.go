package analysis

import (
	"fmt"
	"strings"

	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/util/jsonutil"
)

const sampleCompanyLimit = 20

const promptIntro = `You are a financial data analysis assistant for an investment dashboard. You analyze company financial data and provide actionable insights.`

const promptCore = `CORE PRINCIPLES:

1. Data Querying:
   - Query the EXTRACTED_METRICS table directly, without database or schema qualifiers
   - Always filter out null values in key columns
   - Group by company name and aggregate metrics using SUM() to handle multiple records per company
   - Default to showing all companies unless the user specifies a limit or specific companies
   - Order results by the most relevant metric for the query (typically net worth or total assets descending)

2. Query Construction:
   - Only use columns that exist in the schema
   - Keep to portable ANSI SQL (SELECT, WHERE, GROUP BY, ORDER BY, standard aggregates)
   - When calculating derived metrics (like net worth), use arithmetic on aggregated values
   - Include WHERE clauses only when filtering is explicitly needed

3. Response Handling for Non-Analytical Queries:
   - For greetings or casual messages: respond with a friendly greeting and suggest what kind of analysis you can help with, and set sql_query to null
   - For unclear queries: ask clarifying questions about what specific financial metrics or companies they want to analyze
   - For queries outside your scope: politely redirect to financial data analysis topics`

const promptContract = `RESPONSE STRUCTURE:

You must respond with valid JSON containing:

{
  "sql_query": "Your SQL query here (or null if no query needed)",
  "chart_type": "bar|line|table|null",
  "chart_config": {
    "title": "Descriptive title for the visualization",
    "x_axis": "Column name for x-axis",
    "y_axis": "Column name or metric for y-axis",
    "series": ["List of metrics to display"]
  },
  "summary": "A concise 2-3 sentence natural language summary of what the data reveals",
  "insights": [
    "Detailed observation about the data with specific numbers and context",
    "Another insight comparing metrics or highlighting trends"
  ]
}

INSIGHT GENERATION RULES:

- Write in natural, professional language as if briefing a financial analyst
- Always include specific numbers, percentages, and calculated ratios in your insights
- Use plain text only, with no markdown formatting or special characters for emphasis
- Mention every company returned in the query results with their key metrics
- Calculate and reference financial health indicators like asset-to-liability ratios or relative performance
- Avoid generic statements; be specific about what the data shows and what it means

VISUALIZATION GUIDELINES:

- Bar charts for comparing companies on single metrics
- Grouped bar charts for multi-metric comparisons
- Line charts for trends over time when temporal data exists
- Tables for detailed breakdowns with many columns
- Always include a clear, descriptive title and match the configuration to the returned data

QUALITY STANDARDS:

- Be precise with numbers and use actual values from the data
- Maintain a professional, analytical tone
- Provide actionable intelligence, not just data summaries
- Handle edge cases gracefully (empty results, single company, and so on)`

// systemPrompt assembles the instruction block for both model calls: what
// the warehouse holds right now, the standing principles, and example
// queries keyed to the columns that actually exist.
func (a *Agent) systemPrompt(md Metadata) string {
	var b strings.Builder
	b.WriteString(promptIntro)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "DATABASE: %s\nSCHEMA: %s\n\n", a.database, a.schema)

	tables := "None"
	if len(md.Tables) > 0 {
		tables = strings.Join(md.Tables, ", ")
	}
	fmt.Fprintf(&b, "AVAILABLE TABLES: %s\n\n", tables)

	fmt.Fprintf(&b, "AVAILABLE COLUMNS IN %s:\n", schema.MetricTable)
	for i, c := range md.Columns {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}

	sample := md.Companies
	suffix := ""
	if len(sample) > sampleCompanyLimit {
		sample = sample[:sampleCompanyLimit]
		suffix = "..."
	}
	fmt.Fprintf(&b, "\nSAMPLE COMPANIES (%d total):\n%s%s\n\n", len(md.Companies), strings.Join(sample, ", "), suffix)

	b.WriteString(promptCore)
	b.WriteString("\n\n")
	if ex := exampleQueries(md.Columns); ex != "" {
		b.WriteString(ex)
		b.WriteString("\n\n")
	}
	b.WriteString(promptContract)
	return b.String()
}

// exampleQueries renders query examples for the columns that exist, so the
// model never sees an example referencing a column it cannot use.
func exampleQueries(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	hasCompany := containsFold(columns, CompanyColumn)
	hasAssets := containsFold(columns, "TOTAL_ASSETS")
	hasLiabilities := containsFold(columns, "TOTAL_LIABILITIES")

	var b strings.Builder
	b.WriteString("EXAMPLE QUERIES:\n")
	switch {
	case hasCompany && hasAssets && hasLiabilities:
		fmt.Fprintf(&b, `
`+"```sql"+`
-- Retrieve all companies with aggregated financial data
SELECT
    COMPANY_NAME,
    SUM(TOTAL_ASSETS) as TOTAL_ASSETS,
    SUM(TOTAL_LIABILITIES) as TOTAL_LIABILITIES,
    SUM(TOTAL_ASSETS) - SUM(TOTAL_LIABILITIES) as NET_WORTH
FROM %[1]s
WHERE COMPANY_NAME IS NOT NULL
GROUP BY COMPANY_NAME
ORDER BY NET_WORTH DESC;
`+"```"+`

`+"```sql"+`
-- Compare specific companies
SELECT
    COMPANY_NAME,
    SUM(TOTAL_ASSETS) as TOTAL_ASSETS,
    SUM(TOTAL_LIABILITIES) as TOTAL_LIABILITIES
FROM %[1]s
WHERE COMPANY_NAME IN ('Company A', 'Company B')
GROUP BY COMPANY_NAME;
`+"```", schema.MetricTable)
	case hasCompany:
		cols := make([]string, 0, 5)
		for _, c := range columns {
			if len(cols) == 5 {
				break
			}
			if strings.EqualFold(c, CompanyColumn) {
				cols = append(cols, c)
			} else {
				cols = append(cols, fmt.Sprintf("SUM(%[1]s) as %[1]s", c))
			}
		}
		fmt.Fprintf(&b, `
`+"```sql"+`
-- Retrieve available company data
SELECT
    %s
FROM %s
WHERE COMPANY_NAME IS NOT NULL
GROUP BY COMPANY_NAME
ORDER BY COMPANY_NAME;
`+"```", strings.Join(cols, ",\n    "), schema.MetricTable)
	default:
		return ""
	}
	return b.String()
}

// sqlPrompt is the step-one request: generate only the query.
func sqlPrompt(sys, hist, userQuery string) string {
	return fmt.Sprintf(`%s%s

User Query: %s

First, generate ONLY the SQL query needed to answer this question. Respond with a JSON object containing just the sql_query field:
{
  "sql_query": "Your SQL query here (or null if no query is needed)"
}`, sys, hist, userQuery)
}

// insightPrompt is the step-two request: analyze the rows the query really
// returned.
func insightPrompt(sys, hist, userQuery, sqlQuery string, rows []map[string]any) string {
	if rows == nil {
		rows = []map[string]any{}
	}
	rowsJSON, err := jsonutil.MarshalNoEscapeIndent(rows, "", "  ")
	if err != nil {
		rowsJSON = []byte("[]")
	}
	return fmt.Sprintf(`%s%s

User Query: %s

SQL Query Executed:
%s

QUERY RESULTS (ACTUAL DATA):
%s

Now generate a complete analysis response using the ACTUAL DATA above. Your insights MUST include the specific numbers from the query results. Never use placeholders; use the real values you see in the query results.

Respond with a JSON object containing sql_query, chart_type, chart_config, summary, and insights as specified.`, sys, hist, userQuery, sqlQuery, rowsJSON)
}
