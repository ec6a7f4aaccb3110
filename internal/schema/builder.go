package schema

import (
	"fmt"
	"strings"

	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
)

// Metric-table naming shared with the deployer and the analysis agent.
const (
	MetricTable          = "EXTRACTED_METRICS"
	DocumentColumn       = "DOCUMENT_NAME"
	ExtractionDateColumn = "EXTRACTION_DATE"
)

// storageTypes is the closed mapping from metric type tags to column types.
// Set validation rejects unknown tags before they reach this table.
var storageTypes = map[string]string{
	metric.TypeString: "VARCHAR(1000)",
	metric.TypeInt:    "INTEGER",
	metric.TypeFloat:  "NUMERIC(18,2)",
	metric.TypeBool:   "BOOLEAN",
}

// BuildMetricTable designs the single wide table for a metric set: the
// document identifier and load timestamp lead, then one nullable column per
// metric, upper-cased, in the set's order.
func BuildMetricTable(set metric.Set) (Design, error) {
	if len(set) == 0 {
		return Design{}, fmt.Errorf("schema: empty metric set")
	}
	if err := set.Validate(); err != nil {
		return Design{}, fmt.Errorf("schema: %w", err)
	}

	cols := make([]Column, 0, len(set)+2)
	cols = append(cols,
		Column{Name: DocumentColumn, Type: "VARCHAR(500)", Constraints: "NOT NULL"},
		Column{Name: ExtractionDateColumn, Type: "TIMESTAMP", Constraints: "DEFAULT CURRENT_TIMESTAMP"},
	)
	for _, d := range set {
		cols = append(cols, Column{
			Name: strings.ToUpper(d.Name),
			Type: storageTypes[d.Type],
		})
	}
	return Design{Tables: []Table{{Name: MetricTable, Columns: cols}}}, nil
}

// BuildStarSchema designs the fixed full-statement star schema: a time
// dimension, an account dimension, and a fact table referencing both. Used
// when no metric set drives the batch; rows are never loaded into it by the
// pipeline.
func BuildStarSchema() Design {
	return Design{
		Tables: []Table{
			{
				Name: "dim_time_period",
				Columns: []Column{
					{Name: "period_id", Type: "INTEGER", Constraints: "PRIMARY KEY"},
					{Name: "fiscal_year", Type: "INTEGER", Constraints: "NOT NULL"},
					{Name: "fiscal_quarter", Type: "INTEGER"},
					{Name: "period_name", Type: "VARCHAR(50)", Constraints: "NOT NULL"},
				},
			},
			{
				Name: "dim_account",
				Columns: []Column{
					{Name: "account_id", Type: "INTEGER", Constraints: "PRIMARY KEY"},
					{Name: "account_name", Type: "VARCHAR(200)", Constraints: "NOT NULL"},
					{Name: "account_type", Type: "VARCHAR(50)", Constraints: "NOT NULL"},
				},
			},
			{
				Name: "fact_financial_data",
				Columns: []Column{
					{Name: "fact_id", Type: "INTEGER", Constraints: "PRIMARY KEY"},
					{Name: "period_id", Type: "INTEGER", Constraints: "NOT NULL"},
					{Name: "account_id", Type: "INTEGER", Constraints: "NOT NULL"},
					{Name: "amount", Type: "NUMERIC(18,2)", Constraints: "NOT NULL"},
					{Name: "confidence_score", Type: "NUMERIC(5,4)"},
					{Name: "created_at", Type: "TIMESTAMP", Constraints: "DEFAULT CURRENT_TIMESTAMP"},
				},
			},
		},
		Relationships: []Relationship{
			{FromTable: "fact_financial_data", FromColumn: "period_id", ToTable: "dim_time_period", ToColumn: "period_id"},
			{FromTable: "fact_financial_data", FromColumn: "account_id", ToTable: "dim_account", ToColumn: "account_id"},
		},
		Indexes: []Index{
			{Table: "dim_time_period", Columns: []string{"fiscal_year"}},
			{Table: "dim_account", Columns: []string{"account_type"}},
		},
		Clustering: []Clustering{
			{Table: "fact_financial_data", Keys: []string{"period_id", "account_id"}},
		},
	}
}
