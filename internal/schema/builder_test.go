package schema

import (
	"testing"

	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/tester"
)

func demoSet() metric.Set {
	return metric.Set{
		{Name: "company_name", Type: metric.TypeString},
		{Name: "total_assets", Type: metric.TypeFloat},
		{Name: "fiscal_year", Type: metric.TypeInt},
	}
}

func TestBuildMetricTableColumnOrder(t *testing.T) {
	design, err := BuildMetricTable(demoSet())
	tester.NoErr(t, err)
	tester.Eq(t, len(design.Tables), 1)

	table := design.Tables[0]
	tester.Eq(t, table.Name, MetricTable)

	names := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		names[i] = c.Name
	}
	tester.Eq(t, names, []string{
		"DOCUMENT_NAME", "EXTRACTION_DATE",
		"COMPANY_NAME", "TOTAL_ASSETS", "FISCAL_YEAR",
	})
}

func TestBuildMetricTableTypeMapping(t *testing.T) {
	design, err := BuildMetricTable(metric.Set{
		{Name: "company_name", Type: metric.TypeString},
		{Name: "fiscal_year", Type: metric.TypeInt},
		{Name: "total_assets", Type: metric.TypeFloat},
		{Name: "is_audited", Type: metric.TypeBool},
	})
	tester.NoErr(t, err)

	byName := map[string]string{}
	for _, c := range design.Tables[0].Columns {
		byName[c.Name] = c.Type
	}
	tester.Eq(t, byName["COMPANY_NAME"], "VARCHAR(1000)")
	tester.Eq(t, byName["FISCAL_YEAR"], "INTEGER")
	tester.Eq(t, byName["TOTAL_ASSETS"], "NUMERIC(18,2)")
	tester.Eq(t, byName["IS_AUDITED"], "BOOLEAN")
}

func TestBuildMetricTableDDLBytes(t *testing.T) {
	want := "CREATE TABLE IF NOT EXISTS EXTRACTED_METRICS (\n" +
		"  DOCUMENT_NAME VARCHAR(500) NOT NULL,\n" +
		"  EXTRACTION_DATE TIMESTAMP DEFAULT CURRENT_TIMESTAMP,\n" +
		"  COMPANY_NAME VARCHAR(1000),\n" +
		"  TOTAL_ASSETS NUMERIC(18,2),\n" +
		"  FISCAL_YEAR INTEGER\n" +
		");"

	first, err := BuildMetricTable(demoSet())
	tester.NoErr(t, err)
	second, err := BuildMetricTable(demoSet())
	tester.NoErr(t, err)

	tester.Eq(t, first.DDL(), want)
	tester.Eq(t, second.DDL(), first.DDL())
}

func TestBuildMetricTableRejectsEmptyAndInvalid(t *testing.T) {
	_, err := BuildMetricTable(nil)
	tester.Err(t, err)

	_, err = BuildMetricTable(metric.Set{{Name: "x", Type: "blob"}})
	tester.Err(t, err)
}

func TestStarSchemaShape(t *testing.T) {
	design := BuildStarSchema()

	names := make([]string, len(design.Tables))
	for i, tbl := range design.Tables {
		names[i] = tbl.Name
	}
	tester.Eq(t, names, []string{"dim_time_period", "dim_account", "fact_financial_data"})

	tester.Eq(t, len(design.Relationships), 2)
	for _, r := range design.Relationships {
		tester.Eq(t, r.FromTable, "fact_financial_data")
	}

	factDDL := design.TableDDL(design.Tables[2])
	tester.Contains(t, factDDL, "FOREIGN KEY (period_id) REFERENCES dim_time_period(period_id)")
	tester.Contains(t, factDDL, "FOREIGN KEY (account_id) REFERENCES dim_account(account_id)")
}

func TestStarSchemaClusteringIndex(t *testing.T) {
	design := BuildStarSchema()
	idx := design.IndexDDL()
	tester.Eq(t, len(idx), 3)
	tester.Eq(t, idx[2], "CREATE INDEX IF NOT EXISTS idx_fact_financial_data_period_id_account_id ON fact_financial_data (period_id, account_id);")
}

func TestStarSchemaDDLDeterministic(t *testing.T) {
	tester.Eq(t, BuildStarSchema().DDL(), BuildStarSchema().DDL())
}
