package warehouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
)

// Deployment statuses as reported to callers.
const (
	StatusSchemaCreated = "schema_created"
	StatusSuccess       = "success"
	StatusPartial       = "partial"
	StatusFailed        = "failed"
)

// ErrMetricSetChanged is returned when an insert arrives with a metric set
// whose names or order differ from the set the schema was deployed for.
var ErrMetricSetChanged = errors.New("warehouse: metric set changed mid-batch")

// DeploymentResult is the batch-level outcome of schema creation and loads.
type DeploymentResult struct {
	TablesCreated   int      `json:"tables_created"`
	RowsLoaded      int      `json:"rows_loaded"`
	Database        string   `json:"database"`
	Schema          string   `json:"schema"`
	Status          string   `json:"status"`
	FailedDocuments []string `json:"failed_documents,omitempty"`
}

// Deployer owns one batch against one executor: a guarded schema rollout
// followed by per-document loads. Create pins the metric set; inserts are
// refused if the set drifts afterwards.
type Deployer struct {
	exec     Executor
	database string
	schema   string
	lg       zerolog.Logger

	design  schema.Design
	pinned  metric.Set
	created int
	loaded  int
	failed  []string
}

func NewDeployer(exec Executor, database, schemaName string, lg zerolog.Logger) *Deployer {
	return &Deployer{exec: exec, database: database, schema: schemaName, lg: lg}
}

// CreateSchemaIfNotExists ensures the namespace and creates only the design
// tables that are missing, so running it twice reports zero new tables the
// second time. For metric-driven batches set must be the driving metric set;
// star-mode callers pass nil.
func (d *Deployer) CreateSchemaIfNotExists(ctx context.Context, design schema.Design, set metric.Set) (DeploymentResult, error) {
	if set != nil && len(set) == 0 {
		return DeploymentResult{}, fmt.Errorf("warehouse: refusing to deploy an empty metric set")
	}
	if err := d.exec.EnsureNamespace(ctx, d.database, d.schema); err != nil {
		return DeploymentResult{}, fmt.Errorf("warehouse: ensure namespace: %w", err)
	}

	created := 0
	for _, t := range design.Tables {
		exists, err := d.exec.TableExists(ctx, t.Name)
		if err != nil {
			return DeploymentResult{}, fmt.Errorf("warehouse: check table %s: %w", t.Name, err)
		}
		if exists {
			continue
		}
		if err := d.exec.ExecDDL(ctx, design.TableDDL(t)); err != nil {
			return DeploymentResult{}, fmt.Errorf("warehouse: create table %s: %w", t.Name, err)
		}
		created++
	}
	for _, stmt := range design.IndexDDL() {
		if err := d.exec.ExecDDL(ctx, stmt); err != nil {
			return DeploymentResult{}, fmt.Errorf("warehouse: create index: %w", err)
		}
	}

	d.design = design
	d.pinned = set
	d.created = created
	d.lg.Info().
		Int("tables_created", created).
		Str("database", d.database).
		Str("schema", d.schema).
		Msg("schema deployed")

	res := d.Result()
	res.Status = StatusSchemaCreated
	return res, nil
}

// InsertRow loads one document's values as a single parameterized insert.
// Columns are the document identifier plus the upper-cased metric names in
// set order; values resolve case-insensitively and absent or uncoercible
// values load as NULL. An executor failure is recorded against the document
// and does not abort the batch; only contract violations return an error.
func (d *Deployer) InsertRow(ctx context.Context, documentName string, set metric.Set, vals metric.Values) error {
	if d.pinned == nil {
		return fmt.Errorf("warehouse: insert before schema deployment")
	}
	if !d.pinned.Equal(set) {
		return ErrMetricSetChanged
	}

	cols := make([]string, 0, len(set)+1)
	marks := make([]string, 0, len(set)+1)
	args := make([]any, 0, len(set)+1)

	cols = append(cols, schema.DocumentColumn)
	marks = append(marks, d.exec.Placeholder(1))
	args = append(args, documentName)

	for i, def := range set {
		cols = append(cols, strings.ToUpper(def.Name))
		marks = append(marks, d.exec.Placeholder(i+2))
		var arg any
		if raw, ok := vals.Lookup(def.Name); ok {
			if coerced, ok2 := def.Coerce(raw); ok2 {
				arg = coerced
			} else {
				d.lg.Debug().
					Str("document", documentName).
					Str("metric", def.Name).
					Msg("uncoercible value loaded as NULL")
			}
		}
		args = append(args, arg)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		schema.MetricTable, strings.Join(cols, ", "), strings.Join(marks, ", "))
	if _, err := d.exec.Exec(ctx, stmt, args...); err != nil {
		d.failed = append(d.failed, documentName)
		d.lg.Warn().Err(err).Str("document", documentName).Msg("row insert failed")
		return nil
	}
	d.loaded++
	return nil
}

// Result reports the batch outcome so far. Status is success only when every
// attempted load landed.
func (d *Deployer) Result() DeploymentResult {
	status := StatusSuccess
	if len(d.failed) > 0 {
		status = StatusPartial
	}
	return DeploymentResult{
		TablesCreated:   d.created,
		RowsLoaded:      d.loaded,
		Database:        d.database,
		Schema:          d.schema,
		Status:          status,
		FailedDocuments: append([]string(nil), d.failed...),
	}
}
