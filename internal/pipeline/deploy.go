package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

// BuildSchema designs the metric table for the confirmed set.
type BuildSchema struct{}

func (*BuildSchema) Name() string { return "build_schema" }

func (*BuildSchema) Run(ctx context.Context, s *State) error {
	design, err := schema.BuildMetricTable(s.SelectedMetrics)
	if err != nil {
		return err
	}
	s.Schema = &design
	return nil
}

// DeploySchema rolls the design out to the warehouse.
type DeploySchema struct {
	Deployer *warehouse.Deployer
}

func (*DeploySchema) Name() string { return "deploy_schema" }

func (n *DeploySchema) Run(ctx context.Context, s *State) error {
	res, err := n.Deployer.CreateSchemaIfNotExists(ctx, *s.Schema, s.SelectedMetrics)
	if err != nil {
		return &ServiceUnavailableError{Service: "warehouse", Err: err}
	}
	s.DeploymentResult = &res
	return nil
}

// InsertRows loads one row per document that produced values. Documents with
// empty values were already degraded upstream and are skipped, not failed.
type InsertRows struct {
	Deployer *warehouse.Deployer
	Log      zerolog.Logger
}

func (*InsertRows) Name() string { return "insert_rows" }

func (n *InsertRows) Run(ctx context.Context, s *State) error {
	for _, key := range s.FilePaths {
		vals := s.ExtractedMetrics[key]
		if len(vals) == 0 {
			n.Log.Warn().Str("document", key).Msg("no extracted values, row skipped")
			continue
		}
		if err := n.Deployer.InsertRow(ctx, key, s.SelectedMetrics, vals); err != nil {
			return err
		}
	}
	res := n.Deployer.Result()
	s.DeploymentResult = &res
	return nil
}
