package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/docai"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/llm"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

// ServiceUnavailableError halts a batch because a dependency is down, as
// opposed to one document being unusable. Per-document failures degrade that
// document and the batch continues.
type ServiceUnavailableError struct {
	Service string
	Err     error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// Node is one vertex of the processing graph. Run reads the fields earlier
// nodes wrote on the state and adds its own.
type Node interface {
	Name() string
	Run(ctx context.Context, s *State) error
}

// Deps carries the services a machine wires into its nodes.
type Deps struct {
	LLM    llm.LLMClient
	Docs   docstore.Store
	Parser docai.Parser
	Exec   warehouse.Executor
	Log    zerolog.Logger
}

// Graph wiring: the entry node per step and each node's successor. The
// suggest branch ends after the proposal; the process branch runs through
// the warehouse load.
const done = ""

var (
	entry = map[Step]string{
		StepSuggest: "parse_documents",
		StepProcess: "extract_metrics",
	}
	successor = map[string]string{
		"parse_documents": "suggest_metrics",
		"suggest_metrics": done,
		"extract_metrics": "build_schema",
		"build_schema":    "deploy_schema",
		"deploy_schema":   "insert_rows",
		"insert_rows":     done,
	}
)

// Machine walks the graph for document batches. One Machine serves many
// runs; the nodes themselves are built fresh per run.
type Machine struct {
	deps Deps
}

func NewMachine(deps Deps) *Machine {
	return &Machine{deps: deps}
}

// nodesFor wires the node set for one run. The deployer pins its metric set
// for the batch, so it must not outlive the run.
func (m *Machine) nodesFor(s *State) map[string]Node {
	dep := warehouse.NewDeployer(m.deps.Exec, s.DatabaseName, s.SchemaName, m.deps.Log)
	return map[string]Node{
		"parse_documents": &ParseDocuments{Docs: m.deps.Docs, Parser: m.deps.Parser, Log: m.deps.Log},
		"suggest_metrics": &SuggestMetrics{LLM: m.deps.LLM, Docs: m.deps.Docs, Log: m.deps.Log},
		"extract_metrics": &ExtractMetrics{LLM: m.deps.LLM, Docs: m.deps.Docs, Parser: m.deps.Parser, Log: m.deps.Log},
		"build_schema":    &BuildSchema{},
		"deploy_schema":   &DeploySchema{Deployer: dep},
		"insert_rows":     &InsertRows{Deployer: dep, Log: m.deps.Log},
	}
}

// Run walks the graph from the state's entry node until the branch ends or a
// node halts the batch. A halt records the error on the state and emits an
// error event; the state is returned either way so callers can report what
// completed before the halt.
func (m *Machine) Run(ctx context.Context, s *State) (*State, error) {
	emit := EmitterFrom(ctx)
	if err := s.validate(); err != nil {
		s.Error = err.Error()
		emit.Emit(Event{Type: EventError, Message: err.Error()})
		return s, err
	}

	nodes := m.nodesFor(s)
	for name := entry[s.CurrentStep]; name != done; name = successor[name] {
		if err := ctx.Err(); err != nil {
			s.Error = err.Error()
			emit.Emit(Event{Type: EventError, Step: name, Message: err.Error()})
			return s, err
		}
		emit.Emit(Event{Type: EventStep, Step: name})
		m.deps.Log.Info().Str("step", name).Msg("pipeline step")
		if err := nodes[name].Run(ctx, s); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			s.Error = err.Error()
			emit.Emit(Event{Type: EventError, Step: name, Message: err.Error()})
			return s, err
		}
	}

	emit.Emit(Event{Type: EventComplete, Step: string(s.CurrentStep)})
	return s, nil
}
