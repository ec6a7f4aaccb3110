// Package pipeline runs one document batch through the processing graph:
// parse every staged document to markdown, then either suggest metrics for
// the user to confirm or extract the confirmed metrics and deploy them to
// the warehouse. The graph is a fixed transition table; nodes share a State
// and the Machine walks them in order, streaming progress events as it goes.
package pipeline

import (
	"fmt"

	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

// Step selects which branch of the graph a batch runs.
type Step string

const (
	// StepSuggest parses documents and proposes a metric set.
	StepSuggest Step = "suggest"
	// StepProcess extracts a confirmed metric set and loads the warehouse.
	StepProcess Step = "process"
)

// State is the batch blackboard. Nodes read the fields earlier nodes wrote
// and add their own; the JSON form is what run watchers and API responses
// see, so the tags are part of the contract.
type State struct {
	CurrentStep Step     `json:"current_step"`
	FilePaths   []string `json:"file_paths"`
	UserPrompt  string   `json:"user_prompt,omitempty"`

	SelectedMetrics metric.Set `json:"selected_metrics,omitempty"`
	DatabaseName    string     `json:"database_name"`
	SchemaName      string     `json:"schema_name"`

	MarkdownPaths    []string       `json:"markdown_paths,omitempty"`
	SuggestedMetrics metric.Set     `json:"suggested_metrics,omitempty"`
	Reasoning        string         `json:"reasoning,omitempty"`
	Schema           *schema.Design `json:"schema,omitempty"`

	DeploymentResult *warehouse.DeploymentResult `json:"deployment_result,omitempty"`

	// ExtractedMetrics holds per-document values keyed by document name. A
	// document that failed extraction is present with an empty map so the
	// response still accounts for it.
	ExtractedMetrics map[string]metric.Values `json:"extracted_metrics_by_document,omitempty"`

	Error string `json:"error,omitempty"`
}

// NewState seeds a batch. The branch follows the request shape: a non-empty
// metric set means process, none means suggest.
func NewState(files []string, userPrompt string, selected metric.Set, database, schemaName string) *State {
	step := StepSuggest
	if len(selected) > 0 {
		step = StepProcess
	}
	return &State{
		CurrentStep:     step,
		FilePaths:       append([]string(nil), files...),
		UserPrompt:      userPrompt,
		SelectedMetrics: selected,
		DatabaseName:    database,
		SchemaName:      schemaName,
	}
}

// validate checks the seeded state before the machine starts walking.
func (s *State) validate() error {
	switch s.CurrentStep {
	case StepSuggest, StepProcess:
	default:
		return fmt.Errorf("pipeline: unknown step %q", s.CurrentStep)
	}
	if len(s.FilePaths) == 0 {
		return fmt.Errorf("pipeline: no documents in batch")
	}
	if s.CurrentStep == StepProcess {
		if len(s.SelectedMetrics) == 0 {
			return fmt.Errorf("pipeline: process step requires a metric set")
		}
		if err := s.SelectedMetrics.Validate(); err != nil {
			return fmt.Errorf("pipeline: %w", err)
		}
	}
	return nil
}
