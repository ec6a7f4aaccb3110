package handler

import (
	"errors"
	"net/http"

	"github.com/dharaneesh71/Financeflow-ai/internal/metric"
	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
	"github.com/dharaneesh71/Financeflow-ai/internal/warehouse"
)

type processRequest struct {
	// RunID is optional. A client that wants live step events mints its
	// own ID, opens /api/runs/watch with it, then posts the batch here.
	RunID           string     `json:"run_id,omitempty"`
	FilePaths       []string   `json:"file_paths"`
	UserPrompt      string     `json:"user_prompt,omitempty"`
	SelectedMetrics metric.Set `json:"selected_metrics,omitempty"`
	DatabaseName    string     `json:"database_name,omitempty"`
	SchemaName      string     `json:"schema_name,omitempty"`
}

type processResponse struct {
	RunID            string                      `json:"run_id"`
	MarkdownPaths    []string                    `json:"markdown_paths,omitempty"`
	SuggestedMetrics metric.Set                  `json:"suggested_metrics,omitempty"`
	Reasoning        string                      `json:"reasoning,omitempty"`
	ExtractedMetrics map[string]metric.Values    `json:"extracted_metrics_by_document,omitempty"`
	Schema           *schema.Design              `json:"schema,omitempty"`
	Deployment       *warehouse.DeploymentResult `json:"deployment,omitempty"`
	Error            string                      `json:"error,omitempty"`
	Success          bool                        `json:"success"`
}

// Process runs one batch synchronously and answers with whichever branch
// ran: metric suggestions when no set was selected, extraction plus schema
// and deployment when one was. Step events are published under the run ID
// for the duration of the batch.
func (a *API) Process(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.FilePaths) == 0 {
		writeError(w, http.StatusBadRequest, "file_paths is required")
		return
	}
	if len(req.SelectedMetrics) > 0 {
		if err := req.SelectedMetrics.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid selected_metrics: "+err.Error())
			return
		}
	}
	if req.DatabaseName == "" {
		req.DatabaseName = a.database
	}
	if req.SchemaName == "" {
		req.SchemaName = a.schema
	}

	runID, events, err := a.runs.Begin(req.RunID)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	state := pipeline.NewState(req.FilePaths, req.UserPrompt, req.SelectedMetrics, req.DatabaseName, req.SchemaName)
	a.lg.Info().
		Str("run_id", runID).
		Str("step", string(state.CurrentStep)).
		Int("files", len(req.FilePaths)).
		Msg("batch started")

	ctx := pipeline.WithEmitter(r.Context(), &pipeline.ChannelEmitter{Ch: events})
	out, runErr := a.machine.Run(ctx, state)
	a.runs.Finish(runID, runErr)

	if runErr != nil {
		a.lg.Error().Err(runErr).Str("run_id", runID).Msg("batch failed")
		status := http.StatusInternalServerError
		var unavailable *pipeline.ServiceUnavailableError
		if errors.As(runErr, &unavailable) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, processResponse{RunID: runID, Error: out.Error, Success: false})
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		RunID:            runID,
		MarkdownPaths:    out.MarkdownPaths,
		SuggestedMetrics: out.SuggestedMetrics,
		Reasoning:        out.Reasoning,
		ExtractedMetrics: out.ExtractedMetrics,
		Schema:           out.Schema,
		Deployment:       out.DeploymentResult,
		Success:          true,
	})
}
