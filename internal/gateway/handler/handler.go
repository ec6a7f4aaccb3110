// Package handler implements the JSON API: document upload, batch
// processing, conversational analysis, live run watching, and the reporting
// schema preview.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dharaneesh71/Financeflow-ai/internal/analysis"
	"github.com/dharaneesh71/Financeflow-ai/internal/docstore"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/run"
	"github.com/dharaneesh71/Financeflow-ai/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// API bundles the services the routes call into.
type API struct {
	docs     docstore.Store
	machine  *pipeline.Machine
	agent    *analysis.Agent
	runs     *run.Registry
	database string
	schema   string
	lg       zerolog.Logger
}

func New(docs docstore.Store, machine *pipeline.Machine, agent *analysis.Agent, runs *run.Registry, database, schemaName string, lg zerolog.Logger) *API {
	return &API{
		docs:     docs,
		machine:  machine,
		agent:    agent,
		runs:     runs,
		database: database,
		schema:   schemaName,
		lg:       lg,
	}
}

// Root is the service banner the UI pings on load.
func (a *API) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "running",
		"service": "FinanceFlow AI",
		"version": "1.0.0",
	})
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}
