package handler

import (
	"net/http"
	"strings"

	"github.com/dharaneesh71/Financeflow-ai/internal/analysis"
)

type analyzeRequest struct {
	Query               string             `json:"query"`
	ConversationHistory []analysis.Message `json:"conversation_history,omitempty"`
}

// Analyze answers one conversational question about the loaded metrics.
// Degraded answers (rate limit, failed query) come back as HTTP 200 with the
// error field set; the agent always produces something renderable.
func (a *API) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	resp, err := a.agent.Analyze(r.Context(), req.Query, req.ConversationHistory)
	if err != nil {
		// Only context cancellation surfaces as an error; the client is
		// already gone, so there is nobody to answer.
		a.lg.Warn().Err(err).Msg("analysis canceled")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
