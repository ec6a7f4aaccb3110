package handler

import (
	"net/http"

	"github.com/dharaneesh71/Financeflow-ai/internal/schema"
)

// StarSchema previews the reporting star layout and the DDL that would
// create it. Nothing is deployed from here.
func (a *API) StarSchema(w http.ResponseWriter, _ *http.Request) {
	design := schema.BuildStarSchema()
	writeJSON(w, http.StatusOK, map[string]any{
		"design": design,
		"ddl":    design.DDL(),
	})
}
