package server

import (
	"net/http"

	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/handler"
	"github.com/dharaneesh71/Financeflow-ai/internal/gateway/middleware"
)

func NewMux(api *handler.API) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", api.Root)
	mux.HandleFunc("GET /health", api.Health)

	mux.HandleFunc("POST /api/upload", api.Upload)
	mux.HandleFunc("POST /api/process", api.Process)
	mux.HandleFunc("POST /api/analyze", api.Analyze)
	mux.HandleFunc("GET /api/runs/watch", api.WatchRun)
	mux.HandleFunc("GET /api/schema/star", api.StarSchema)

	return middleware.CORS(mux)
}
