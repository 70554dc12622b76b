package router

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/discovery-service/internal/delivery/http/handler"
	"github.com/user/discovery-service/internal/delivery/http/middleware"
)

func New(h *handler.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.HandleHealthCheck)
	mux.HandleFunc("POST /api/discovery/runs", h.HandleStartRun)
	mux.HandleFunc("GET /api/discovery/runs/{id}", h.HandleGetRunSummary)
	mux.HandleFunc("GET /api/discovery/runs/{id}/audits", h.HandleListRunAudits)
	mux.HandleFunc("GET /api/discovery/patches/{id}/audits", h.HandleListPatchAudits)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	var chainedHandler http.Handler = mux
	chainedHandler = middleware.Metrics(chainedHandler)
	chainedHandler = middleware.Logging(chainedHandler)

	return chainedHandler
}
