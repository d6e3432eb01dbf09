package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/jobtracker/internal/api/common"
	"github.com/stacklok/jobtracker/internal/service"
	"github.com/stacklok/jobtracker/internal/versions"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthRouter creates a router for health check endpoints
func HealthRouter(svc service.Service) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Get("/readiness", readinessHandler(svc))
	r.Get("/version", versionHandler)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, HealthResponse{Status: "healthy"}, http.StatusOK)
}

func readinessHandler(svc service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.CheckReadiness(r.Context()); err != nil {
			common.WriteErrorResponse(w, "Service not ready: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		common.WriteJSONResponse(w, HealthResponse{Status: "ready"}, http.StatusOK)
	}
}

// versionHandler serves the build information of the sandbox.
func versionHandler(w http.ResponseWriter, _ *http.Request) {
	common.WriteJSONResponse(w, versions.GetVersionInfo(), http.StatusOK)
}
