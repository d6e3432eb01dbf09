// Package v1 provides the REST handlers of the sandbox job application service.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/jobtracker/internal/api/common"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/auth"
	"github.com/stacklok/jobtracker/internal/service"
)

// maxBodySize bounds request payloads.
const maxBodySize = 1 << 20

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// Routes handles HTTP requests for the sandbox endpoints.
type Routes struct {
	service service.Service
	issuer  TokenIssuer
}

// NewRoutes creates a new Routes instance with the given service and issuer.
func NewRoutes(svc service.Service, issuer TokenIssuer) *Routes {
	return &Routes{
		service: svc,
		issuer:  issuer,
	}
}

// Router creates the router for the application, lookup, user and health
// endpoints.
func Router(svc service.Service, issuer TokenIssuer) http.Handler {
	routes := NewRoutes(svc, issuer)

	r := chi.NewRouter()

	r.Mount("/", HealthRouter(svc))

	r.Route("/JobApplication", func(r chi.Router) {
		r.Get("/", routes.listApplications)
		r.Post("/", routes.createApplication)
		r.Put("/", routes.updateApplication)
		r.Get("/statistics-by-statuses", routes.statusCounts)
		r.Get("/statistics-per-months", routes.monthlyApplications)
		r.Delete("/{id}", routes.deleteApplication)
		r.Patch("/{id}/status/{statusId}", routes.changeStatus)
	})

	r.Get("/Lookup/statuses", routes.listStatuses)
	r.Get("/Lookup/contract-types", routes.listContractTypes)

	r.Post("/User/login", routes.login)
	r.Post("/User/create", routes.register)
	r.Post("/User/changePassword", routes.changePassword)

	return r
}

// owner returns the authenticated user of r, writing a 401 when absent.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok || subject == "" {
		common.WriteErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return subject, true
}

// decodeBody reads a JSON payload into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.WriteErrorResponse(w, "Invalid request body", http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// writeServiceError maps a service failure to an enveloped error response.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		common.WriteErrorResponse(w, verr.Message, http.StatusBadRequest, verr.Details...)
	case errors.Is(err, service.ErrApplicationNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, service.ErrStatusNotFound), errors.Is(err, service.ErrContractTypeNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, service.ErrUserExists):
		common.WriteErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		common.WriteErrorResponse(w, err.Error(), http.StatusUnauthorized)
	default:
		slog.Error("Sandbox request failed", "error", err)
		common.WriteErrorResponse(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (routes *Routes) listApplications(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	records, err := routes.service.ListApplications(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, records, "", http.StatusOK)
}

func (routes *Routes) createApplication(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	var payload applications.NewApplication
	if !decodeBody(w, r, &payload) {
		return
	}
	rec, err := routes.service.CreateApplication(r.Context(), user, &payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, rec, "Application created", http.StatusCreated)
}

func (routes *Routes) updateApplication(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	var rec applications.Record
	if !decodeBody(w, r, &rec) {
		return
	}
	updated, err := routes.service.UpdateApplication(r.Context(), user, &rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, updated, "Application updated", http.StatusOK)
}

func (routes *Routes) changeStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	id, err := common.PathID(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	statusID, err := common.PathID(r, "statusId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := routes.service.ChangeStatus(r.Context(), user, id, statusID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, rec, "Status updated", http.StatusOK)
}

func (routes *Routes) deleteApplication(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	id, err := common.PathID(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	rec, err := routes.service.DeleteApplication(r.Context(), user, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, rec, "Application deleted", http.StatusOK)
}

func (routes *Routes) listStatuses(w http.ResponseWriter, r *http.Request) {
	items, err := routes.service.Statuses(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, items, "", http.StatusOK)
}

func (routes *Routes) listContractTypes(w http.ResponseWriter, r *http.Request) {
	items, err := routes.service.ContractTypes(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, items, "", http.StatusOK)
}

func (routes *Routes) statusCounts(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	counts, err := routes.service.StatusCounts(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	common.WriteEnvelope(w, counts, "", http.StatusOK)
}

// monthlyApplications serves the counts as an object keyed by month.
func (routes *Routes) monthlyApplications(w http.ResponseWriter, r *http.Request) {
	user, ok := owner(w, r)
	if !ok {
		return
	}
	counts, err := routes.service.MonthlyApplications(r.Context(), user)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	byMonth := make(map[string]int, len(counts))
	for _, c := range counts {
		byMonth[c.Month] = c.Count
	}
	common.WriteEnvelope(w, byMonth, "", http.StatusOK)
}
