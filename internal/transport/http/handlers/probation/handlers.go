package probationhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/probation"
	"leavedesk/internal/platform/jobs"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Store probation.Store
	Jobs  *jobs.Service
	Perms middleware.PermissionStore
}

func NewHandler(store probation.Store, jobsSvc *jobs.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Store: store, Jobs: jobsSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/probation", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermProbationRead, h.Perms)).Get("/records", h.handleListRecords)
		r.With(middleware.RequirePermission(auth.PermProbationRun, h.Perms)).Post("/records", h.handleCreateRecord)
		r.With(middleware.RequirePermission(auth.PermProbationRun, h.Perms)).Post("/run", h.handleSweep)
	})
}

type recordPayload struct {
	EmployeeID  string `json:"employeeId"`
	StartDate   string `json:"startDate"`
	ExpectedEnd string `json:"expectedEnd"`
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	status := probation.RecordStatus(r.URL.Query().Get("status"))
	if status != "" && status != probation.StatusActive && status != probation.StatusCompleted {
		api.Fail(w, http.StatusBadRequest, "invalid_status", "status must be active or completed", requestID)
		return
	}

	records, err := h.Store.ListRecords(r.Context(), status)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "probation_list_failed", "failed to list probation records", requestID)
		return
	}
	api.Success(w, records, requestID)
}

func (h *Handler) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("expectedEnd", payload.ExpectedEnd)
	v.DateOrder("startDate", start, "expectedEnd", end)
	if v.Reject(w, requestID) {
		return
	}

	record, err := h.Store.CreateRecord(r.Context(), payload.EmployeeID, start, end)
	if err != nil {
		slog.Error("probation record creation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "probation_create_failed", "failed to create probation record", requestID)
		return
	}
	api.Created(w, record, requestID)
}

// handleSweep runs the promotion sweep on demand, through the job
// runner so the run lands in the audit trail like scheduled ones.
func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	summary, err := h.Jobs.RunNow(r.Context(), jobs.JobProbationSweep, h.Jobs.SweepProbation)
	if err != nil {
		slog.Error("probation sweep failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "sweep_failed", "failed to run probation sweep", requestID)
		return
	}
	api.Success(w, summary, requestID)
}
