package calendarhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Calendar *calendar.Store
	Leave    *leave.PgStore
	Perms    middleware.PermissionStore
}

func NewHandler(calendarStore *calendar.Store, leaveStore *leave.PgStore, perms middleware.PermissionStore) *Handler {
	return &Handler{Calendar: calendarStore, Leave: leaveStore, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequirePermission(auth.PermCalendarRead, h.Perms)).Get("/terms", h.handleListTerms)
	r.With(middleware.RequirePermission(auth.PermCalendarWrite, h.Perms)).Post("/terms", h.handleCreateTerm)
	r.With(middleware.RequirePermission(auth.PermCalendarRead, h.Perms)).Get("/leave-types", h.handleListLeaveTypes)
}

type termPayload struct {
	Name         string `json:"name"`
	AcademicYear string `json:"academicYear"`
	Type         string `json:"type"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	IsCurrent    bool   `json:"isCurrent"`
	SharedPool   bool   `json:"sharedPool"`
}

func (h *Handler) handleListTerms(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	terms, err := h.Calendar.ListTerms(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "term_list_failed", "failed to list terms", requestID)
		return
	}
	api.Success(w, terms, requestID)
}

func (h *Handler) handleCreateTerm(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload termPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("academicYear", payload.AcademicYear, "academicYear is required")
	v.Required("type", payload.Type, "type is required")
	v.Enum("type", payload.Type, []string{string(calendar.TermRegular), string(calendar.TermSummer)}, "type must be regular or summer")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return
	}

	term := calendar.Term{
		Name:         payload.Name,
		AcademicYear: payload.AcademicYear,
		Type:         calendar.TermType(payload.Type),
		StartDate:    start,
		EndDate:      end,
		IsCurrent:    payload.IsCurrent,
		SharedPool:   payload.SharedPool,
	}
	id, err := h.Calendar.CreateTerm(r.Context(), term)
	if err != nil {
		slog.Error("term creation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "term_create_failed", "failed to create term", requestID)
		return
	}

	// A shared-pool term needs its canonical balance records up front:
	// final approval deducts against them and fails if they are missing.
	provisioned := 0
	if payload.SharedPool {
		provisioned, err = h.Leave.ProvisionSharedBalances(r.Context(), id)
		if err != nil {
			slog.Error("shared balance provisioning failed", "err", err, "termId", id, "requestId", requestID)
			api.Fail(w, http.StatusInternalServerError, "term_create_failed", "term created but balance provisioning failed", requestID)
			return
		}
	}

	api.Created(w, map[string]any{
		"id":          id,
		"provisioned": provisioned,
	}, requestID)
}

func (h *Handler) handleListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	types, err := h.Calendar.ListLeaveTypes(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "leave_type_list_failed", "failed to list leave types", requestID)
		return
	}
	api.Success(w, types, requestID)
}
