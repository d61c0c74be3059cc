package requestshandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/platform/metrics"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Service *leave.Service
	Core    *core.Store
	Perms   middleware.PermissionStore
	Metrics *metrics.Collector
}

func NewHandler(service *leave.Service, coreStore *core.Store, perms middleware.PermissionStore, collector *metrics.Collector) *Handler {
	return &Handler{Service: service, Core: coreStore, Perms: perms, Metrics: collector}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermRequestsRead, h.Perms)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermRequestsWrite, h.Perms)).Post("/", h.handleSubmit)
		r.With(middleware.RequirePermission(auth.PermRequestsWrite, h.Perms)).Get("/preflight", h.handlePreflight)
		r.With(middleware.RequirePermission(auth.PermRequestsRead, h.Perms)).Get("/{requestID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermRequestsWrite, h.Perms)).Patch("/{requestID}", h.handleEdit)
		r.With(middleware.RequirePermission(auth.PermRequestsEndorse, h.Perms)).Post("/{requestID}/head-approve", h.handleHeadApprove)
		r.With(middleware.RequirePermission(auth.PermRequestsEndorse, h.Perms)).Post("/{requestID}/head-reject", h.handleHeadReject)
		r.With(middleware.RequirePermission(auth.PermRequestsFinal, h.Perms)).Post("/{requestID}/approve", h.handleFinalApprove)
		r.With(middleware.RequirePermission(auth.PermRequestsFinal, h.Perms)).Post("/{requestID}/reject", h.handleFinalReject)
	})
}

type submitPayload struct {
	Kind        string `json:"kind"`
	LeaveTypeID string `json:"leaveTypeId"`
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	StartHalf   bool   `json:"startHalf"`
	EndHalf     bool   `json:"endHalf"`
	Reason      string `json:"reason"`
}

type decisionPayload struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	v.Required("kind", payload.Kind, "kind is required")
	v.Enum("kind", payload.Kind, []string{string(leave.KindLeave), string(leave.KindTravel)}, "kind must be leave or travel")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if leave.Kind(payload.Kind) == leave.KindTravel {
		v.Required("destination", payload.Destination, "destination is required for travel orders")
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil || employeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_record", "no employee record linked to this account", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Submit(r.Context(), leave.SubmitInput{
		EmployeeID:  employeeID,
		Kind:        leave.Kind(payload.Kind),
		LeaveTypeID: payload.LeaveTypeID,
		Destination: payload.Destination,
		StartDate:   start,
		EndDate:     end,
		StartHalf:   payload.StartHalf,
		EndHalf:     payload.EndHalf,
		Reason:      payload.Reason,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "request_submit_failed", "failed to submit request")
		return
	}

	if h.Metrics != nil {
		h.Metrics.RecordSubmission()
	}
	api.Created(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("startDate", r.URL.Query().Get("startDate"))
	end, _ := v.Date("endDate", r.URL.Query().Get("endDate"))
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil || employeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_record", "no employee record linked to this account", middleware.GetRequestID(r.Context()))
		return
	}

	admission, err := h.Service.Validator.CanSubmit(r.Context(), employeeID, start, end)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "admission_check_failed", "failed to check admission", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, admission, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	page := shared.ParsePagination(r, 50, 200)
	filter := leave.RequestFilter{
		TermID: r.URL.Query().Get("termId"),
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, raw := range strings.Split(r.URL.Query().Get("status"), ",") {
		if trimmed := strings.TrimSpace(raw); trimmed != "" {
			filter.Statuses = append(filter.Statuses, leave.Status(trimmed))
		}
	}

	// Employees see their own requests, department heads their
	// department's, finance and HR everything.
	switch user.RoleName {
	case auth.RoleEmployee:
		employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || employeeID == "" {
			api.Success(w, []leave.Request{}, middleware.GetRequestID(r.Context()))
			return
		}
		filter.EmployeeID = employeeID
	case auth.RoleDepartmentHead:
		ids, err := h.Core.DepartmentEmployeeIDs(r.Context(), user.UserID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "request_list_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
			return
		}
		if len(ids) == 0 {
			api.Success(w, []leave.Request{}, middleware.GetRequestID(r.Context()))
			return
		}
		filter.EmployeeIDs = ids
	}

	requests, total, err := h.Service.Store.ListRequests(r.Context(), filter)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "request_list_failed", "failed to list requests", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, map[string]any{
		"items": requests,
		"total": total,
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.Store.GetRequest(r.Context(), chi.URLParam(r, "requestID"))
	if err != nil {
		h.failWorkflow(w, r, err, "request_get_failed", "failed to load request")
		return
	}

	allowed, err := h.canAccess(r, user, req.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "request_get_failed", "failed to load request", middleware.GetRequestID(r.Context()))
		return
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your request", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload submitPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	requestID := chi.URLParam(r, "requestID")
	req, err := h.Service.Store.GetRequest(r.Context(), requestID)
	if err != nil {
		h.failWorkflow(w, r, err, "request_edit_failed", "failed to edit request")
		return
	}
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil || employeeID == "" || req.EmployeeID != employeeID {
		api.Fail(w, http.StatusForbidden, "forbidden", "only the requester may edit a request", middleware.GetRequestID(r.Context()))
		return
	}

	updated, err := h.Service.Edit(r.Context(), requestID, leave.EditInput{
		StartDate:   start,
		EndDate:     end,
		StartHalf:   payload.StartHalf,
		EndHalf:     payload.EndHalf,
		Reason:      payload.Reason,
		Destination: payload.Destination,
	})
	if err != nil {
		h.failWorkflow(w, r, err, "request_edit_failed", "failed to edit request")
		return
	}
	api.Success(w, updated, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHeadApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")
	if !h.confirmHeadScope(w, r, user, requestID) {
		return
	}

	req, err := h.Service.HeadApprove(r.Context(), requestID, user.UserID)
	if err != nil {
		h.failWorkflow(w, r, err, "head_approve_failed", "failed to approve request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleHeadReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}
	requestID := chi.URLParam(r, "requestID")
	if !h.confirmHeadScope(w, r, user, requestID) {
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.HeadReject(r.Context(), requestID, user.UserID, payload.Reason)
	if err != nil {
		h.failWorkflow(w, r, err, "head_reject_failed", "failed to reject request")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordRejection()
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFinalApprove(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.FinalApprove(r.Context(), chi.URLParam(r, "requestID"), user.UserID)
	if err != nil {
		h.failWorkflow(w, r, err, "final_approve_failed", "failed to approve request")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordApproval()
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleFinalReject(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload decisionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}

	req, err := h.Service.FinalReject(r.Context(), chi.URLParam(r, "requestID"), user.UserID, payload.Reason)
	if err != nil {
		h.failWorkflow(w, r, err, "final_reject_failed", "failed to reject request")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordRejection()
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

// confirmHeadScope limits first-stage decisions to the head of the
// requester's department. HR passes through for coverage during
// absences.
func (h *Handler) confirmHeadScope(w http.ResponseWriter, r *http.Request, user auth.UserContext, requestID string) bool {
	if user.RoleName == auth.RoleHR {
		return true
	}
	req, err := h.Service.Store.GetRequest(r.Context(), requestID)
	if err != nil {
		h.failWorkflow(w, r, err, "head_decision_failed", "failed to load request")
		return false
	}
	headUserID, err := h.Service.Store.DepartmentHeadUserID(r.Context(), req.EmployeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "head_decision_failed", "failed to resolve department head", middleware.GetRequestID(r.Context()))
		return false
	}
	if headUserID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "request belongs to another department", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

func (h *Handler) canAccess(r *http.Request, user auth.UserContext, requestEmployeeID string) (bool, error) {
	switch user.RoleName {
	case auth.RoleFinance, auth.RoleHR:
		return true, nil
	case auth.RoleDepartmentHead:
		ids, err := h.Core.DepartmentEmployeeIDs(r.Context(), user.UserID)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if id == requestEmployeeID {
				return true, nil
			}
		}
	}
	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil {
		return false, err
	}
	return employeeID != "" && employeeID == requestEmployeeID, nil
}

// failWorkflow translates domain errors to responses. Refusals and
// guard failures are expected outcomes; integrity violations are not
// and get logged loudly before the opaque 500.
func (h *Handler) failWorkflow(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	requestID := middleware.GetRequestID(r.Context())

	var refusal *leave.RefusalError
	if errors.As(err, &refusal) {
		if h.Metrics != nil {
			h.Metrics.RecordRefusal()
		}
		api.FailWithDetails(w, http.StatusConflict, "submission_refused", refusal.Reason,
			map[string]any{"blocking": refusal.Blocking}, requestID)
		return
	}

	var integrity *leave.IntegrityError
	if errors.As(err, &integrity) {
		slog.Error("workflow integrity violation", "detail", integrity.Detail, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "integrity_error", "internal inconsistency detected", requestID)
		return
	}

	var transient *leave.TransientError
	if errors.As(err, &transient) {
		slog.Warn("workflow store failure", "op", transient.Op, "err", transient.Err, "requestId", requestID)
		api.Fail(w, http.StatusServiceUnavailable, "store_unavailable", "a temporary storage failure interrupted the operation, please retry", requestID)
		return
	}

	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "request_not_found", "request not found", requestID)
	case errors.Is(err, leave.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_state", "request is not in a state that allows this action", requestID)
	case errors.Is(err, leave.ErrReasonRequired):
		api.Fail(w, http.StatusBadRequest, "reason_required", "a rejection reason is required", requestID)
	case errors.Is(err, calendar.ErrNoCurrentTerm):
		api.Fail(w, http.StatusConflict, "no_current_term", "no current term is configured", requestID)
	case errors.Is(err, leave.ErrRuleNotFound):
		api.Fail(w, http.StatusConflict, "no_entitlement_rule", "no entitlement rule covers this employee and term", requestID)
	default:
		slog.Error("workflow operation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, code, message, requestID)
	}
}
