package corehandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/core"
	"leavedesk/internal/domain/probation"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
	"leavedesk/internal/transport/http/shared"
)

type Handler struct {
	Core      *core.Store
	Probation probation.Store
	Perms     middleware.PermissionStore
}

func NewHandler(coreStore *core.Store, probationStore probation.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Core: coreStore, Probation: probationStore, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/", h.handleListEmployees)
		r.With(middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)).Get("/{employeeID}", h.handleGetEmployee)
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermOrgRead, h.Perms)).Get("/", h.handleListDepartments)
		r.With(middleware.RequirePermission(auth.PermOrgWrite, h.Perms)).Post("/", h.handleCreateDepartment)
	})
}

type employeePayload struct {
	UserID         string `json:"userId"`
	EmployeeNumber string `json:"employeeNumber"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	DepartmentID   string `json:"departmentId"`
	Position       string `json:"position"`
	Status         string `json:"status"`
	StartDate      string `json:"startDate"`

	// ProbationMonths sizes the probation record created alongside a
	// probationary hire. Zero falls back to six months.
	ProbationMonths int `json:"probationMonths"`
}

type departmentPayload struct {
	Name       string `json:"name"`
	HeadUserID string `json:"headUserId"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	employees, total, err := h.Core.ListEmployees(r.Context(), page.Limit, page.Offset)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", requestID)
		return
	}
	api.Success(w, map[string]any{
		"items": employees,
		"total": total,
	}, requestID)
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	employee, err := h.Core.GetEmployee(r.Context(), chi.URLParam(r, "employeeID"))
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "employee_get_failed", "failed to load employee", requestID)
		return
	}
	api.Success(w, employee, requestID)
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload employeePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("employeeNumber", payload.EmployeeNumber, "employeeNumber is required")
	v.Required("firstName", payload.FirstName, "firstName is required")
	v.Required("lastName", payload.LastName, "lastName is required")
	v.Required("email", payload.Email, "email is required")
	v.Required("departmentId", payload.DepartmentID, "departmentId is required")
	v.Required("status", payload.Status, "status is required")
	v.Enum("status", payload.Status,
		[]string{string(core.StatusProbationary), string(core.StatusRegular), string(core.StatusContractual)},
		"status must be probationary, regular or contractual")
	start, _ := v.Date("startDate", payload.StartDate)
	if v.Reject(w, requestID) {
		return
	}

	employee := core.Employee{
		UserID:         payload.UserID,
		EmployeeNumber: payload.EmployeeNumber,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Email:          payload.Email,
		DepartmentID:   payload.DepartmentID,
		Position:       payload.Position,
		Status:         core.EmploymentStatus(payload.Status),
	}
	if !start.IsZero() {
		employee.StartDate = &start
	}

	id, err := h.Core.CreateEmployee(r.Context(), employee)
	if err != nil {
		slog.Error("employee creation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "employee_create_failed", "failed to create employee", requestID)
		return
	}

	// A probationary hire gets its tracking record immediately so the
	// sweep can promote without anyone remembering to file one.
	if employee.Status == core.StatusProbationary && !start.IsZero() {
		months := payload.ProbationMonths
		if months <= 0 {
			months = 6
		}
		expectedEnd := start.AddDate(0, months, 0)
		if _, err := h.Probation.CreateRecord(r.Context(), id, start, expectedEnd); err != nil {
			slog.Error("probation record creation failed", "err", err, "employeeId", id, "requestId", requestID)
		}
	}

	api.Created(w, map[string]string{"id": id}, requestID)
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	departments, err := h.Core.ListDepartments(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "department_list_failed", "failed to list departments", requestID)
		return
	}
	api.Success(w, departments, requestID)
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload departmentPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	if v.Reject(w, requestID) {
		return
	}

	id, err := h.Core.CreateDepartment(r.Context(), payload.Name, payload.HeadUserID)
	if err != nil {
		slog.Error("department creation failed", "err", err, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "department_create_failed", "failed to create department", requestID)
		return
	}
	api.Created(w, map[string]string{"id": id}, requestID)
}
