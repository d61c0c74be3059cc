package balanceshandler

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jung-kurt/gofpdf"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
	"leavedesk/internal/domain/leave"
	"leavedesk/internal/transport/http/api"
	"leavedesk/internal/transport/http/middleware"
)

type Handler struct {
	Ledger   *leave.Ledger
	Calendar *calendar.Store
	Core     *core.Store
	Perms    middleware.PermissionStore
}

func NewHandler(ledger *leave.Ledger, calendarStore *calendar.Store, coreStore *core.Store, perms middleware.PermissionStore) *Handler {
	return &Handler{Ledger: ledger, Calendar: calendarStore, Core: coreStore, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/balances", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermBalancesRead, h.Perms)).Get("/", h.handleOwn)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/report.csv", h.handleExportCSV)
		r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/report.pdf", h.handleStatementPDF)
		r.With(middleware.RequirePermission(auth.PermBalancesRead, h.Perms)).Get("/{employeeID}", h.handleForEmployee)
	})
}

// balanceRow is one allowance line in a balance view, with the category
// resolved to its display name.
type balanceRow struct {
	LeaveTypeID   string `json:"leaveTypeId,omitempty"`
	LeaveTypeName string `json:"leaveTypeName"`
	SharedPool    bool   `json:"sharedPool"`
	Allowed       string `json:"allowed"`
	Used          string `json:"used"`
	Remaining     string `json:"remaining"`
}

func (h *Handler) handleOwn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employeeID, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil || employeeID == "" {
		api.Fail(w, http.StatusForbidden, "no_employee_record", "no employee record linked to this account", requestID)
		return
	}
	h.respondBalances(w, r, employeeID)
}

func (h *Handler) handleForEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employeeID := chi.URLParam(r, "employeeID")
	allowed, err := h.canAccess(r, user, employeeID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "balance_read_failed", "failed to load balances", requestID)
		return
	}
	if !allowed {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your balance", requestID)
		return
	}
	h.respondBalances(w, r, employeeID)
}

func (h *Handler) respondBalances(w http.ResponseWriter, r *http.Request, employeeID string) {
	requestID := middleware.GetRequestID(r.Context())

	term, err := h.resolveTerm(r)
	if err != nil {
		api.Fail(w, http.StatusConflict, "no_current_term", "no current term is configured", requestID)
		return
	}

	rows, err := h.balanceRows(r, employeeID, term)
	if err != nil {
		slog.Error("balance computation failed", "err", err, "employeeId", employeeID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "balance_read_failed", "failed to load balances", requestID)
		return
	}
	api.Success(w, map[string]any{
		"employeeId": employeeID,
		"term":       term,
		"balances":   rows,
	}, requestID)
}

// balanceRows computes the employee's allowance lines for the term. A
// shared-pool term yields a single pooled line; otherwise one line per
// leave category that has an entitlement rule.
func (h *Handler) balanceRows(r *http.Request, employeeID string, term *calendar.Term) ([]balanceRow, error) {
	if term.SharedPool {
		balance, err := h.Ledger.Balance(r.Context(), employeeID, term.ID, "")
		if err != nil {
			if errors.Is(err, leave.ErrRuleNotFound) {
				return []balanceRow{}, nil
			}
			return nil, err
		}
		return []balanceRow{{
			LeaveTypeName: "Shared pool",
			SharedPool:    true,
			Allowed:       balance.Allowed.String(),
			Used:          balance.Used.String(),
			Remaining:     balance.Remaining.String(),
		}}, nil
	}

	types, err := h.Calendar.ListLeaveTypes(r.Context())
	if err != nil {
		return nil, err
	}
	rows := make([]balanceRow, 0, len(types))
	for _, lt := range types {
		balance, err := h.Ledger.Balance(r.Context(), employeeID, term.ID, lt.ID)
		if errors.Is(err, leave.ErrRuleNotFound) {
			// No rule means no allowance for this category.
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, balanceRow{
			LeaveTypeID:   lt.ID,
			LeaveTypeName: lt.Name,
			Allowed:       balance.Allowed.String(),
			Used:          balance.Used.String(),
			Remaining:     balance.Remaining.String(),
		})
	}
	return rows, nil
}

// handleExportCSV is the organization-wide export, so it is held to the
// finance and HR roles rather than the general reports permission.
func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}
	if user.RoleName != auth.RoleFinance && user.RoleName != auth.RoleHR {
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
		return
	}

	term, err := h.resolveTerm(r)
	if err != nil {
		api.Fail(w, http.StatusConflict, "no_current_term", "no current term is configured", requestID)
		return
	}

	limit := 1000
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v < limit {
			limit = v
		}
	}
	employees, _, err := h.Core.ListEmployees(r.Context(), limit, 0)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", requestID)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"employee_number", "first_name", "last_name", "term", "leave_type", "allowed", "used", "remaining"})
	for _, e := range employees {
		rows, err := h.balanceRows(r, e.ID, term)
		if err != nil {
			slog.Error("balance export failed", "err", err, "employeeId", e.ID, "requestId", requestID)
			api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", requestID)
			return
		}
		for _, row := range rows {
			_ = cw.Write([]string{
				e.EmployeeNumber, e.FirstName, e.LastName, term.Name,
				row.LeaveTypeName, row.Allowed, row.Used, row.Remaining,
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build report", requestID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="balances.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleStatementPDF renders one employee's balance statement. Without
// an employeeId query parameter it covers the caller's own record.
func (h *Handler) handleStatementPDF(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
		return
	}

	employeeID := r.URL.Query().Get("employeeId")
	if employeeID == "" {
		own, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
		if err != nil || own == "" {
			api.Fail(w, http.StatusForbidden, "no_employee_record", "no employee record linked to this account", requestID)
			return
		}
		employeeID = own
	} else {
		allowed, err := h.canAccess(r, user, employeeID)
		if err != nil {
			api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build statement", requestID)
			return
		}
		if !allowed {
			api.Fail(w, http.StatusForbidden, "forbidden", "not your balance", requestID)
			return
		}
	}

	employee, err := h.Core.GetEmployee(r.Context(), employeeID)
	if errors.Is(err, core.ErrEmployeeNotFound) {
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", requestID)
		return
	}
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build statement", requestID)
		return
	}

	term, err := h.resolveTerm(r)
	if err != nil {
		api.Fail(w, http.StatusConflict, "no_current_term", "no current term is configured", requestID)
		return
	}
	rows, err := h.balanceRows(r, employeeID, term)
	if err != nil {
		slog.Error("balance statement failed", "err", err, "employeeId", employeeID, "requestId", requestID)
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build statement", requestID)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Leave Balance Statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s %s (%s)", employee.FirstName, employee.LastName, employee.EmployeeNumber))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Term: %s (%s to %s)", term.Name,
		term.StartDate.Format("2006-01-02"), term.EndDate.Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(70, 8, "Category")
	pdf.Cell(35, 8, "Allowed")
	pdf.Cell(35, 8, "Used")
	pdf.Cell(35, 8, "Remaining")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.Cell(70, 8, row.LeaveTypeName)
		pdf.Cell(35, 8, row.Allowed)
		pdf.Cell(35, 8, row.Used)
		pdf.Cell(35, 8, row.Remaining)
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render statement", requestID)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="balance-statement.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) resolveTerm(r *http.Request) (*calendar.Term, error) {
	if termID := r.URL.Query().Get("termId"); termID != "" {
		return h.Calendar.GetTerm(r.Context(), termID)
	}
	return h.Calendar.CurrentTerm(r.Context())
}

func (h *Handler) canAccess(r *http.Request, user auth.UserContext, employeeID string) (bool, error) {
	switch user.RoleName {
	case auth.RoleFinance, auth.RoleHR:
		return true, nil
	case auth.RoleDepartmentHead:
		ids, err := h.Core.DepartmentEmployeeIDs(r.Context(), user.UserID)
		if err != nil {
			return false, err
		}
		for _, id := range ids {
			if id == employeeID {
				return true, nil
			}
		}
	}
	own, err := h.Core.EmployeeIDByUserID(r.Context(), user.UserID)
	if err != nil {
		return false, err
	}
	return own != "" && own == employeeID, nil
}
