package leave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
)

// PgStore is the Postgres-backed Store.
type PgStore struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

// querier is satisfied by both the pool and a transaction so the read
// helpers can serve Store and Tx alike.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const requestColumns = `
  id, employee_id, term_id, kind, leave_type_id, COALESCE(destination, ''),
  start_date, end_date, start_half, end_half, days, reason, status,
  head_reviewed_by, head_reviewed_at, finance_reviewed_by, finance_reviewed_at,
  COALESCE(rejection_reason, ''), created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var req Request
	var kind, status string
	var headBy, financeBy *string
	if err := row.Scan(
		&req.ID, &req.EmployeeID, &req.TermID, &kind, &req.LeaveTypeID, &req.Destination,
		&req.StartDate, &req.EndDate, &req.StartHalf, &req.EndHalf, &req.Days, &req.Reason, &status,
		&headBy, &req.HeadReviewedAt, &financeBy, &req.FinanceReviewedAt,
		&req.RejectionReason, &req.CreatedAt, &req.UpdatedAt,
	); err != nil {
		return nil, err
	}
	req.Kind = Kind(kind)
	req.Status = Status(status)
	if headBy != nil {
		req.HeadReviewedBy = *headBy
	}
	if financeBy != nil {
		req.FinanceReviewedBy = *financeBy
	}
	return &req, nil
}

func getRequest(ctx context.Context, q querier, requestID string, forUpdate bool) (*Request, error) {
	query := "SELECT" + requestColumns + " FROM requests WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	req, err := scanRequest(q.QueryRow(ctx, query, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return req, err
}

func inFlightRequests(ctx context.Context, q querier, employeeID string, forUpdate bool) ([]Request, error) {
	query := "SELECT" + requestColumns + ` FROM requests
    WHERE employee_id = $1 AND status = ANY($2)
    ORDER BY created_at`
	if forUpdate {
		query += " FOR UPDATE"
	}
	statuses := make([]string, 0, len(InFlightStatuses))
	for _, st := range InFlightStatuses {
		statuses = append(statuses, string(st))
	}
	rows, err := q.Query(ctx, query, employeeID, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func approvedOverlapping(ctx context.Context, q querier, employeeID string, start, end time.Time) ([]Request, error) {
	rows, err := q.Query(ctx, "SELECT"+requestColumns+` FROM requests
    WHERE employee_id = $1 AND status = $2 AND start_date <= $3 AND end_date >= $4
    ORDER BY start_date`, employeeID, string(StatusApproved), end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]Request, error) {
	var requests []Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

func (s *PgStore) GetRequest(ctx context.Context, requestID string) (*Request, error) {
	return getRequest(ctx, s.DB, requestID, false)
}

func (s *PgStore) InFlightRequests(ctx context.Context, employeeID string) ([]Request, error) {
	return inFlightRequests(ctx, s.DB, employeeID, false)
}

func (s *PgStore) ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error) {
	return approvedOverlapping(ctx, s.DB, employeeID, start, end)
}

func (s *PgStore) ListRequests(ctx context.Context, filter RequestFilter) ([]Request, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	next := func(value any) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.EmployeeID != "" {
		where += " AND employee_id = " + next(filter.EmployeeID)
	}
	if len(filter.EmployeeIDs) > 0 {
		where += " AND employee_id = ANY(" + next(filter.EmployeeIDs) + ")"
	}
	if filter.TermID != "" {
		where += " AND term_id = " + next(filter.TermID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		where += " AND status = ANY(" + next(statuses) + ")"
	}

	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT" + requestColumns + " FROM requests" + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + next(filter.Limit) + " OFFSET " + next(filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	requests, err := collectRequests(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

const termColumns = `id, name, academic_year, term_type, start_date, end_date, is_current, shared_pool, created_at`

func scanTerm(row pgx.Row) (*calendar.Term, error) {
	var t calendar.Term
	var termType string
	if err := row.Scan(&t.ID, &t.Name, &t.AcademicYear, &termType, &t.StartDate, &t.EndDate, &t.IsCurrent, &t.SharedPool, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = calendar.TermType(termType)
	return &t, nil
}

func (s *PgStore) CurrentTerm(ctx context.Context) (*calendar.Term, error) {
	term, err := scanTerm(s.DB.QueryRow(ctx, "SELECT "+termColumns+" FROM terms WHERE is_current LIMIT 1"))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, calendar.ErrNoCurrentTerm
	}
	return term, err
}

func (s *PgStore) GetTerm(ctx context.Context, termID string) (*calendar.Term, error) {
	term, err := scanTerm(s.DB.QueryRow(ctx, "SELECT "+termColumns+" FROM terms WHERE id = $1", termID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("term %s not found", termID)
	}
	return term, err
}

func (s *PgStore) EmployeeStatus(ctx context.Context, employeeID string) (core.EmploymentStatus, error) {
	var status string
	err := s.DB.QueryRow(ctx, "SELECT status FROM employees WHERE id = $1", employeeID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", core.ErrEmployeeNotFound
	}
	if err != nil {
		return "", err
	}
	return core.ParseEmploymentStatus(status)
}

func (s *PgStore) EmployeeUserID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

func (s *PgStore) DepartmentHeadUserID(ctx context.Context, employeeID string) (string, error) {
	var userID *string
	err := s.DB.QueryRow(ctx, `
    SELECT d.head_user_id
    FROM employees e
    JOIN departments d ON e.department_id = d.id
    WHERE e.id = $1
  `, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) || userID == nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return *userID, nil
}

func (s *PgStore) LeaveTypeIDByCode(ctx context.Context, code string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM leave_types WHERE code = $1", code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("leave type %q not configured", code)
	}
	return id, err
}

func (s *PgStore) EntitlementDays(ctx context.Context, status core.EmploymentStatus, termType calendar.TermType, leaveTypeID string) (decimal.Decimal, error) {
	query := `
    SELECT days_allowed
    FROM entitlement_rules
    WHERE employment_status = $1 AND term_type = $2`
	args := []any{string(status), string(termType)}
	if leaveTypeID == "" {
		query += " AND leave_type_id IS NULL"
	} else {
		query += " AND leave_type_id = $3"
		args = append(args, leaveTypeID)
	}

	var allowed decimal.Decimal
	err := s.DB.QueryRow(ctx, query, args...).Scan(&allowed)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, ErrRuleNotFound
	}
	return allowed, err
}

func (s *PgStore) ApprovedDays(ctx context.Context, employeeID, termID, leaveTypeID string) (decimal.Decimal, error) {
	query := `
    SELECT COALESCE(SUM(days), 0)
    FROM requests
    WHERE employee_id = $1 AND term_id = $2 AND status = $3`
	args := []any{employeeID, termID, string(StatusApproved)}
	if leaveTypeID != "" {
		query += " AND leave_type_id = $4"
		args = append(args, leaveTypeID)
	}

	var used decimal.Decimal
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&used); err != nil {
		return decimal.Zero, err
	}
	return used, nil
}

func (s *PgStore) BalanceRecords(ctx context.Context, employeeID, termID string) ([]BalanceRecord, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, employee_id, term_id, COALESCE(leave_type_id::text, ''), allowed_days, used_days, updated_at
    FROM leave_balances
    WHERE employee_id = $1 AND term_id = $2
    ORDER BY leave_type_id NULLS FIRST
  `, employeeID, termID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []BalanceRecord
	for rows.Next() {
		var rec BalanceRecord
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.TermID, &rec.LeaveTypeID, &rec.AllowedDays, &rec.UsedDays, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ProvisionSharedBalances creates the canonical shared-pool balance
// record for every employee in a shared-pool term, resolving each
// employee's allowance from the pooled entitlement rule. Existing
// records are left untouched, so the call is idempotent.
func (s *PgStore) ProvisionSharedBalances(ctx context.Context, termID string) (int, error) {
	tag, err := s.DB.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, term_id, leave_type_id, allowed_days, used_days)
    SELECT e.id, t.id, NULL, r.days_allowed, 0
    FROM employees e
    JOIN terms t ON t.id = $1 AND t.shared_pool
    JOIN entitlement_rules r
      ON r.employment_status = e.status AND r.term_type = t.term_type AND r.leave_type_id IS NULL
    ON CONFLICT (employee_id, term_id) WHERE leave_type_id IS NULL DO NOTHING
  `, termID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
