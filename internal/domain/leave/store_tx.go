package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func (s *PgStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct {
	tx pgx.Tx
}

// lockEmployee takes a row lock on the employee, serializing admission
// checks per employee so two concurrent submissions cannot both observe
// an empty in-flight set.
func (t *pgTx) lockEmployee(ctx context.Context, employeeID string) error {
	var id string
	err := t.tx.QueryRow(ctx, "SELECT id FROM employees WHERE id = $1 FOR UPDATE", employeeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("employee %s not found", employeeID)
	}
	return err
}

func (t *pgTx) InFlightRequests(ctx context.Context, employeeID string) ([]Request, error) {
	if err := t.lockEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	return inFlightRequests(ctx, t.tx, employeeID, true)
}

func (t *pgTx) ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error) {
	return approvedOverlapping(ctx, t.tx, employeeID, start, end)
}

func (t *pgTx) InsertRequest(ctx context.Context, req *Request) error {
	return t.tx.QueryRow(ctx, `
    INSERT INTO requests (
      employee_id, term_id, kind, leave_type_id, destination,
      start_date, end_date, start_half, end_half, days, reason, status
    ) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12)
    RETURNING id, created_at, updated_at
  `,
		req.EmployeeID, req.TermID, string(req.Kind), req.LeaveTypeID, req.Destination,
		req.StartDate, req.EndDate, req.StartHalf, req.EndHalf, req.Days, req.Reason, string(req.Status),
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (t *pgTx) GetRequestForUpdate(ctx context.Context, requestID string) (*Request, error) {
	return getRequest(ctx, t.tx, requestID, true)
}

func (t *pgTx) UpdateRequestFields(ctx context.Context, req *Request) error {
	_, err := t.tx.Exec(ctx, `
    UPDATE requests
    SET start_date = $1, end_date = $2, start_half = $3, end_half = $4,
        days = $5, reason = $6, destination = NULLIF($7, ''), updated_at = now()
    WHERE id = $8
  `, req.StartDate, req.EndDate, req.StartHalf, req.EndHalf, req.Days, req.Reason, req.Destination, req.ID)
	return err
}

func (t *pgTx) TransitionStatus(ctx context.Context, requestID string, from, to Status, reviewerID string, reviewedAt time.Time, rejectionReason string) (bool, error) {
	if !from.CanTransition(to) {
		return false, fmt.Errorf("transition %s -> %s is not defined", from, to)
	}

	var query string
	switch to {
	case StatusHeadApproved, StatusHeadRejected:
		query = `
      UPDATE requests
      SET status = $1, head_reviewed_by = $2, head_reviewed_at = $3,
          rejection_reason = NULLIF($4, ''), updated_at = now()
      WHERE id = $5 AND status = $6`
	default:
		query = `
      UPDATE requests
      SET status = $1, finance_reviewed_by = $2, finance_reviewed_at = $3,
          rejection_reason = NULLIF($4, ''), updated_at = now()
      WHERE id = $5 AND status = $6`
	}

	tag, err := t.tx.Exec(ctx, query, string(to), reviewerID, reviewedAt, rejectionReason, requestID, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) UpsertUsage(ctx context.Context, u Usage) error {
	_, err := t.tx.Exec(ctx, `
    INSERT INTO leave_balances (employee_id, term_id, leave_type_id, allowed_days, used_days)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (employee_id, term_id, leave_type_id) WHERE leave_type_id IS NOT NULL
    DO UPDATE SET used_days = leave_balances.used_days + EXCLUDED.used_days, updated_at = now()
  `, u.EmployeeID, u.TermID, u.LeaveTypeID, u.AllowedDays, u.Days)
	return err
}

func (t *pgTx) AddSharedUsage(ctx context.Context, employeeID, termID string, days decimal.Decimal) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
    UPDATE leave_balances
    SET used_days = used_days + $1, updated_at = now()
    WHERE employee_id = $2 AND term_id = $3 AND leave_type_id IS NULL
  `, days, employeeID, termID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
