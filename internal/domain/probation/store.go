package probation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"leavedesk/internal/domain/core"
)

type PgStore struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

const recordColumns = `id, employee_id, start_date, expected_end, status, completed_at, notified, created_at, updated_at`

func (s *PgStore) scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		var status string
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.StartDate, &rec.ExpectedEnd, &status, &rec.CompletedAt, &rec.Notified, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = RecordStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *PgStore) ListRecords(ctx context.Context, status RecordStatus) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM probation_records"
	args := []any{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY expected_end"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return s.scanRecords(rows)
}

func (s *PgStore) CreateRecord(ctx context.Context, employeeID string, start, expectedEnd time.Time) (*Record, error) {
	rec := Record{
		EmployeeID:  employeeID,
		StartDate:   start,
		ExpectedEnd: expectedEnd,
		Status:      StatusActive,
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO probation_records (employee_id, start_date, expected_end, status)
    VALUES ($1, $2, $3, $4)
    RETURNING id, created_at, updated_at
  `, employeeID, start, expectedEnd, string(StatusActive)).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PgStore) ExpiredActive(ctx context.Context, asOf time.Time) ([]Record, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+recordColumns+`
    FROM probation_records
    WHERE status = $1 AND expected_end <= $2
    ORDER BY expected_end
  `, string(StatusActive), asOf)
	if err != nil {
		return nil, err
	}
	return s.scanRecords(rows)
}

func (s *PgStore) CompleteAndPromote(ctx context.Context, recordID, employeeID string, at time.Time) (bool, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	rollback := func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("probation rollback failed", "error", rbErr)
		}
	}

	// Notified flips with the completion itself. The notice is only
	// dispatched after this commits, so a crash in between loses the
	// notice rather than repeating it on the next sweep.
	tag, err := tx.Exec(ctx, `
    UPDATE probation_records
    SET status = $1, completed_at = $2, notified = true, updated_at = now()
    WHERE id = $3 AND status = $4
  `, string(StatusCompleted), at, recordID, string(StatusActive))
	if err != nil {
		rollback()
		return false, err
	}
	if tag.RowsAffected() == 0 {
		rollback()
		return false, nil
	}

	promoted, err := core.StatusProbationary.Promote()
	if err != nil {
		rollback()
		return false, err
	}
	tag, err = tx.Exec(ctx, `
    UPDATE employees
    SET status = $1, updated_at = now()
    WHERE id = $2 AND status = $3
  `, string(promoted), employeeID, string(core.StatusProbationary))
	if err != nil {
		rollback()
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// The record was active but the employee is no longer
		// probationary. Complete the record anyway so the sweep stops
		// revisiting it, and leave a trace for the operator.
		slog.Warn("probation record active but employee not probationary",
			"record_id", recordID, "employee_id", employeeID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PgStore) EmployeeUserID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, "SELECT COALESCE(user_id::text, '') FROM employees WHERE id = $1", employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}
