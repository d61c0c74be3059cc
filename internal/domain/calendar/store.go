package calendar

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNoCurrentTerm = errors.New("no current term configured")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListTerms(ctx context.Context) ([]Term, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, academic_year, term_type, start_date, end_date, is_current, shared_pool, created_at
    FROM terms
    ORDER BY start_date DESC
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []Term
	for rows.Next() {
		t, err := scanTerm(rows)
		if err != nil {
			return nil, err
		}
		terms = append(terms, *t)
	}
	return terms, nil
}

func (s *Store) GetTerm(ctx context.Context, termID string) (*Term, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, name, academic_year, term_type, start_date, end_date, is_current, shared_pool, created_at
    FROM terms
    WHERE id = $1
  `, termID)
	t, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("term %s not found", termID)
	}
	return t, err
}

// CurrentTerm returns the single term flagged current.
func (s *Store) CurrentTerm(ctx context.Context) (*Term, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT id, name, academic_year, term_type, start_date, end_date, is_current, shared_pool, created_at
    FROM terms
    WHERE is_current
    LIMIT 1
  `)
	t, err := scanTerm(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoCurrentTerm
	}
	return t, err
}

// CreateTerm inserts a term; marking it current clears the flag on every
// other term in the same transaction so at most one term is current.
func (s *Store) CreateTerm(ctx context.Context, t Term) (string, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	if t.IsCurrent {
		if _, err := tx.Exec(ctx, "UPDATE terms SET is_current = false WHERE is_current"); err != nil {
			return "", err
		}
	}

	var id string
	if err := tx.QueryRow(ctx, `
    INSERT INTO terms (name, academic_year, term_type, start_date, end_date, is_current, shared_pool)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, t.Name, t.AcademicYear, string(t.Type), t.StartDate, t.EndDate, t.IsCurrent, t.SharedPool).Scan(&id); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, code, created_at
    FROM leave_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []LeaveType
	for rows.Next() {
		var lt LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Code, &lt.CreatedAt); err != nil {
			return nil, err
		}
		types = append(types, lt)
	}
	return types, nil
}

func scanTerm(row pgx.Row) (*Term, error) {
	var t Term
	var termType string
	if err := row.Scan(&t.ID, &t.Name, &t.AcademicYear, &termType, &t.StartDate, &t.EndDate, &t.IsCurrent, &t.SharedPool, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = TermType(termType)
	return &t, nil
}
