package core

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEmployeeNotFound = errors.New("employee not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) ListEmployees(ctx context.Context, limit, offset int) ([]Employee, int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, `
    SELECT id, COALESCE(user_id::text, ''), employee_number, first_name, last_name, email, department_id, position, status, start_date, end_date, created_at, updated_at
    FROM employees
    ORDER BY last_name, first_name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		var status string
		if err := rows.Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email, &e.DepartmentID, &e.Position, &status, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		e.Status = EmploymentStatus(status)
		employees = append(employees, e)
	}
	return employees, total, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	var e Employee
	var status string
	err := s.DB.QueryRow(ctx, `
    SELECT id, COALESCE(user_id::text, ''), employee_number, first_name, last_name, email, department_id, position, status, start_date, end_date, created_at, updated_at
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.UserID, &e.EmployeeNumber, &e.FirstName, &e.LastName, &e.Email, &e.DepartmentID, &e.Position, &status, &e.StartDate, &e.EndDate, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Status = EmploymentStatus(status)
	return &e, nil
}

func (s *Store) CreateEmployee(ctx context.Context, e Employee) (string, error) {
	if _, err := ParseEmploymentStatus(string(e.Status)); err != nil {
		return "", err
	}
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (user_id, employee_number, first_name, last_name, email, department_id, position, status, start_date)
    VALUES (NULLIF($1, '')::uuid,$2,$3,$4,$5,$6,$7,$8,$9)
    RETURNING id
  `, e.UserID, e.EmployeeNumber, e.FirstName, e.LastName, e.Email, e.DepartmentID, e.Position, string(e.Status), e.StartDate).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) EmployeeIDByUserID(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, "SELECT id FROM employees WHERE user_id = $1", userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// DepartmentHeadUserID resolves the reviewer for the first approval
// stage of an employee's requests.
func (s *Store) DepartmentHeadUserID(ctx context.Context, employeeID string) (string, error) {
	var userID string
	err := s.DB.QueryRow(ctx, `
    SELECT d.head_user_id
    FROM employees e
    JOIN departments d ON e.department_id = d.id
    WHERE e.id = $1
  `, employeeID).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return userID, err
}

// DepartmentEmployeeIDs lists the employees in every department the
// user heads. Review queues are scoped with it.
func (s *Store) DepartmentEmployeeIDs(ctx context.Context, headUserID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id
    FROM employees e
    JOIN departments d ON e.department_id = d.id
    WHERE d.head_user_id = $1
  `, headUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ListDepartments(ctx context.Context) ([]Department, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, head_user_id, created_at
    FROM departments
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []Department
	for rows.Next() {
		var d Department
		var head *string
		if err := rows.Scan(&d.ID, &d.Name, &head, &d.CreatedAt); err != nil {
			return nil, err
		}
		if head != nil {
			d.HeadUserID = *head
		}
		departments = append(departments, d)
	}
	return departments, nil
}

func (s *Store) CreateDepartment(ctx context.Context, name, headUserID string) (string, error) {
	var id string
	var head any
	if headUserID != "" {
		head = headUserID
	}
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, head_user_id)
    VALUES ($1,$2)
    RETURNING id
  `, name, head).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
