package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/auth"
	"leavedesk/internal/platform/config"
)

func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensurePermissions(ctx, pool); err != nil {
		return err
	}

	roleIDs, err := ensureRoles(ctx, pool)
	if err != nil {
		return err
	}

	if err := ensureRolePermissions(ctx, pool, roleIDs); err != nil {
		return err
	}

	if err := ensureAdminUser(ctx, pool, roleIDs[auth.RoleHR], cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		return err
	}

	leaveTypeIDs, err := ensureLeaveTypes(ctx, pool)
	if err != nil {
		return err
	}

	if err := ensureEntitlementRules(ctx, pool, leaveTypeIDs); err != nil {
		return err
	}

	return ensureCurrentTerm(ctx, pool)
}

func ensurePermissions(ctx context.Context, pool *pgxpool.Pool) error {
	for _, perm := range auth.DefaultPermissions {
		_, err := pool.Exec(ctx, "INSERT INTO permissions (key) VALUES ($1) ON CONFLICT (key) DO NOTHING", perm)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureRoles(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	roleIDs := map[string]string{}
	for roleName := range auth.RolePermissions {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM roles WHERE name = $1", roleName).Scan(&id)
		if err == nil {
			roleIDs[roleName] = id
			continue
		}

		err = pool.QueryRow(ctx, "INSERT INTO roles (name) VALUES ($1) RETURNING id", roleName).Scan(&id)
		if err != nil {
			return nil, err
		}
		roleIDs[roleName] = id
	}
	return roleIDs, nil
}

func ensureRolePermissions(ctx context.Context, pool *pgxpool.Pool, roleIDs map[string]string) error {
	permMap := map[string]string{}
	rows, err := pool.Query(ctx, "SELECT id, key FROM permissions")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id, key string
		if err := rows.Scan(&id, &key); err != nil {
			return err
		}
		permMap[key] = id
	}

	for roleName, perms := range auth.RolePermissions {
		roleID := roleIDs[roleName]
		for _, permKey := range perms {
			permID, ok := permMap[permKey]
			if !ok {
				return errors.New("permission not found: " + permKey)
			}
			_, err := pool.Exec(ctx, "INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", roleID, permID)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, roleID, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return pool.QueryRow(ctx,
		"INSERT INTO users (email, password_hash, role_id) VALUES ($1, $2, $3) RETURNING id",
		email, hash, roleID).Scan(&id)
}

var defaultLeaveTypes = []struct {
	Name string
	Code string
}{
	{"Vacation Leave", "vacation"},
	{"Sick Leave", "sick"},
	{"Emergency Leave", "emergency"},
	{"Official Travel", "travel"},
}

func ensureLeaveTypes(ctx context.Context, pool *pgxpool.Pool) (map[string]string, error) {
	ids := map[string]string{}
	for _, lt := range defaultLeaveTypes {
		var id string
		err := pool.QueryRow(ctx, "SELECT id FROM leave_types WHERE code = $1", lt.Code).Scan(&id)
		if err == nil {
			ids[lt.Code] = id
			continue
		}
		err = pool.QueryRow(ctx, "INSERT INTO leave_types (name, code) VALUES ($1, $2) RETURNING id", lt.Name, lt.Code).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[lt.Code] = id
	}
	return ids, nil
}

// seedRule is one row of default entitlement policy. An empty leave
// type code is the pooled rule shared-pool terms resolve against.
type seedRule struct {
	status   string
	termType string
	leaveTyp string
	days     int64
}

var defaultRules = []seedRule{
	{"regular", "regular", "vacation", 15},
	{"regular", "regular", "sick", 15},
	{"regular", "regular", "emergency", 5},
	{"regular", "regular", "travel", 10},
	{"probationary", "regular", "vacation", 5},
	{"probationary", "regular", "sick", 5},
	{"probationary", "regular", "emergency", 3},
	{"probationary", "regular", "travel", 5},
	{"contractual", "regular", "vacation", 5},
	{"contractual", "regular", "sick", 5},
	{"contractual", "regular", "emergency", 3},
	{"contractual", "regular", "travel", 5},
	{"regular", "summer", "", 15},
	{"probationary", "summer", "", 5},
	{"contractual", "summer", "", 5},
}

func ensureEntitlementRules(ctx context.Context, pool *pgxpool.Pool, leaveTypeIDs map[string]string) error {
	for _, rule := range defaultRules {
		var leaveTypeID any
		if rule.leaveTyp != "" {
			id, ok := leaveTypeIDs[rule.leaveTyp]
			if !ok {
				return errors.New("leave type not found: " + rule.leaveTyp)
			}
			leaveTypeID = id
		}

		var count int
		var err error
		if leaveTypeID == nil {
			err = pool.QueryRow(ctx, `
        SELECT COUNT(1) FROM entitlement_rules
        WHERE employment_status = $1 AND term_type = $2 AND leave_type_id IS NULL
      `, rule.status, rule.termType).Scan(&count)
		} else {
			err = pool.QueryRow(ctx, `
        SELECT COUNT(1) FROM entitlement_rules
        WHERE employment_status = $1 AND term_type = $2 AND leave_type_id = $3
      `, rule.status, rule.termType, leaveTypeID).Scan(&count)
		}
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		_, err = pool.Exec(ctx, `
      INSERT INTO entitlement_rules (employment_status, term_type, leave_type_id, days_allowed)
      VALUES ($1, $2, $3, $4)
    `, rule.status, rule.termType, leaveTypeID, decimal.NewFromInt(rule.days))
		if err != nil {
			return err
		}
	}
	return nil
}

// ensureCurrentTerm creates a first regular term spanning the current
// calendar half-year so a fresh deployment can accept requests before
// HR configures the real academic calendar.
func ensureCurrentTerm(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM terms").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now()
	year := now.Year()
	var start, end time.Time
	var name string
	if now.Month() < time.July {
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
		name = fmt.Sprintf("Second Semester %d-%d", year-1, year)
	} else {
		start = time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
		name = fmt.Sprintf("First Semester %d-%d", year, year+1)
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO terms (name, academic_year, term_type, start_date, end_date, is_current, shared_pool)
    VALUES ($1, $2, 'regular', $3, $4, true, false)
  `, name, fmt.Sprintf("%d-%d", year, year+1), start, end)
	return err
}
