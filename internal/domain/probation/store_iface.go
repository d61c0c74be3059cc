package probation

import (
	"context"
	"time"
)

// Store is the persistence contract for the probation pipeline.
type Store interface {
	ListRecords(ctx context.Context, status RecordStatus) ([]Record, error)
	CreateRecord(ctx context.Context, employeeID string, start, expectedEnd time.Time) (*Record, error)

	// ExpiredActive returns active records whose expected end date is on
	// or before asOf.
	ExpiredActive(ctx context.Context, asOf time.Time) ([]Record, error)

	// CompleteAndPromote marks the record completed and promotes the
	// employee to regular status, atomically. Both writes are guarded by
	// the expected prior state; it reports false without error when the
	// record was already completed by an earlier run.
	CompleteAndPromote(ctx context.Context, recordID, employeeID string, at time.Time) (bool, error)

	EmployeeUserID(ctx context.Context, employeeID string) (string, error)
}
