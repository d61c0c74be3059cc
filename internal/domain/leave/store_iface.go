package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
)

// Store is the persistence contract for the approval workflow, the
// ledger and admission control. Reads outside InTx see committed data
// only; every state mutation happens inside an InTx closure so that a
// guard check and its mutation commit or roll back together.
type Store interface {
	// InTx runs fn inside a single transaction. The Tx passed to fn
	// locks the rows it reads for update, making check-then-mutate
	// sequences serial per affected row.
	InTx(ctx context.Context, fn func(Tx) error) error

	GetRequest(ctx context.Context, requestID string) (*Request, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]Request, int, error)
	InFlightRequests(ctx context.Context, employeeID string) ([]Request, error)
	ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error)

	CurrentTerm(ctx context.Context) (*calendar.Term, error)
	GetTerm(ctx context.Context, termID string) (*calendar.Term, error)
	EmployeeStatus(ctx context.Context, employeeID string) (core.EmploymentStatus, error)
	EmployeeUserID(ctx context.Context, employeeID string) (string, error)
	DepartmentHeadUserID(ctx context.Context, employeeID string) (string, error)
	LeaveTypeIDByCode(ctx context.Context, code string) (string, error)

	// EntitlementDays resolves the policy table. An empty leaveTypeID
	// selects the shared-pool rule for the term type.
	EntitlementDays(ctx context.Context, status core.EmploymentStatus, termType calendar.TermType, leaveTypeID string) (decimal.Decimal, error)

	// ApprovedDays sums the day counts of fully approved requests in
	// the term. An empty leaveTypeID sums across all categories.
	ApprovedDays(ctx context.Context, employeeID, termID, leaveTypeID string) (decimal.Decimal, error)

	BalanceRecords(ctx context.Context, employeeID, termID string) ([]BalanceRecord, error)
}

// Tx is the transactional slice of the store used by the workflow.
type Tx interface {
	InFlightRequests(ctx context.Context, employeeID string) ([]Request, error)
	ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error)
	InsertRequest(ctx context.Context, req *Request) error
	GetRequestForUpdate(ctx context.Context, requestID string) (*Request, error)
	UpdateRequestFields(ctx context.Context, req *Request) error

	// TransitionStatus performs a compare-and-swap on the status
	// column keyed by the expected prior state, recording the reviewer
	// and timestamp for the stage being decided. It reports false when
	// the request exists but is not in the expected state.
	TransitionStatus(ctx context.Context, requestID string, from, to Status, reviewerID string, reviewedAt time.Time, rejectionReason string) (bool, error)

	// UpsertUsage increments used days on the per-category balance
	// record, creating it with the supplied allowance when absent.
	UpsertUsage(ctx context.Context, u Usage) error

	// AddSharedUsage increments used days on the canonical shared-pool
	// record for the employee and term. It reports false when no such
	// record exists.
	AddSharedUsage(ctx context.Context, employeeID, termID string, days decimal.Decimal) (bool, error)
}

// Usage is one ledger mutation: the deduction applied when a request
// reaches final approval.
type Usage struct {
	EmployeeID  string
	TermID      string
	LeaveTypeID string
	AllowedDays decimal.Decimal
	Days        decimal.Decimal
}
