package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind discriminates the two request variants. Both share the same
// state machine and ledger contract; they differ only in payload.
type Kind string

const (
	KindLeave  Kind = "leave"
	KindTravel Kind = "travel"
)

// Request is a leave application or travel order. Once it leaves
// StatusPending it is never deleted or edited; reviews only append
// reviewer identity, timestamp and status.
type Request struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	TermID      string          `json:"termId"`
	Kind        Kind            `json:"kind"`
	LeaveTypeID string          `json:"leaveTypeId"`
	Destination string          `json:"destination,omitempty"`
	StartDate   time.Time       `json:"startDate"`
	EndDate     time.Time       `json:"endDate"`
	StartHalf   bool            `json:"startHalf"`
	EndHalf     bool            `json:"endHalf"`
	Days        decimal.Decimal `json:"days"`
	Reason      string          `json:"reason"`
	Status      Status          `json:"status"`

	HeadReviewedBy    string     `json:"headReviewedBy,omitempty"`
	HeadReviewedAt    *time.Time `json:"headReviewedAt,omitempty"`
	FinanceReviewedBy string     `json:"financeReviewedBy,omitempty"`
	FinanceReviewedAt *time.Time `json:"financeReviewedAt,omitempty"`
	RejectionReason   string     `json:"rejectionReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BalanceRecord is one ledger row: days allowed and used for an
// employee in a term, per leave type, or term-wide when LeaveTypeID is
// empty (shared-pool terms).
type BalanceRecord struct {
	ID          string          `json:"id"`
	EmployeeID  string          `json:"employeeId"`
	TermID      string          `json:"termId"`
	LeaveTypeID string          `json:"leaveTypeId,omitempty"`
	AllowedDays decimal.Decimal `json:"allowedDays"`
	UsedDays    decimal.Decimal `json:"usedDays"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (b BalanceRecord) RemainingDays() decimal.Decimal {
	return b.AllowedDays.Sub(b.UsedDays)
}

type RequestFilter struct {
	EmployeeID  string
	EmployeeIDs []string
	TermID      string
	Statuses    []Status
	Limit       int
	Offset      int
}
