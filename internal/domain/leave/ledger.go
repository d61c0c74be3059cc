package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance is the employee-facing view of one allowance: what the
// entitlement rule grants, what approved requests have consumed, and
// what remains. For shared-pool terms LeaveTypeID is empty and Used
// aggregates every category in the term.
type Balance struct {
	EmployeeID  string          `json:"employeeId"`
	TermID      string          `json:"termId"`
	LeaveTypeID string          `json:"leaveTypeId,omitempty"`
	SharedPool  bool            `json:"sharedPool"`
	Allowed     decimal.Decimal `json:"allowed"`
	Used        decimal.Decimal `json:"used"`
	Remaining   decimal.Decimal `json:"remaining"`
}

// Ledger tracks per-employee leave allowances. Reads are computed from
// the entitlement rules and the approved requests; Deduct maintains the
// materialized balance records and runs only inside the workflow's
// final-approval transaction.
type Ledger struct {
	Store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{Store: store}
}

func (l *Ledger) Balance(ctx context.Context, employeeID, termID, leaveTypeID string) (*Balance, error) {
	term, err := l.Store.GetTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	status, err := l.Store.EmployeeStatus(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	ruleLeaveType := leaveTypeID
	usageLeaveType := leaveTypeID
	if term.SharedPool {
		// One pooled allowance for the whole term.
		ruleLeaveType = ""
		usageLeaveType = ""
	}

	allowed, err := l.Store.EntitlementDays(ctx, status, term.Type, ruleLeaveType)
	if err != nil {
		return nil, err
	}
	used, err := l.Store.ApprovedDays(ctx, employeeID, termID, usageLeaveType)
	if err != nil {
		return nil, err
	}

	balance := &Balance{
		EmployeeID:  employeeID,
		TermID:      termID,
		SharedPool:  term.SharedPool,
		Allowed:     allowed,
		Used:        used,
		Remaining:   allowed.Sub(used),
	}
	if !term.SharedPool {
		balance.LeaveTypeID = leaveTypeID
	}
	return balance, nil
}

// Deduct applies a request's day count to the ledger. It must be
// called exactly once per request, inside the same transaction as the
// final-approval status transition; any error here rolls back that
// transition.
func (l *Ledger) Deduct(ctx context.Context, tx Tx, req *Request, sharedPool bool, allowed decimal.Decimal) error {
	if sharedPool {
		found, err := tx.AddSharedUsage(ctx, req.EmployeeID, req.TermID, req.Days)
		if err != nil {
			return &TransientError{Op: "shared pool deduction", Err: err}
		}
		if !found {
			return &IntegrityError{
				Detail: fmt.Sprintf("no shared-pool balance record for employee %s in term %s", req.EmployeeID, req.TermID),
			}
		}
		return nil
	}

	err := tx.UpsertUsage(ctx, Usage{
		EmployeeID:  req.EmployeeID,
		TermID:      req.TermID,
		LeaveTypeID: req.LeaveTypeID,
		AllowedDays: allowed,
		Days:        req.Days,
	})
	if err != nil {
		return &TransientError{Op: "balance deduction", Err: err}
	}
	return nil
}
