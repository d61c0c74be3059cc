package leave

import (
	"context"
	"time"
)

// Admission is the outcome of a submission preflight. A refusal is an
// expected answer, not an error: Reason is displayable and Blocking
// lists the requests standing in the way.
type Admission struct {
	Allowed  bool      `json:"allowed"`
	Reason   string    `json:"reason,omitempty"`
	Blocking []Request `json:"blocking,omitempty"`
}

// Validator decides whether an employee may submit a new request.
// CanSubmit evaluates committed data and is safe to expose as a UI
// preflight; the submit path re-runs the same rules through check
// inside the insert transaction, which closes the window between
// check and insert.
type Validator struct {
	Store Store
}

func NewValidator(store Store) *Validator {
	return &Validator{Store: store}
}

func (v *Validator) CanSubmit(ctx context.Context, employeeID string, start, end time.Time) (*Admission, error) {
	err := v.check(ctx, v.Store, employeeID, "", start, end)
	if err == nil {
		return &Admission{Allowed: true}, nil
	}
	if refusal, ok := err.(*RefusalError); ok {
		return &Admission{Allowed: false, Reason: refusal.Reason, Blocking: refusal.Blocking}, nil
	}
	return nil, err
}

// requestReads is the read slice shared by Store and Tx so the same
// rules run both as a preflight and inside the submit transaction.
type requestReads interface {
	InFlightRequests(ctx context.Context, employeeID string) ([]Request, error)
	ApprovedOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error)
}

// check applies both admission rules. excludeID skips the employee's
// own request when an edit re-validates its dates. It returns a
// *RefusalError for rule violations and a *TransientError for I/O
// failure.
func (v *Validator) check(ctx context.Context, reads requestReads, employeeID, excludeID string, start, end time.Time) error {
	inFlight, err := reads.InFlightRequests(ctx, employeeID)
	if err != nil {
		return &TransientError{Op: "admission in-flight lookup", Err: err}
	}
	var blocking []Request
	for _, req := range inFlight {
		if req.ID == excludeID {
			continue
		}
		blocking = append(blocking, req)
	}
	if len(blocking) > 0 {
		return &RefusalError{
			Reason:   "you already have a request awaiting review",
			Blocking: blocking,
		}
	}

	approved, err := reads.ApprovedOverlapping(ctx, employeeID, start, end)
	if err != nil {
		return &TransientError{Op: "admission overlap lookup", Err: err}
	}
	var conflicting []Request
	for _, req := range approved {
		if req.ID == excludeID {
			continue
		}
		if Overlaps(start, end, req.StartDate, req.EndDate) {
			conflicting = append(conflicting, req)
		}
	}
	if len(conflicting) > 0 {
		return &RefusalError{
			Reason:   "the requested dates overlap an already approved request",
			Blocking: conflicting,
		}
	}

	return nil
}
