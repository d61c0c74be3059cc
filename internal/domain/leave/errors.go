package leave

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced request does not exist.
	ErrNotFound = errors.New("request not found")

	// ErrInvalidTransition is returned when a transition is attempted
	// from a state that does not match its guard, including any
	// attempt to move a request out of a terminal state. It indicates
	// a stale client or a caller bug, not an operational failure.
	ErrInvalidTransition = errors.New("invalid request state transition")

	// ErrReasonRequired is returned when a rejection carries no reason.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrRuleNotFound is returned when no entitlement rule covers the
	// employee's status and the term type. The rule table is seeded
	// policy data, so a miss is a setup problem.
	ErrRuleNotFound = errors.New("no entitlement rule for employment status and term type")
)

// RefusalError is the expected admission-control outcome: the employee
// may not submit right now. It carries a displayable reason and the
// requests that block the submission.
type RefusalError struct {
	Reason   string
	Blocking []Request
}

func (e *RefusalError) Error() string {
	return e.Reason
}

// TransientError marks a storage or connectivity failure while reading
// or writing request state. No rule was violated and no invariant is
// broken; the transaction rolled back and the caller may retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient store failure during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IntegrityError marks a broken storage invariant, such as a missing
// shared-pool balance row. It should page an operator rather than be
// shown to the requester.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation: %s", e.Detail)
}
