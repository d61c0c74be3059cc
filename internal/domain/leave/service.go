package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Event kinds handed to the notification gateway. Dispatch is
// best-effort and always happens after the state change committed.
const (
	EventSubmitted    = "request_submitted"
	EventHeadApproved = "request_head_approved"
	EventHeadRejected = "request_head_rejected"
	EventApproved     = "request_approved"
	EventRejected     = "request_rejected"
	EventReviewNeeded = "request_review_needed"
)

// Notifier delivers workflow events to users. Implementations must not
// block beyond a bounded timeout and must swallow their own failures;
// a committed transition is never reverted because a notification
// could not be delivered.
type Notifier interface {
	Dispatch(ctx context.Context, userID, kind, title, body string)
}

// Service owns the request lifecycle: admission-checked submission,
// pending-only edits, the two review stages, and the single ledger
// deduction on final approval.
type Service struct {
	Store     Store
	Ledger    *Ledger
	Validator *Validator
	Notify    Notifier

	// EnforceBalanceAtSubmit additionally refuses submissions whose
	// day count exceeds the remaining allowance. Off by default:
	// approval-time review is the usual gate.
	EnforceBalanceAtSubmit bool

	now func() time.Time
}

func NewService(store Store, notify Notifier) *Service {
	return &Service{
		Store:     store,
		Ledger:    NewLedger(store),
		Validator: NewValidator(store),
		Notify:    notify,
		now:       time.Now,
	}
}

type SubmitInput struct {
	EmployeeID  string
	Kind        Kind
	LeaveTypeID string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	StartHalf   bool
	EndHalf     bool
	Reason      string
}

// Submit creates a request in StatusPending. Admission control runs
// inside the same transaction as the insert, with the employee's
// request rows locked, so two racing submissions cannot both pass the
// single in-flight rule.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*Request, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return nil, errors.New("employee id is required")
	}

	leaveTypeID := in.LeaveTypeID
	switch in.Kind {
	case KindLeave:
		if leaveTypeID == "" {
			return nil, errors.New("leave type is required for a leave application")
		}
	case KindTravel:
		if strings.TrimSpace(in.Destination) == "" {
			return nil, errors.New("destination is required for a travel order")
		}
		var err error
		leaveTypeID, err = s.Store.LeaveTypeIDByCode(ctx, "travel")
		if err != nil {
			return nil, fmt.Errorf("travel category lookup: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown request kind %q", string(in.Kind))
	}

	days, err := RequestDays(in.StartDate, in.EndDate, in.StartHalf, in.EndHalf)
	if err != nil {
		return nil, err
	}

	term, err := s.Store.CurrentTerm(ctx)
	if err != nil {
		return nil, err
	}

	if s.EnforceBalanceAtSubmit {
		balance, err := s.Ledger.Balance(ctx, in.EmployeeID, term.ID, leaveTypeID)
		if err != nil {
			return nil, err
		}
		if balance.Remaining.LessThan(days) {
			return nil, &RefusalError{
				Reason: fmt.Sprintf("requested %s days but only %s remaining", days.String(), balance.Remaining.String()),
			}
		}
	}

	now := s.now()
	req := &Request{
		EmployeeID:  in.EmployeeID,
		TermID:      term.ID,
		Kind:        in.Kind,
		LeaveTypeID: leaveTypeID,
		Destination: in.Destination,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		StartHalf:   in.StartHalf,
		EndHalf:     in.EndHalf,
		Days:        days,
		Reason:      in.Reason,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.Store.InTx(ctx, func(tx Tx) error {
		if err := s.Validator.check(ctx, tx, in.EmployeeID, "", in.StartDate, in.EndDate); err != nil {
			return err
		}
		if err := tx.InsertRequest(ctx, req); err != nil {
			return &TransientError{Op: "request insert", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatchToHead(ctx, req, EventSubmitted, "New request awaiting review",
		fmt.Sprintf("A %s request for %s days was submitted.", string(req.Kind), req.Days.String()))
	return req, nil
}

type EditInput struct {
	StartDate   time.Time
	EndDate     time.Time
	StartHalf   bool
	EndHalf     bool
	Reason      string
	Destination string
}

// Edit updates a request's mutable fields. Only pending requests may
// change, and a date change re-runs the overlap rule inside the same
// transaction.
func (s *Service) Edit(ctx context.Context, requestID string, in EditInput) (*Request, error) {
	days, err := RequestDays(in.StartDate, in.EndDate, in.StartHalf, in.EndHalf)
	if err != nil {
		return nil, err
	}

	var updated *Request
	err = s.Store.InTx(ctx, func(tx Tx) error {
		req, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusPending {
			return ErrInvalidTransition
		}

		datesChanged := !dateOnly(req.StartDate).Equal(dateOnly(in.StartDate)) ||
			!dateOnly(req.EndDate).Equal(dateOnly(in.EndDate))
		if datesChanged {
			if err := s.Validator.check(ctx, tx, req.EmployeeID, req.ID, in.StartDate, in.EndDate); err != nil {
				return err
			}
		}

		req.StartDate = in.StartDate
		req.EndDate = in.EndDate
		req.StartHalf = in.StartHalf
		req.EndHalf = in.EndHalf
		req.Days = days
		if in.Reason != "" {
			req.Reason = in.Reason
		}
		if req.Kind == KindTravel && in.Destination != "" {
			req.Destination = in.Destination
		}
		req.UpdatedAt = s.now()

		if err := tx.UpdateRequestFields(ctx, req); err != nil {
			return err
		}
		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// HeadApprove records the first-stage approval and forwards the
// request to finance review.
func (s *Service) HeadApprove(ctx context.Context, requestID, reviewerID string) (*Request, error) {
	req, err := s.transition(ctx, requestID, StatusPending, StatusHeadApproved, reviewerID, "")
	if err != nil {
		return nil, err
	}
	s.dispatchToEmployee(ctx, req, EventHeadApproved, "Request endorsed",
		"Your request was approved by your department head and forwarded to finance.")
	return req, nil
}

// HeadReject terminates the request at the first stage.
func (s *Service) HeadReject(ctx context.Context, requestID, reviewerID, reason string) (*Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	req, err := s.transition(ctx, requestID, StatusPending, StatusHeadRejected, reviewerID, reason)
	if err != nil {
		return nil, err
	}
	s.dispatchToEmployee(ctx, req, EventHeadRejected, "Request rejected",
		fmt.Sprintf("Your request was rejected by your department head: %s", reason))
	return req, nil
}

// FinalApprove moves the request to its approved terminal state and
// deducts its day count from the ledger, atomically: a failure in
// either part rolls back both. The term and entitlement rule are
// resolved up front because TermID and LeaveTypeID never change after
// submit; the request row itself is re-read under lock inside the
// transaction, since a pending edit can still change its day count.
func (s *Service) FinalApprove(ctx context.Context, requestID, reviewerID string) (*Request, error) {
	current, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	term, err := s.Store.GetTerm(ctx, current.TermID)
	if err != nil {
		return nil, err
	}
	allowed := decimal.Zero
	if !term.SharedPool {
		status, err := s.Store.EmployeeStatus(ctx, current.EmployeeID)
		if err != nil {
			return nil, err
		}
		allowed, err = s.Store.EntitlementDays(ctx, status, term.Type, current.LeaveTypeID)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	err = s.Store.InTx(ctx, func(tx Tx) error {
		fresh, err := tx.GetRequestForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		ok, err := tx.TransitionStatus(ctx, requestID, StatusHeadApproved, StatusApproved, reviewerID, now, "")
		if err != nil {
			return &TransientError{Op: "final approval transition", Err: err}
		}
		if !ok {
			return ErrInvalidTransition
		}
		return s.Ledger.Deduct(ctx, tx, fresh, term.SharedPool, allowed)
	})
	if err != nil {
		return nil, err
	}

	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	s.dispatchToEmployee(ctx, req, EventApproved, "Request approved",
		fmt.Sprintf("Your %s request for %s days is fully approved.", string(req.Kind), req.Days.String()))
	return req, nil
}

// FinalReject terminates a head-approved request without touching the
// ledger, and additionally signals the first-stage reviewer that their
// endorsement was overridden.
func (s *Service) FinalReject(ctx context.Context, requestID, reviewerID, reason string) (*Request, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	req, err := s.transition(ctx, requestID, StatusHeadApproved, StatusRejected, reviewerID, reason)
	if err != nil {
		return nil, err
	}
	s.dispatchToEmployee(ctx, req, EventRejected, "Request rejected",
		fmt.Sprintf("Your request was rejected by finance: %s", reason))
	if s.Notify != nil && req.HeadReviewedBy != "" {
		s.Notify.Dispatch(ctx, req.HeadReviewedBy, EventReviewNeeded, "Endorsement overridden",
			fmt.Sprintf("A request you endorsed was rejected by finance: %s", reason))
	}
	return req, nil
}

func (s *Service) transition(ctx context.Context, requestID string, from, to Status, reviewerID, reason string) (*Request, error) {
	if _, err := s.Store.GetRequest(ctx, requestID); err != nil {
		return nil, err
	}

	now := s.now()
	err := s.Store.InTx(ctx, func(tx Tx) error {
		ok, err := tx.TransitionStatus(ctx, requestID, from, to, reviewerID, now, reason)
		if err != nil {
			return &TransientError{Op: "review transition", Err: err}
		}
		if !ok {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Store.GetRequest(ctx, requestID)
}

func (s *Service) dispatchToEmployee(ctx context.Context, req *Request, kind, title, body string) {
	if s.Notify == nil {
		return
	}
	userID, err := s.Store.EmployeeUserID(ctx, req.EmployeeID)
	if err != nil || userID == "" {
		return
	}
	s.Notify.Dispatch(ctx, userID, kind, title, body)
}

func (s *Service) dispatchToHead(ctx context.Context, req *Request, kind, title, body string) {
	if s.Notify == nil {
		return
	}
	userID, err := s.Store.DepartmentHeadUserID(ctx, req.EmployeeID)
	if err != nil || userID == "" {
		return
	}
	s.Notify.Dispatch(ctx, userID, kind, title, body)
}
