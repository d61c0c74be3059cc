package leave

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
)

// fakeStore is an in-memory Store for service tests. InTx holds the
// store lock for the whole closure and restores a snapshot on error,
// which mirrors the serialization and rollback the real store gets
// from row locks and transactions.
type fakeStore struct {
	mu sync.Mutex

	requests      map[string]*Request
	terms         map[string]*calendar.Term
	currentTermID string
	employees     map[string]*fakeEmployee
	leaveTypes    map[string]string
	rules         map[string]decimal.Decimal
	balances      map[string]*BalanceRecord

	insertErr   error
	inFlightErr error
	seq         int
}

type fakeEmployee struct {
	status     core.EmploymentStatus
	userID     string
	headUserID string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		requests:   map[string]*Request{},
		terms:      map[string]*calendar.Term{},
		employees:  map[string]*fakeEmployee{},
		leaveTypes: map[string]string{},
		rules:      map[string]decimal.Decimal{},
		balances:   map[string]*BalanceRecord{},
	}
}

func ruleKey(status core.EmploymentStatus, termType calendar.TermType, leaveTypeID string) string {
	return string(status) + "|" + string(termType) + "|" + leaveTypeID
}

func balanceKey(employeeID, termID, leaveTypeID string) string {
	return employeeID + "|" + termID + "|" + leaveTypeID
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) addTerm(t calendar.Term) {
	f.terms[t.ID] = &t
	if t.IsCurrent {
		f.currentTermID = t.ID
	}
}

func (f *fakeStore) addEmployee(id string, e fakeEmployee) {
	f.employees[id] = &e
}

func (f *fakeStore) addRule(status core.EmploymentStatus, termType calendar.TermType, leaveTypeID string, days decimal.Decimal) {
	f.rules[ruleKey(status, termType, leaveTypeID)] = days
}

func (f *fakeStore) addBalance(rec BalanceRecord) {
	rec.ID = f.nextID("bal")
	f.balances[balanceKey(rec.EmployeeID, rec.TermID, rec.LeaveTypeID)] = &rec
}

func (f *fakeStore) addRequest(req Request) *Request {
	if req.ID == "" {
		req.ID = f.nextID("req")
	}
	f.requests[req.ID] = &req
	return &req
}

func cloneRequests(src map[string]*Request) map[string]*Request {
	out := make(map[string]*Request, len(src))
	for id, req := range src {
		copied := *req
		out[id] = &copied
	}
	return out
}

func cloneBalances(src map[string]*BalanceRecord) map[string]*BalanceRecord {
	out := make(map[string]*BalanceRecord, len(src))
	for key, rec := range src {
		copied := *rec
		out[key] = &copied
	}
	return out
}

func (f *fakeStore) InTx(_ context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	savedRequests := cloneRequests(f.requests)
	savedBalances := cloneBalances(f.balances)
	savedSeq := f.seq

	if err := fn(&fakeTx{store: f}); err != nil {
		f.requests = savedRequests
		f.balances = savedBalances
		f.seq = savedSeq
		return err
	}
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, requestID string) (*Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getRequest(requestID)
}

func (f *fakeStore) getRequest(requestID string) (*Request, error) {
	req, ok := f.requests[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeStore) ListRequests(_ context.Context, filter RequestFilter) ([]Request, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Request
	for _, req := range f.requests {
		if filter.EmployeeID != "" && req.EmployeeID != filter.EmployeeID {
			continue
		}
		if filter.TermID != "" && req.TermID != filter.TermID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if req.Status == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, *req)
	}
	return out, len(out), nil
}

func (f *fakeStore) InFlightRequests(_ context.Context, employeeID string) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlightErr != nil {
		return nil, f.inFlightErr
	}
	return f.inFlight(employeeID), nil
}

func (f *fakeStore) inFlight(employeeID string) []Request {
	var out []Request
	for _, req := range f.requests {
		if req.EmployeeID == employeeID && req.Status.InFlight() {
			out = append(out, *req)
		}
	}
	return out
}

func (f *fakeStore) ApprovedOverlapping(_ context.Context, employeeID string, start, end time.Time) ([]Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.approvedOverlapping(employeeID, start, end), nil
}

func (f *fakeStore) approvedOverlapping(employeeID string, start, end time.Time) []Request {
	var out []Request
	for _, req := range f.requests {
		if req.EmployeeID == employeeID && req.Status == StatusApproved && Overlaps(start, end, req.StartDate, req.EndDate) {
			out = append(out, *req)
		}
	}
	return out
}

func (f *fakeStore) CurrentTerm(_ context.Context) (*calendar.Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term, ok := f.terms[f.currentTermID]
	if !ok {
		return nil, calendar.ErrNoCurrentTerm
	}
	copied := *term
	return &copied, nil
}

func (f *fakeStore) GetTerm(_ context.Context, termID string) (*calendar.Term, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	term, ok := f.terms[termID]
	if !ok {
		return nil, fmt.Errorf("term %s not found", termID)
	}
	copied := *term
	return &copied, nil
}

func (f *fakeStore) EmployeeStatus(_ context.Context, employeeID string) (core.EmploymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	emp, ok := f.employees[employeeID]
	if !ok {
		return "", core.ErrEmployeeNotFound
	}
	return emp.status, nil
}

func (f *fakeStore) EmployeeUserID(_ context.Context, employeeID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if emp, ok := f.employees[employeeID]; ok {
		return emp.userID, nil
	}
	return "", nil
}

func (f *fakeStore) DepartmentHeadUserID(_ context.Context, employeeID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if emp, ok := f.employees[employeeID]; ok {
		return emp.headUserID, nil
	}
	return "", nil
}

func (f *fakeStore) LeaveTypeIDByCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.leaveTypes[code]; ok {
		return id, nil
	}
	return "", fmt.Errorf("leave type %q not configured", code)
}

func (f *fakeStore) EntitlementDays(_ context.Context, status core.EmploymentStatus, termType calendar.TermType, leaveTypeID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if days, ok := f.rules[ruleKey(status, termType, leaveTypeID)]; ok {
		return days, nil
	}
	return decimal.Zero, ErrRuleNotFound
}

func (f *fakeStore) ApprovedDays(_ context.Context, employeeID, termID, leaveTypeID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum := decimal.Zero
	for _, req := range f.requests {
		if req.EmployeeID != employeeID || req.TermID != termID || req.Status != StatusApproved {
			continue
		}
		if leaveTypeID != "" && req.LeaveTypeID != leaveTypeID {
			continue
		}
		sum = sum.Add(req.Days)
	}
	return sum, nil
}

func (f *fakeStore) BalanceRecords(_ context.Context, employeeID, termID string) ([]BalanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []BalanceRecord
	for _, rec := range f.balances {
		if rec.EmployeeID == employeeID && rec.TermID == termID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// fakeTx runs with the store lock already held by InTx.
type fakeTx struct {
	store *fakeStore
}

func (t *fakeTx) InFlightRequests(_ context.Context, employeeID string) ([]Request, error) {
	if t.store.inFlightErr != nil {
		return nil, t.store.inFlightErr
	}
	return t.store.inFlight(employeeID), nil
}

func (t *fakeTx) ApprovedOverlapping(_ context.Context, employeeID string, start, end time.Time) ([]Request, error) {
	return t.store.approvedOverlapping(employeeID, start, end), nil
}

func (t *fakeTx) InsertRequest(_ context.Context, req *Request) error {
	if t.store.insertErr != nil {
		return t.store.insertErr
	}
	req.ID = t.store.nextID("req")
	copied := *req
	t.store.requests[req.ID] = &copied
	return nil
}

func (t *fakeTx) GetRequestForUpdate(_ context.Context, requestID string) (*Request, error) {
	return t.store.getRequest(requestID)
}

func (t *fakeTx) UpdateRequestFields(_ context.Context, req *Request) error {
	stored, ok := t.store.requests[req.ID]
	if !ok {
		return ErrNotFound
	}
	copied := *req
	copied.Status = stored.Status
	t.store.requests[req.ID] = &copied
	return nil
}

func (t *fakeTx) TransitionStatus(_ context.Context, requestID string, from, to Status, reviewerID string, reviewedAt time.Time, rejectionReason string) (bool, error) {
	req, ok := t.store.requests[requestID]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	switch to {
	case StatusHeadApproved, StatusHeadRejected:
		req.HeadReviewedBy = reviewerID
		at := reviewedAt
		req.HeadReviewedAt = &at
	default:
		req.FinanceReviewedBy = reviewerID
		at := reviewedAt
		req.FinanceReviewedAt = &at
	}
	if rejectionReason != "" {
		req.RejectionReason = rejectionReason
	}
	req.UpdatedAt = reviewedAt
	return true, nil
}

func (t *fakeTx) UpsertUsage(_ context.Context, u Usage) error {
	key := balanceKey(u.EmployeeID, u.TermID, u.LeaveTypeID)
	if rec, ok := t.store.balances[key]; ok {
		rec.UsedDays = rec.UsedDays.Add(u.Days)
		return nil
	}
	t.store.balances[key] = &BalanceRecord{
		ID:          t.store.nextID("bal"),
		EmployeeID:  u.EmployeeID,
		TermID:      u.TermID,
		LeaveTypeID: u.LeaveTypeID,
		AllowedDays: u.AllowedDays,
		UsedDays:    u.Days,
	}
	return nil
}

func (t *fakeTx) AddSharedUsage(_ context.Context, employeeID, termID string, days decimal.Decimal) (bool, error) {
	rec, ok := t.store.balances[balanceKey(employeeID, termID, "")]
	if !ok {
		return false, nil
	}
	rec.UsedDays = rec.UsedDays.Add(days)
	return true, nil
}
