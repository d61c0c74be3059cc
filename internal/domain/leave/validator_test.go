package leave

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanSubmitAllowed(t *testing.T) {
	f := newFixture(t)

	admission, err := f.service.Validator.CanSubmit(context.Background(), "emp-1", date(2025, 3, 10), date(2025, 3, 12))
	require.NoError(t, err)
	assert.True(t, admission.Allowed)
	assert.Empty(t, admission.Reason)
	assert.Empty(t, admission.Blocking)
}

func TestCanSubmitBlockedByInFlight(t *testing.T) {
	f := newFixture(t)
	pending := f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 2, 3),
		EndDate:     date(2025, 2, 4),
		Days:        decimal.NewFromInt(2),
		Status:      StatusPending,
	})

	admission, err := f.service.Validator.CanSubmit(context.Background(), "emp-1", date(2025, 3, 10), date(2025, 3, 12))
	require.NoError(t, err)
	assert.False(t, admission.Allowed)
	assert.Contains(t, admission.Reason, "awaiting review")
	require.Len(t, admission.Blocking, 1)
	assert.Equal(t, pending.ID, admission.Blocking[0].ID)
}

func TestCanSubmitBlockedByOverlap(t *testing.T) {
	f := newFixture(t)
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 3, 10),
		EndDate:     date(2025, 3, 15),
		Days:        decimal.NewFromInt(6),
		Status:      StatusApproved,
	})

	admission, err := f.service.Validator.CanSubmit(context.Background(), "emp-1", date(2025, 3, 12), date(2025, 3, 20))
	require.NoError(t, err)
	assert.False(t, admission.Allowed)
	assert.Contains(t, admission.Reason, "overlap")

	admission, err = f.service.Validator.CanSubmit(context.Background(), "emp-1", date(2025, 3, 16), date(2025, 3, 20))
	require.NoError(t, err)
	assert.True(t, admission.Allowed)
}

func TestCanSubmitIgnoresTerminalRequests(t *testing.T) {
	f := newFixture(t)
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 2, 3),
		EndDate:     date(2025, 2, 4),
		Days:        decimal.NewFromInt(2),
		Status:      StatusHeadRejected,
	})

	admission, err := f.service.Validator.CanSubmit(context.Background(), "emp-1", date(2025, 3, 10), date(2025, 3, 12))
	require.NoError(t, err)
	assert.True(t, admission.Allowed)
}
