package leave

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leavedesk/internal/domain/calendar"
	"leavedesk/internal/domain/core"
)

func TestBalanceComputedFromRuleAndApprovedRequests(t *testing.T) {
	f := newFixture(t)
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 2, 3),
		EndDate:     date(2025, 2, 7),
		Days:        decimal.NewFromInt(5),
		Status:      StatusApproved,
	})
	// Only approved requests count against the balance.
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 3, 3),
		EndDate:     date(2025, 3, 7),
		Days:        decimal.NewFromInt(5),
		Status:      StatusHeadApproved,
	})

	balance, err := f.service.Ledger.Balance(context.Background(), "emp-1", "term-1", "lt-vac")
	require.NoError(t, err)
	assert.True(t, balance.Allowed.Equal(decimal.NewFromInt(15)))
	assert.True(t, balance.Used.Equal(decimal.NewFromInt(5)))
	assert.True(t, balance.Remaining.Equal(decimal.NewFromInt(10)))
	assert.False(t, balance.SharedPool)
	assert.Equal(t, "lt-vac", balance.LeaveTypeID)
}

func TestBalancePerCategoryIsolation(t *testing.T) {
	f := newFixture(t)
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-1",
		Kind:        KindTravel,
		LeaveTypeID: "lt-trv",
		StartDate:   date(2025, 2, 3),
		EndDate:     date(2025, 2, 5),
		Days:        decimal.NewFromInt(3),
		Status:      StatusApproved,
	})

	balance, err := f.service.Ledger.Balance(context.Background(), "emp-1", "term-1", "lt-vac")
	require.NoError(t, err)
	assert.True(t, balance.Used.IsZero(), "travel usage must not count against vacation")
}

func TestBalanceSharedPoolAggregatesCategories(t *testing.T) {
	f := newFixture(t)
	f.store.addTerm(calendar.Term{
		ID:         "term-summer",
		Type:       calendar.TermSummer,
		StartDate:  date(2025, 7, 1),
		EndDate:    date(2025, 8, 31),
		SharedPool: true,
	})
	f.store.addRule(core.StatusRegular, calendar.TermSummer, "", decimal.NewFromInt(15))
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-summer",
		Kind:        KindLeave,
		LeaveTypeID: "lt-vac",
		StartDate:   date(2025, 7, 7),
		EndDate:     date(2025, 7, 11),
		Days:        decimal.NewFromInt(5),
		Status:      StatusApproved,
	})
	f.store.addRequest(Request{
		EmployeeID:  "emp-1",
		TermID:      "term-summer",
		Kind:        KindTravel,
		LeaveTypeID: "lt-trv",
		StartDate:   date(2025, 8, 4),
		EndDate:     date(2025, 8, 8),
		Days:        decimal.NewFromInt(5),
		Status:      StatusApproved,
	})

	// The category argument is ignored for a shared-pool term.
	balance, err := f.service.Ledger.Balance(context.Background(), "emp-1", "term-summer", "lt-vac")
	require.NoError(t, err)
	assert.True(t, balance.SharedPool)
	assert.Empty(t, balance.LeaveTypeID)
	assert.True(t, balance.Used.Equal(decimal.NewFromInt(10)))
	assert.True(t, balance.Remaining.Equal(decimal.NewFromInt(5)))
}

func TestBalanceMissingRule(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Ledger.Balance(context.Background(), "emp-1", "term-1", "lt-unknown")
	require.ErrorIs(t, err, ErrRuleNotFound)
}
