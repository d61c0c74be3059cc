package probation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records map[string]*Record
	users   map[string]string

	failRecordIDs map[string]bool
	promotions    []string
}

func newProbationFakeStore() *fakeStore {
	return &fakeStore{
		records:       map[string]*Record{},
		users:         map[string]string{},
		failRecordIDs: map[string]bool{},
	}
}

func (f *fakeStore) addRecord(id, employeeID string, expectedEnd time.Time, status RecordStatus) {
	f.records[id] = &Record{
		ID:          id,
		EmployeeID:  employeeID,
		StartDate:   expectedEnd.AddDate(0, -6, 0),
		ExpectedEnd: expectedEnd,
		Status:      status,
	}
}

func (f *fakeStore) ListRecords(_ context.Context, status RecordStatus) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if status == "" || rec.Status == status {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, employeeID string, start, expectedEnd time.Time) (*Record, error) {
	id := fmt.Sprintf("rec-%d", len(f.records)+1)
	rec := &Record{ID: id, EmployeeID: employeeID, StartDate: start, ExpectedEnd: expectedEnd, Status: StatusActive}
	f.records[id] = rec
	copied := *rec
	return &copied, nil
}

func (f *fakeStore) ExpiredActive(_ context.Context, asOf time.Time) ([]Record, error) {
	var out []Record
	for _, rec := range f.records {
		if rec.Status == StatusActive && !rec.ExpectedEnd.After(asOf) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeStore) CompleteAndPromote(_ context.Context, recordID, employeeID string, at time.Time) (bool, error) {
	if f.failRecordIDs[recordID] {
		return false, errors.New("injected storage failure")
	}
	rec, ok := f.records[recordID]
	if !ok || rec.Status != StatusActive {
		return false, nil
	}
	rec.Status = StatusCompleted
	completed := at
	rec.CompletedAt = &completed
	rec.Notified = true
	f.promotions = append(f.promotions, employeeID)
	return true, nil
}

func (f *fakeStore) EmployeeUserID(_ context.Context, employeeID string) (string, error) {
	return f.users[employeeID], nil
}

type recordedNotice struct {
	userID string
	kind   string
}

type fakeNotifier struct {
	notices []recordedNotice
}

func (n *fakeNotifier) Dispatch(_ context.Context, userID, kind, _, _ string) {
	n.notices = append(n.notices, recordedNotice{userID: userID, kind: kind})
}

func TestProcessExpiredPromotesDueRecords(t *testing.T) {
	store := newProbationFakeStore()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addRecord("rec-1", "emp-1", asOf.AddDate(0, 0, -3), StatusActive)
	store.addRecord("rec-2", "emp-2", asOf, StatusActive)
	store.addRecord("rec-3", "emp-3", asOf.AddDate(0, 1, 0), StatusActive)
	store.users["emp-1"] = "user-1"
	store.users["emp-2"] = "user-2"

	notify := &fakeNotifier{}
	service := NewService(store, notify)

	summary, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 2, summary.Promoted)
	assert.Equal(t, 0, summary.Failed)

	assert.ElementsMatch(t, []string{"emp-1", "emp-2"}, store.promotions)
	assert.Equal(t, StatusActive, store.records["rec-3"].Status, "record due next month must stay active")

	require.Len(t, notify.notices, 2)
	for _, notice := range notify.notices {
		assert.Equal(t, EventPromoted, notice.kind)
	}
}

func TestProcessExpiredMarksRecordsNotified(t *testing.T) {
	store := newProbationFakeStore()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addRecord("rec-1", "emp-1", asOf.AddDate(0, 0, -1), StatusActive)
	store.users["emp-1"] = "user-1"

	notify := &fakeNotifier{}
	service := NewService(store, notify)

	_, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.True(t, store.records["rec-1"].Notified)
	require.Len(t, notify.notices, 1)

	// A later sweep finds the record completed and sends nothing new.
	_, err = service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Len(t, notify.notices, 1)
}

func TestProcessExpiredIsIdempotent(t *testing.T) {
	store := newProbationFakeStore()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addRecord("rec-1", "emp-1", asOf.AddDate(0, 0, -1), StatusActive)

	service := NewService(store, nil)

	first, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Promoted)

	second, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 0, second.Promoted)
	assert.Len(t, store.promotions, 1)
}

func TestProcessExpiredIsolatesFailures(t *testing.T) {
	store := newProbationFakeStore()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addRecord("rec-1", "emp-1", asOf.AddDate(0, 0, -3), StatusActive)
	store.addRecord("rec-2", "emp-2", asOf.AddDate(0, 0, -2), StatusActive)
	store.addRecord("rec-3", "emp-3", asOf.AddDate(0, 0, -1), StatusActive)
	store.failRecordIDs["rec-2"] = true

	service := NewService(store, nil)

	summary, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Equal(t, 2, summary.Promoted)
	assert.Equal(t, 1, summary.Failed)

	assert.ElementsMatch(t, []string{"emp-1", "emp-3"}, store.promotions)
	assert.Equal(t, StatusActive, store.records["rec-2"].Status)

	var failed *Result
	for i := range summary.Results {
		if summary.Results[i].RecordID == "rec-2" {
			failed = &summary.Results[i]
		}
	}
	require.NotNil(t, failed)
	assert.Contains(t, failed.Error, "injected storage failure")
	assert.False(t, failed.Promoted)
}

func TestProcessExpiredSkipsAlreadyCompleted(t *testing.T) {
	store := newProbationFakeStore()
	asOf := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.addRecord("rec-1", "emp-1", asOf.AddDate(0, 0, -1), StatusCompleted)

	service := NewService(store, nil)

	summary, err := service.ProcessExpired(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
}
