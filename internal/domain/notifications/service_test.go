package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	inserted  []Notification
	insertErr error
	emails    map[string]string
}

func (m *memStore) Insert(_ context.Context, n *Notification) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	n.ID = "n-1"
	m.inserted = append(m.inserted, *n)
	return nil
}

func (m *memStore) ListForUser(_ context.Context, userID string, unreadOnly bool, _ int) ([]Notification, error) {
	var out []Notification
	for _, n := range m.inserted {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memStore) UnreadCount(_ context.Context, userID string) (int, error) {
	count := 0
	for _, n := range m.inserted {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkRead(_ context.Context, userID, notificationID string) error {
	for i := range m.inserted {
		if m.inserted[i].ID == notificationID && m.inserted[i].UserID == userID {
			m.inserted[i].Read = true
		}
	}
	return nil
}

func (m *memStore) MarkAllRead(_ context.Context, userID string) error {
	for i := range m.inserted {
		if m.inserted[i].UserID == userID {
			m.inserted[i].Read = true
		}
	}
	return nil
}

func (m *memStore) UserEmail(_ context.Context, userID string) (string, error) {
	return m.emails[userID], nil
}

type memMailer struct {
	sent []string
	err  error
}

func (m *memMailer) Send(_ context.Context, to, _, _ string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}

func TestDispatchStoresAndMails(t *testing.T) {
	store := &memStore{emails: map[string]string{"user-1": "u1@example.edu"}}
	mailer := &memMailer{}
	service := NewService(store, mailer, time.Second)

	service.Dispatch(context.Background(), "user-1", "request_approved", "Request approved", "All set.")

	require.Len(t, store.inserted, 1)
	assert.Equal(t, "request_approved", store.inserted[0].Kind)
	assert.Equal(t, []string{"u1@example.edu"}, mailer.sent)
}

func TestDispatchSwallowsFailures(t *testing.T) {
	store := &memStore{insertErr: errors.New("db down")}
	service := NewService(store, nil, time.Second)

	// Must not panic or propagate anything.
	service.Dispatch(context.Background(), "user-1", "request_approved", "t", "b")
	assert.Empty(t, store.inserted)
}

func TestDispatchMailFailureKeepsInboxEntry(t *testing.T) {
	store := &memStore{emails: map[string]string{"user-1": "u1@example.edu"}}
	mailer := &memMailer{err: errors.New("smtp timeout")}
	service := NewService(store, mailer, time.Second)

	service.Dispatch(context.Background(), "user-1", "request_approved", "t", "b")
	assert.Len(t, store.inserted, 1)
}

func TestDispatchSurvivesCancelledCaller(t *testing.T) {
	store := &memStore{}
	service := NewService(store, nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service.Dispatch(ctx, "user-1", "request_approved", "t", "b")
	assert.Len(t, store.inserted, 1, "delivery must detach from the caller's cancellation")
}

func TestMarkReadScopedToUser(t *testing.T) {
	store := &memStore{}
	service := NewService(store, nil, time.Second)
	service.Dispatch(context.Background(), "user-1", "k", "t", "b")

	require.NoError(t, service.MarkRead(context.Background(), "user-2", "n-1"))
	count, err := service.UnreadCount(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "another user must not mark someone else's entry")
}
