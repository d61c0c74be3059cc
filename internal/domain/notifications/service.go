package notifications

import (
	"context"
	"log/slog"
	"time"
)

// Store persists inbox entries.
type Store interface {
	Insert(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) error
	UserEmail(ctx context.Context, userID string) (string, error)
}

// Mailer sends the optional email copy of a notification.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service is the notification gateway the workflows dispatch through.
// Delivery is decoupled from the state changes that trigger it: Dispatch
// runs with its own bounded deadline, detached from the caller's
// cancellation, and failures are logged and dropped.
type Service struct {
	Store   Store
	Mailer  Mailer
	Timeout time.Duration
}

func NewService(store Store, mailer Mailer, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{Store: store, Mailer: mailer, Timeout: timeout}
}

// Dispatch records the notification and, when a mailer is configured,
// emails a copy. It never returns an error: a lost notification is
// acceptable, a reverted approval is not.
func (s *Service) Dispatch(ctx context.Context, userID, kind, title, body string) {
	if userID == "" {
		return
	}

	// Detach from the caller so a request that finishes, or a
	// transaction context that gets cancelled, does not abort delivery.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
	defer cancel()

	n := &Notification{UserID: userID, Kind: kind, Title: title, Body: body}
	if err := s.Store.Insert(ctx, n); err != nil {
		slog.Error("notification insert failed", "user_id", userID, "kind", kind, "error", err)
		return
	}

	if s.Mailer == nil {
		return
	}
	email, err := s.Store.UserEmail(ctx, userID)
	if err != nil || email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, email, title, body); err != nil {
		slog.Warn("notification email failed", "user_id", userID, "kind", kind, "error", err)
	}
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Store.ListForUser(ctx, userID, unreadOnly, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.Store.UnreadCount(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.Store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.Store.MarkAllRead(ctx, userID)
}
