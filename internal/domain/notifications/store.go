package notifications

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

func (s *PgStore) Insert(ctx context.Context, n *Notification) error {
	return s.DB.QueryRow(ctx, `
    INSERT INTO notifications (user_id, kind, title, body)
    VALUES ($1, $2, $3, $4)
    RETURNING id, created_at
  `, n.UserID, n.Kind, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt)
}

func (s *PgStore) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	query := `
    SELECT id, user_id, kind, title, body, read, created_at
    FROM notifications
    WHERE user_id = $1`
	if unreadOnly {
		query += " AND NOT read"
	}
	query += " ORDER BY created_at DESC LIMIT $2"

	rows, err := s.DB.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *PgStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx,
		"SELECT COUNT(1) FROM notifications WHERE user_id = $1 AND NOT read", userID).Scan(&count)
	return count, err
}

func (s *PgStore) MarkRead(ctx context.Context, userID, notificationID string) error {
	_, err := s.DB.Exec(ctx,
		"UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2", notificationID, userID)
	return err
}

func (s *PgStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx,
		"UPDATE notifications SET read = true WHERE user_id = $1 AND NOT read", userID)
	return err
}

func (s *PgStore) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.DB.QueryRow(ctx, "SELECT email FROM users WHERE id = $1", userID).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return email, err
}
