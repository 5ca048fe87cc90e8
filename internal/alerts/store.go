package alerts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) Create(ctx context.Context, n Notification) error {
	var meta *string
	if len(n.Metadata) > 0 {
		m := string(n.Metadata)
		meta = &m
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (user_id, type, title, body, reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		n.UserID, n.Type, n.Title, n.Body, nullable(n.Reference), meta)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// List returns newest first.
func (s *Store) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id::text, type, title, body, COALESCE(reference, ''), created_at, read_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3`, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) Unread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("notification")
	}
	res, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.RowsAffected() == 0 {
		return apperr.NotFound("notification")
	}
	return nil
}

// Contact looks up a user's name and email.
func (s *Store) Contact(ctx context.Context, userID string) (Contact, error) {
	c := Contact{UserID: userID}
	err := s.pool.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, userID).Scan(&c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, apperr.NotFound("user")
	}
	if err != nil {
		return Contact{}, fmt.Errorf("load contact: %w", err)
	}
	return c, nil
}

// Admins returns every active admin.
func (s *Store) Admins(ctx context.Context) ([]Contact, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, name, email FROM users WHERE role = 'admin' AND is_active ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.UserID, &c.Name, &c.Email); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
