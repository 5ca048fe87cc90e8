package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
)

const messageColumns = `id, thread_kind, thread_id, sender_id, COALESCE(recipient_id::text, ''), content, created_at, read_at`

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

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

// Insert writes m using q, so callers can add a message inside their own transaction.
func Insert(ctx context.Context, q Execer, m Message) error {
	_, err := q.Exec(ctx, `
		INSERT INTO messages (id, thread_kind, thread_id, sender_id, recipient_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, string(m.ThreadKind), m.ThreadID, m.SenderID, nullable(m.RecipientID), m.Content, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Post holds a share lock on the order row so a concurrent close either waits
// for this insert or is seen by it.
func (s *Store) Post(ctx context.Context, m Message) error {
	if _, err := uuid.Parse(m.ThreadID); err != nil {
		return apperr.NotFound("order")
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var closed bool
		err := tx.QueryRow(ctx, `SELECT chat_closed FROM orders WHERE id = $1 FOR SHARE`, m.ThreadID).Scan(&closed)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("order")
		}
		if err != nil {
			return fmt.Errorf("lock order: %w", err)
		}
		if closed {
			return errChatClosed()
		}
		return Insert(ctx, tx, m)
	})
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	var kind string
	err := row.Scan(&m.ID, &kind, &m.ThreadID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt, &m.ReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Message{}, apperr.NotFound("message")
	}
	if err != nil {
		return Message{}, fmt.Errorf("scan message: %w", err)
	}
	m.ThreadKind = ThreadKind(kind)
	return m, nil
}

// List returns a thread oldest first. A zero since returns the whole thread.
func (s *Store) List(ctx context.Context, kind ThreadKind, threadID string, since time.Time) ([]Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE thread_kind = $1 AND thread_id = $2 AND created_at > $3
		ORDER BY created_at ASC, id ASC`,
		string(kind), threadID, since)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) Unread(ctx context.Context, kind ThreadKind, threadID, userID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE thread_kind = $1 AND thread_id = $2 AND recipient_id = $3 AND read_at IS NULL`,
		string(kind), threadID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// MarkRead stamps read_at once; marking an already read message returns the original time.
func (s *Store) MarkRead(ctx context.Context, kind ThreadKind, threadID, messageID, userID string) (time.Time, bool, error) {
	if _, err := uuid.Parse(messageID); err != nil {
		return time.Time{}, false, apperr.NotFound("message")
	}
	get := func() (Message, error) {
		return scanMessage(s.pool.QueryRow(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE id = $1 AND thread_kind = $2 AND thread_id = $3`,
			messageID, string(kind), threadID))
	}
	m, err := get()
	if err != nil {
		return time.Time{}, false, err
	}
	if m.RecipientID != userID {
		return time.Time{}, false, fmt.Errorf("%w: not the recipient", apperr.ErrUnauthorized)
	}
	if m.ReadAt != nil {
		return *m.ReadAt, false, nil
	}
	var readAt time.Time
	err = s.pool.QueryRow(ctx,
		`UPDATE messages SET read_at = NOW() WHERE id = $1 AND read_at IS NULL RETURNING read_at`,
		messageID).Scan(&readAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// Another request stamped it first.
		if m, err = get(); err != nil {
			return time.Time{}, false, err
		}
		if m.ReadAt == nil {
			return time.Time{}, false, fmt.Errorf("mark read: read_at still unset")
		}
		return *m.ReadAt, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("mark read: %w", err)
	}
	return readAt, true, nil
}
