package support

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/messaging"
)

const ticketColumns = `id, user_id, ticket_number, subject, description, status, priority, category, created_at, updated_at`

type Store struct {
	pool     *pgxpool.Pool
	messages *messaging.Store
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, messages: messaging.NewStore(pool)}
}

func scanTicket(row pgx.Row) (Ticket, error) {
	var t Ticket
	var status, priority string
	err := row.Scan(&t.ID, &t.UserID, &t.Number, &t.Subject, &t.Description, &status, &priority,
		&t.Category, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ticket{}, apperr.NotFound("ticket")
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("scan ticket: %w", err)
	}
	t.Status, t.Priority = Status(status), Priority(priority)
	return t, nil
}

func (s *Store) Create(ctx context.Context, t Ticket) (Ticket, error) {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var seq int64
		if err := tx.QueryRow(ctx, `SELECT nextval('support_ticket_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next ticket number: %w", err)
		}
		t.Number = FormatNumber(seq)
		_, err := tx.Exec(ctx, `
			INSERT INTO support_tickets (id, user_id, ticket_number, subject, description, status, priority,
				category, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			t.ID, t.UserID, t.Number, t.Subject, t.Description, string(t.Status), string(t.Priority),
			t.Category, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return Ticket{}, err
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Ticket{}, apperr.NotFound("ticket")
	}
	return scanTicket(s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
}

func (s *Store) List(ctx context.Context, f Filter) ([]Ticket, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Priority != "" {
		add("priority = $%d", string(f.Priority))
	}
	q := `SELECT ` + ticketColumns + ` FROM support_tickets`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, max(f.Offset, 0))
	q += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	out := []Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Update(ctx context.Context, id string, fn func(Ticket) (Ticket, *messaging.Message, error)) (Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Ticket{}, apperr.NotFound("ticket")
	}
	var out Ticket
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanTicket(tx.QueryRow(ctx,
			`SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next, msg, err := fn(cur)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE support_tickets SET status = $2, updated_at = $3 WHERE id = $1`,
			cur.ID, string(next.Status), next.UpdatedAt); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		if msg != nil {
			if err := messaging.Insert(ctx, tx, *msg); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Store) Messages(ctx context.Context, ticketID string) ([]messaging.Message, error) {
	return s.messages.List(ctx, messaging.ThreadTicket, ticketID, time.Time{})
}
