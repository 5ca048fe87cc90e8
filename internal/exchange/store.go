package exchange

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
)

const exchangeColumns = `id, requester_id, requested_user_id, requester_site_id, requested_site_id, status,
	message, delivery_url, COALESCE(delivered_by::text, ''), version, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func scanExchange(row pgx.Row) (Exchange, error) {
	var e Exchange
	var status string
	err := row.Scan(&e.ID, &e.RequesterID, &e.RequestedUserID, &e.RequesterSiteID, &e.RequestedSiteID,
		&status, &e.Message, &e.DeliveryURL, &e.DeliveredBy, &e.Version, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Exchange{}, apperr.NotFound("exchange")
	}
	if err != nil {
		return Exchange{}, fmt.Errorf("scan exchange: %w", err)
	}
	e.Status = Status(status)
	return e, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *Store) Create(ctx context.Context, e Exchange) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		var dup bool
		err := tx.QueryRow(ctx, `
			SELECT EXISTS(SELECT 1 FROM exchanges
			WHERE requester_site_id = $1 AND requested_site_id = $2 AND status = 'pending')`,
			e.RequesterSiteID, e.RequestedSiteID).Scan(&dup)
		if err != nil {
			return fmt.Errorf("check duplicate exchange: %w", err)
		}
		if dup {
			return fmt.Errorf("%w: a pending exchange for these sites already exists", apperr.ErrConflict)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO exchanges (id, requester_id, requested_user_id, requester_site_id, requested_site_id,
				status, message, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID, e.RequesterID, e.RequestedUserID, e.RequesterSiteID, e.RequestedSiteID,
			string(e.Status), e.Message, e.Version, e.CreatedAt, e.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert exchange: %w", err)
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id string) (Exchange, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Exchange{}, apperr.NotFound("exchange")
	}
	return scanExchange(s.pool.QueryRow(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1`, id))
}

func (s *Store) List(ctx context.Context, f Filter) ([]Exchange, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("(requester_id = $%d OR requested_user_id = $%d)", len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + exchangeColumns + ` FROM exchanges`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, max(f.Offset, 0))
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	out := []Exchange{}
	for rows.Next() {
		e, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Update runs fn under the row lock and writes the result if the version still matches.
func (s *Store) Update(ctx context.Context, id string, fn func(Exchange) (Exchange, error)) (Exchange, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Exchange{}, apperr.NotFound("exchange")
	}
	var out Exchange
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanExchange(tx.QueryRow(ctx,
			`SELECT `+exchangeColumns+` FROM exchanges WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE exchanges SET status = $2, delivery_url = $3, delivered_by = $4, version = $5, updated_at = $6
			WHERE id = $1 AND version = $7`,
			cur.ID, string(next.Status), next.DeliveryURL, nullable(next.DeliveredBy), next.Version,
			next.UpdatedAt, cur.Version)
		if err != nil {
			return fmt.Errorf("update exchange: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: exchange %s was modified concurrently", apperr.ErrConflict, cur.ID)
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("exchange")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM exchanges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete exchange: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("exchange")
	}
	return nil
}
