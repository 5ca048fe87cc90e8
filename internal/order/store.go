package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/money"
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

const orderColumns = `id, buyer_id, seller_id, site_id, amount_cents, service_fee_cents, seller_amount_cents,
	status, requirements, delivery_url, google_doc_link, target_link, cancel_reason, chat_closed,
	version, created_at, updated_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var amount, fee, sellerAmount int64
	var status string
	err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.SiteID, &amount, &fee, &sellerAmount,
		&status, &o.Requirements, &o.DeliveryURL, &o.GoogleDocLink, &o.TargetLink, &o.CancelReason,
		&o.ChatClosed, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, apperr.NotFound("order")
	}
	if err != nil {
		return Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Amount, o.ServiceFee, o.SellerAmount = money.Cents(amount), money.Cents(fee), money.Cents(sellerAmount)
	o.Status = Status(status)
	return o, nil
}

func (s *Store) Create(ctx context.Context, o Order, hold wallet.Posting) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (id, buyer_id, seller_id, site_id, amount_cents, service_fee_cents,
				seller_amount_cents, status, requirements, google_doc_link, target_link, version,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			o.ID, o.BuyerID, o.SellerID, o.SiteID, int64(o.Amount), int64(o.ServiceFee),
			int64(o.SellerAmount), string(o.Status), o.Requirements, o.GoogleDocLink, o.TargetLink,
			o.Version, o.CreatedAt, o.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return wallet.Post(ctx, tx, hold)
	})
}

func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, apperr.NotFound("order")
	}
	return scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (s *Store) List(ctx context.Context, f Filter) ([]Order, error) {
	var where []string
	var args []any
	if f.UserID != "" {
		args = append(args, f.UserID)
		where = append(where, fmt.Sprintf("(buyer_id = $%d OR seller_id = $%d)", len(args), len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := `SELECT ` + orderColumns + ` FROM orders`
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
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func lockOrder(ctx context.Context, tx pgx.Tx, id string) (Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Order{}, apperr.NotFound("order")
	}
	return scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
}

// Transition locks the row, applies fn and guards the write with the version
// read under the lock.
func (s *Store) Transition(ctx context.Context, id string, fn func(Order) (Order, []wallet.Posting, error)) (Order, error) {
	var out Order
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		next, postings, err := fn(cur)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE orders SET status = $2, delivery_url = $3, cancel_reason = $4, chat_closed = $5,
				version = $6, updated_at = $7
			WHERE id = $1 AND version = $8`,
			cur.ID, string(next.Status), next.DeliveryURL, next.CancelReason, next.ChatClosed,
			next.Version, next.UpdatedAt, cur.Version)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: order %s was modified concurrently", apperr.ErrConflict, cur.ID)
		}
		if err := wallet.Post(ctx, tx, postings...); err != nil {
			return err
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, id string, fn func(Order) ([]wallet.Posting, error)) (Order, error) {
	var out Order
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := lockOrder(ctx, tx, id)
		if err != nil {
			return err
		}
		postings, err := fn(cur)
		if err != nil {
			return err
		}
		if err := wallet.Post(ctx, tx, postings...); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE thread_kind = 'order' AND thread_id = $1`, cur.ID); err != nil {
			return fmt.Errorf("delete order messages: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, cur.ID); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		out = cur
		return nil
	})
	return out, err
}

func (s *Store) ReferrerOf(ctx context.Context, userID string) (string, error) {
	var ref *string
	err := s.pool.QueryRow(ctx, `SELECT referred_by::text FROM users WHERE id = $1`, userID).Scan(&ref)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup referrer: %w", err)
	}
	if ref == nil {
		return "", nil
	}
	return *ref, nil
}

func (s *Store) CreateReview(ctx context.Context, r Review) (Review, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (id, order_id, buyer_id, seller_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.OrderID, r.BuyerID, r.SellerID, r.Rating, r.Comment, r.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Review{}, fmt.Errorf("%w: review already exists for this order", apperr.ErrConflict)
	}
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	return r, nil
}

func (s *Store) SellerReviews(ctx context.Context, sellerID string, limit, offset int) ([]Review, RatingSummary, error) {
	summary := RatingSummary{SellerID: sellerID, Breakdown: map[int]int{}}
	if _, err := uuid.Parse(sellerID); err != nil {
		return nil, summary, apperr.NotFound("seller")
	}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(rating)::float, 0) FROM reviews WHERE seller_id = $1`, sellerID,
	).Scan(&summary.TotalReviews, &summary.AverageRating)
	if err != nil {
		return nil, summary, fmt.Errorf("rating summary: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT rating, COUNT(*) FROM reviews WHERE seller_id = $1 GROUP BY rating`, sellerID)
	if err != nil {
		return nil, summary, fmt.Errorf("rating breakdown: %w", err)
	}
	for rows.Next() {
		var rating, n int
		if err := rows.Scan(&rating, &n); err != nil {
			rows.Close()
			return nil, summary, err
		}
		summary.Breakdown[rating] = n
	}
	rows.Close()

	rows, err = s.pool.Query(ctx, `
		SELECT id, order_id, buyer_id, seller_id, rating, comment, created_at
		FROM reviews WHERE seller_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		sellerID, limit, offset)
	if err != nil {
		return nil, summary, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.OrderID, &r.BuyerID, &r.SellerID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, summary, err
		}
		reviews = append(reviews, r)
	}
	return reviews, summary, rows.Err()
}
