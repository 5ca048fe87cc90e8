package wallet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/db"
	"github.com/sudo-init-do/linkhub/internal/money"
)

// Ledger is what the HTTP layer needs from wallet storage.
type Ledger interface {
	Adjust(ctx context.Context, userID string, op Operation, amount money.Cents, note string) (money.Cents, error)
	Balance(ctx context.Context, userID string) (money.Cents, error)
	Entries(ctx context.Context, userID string, limit int) ([]Entry, error)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Open creates the wallet row for userID if it does not exist yet.
func Open(ctx context.Context, q execer, userID string) error {
	_, err := q.Exec(ctx, `INSERT INTO wallets (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("open wallet: %w", err)
	}
	return nil
}

// Post writes postings inside tx. Wallet rows are locked in user id order so
// concurrent settlements touching the same pair of users cannot deadlock.
func Post(ctx context.Context, tx pgx.Tx, postings ...Posting) error {
	if len(postings) == 0 {
		return nil
	}

	users := make([]string, 0, len(postings))
	seen := map[string]bool{}
	for _, p := range postings {
		if p.Amount == 0 {
			return apperr.Validation("posting for %s has zero amount", p.UserID)
		}
		if !seen[p.UserID] {
			seen[p.UserID] = true
			users = append(users, p.UserID)
		}
	}
	sort.Strings(users)

	balances := make(map[string]money.Cents, len(users))
	for _, uid := range users {
		if err := lock(ctx, tx, uid); err != nil {
			return err
		}
		bal, err := balance(ctx, tx, uid)
		if err != nil {
			return err
		}
		balances[uid] = bal
	}

	for _, p := range postings {
		next := balances[p.UserID] + p.Amount
		if next < 0 {
			return fmt.Errorf("%w: user %s has %s, needs %s",
				apperr.ErrInsufficientBalance, p.UserID, balances[p.UserID], -p.Amount)
		}
		balances[p.UserID] = next

		if _, err := tx.Exec(ctx, `
			INSERT INTO ledger_entries (id, user_id, amount_cents, kind, reference, note)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.NewString(), p.UserID, int64(p.Amount), string(p.Kind), p.Reference, p.Note,
		); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}

func lock(ctx context.Context, tx pgx.Tx, userID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT user_id FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("wallet")
	}
	if err != nil {
		return fmt.Errorf("lock wallet: %w", err)
	}
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func balance(ctx context.Context, q rowQuerier, userID string) (money.Cents, error) {
	var sum int64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM ledger_entries WHERE user_id = $1`, userID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return money.Cents(sum), nil
}

// Adjust applies an admin add/subtract and returns the new balance.
func (s *Store) Adjust(ctx context.Context, userID string, op Operation, amount money.Cents, note string) (money.Cents, error) {
	p, err := AdjustmentPosting(userID, op, amount, note)
	if err != nil {
		return 0, err
	}

	var bal money.Cents
	err = db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := Post(ctx, tx, p); err != nil {
			return err
		}
		bal, err = balance(ctx, tx, userID)
		return err
	})
	return bal, err
}

func (s *Store) Balance(ctx context.Context, userID string) (money.Cents, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM wallets WHERE user_id = $1)`, userID,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("check wallet: %w", err)
	}
	if !exists {
		return 0, apperr.NotFound("wallet")
	}
	return balance(ctx, s.pool, userID)
}

// Entries returns the user's ledger oldest first. limit <= 0 means all.
func (s *Store) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	q := `SELECT id, user_id, amount_cents, kind, reference, note, created_at
		FROM ledger_entries WHERE user_id = $1 ORDER BY created_at, id`
	args := []any{userID}
	if limit > 0 {
		q = `SELECT * FROM (
			SELECT id, user_id, amount_cents, kind, reference, note, created_at
			FROM ledger_entries WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		) recent ORDER BY created_at, id`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var amount int64
		var kind string
		if err := rows.Scan(&e.ID, &e.UserID, &amount, &kind, &e.Reference, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.Amount = money.Cents(amount)
		e.Kind = Kind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}
