package user

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
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

const userColumns = `id, name, email, password, role, is_active, COALESCE(referred_by::text, ''), bio, avatar_url, created_at`

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role, &u.IsActive, &u.ReferredBy,
		&u.Bio, &u.AvatarURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user")
	}
	if err != nil {
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Create inserts the user and opens their wallet in one transaction.
func (s *Store) Create(ctx context.Context, u User) (User, error) {
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if u.ReferredBy != "" {
			var ok bool
			if _, perr := uuid.Parse(u.ReferredBy); perr == nil {
				if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, u.ReferredBy).Scan(&ok); err != nil {
					return fmt.Errorf("check referrer: %w", err)
				}
			}
			if !ok {
				return apperr.Validation("unknown referral code")
			}
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO users (id, name, email, password, role, referred_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING is_active, created_at`,
			u.ID, u.Name, u.Email, u.Password, u.Role, nullable(u.ReferredBy)).Scan(&u.IsActive, &u.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
			}
			return fmt.Errorf("insert user: %w", err)
		}
		return wallet.Open(ctx, tx, u.ID)
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *Store) ByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) ByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, apperr.NotFound("user")
	}
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    bio = COALESCE(NULLIF($3, ''), bio),
		    avatar_url = COALESCE(NULLIF($4, ''), avatar_url),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, p.Name, p.Bio, p.AvatarURL))
}

func (s *Store) List(ctx context.Context, f Filter) ([]User, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add(`(name ILIKE $%[1]d ESCAPE '\' OR email ILIKE $%[1]d ESCAPE '\')`, db.ContainsPattern(q))
	}
	if f.Role != "" {
		add("role = $%d", f.Role)
	}
	if f.Active != nil {
		add("is_active = $%d", *f.Active)
	}
	q := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit, max(f.Offset, 0))
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, apperr.NotFound("user")
	}
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, active))
}

func (s *Store) SetRole(ctx context.Context, id, role string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, apperr.NotFound("user")
	}
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, role))
}

// SetRoleByEmail is used by the admin bootstrap tool.
func (s *Store) SetRoleByEmail(ctx context.Context, email, role string) (User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE email = $1 RETURNING `+userColumns, email, role))
}

func (s *Store) SetPassword(ctx context.Context, id, hash string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("user")
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}
