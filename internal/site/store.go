package site

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
	"github.com/sudo-init-do/linkhub/internal/money"
)

type Repository interface {
	Create(ctx context.Context, s Site) (Site, error)
	Get(ctx context.Context, id string) (Site, error)
	Update(ctx context.Context, s Site) (Site, error)
	Search(ctx context.Context, f SearchFilter) ([]Site, error)
	SetStatus(ctx context.Context, id string, status Status) (Site, error)
	CountByOwner(ctx context.Context, ownerID string) (int, error)
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func scanSite(row pgx.Row) (Site, error) {
	var s Site
	var price int64
	var offering, status string
	err := row.Scan(&s.ID, &s.OwnerID, &s.Domain, &s.Title, &s.Description, &s.Category, &offering, &price,
		&s.DomainAuthority, &s.MonthlyTraffic, &s.Language, &s.TurnaroundDays, &status, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Site{}, apperr.NotFound("site")
	}
	if err != nil {
		return Site{}, fmt.Errorf("scan site: %w", err)
	}
	s.Price = money.Cents(price)
	s.Offering = Offering(offering)
	s.Status = Status(status)
	return s, nil
}

func (st *Store) Create(ctx context.Context, s Site) (Site, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := st.pool.QueryRow(ctx, `
		INSERT INTO sites (id, owner_id, domain, title, description, category, offering, price_cents,
			domain_authority, monthly_traffic, language, turnaround_days, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+siteColumns,
		s.ID, s.OwnerID, s.Domain, s.Title, s.Description, s.Category, string(s.Offering), int64(s.Price),
		s.DomainAuthority, s.MonthlyTraffic, s.Language, s.TurnaroundDays, string(s.Status))
	out, err := scanSite(row)
	if err != nil {
		return Site{}, mapWriteErr(err)
	}
	return out, nil
}

func (st *Store) Get(ctx context.Context, id string) (Site, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Site{}, apperr.NotFound("site")
	}
	return scanSite(st.pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id))
}

func (st *Store) Update(ctx context.Context, s Site) (Site, error) {
	row := st.pool.QueryRow(ctx, `
		UPDATE sites SET domain = $2, title = $3, description = $4, category = $5, offering = $6,
			price_cents = $7, domain_authority = $8, monthly_traffic = $9, language = $10, turnaround_days = $11
		WHERE id = $1
		RETURNING `+siteColumns,
		s.ID, s.Domain, s.Title, s.Description, s.Category, string(s.Offering),
		int64(s.Price), s.DomainAuthority, s.MonthlyTraffic, s.Language, s.TurnaroundDays)
	out, err := scanSite(row)
	if err != nil {
		return Site{}, mapWriteErr(err)
	}
	return out, nil
}

func (st *Store) Search(ctx context.Context, f SearchFilter) ([]Site, error) {
	q, args := buildSearch(f)
	rows, err := st.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search sites: %w", err)
	}
	defer rows.Close()

	out := []Site{}
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (st *Store) SetStatus(ctx context.Context, id string, status Status) (Site, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Site{}, apperr.NotFound("site")
	}
	return scanSite(st.pool.QueryRow(ctx,
		`UPDATE sites SET status = $2 WHERE id = $1 RETURNING `+siteColumns, id, string(status)))
}

func (st *Store) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := st.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sites WHERE owner_id = $1`, ownerID).Scan(&n)
	return n, err
}

func mapWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23514" {
		return apperr.Validation("%s", strings.TrimPrefix(pgErr.Message, "new row "))
	}
	return err
}
