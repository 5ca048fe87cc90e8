package admin

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/money"
)

type Stats struct {
	Users         map[string]int64 `json:"users"`
	Sites         map[string]int64 `json:"sites"`
	Orders        map[string]int64 `json:"orders"`
	Exchanges     map[string]int64 `json:"exchanges"`
	Tickets       map[string]int64 `json:"tickets"`
	OrdersToday   int64            `json:"orders_today"`
	EscrowHeld    money.Cents      `json:"escrow_held"`
	FeesCollected money.Cents      `json:"fees_collected"`
}

// StatsStore runs the dashboard aggregates straight against Postgres.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore { return &StatsStore{pool: pool} }

func (s *StatsStore) countBy(ctx context.Context, table, column string) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT %s, COUNT(*) FROM %s GROUP BY %s`, column, table, column))
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()
	out := map[string]int64{}
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return nil, fmt.Errorf("scan %s count: %w", table, err)
		}
		out[k] = n
	}
	return out, rows.Err()
}

// Stats aggregates platform counters. "Today" starts at local midnight in loc.
func (s *StatsStore) Stats(ctx context.Context, loc *time.Location) (Stats, error) {
	var st Stats
	groups := []struct {
		dst           *map[string]int64
		table, column string
	}{
		{&st.Users, "users", "role"},
		{&st.Sites, "sites", "status"},
		{&st.Orders, "orders", "status"},
		{&st.Exchanges, "exchanges", "status"},
		{&st.Tickets, "support_tickets", "status"},
	}
	for _, g := range groups {
		m, err := s.countBy(ctx, g.table, g.column)
		if err != nil {
			return Stats{}, err
		}
		*g.dst = m
	}

	now := time.Now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at >= $1),
			COALESCE(SUM(amount_cents) FILTER (WHERE status IN ('pending','on_going','delivered')), 0)::bigint,
			COALESCE(SUM(service_fee_cents) FILTER (WHERE status = 'completed'), 0)::bigint
		FROM orders`, midnight).Scan(&st.OrdersToday, &st.EscrowHeld, &st.FeesCollected)
	if err != nil {
		return Stats{}, fmt.Errorf("order totals: %w", err)
	}
	return st, nil
}

type StatsSource interface {
	Stats(ctx context.Context, loc *time.Location) (Stats, error)
}

type LocationSource interface {
	Location(ctx context.Context) *time.Location
}

// StatsHandler serves GET /admin/stats.
type StatsHandler struct {
	Stats    StatsSource
	Settings LocationSource
}

func (h *StatsHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	loc := time.UTC
	if h.Settings != nil {
		loc = h.Settings.Location(ctx)
	}
	st, err := h.Stats.Stats(ctx, loc)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
