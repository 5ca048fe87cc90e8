package admin

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/money"
)

type WalletSummary struct {
	UserID    string      `json:"user_id"`
	Name      string      `json:"name"`
	Email     string      `json:"email"`
	Balance   money.Cents `json:"balance"`
	Entries   int64       `json:"entries"`
	CreatedAt time.Time   `json:"created_at"`
}

// Wallets lists every wallet with its balance replayed from the ledger,
// richest first.
func (s *StatsStore) Wallets(ctx context.Context, limit, offset int) ([]WalletSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT w.user_id, u.name, u.email,
		       COALESCE(SUM(l.amount_cents), 0)::bigint AS balance,
		       COUNT(l.id), w.created_at
		FROM wallets w
		JOIN users u ON u.id = w.user_id
		LEFT JOIN ledger_entries l ON l.user_id = w.user_id
		GROUP BY w.user_id, u.name, u.email, w.created_at
		ORDER BY balance DESC, w.created_at
		LIMIT $1 OFFSET $2`, limit, max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := []WalletSummary{}
	for rows.Next() {
		var w WalletSummary
		if err := rows.Scan(&w.UserID, &w.Name, &w.Email, &w.Balance, &w.Entries, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type WalletLister interface {
	Wallets(ctx context.Context, limit, offset int) ([]WalletSummary, error)
}

type WalletsHandler struct {
	Wallets WalletLister
}

// GET /admin/wallets
func (h *WalletsHandler) ListWallets(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	wallets, err := h.Wallets.Wallets(c.Request().Context(), limit, offset)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"wallets": wallets})
}
