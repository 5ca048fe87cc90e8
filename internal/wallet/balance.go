package wallet

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Ledger Ledger
}

// Balance returns the authenticated user's wallet balance.
func (h *Handler) Balance(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}

	bal, err := h.Ledger.Balance(c.Request().Context(), actor.UserID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": actor.UserID,
		"balance": bal,
	})
}

// Transactions returns the caller's ledger entries, most recent last.
func (h *Handler) Transactions(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	entries, err := h.Ledger.Entries(c.Request().Context(), actor.UserID, limit)
	if err != nil {
		return httpx.Error(c, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": entries})
}
