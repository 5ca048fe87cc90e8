package wallet

import (
	"context"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/money"
)

type AdminHandler struct {
	Ledger Ledger
	Events events.Publisher
}

type adjustRequest struct {
	UserID    string      `json:"user_id"`
	Operation Operation   `json:"operation"`
	Amount    money.Cents `json:"amount"`
	Note      string      `json:"note"`
}

// AdjustBalance handles POST /admin/user-balance.
func (h *AdminHandler) AdjustBalance(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}

	var req adjustRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request: "+err.Error())
	}

	ctx := c.Request().Context()
	bal, err := h.Ledger.Adjust(ctx, req.UserID, req.Operation, req.Amount, req.Note)
	if err != nil {
		return httpx.Error(c, err)
	}
	log.Printf("[wallet] admin %s %s %s for user %s, balance now %s",
		actor.UserID, req.Operation, req.Amount, req.UserID, bal)

	events.Emit(context.WithoutCancel(ctx), h.Events, events.Event{
		Type:       events.WalletAdjusted,
		EntityID:   req.UserID,
		ActorID:    actor.UserID,
		Recipients: []string{req.UserID},
		Data: map[string]any{
			"operation": string(req.Operation),
			"amount":    req.Amount.String(),
			"balance":   bal.String(),
		},
	})

	return c.JSON(http.StatusOK, echo.Map{
		"user_id":     req.UserID,
		"operation":   req.Operation,
		"amount":      req.Amount,
		"new_balance": bal,
	})
}

// Audit handles GET /admin/wallets/:id/audit. It replays the full ledger and
// compares the running total against the stored balance.
func (h *AdminHandler) Audit(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return httpx.BadRequest(c, "user ID is required")
	}
	ctx := c.Request().Context()

	entries, err := h.Ledger.Entries(ctx, userID, 0)
	if err != nil {
		return httpx.Error(c, err)
	}
	bal, err := h.Ledger.Balance(ctx, userID)
	if err != nil {
		return httpx.Error(c, err)
	}

	replayed, replayErr := Replay(entries)
	resp := echo.Map{
		"user_id":  userID,
		"entries":  len(entries),
		"balance":  bal,
		"replayed": replayed,
		"valid":    replayErr == nil && replayed == bal,
	}
	if replayErr != nil {
		resp["problem"] = replayErr.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// UserTransactions handles GET /admin/wallets/:id/transactions.
func (h *AdminHandler) UserTransactions(c echo.Context) error {
	userID := c.Param("id")
	if userID == "" {
		return httpx.BadRequest(c, "user ID is required")
	}
	entries, err := h.Ledger.Entries(c.Request().Context(), userID, 0)
	if err != nil {
		return httpx.Error(c, err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"transactions": entries})
}
