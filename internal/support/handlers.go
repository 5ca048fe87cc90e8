package support

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/messaging"
)

type Handler struct {
	Svc *Service
	Hub *messaging.Hub
}

// Create handles POST /support/tickets.
func (h *Handler) Create(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	t, err := h.Svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /support/tickets and GET /admin/support/tickets.
func (h *Handler) List(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	f := Filter{
		UserID:   c.QueryParam("user_id"),
		Status:   Status(c.QueryParam("status")),
		Priority: Priority(c.QueryParam("priority")),
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	list, err := h.Svc.List(c.Request().Context(), actor, f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": list})
}

func (h *Handler) Get(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	t, err := h.Svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) Messages(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	msgs, err := h.Svc.Messages(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

type contentRequest struct {
	Content string `json:"content"`
}

// Post handles POST /support/tickets/:id/messages.
func (h *Handler) Post(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req contentRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	t, m, err := h.Svc.Post(c.Request().Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ticket": t, "message": m})
}

// Reply handles POST /admin/support/tickets/:id/reply.
func (h *Handler) Reply(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req contentRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	t, m, err := h.Svc.Reply(c.Request().Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"ticket": t, "message": m})
}

// SetStatus handles PATCH /admin/support/tickets/:id/status.
func (h *Handler) SetStatus(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req struct {
		Status Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return httpx.BadRequest(c, "status is required")
	}
	t, err := h.Svc.SetStatus(c.Request().Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, t)
}

// TicketWS handles GET /support/tickets/:id/ws. The ticket owner and admins
// receive new messages and status changes live.
func (h *Handler) TicketWS(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	t, err := h.Svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return h.Hub.Serve(c, messaging.Room(messaging.ThreadTicket, t.ID), actor.UserID)
}
