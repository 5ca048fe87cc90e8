package messaging

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Svc *Service
	Hub *Hub
}

// Send handles POST /orders/:id/messages.
func (h *Handler) Send(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&body); err != nil {
		return httpx.BadRequest(c, "invalid payload")
	}
	m, err := h.Svc.Send(c.Request().Context(), actor, c.Param("id"), body.Content)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// List handles GET /orders/:id/messages[?since=RFC3339].
func (h *Handler) List(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var since time.Time
	if raw := c.QueryParam("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return httpx.BadRequest(c, "invalid since timestamp, use RFC3339")
		}
		since = t
	}
	msgs, err := h.Svc.List(c.Request().Context(), actor, c.Param("id"), since)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}

func (h *Handler) Unread(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	n, err := h.Svc.Unread(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

func (h *Handler) MarkRead(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	msgID := c.Param("message_id")
	readAt, err := h.Svc.MarkRead(c.Request().Context(), actor, c.Param("id"), msgID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message_id": msgID,
		"read_at":    readAt.UTC().Format(time.RFC3339),
	})
}

// OrderWS handles GET /orders/:id/ws.
func (h *Handler) OrderWS(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	orderID := c.Param("id")
	if err := h.Svc.CanJoin(c.Request().Context(), actor, orderID); err != nil {
		return httpx.Error(c, err)
	}
	return h.Hub.Serve(c, Room(ThreadOrder, orderID), actor.UserID)
}
