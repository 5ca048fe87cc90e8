package alerts

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type NotificationRepository interface {
	List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]Notification, error)
	Unread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
}

type Handler struct {
	Notifications NotificationRepository
}

// List handles GET /notifications[?unread=true&limit=n], newest first.
func (h *Handler) List(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	unreadOnly, _ := strconv.ParseBool(c.QueryParam("unread"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	items, err := h.Notifications.List(c.Request().Context(), actor.UserID, unreadOnly, limit)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

func (h *Handler) Unread(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	n, err := h.Notifications.Unread(c.Request().Context(), actor.UserID)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkRead handles POST /notifications/:id/read.
func (h *Handler) MarkRead(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	if err := h.Notifications.MarkRead(c.Request().Context(), c.Param("id"), actor.UserID); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "ok"})
}
