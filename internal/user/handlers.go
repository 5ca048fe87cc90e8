package user

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Profiles interface {
	ByID(ctx context.Context, id string) (User, error)
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (User, error)
}

type Handler struct {
	Users Profiles
}

// PublicProfile handles GET /user/:id/profile.
func (h *Handler) PublicProfile(c echo.Context) error {
	u, err := h.Users.ByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	if !u.IsActive {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	return c.JSON(http.StatusOK, u.Public())
}

// UpdateProfile handles PATCH /user/profile.
func (h *Handler) UpdateProfile(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	req, err := req.Validate()
	if err != nil {
		return httpx.Error(c, err)
	}
	u, err := h.Users.UpdateProfile(c.Request().Context(), actor.UserID, req)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "profile updated successfully", "user": u})
}
