package admin

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/user"
)

// UserDirectory is the slice of user.Store the admin screens use.
type UserDirectory interface {
	ByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, f user.Filter) ([]user.User, error)
	SetActive(ctx context.Context, id string, active bool) (user.User, error)
	SetRole(ctx context.Context, id, role string) (user.User, error)
}

type UsersHandler struct {
	Users UserDirectory
}

// ListUsers handles GET /admin/users?q=&role=&active=&limit=&offset=.
func (h *UsersHandler) ListUsers(c echo.Context) error {
	f := user.Filter{Query: c.QueryParam("q"), Role: c.QueryParam("role")}
	if v := c.QueryParam("active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return httpx.BadRequest(c, "active must be true or false")
		}
		f.Active = &b
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	users, err := h.Users.List(c.Request().Context(), f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users})
}

// target loads the user named by :id, refusing to let admins act on themselves
// or on other admins.
func (h *UsersHandler) target(c echo.Context) (identity.Actor, user.User, error) {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return identity.Actor{}, user.User{}, apperr.ErrUnauthorized
	}
	u, err := h.Users.ByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return actor, user.User{}, err
	}
	if actor.Is(u.ID) {
		return actor, user.User{}, apperr.Validation("admins cannot change their own account here")
	}
	if u.Role == identity.RoleAdmin {
		return actor, user.User{}, apperr.Validation("admin accounts are managed with adminutil")
	}
	return actor, u, nil
}

// POST /admin/users/:id/suspend
func (h *UsersHandler) SuspendUser(c echo.Context) error { return h.setActive(c, false) }

// POST /admin/users/:id/activate
func (h *UsersHandler) ActivateUser(c echo.Context) error { return h.setActive(c, true) }

func (h *UsersHandler) setActive(c echo.Context, active bool) error {
	actor, u, err := h.target(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	u, err = h.Users.SetActive(c.Request().Context(), u.ID, active)
	if err != nil {
		return httpx.Error(c, err)
	}
	log.Printf("[admin] %s set user %s active=%t", actor.UserID, u.ID, active)
	msg := "user suspended"
	if active {
		msg = "user activated"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg, "user": u})
}

// POST /admin/users/:id/promote_seller
func (h *UsersHandler) PromoteSeller(c echo.Context) error {
	return h.changeRole(c, identity.RoleFan, identity.RoleSeller)
}

// POST /admin/users/:id/demote_seller
func (h *UsersHandler) DemoteSeller(c echo.Context) error {
	return h.changeRole(c, identity.RoleSeller, identity.RoleFan)
}

func (h *UsersHandler) changeRole(c echo.Context, from, to string) error {
	actor, u, err := h.target(c)
	if err != nil {
		return httpx.Error(c, err)
	}
	if u.Role != from {
		return httpx.Error(c, apperr.Transition("change role to "+to, u.Role))
	}
	u, err = h.Users.SetRole(c.Request().Context(), u.ID, to)
	if err != nil {
		return httpx.Error(c, err)
	}
	log.Printf("[admin] %s changed role of %s: %s -> %s", actor.UserID, u.ID, from, to)
	return c.JSON(http.StatusOK, echo.Map{"message": "user role changed to " + to, "user": u})
}
