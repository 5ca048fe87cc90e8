package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/user"
)

// TokenParser is satisfied by *auth.Tokens.
type TokenParser interface {
	Parse(raw string) (identity.Actor, error)
}

// Accounts is satisfied by *user.Store.
type Accounts interface {
	ByID(ctx context.Context, id string) (user.User, error)
}

// JWTMiddleware verifies the bearer token, reloads the account and sets user_id
// and role on the context. The role comes from the account row, not the token,
// and suspended accounts get 403.
// Websocket clients that cannot set headers may pass ?token= instead.
func JWTMiddleware(tokens TokenParser, accounts Accounts) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := httpx.BearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				raw = c.QueryParam("token")
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing Authorization header"})
			}
			actor, err := tokens.Parse(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			u, err := accounts.ByID(c.Request().Context(), actor.UserID)
			if errors.Is(err, apperr.ErrNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "account no longer exists"})
			}
			if err != nil {
				return httpx.Error(c, err)
			}
			if !u.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account suspended"})
			}
			c.Set("user_id", u.ID)
			c.Set("role", u.Role)
			return next(c)
		}
	}
}
