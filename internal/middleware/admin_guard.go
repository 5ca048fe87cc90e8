package middleware

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

// AdminGuard lets only admins through. Must run after JWTMiddleware.
func AdminGuard(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := httpx.CurrentActor(c)
		if !ok {
			return httpx.Unauthorized(c)
		}
		if !actor.IsAdmin() {
			log.Printf("[auth] %s denied %s %s (role %q)", actor.UserID, c.Request().Method, c.Path(), actor.Role)
			return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access only"})
		}
		return next(c)
	}
}
