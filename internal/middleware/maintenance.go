package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/identity"
)

type MaintenanceFlag interface {
	Maintenance(ctx context.Context) bool
}

// Maintenance rejects non-admin writes with 503 while the maintenance setting is on.
// Reads and auth routes keep working.
func Maintenance(flag MaintenanceFlag) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}
			if role, _ := c.Get("role").(string); role == identity.RoleAdmin {
				return next(c)
			}
			if flag.Maintenance(c.Request().Context()) {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "the marketplace is in maintenance mode"})
			}
			return next(c)
		}
	}
}
