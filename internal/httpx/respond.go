package httpx

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/identity"
)

// StatusFor maps an application error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidTransition), errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as {"error": "..."}. Internal errors are logged and hidden.
func Error(c echo.Context, err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[http][ERROR] %s %s: %v", c.Request().Method, c.Path(), err)
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// Actor is the authenticated caller as set by the JWT middleware.
type Actor = identity.Actor

// CurrentActor reads user_id and role from the echo context.
func CurrentActor(c echo.Context) (Actor, bool) {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return Actor{}, false
	}
	role, _ := c.Get("role").(string)
	return Actor{UserID: uid, Role: role}, true
}

// Unauthorized is the response used when no actor is present on the context.
func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// BadRequest responds 400 with msg.
func BadRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// BearerToken extracts the token from an "Authorization: Bearer x" header.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
