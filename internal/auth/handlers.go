package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Svc *Service
}

// Signup handles POST /auth/signup.
func (h *Handler) Signup(c echo.Context) error {
	var in SignupInput
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	sess, err := h.Svc.Signup(c.Request().Context(), in)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, sess)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	sess, err := h.Svc.Login(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, sess)
}

// Me handles GET /auth/me.
func (h *Handler) Me(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	u, err := h.Svc.Me(c.Request().Context(), actor)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

const resetMessage = "If the email exists, a reset link has been sent."

// RequestReset handles POST /auth/password/request. The response is the same
// whether or not the address is registered.
func (h *Handler) RequestReset(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err == nil && req.Email != "" {
		h.Svc.RequestReset(c.Request().Context(), req.Email)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": resetMessage})
}

// ResetPassword handles POST /auth/password/reset.
func (h *Handler) ResetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return httpx.BadRequest(c, "invalid request")
	}
	err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	if errors.Is(err, ErrInvalidToken) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
