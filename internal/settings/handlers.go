package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Store *Store
}

// List handles GET /admin/settings.
func (h *Handler) List(c echo.Context) error {
	all, err := h.Store.All(c.Request().Context())
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"settings": all})
}

// Get handles GET /admin/settings/:key.
func (h *Handler) Get(c echo.Context) error {
	key := c.Param("key")
	v, err := h.Store.Get(c.Request().Context(), key)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"key": key, "value": v})
}

// Put handles PUT /admin/settings/:key with {"value": "..."}.
func (h *Handler) Put(c echo.Context) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	key := c.Param("key")
	if err := h.Store.Set(c.Request().Context(), key, req.Value); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"key": key, "value": req.Value})
}
