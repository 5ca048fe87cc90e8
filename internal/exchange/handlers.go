package exchange

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Svc *Service
}

// Create handles POST /exchanges.
func (h *Handler) Create(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	e, err := h.Svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, e)
}

// List handles GET /exchanges and GET /admin/exchanges.
func (h *Handler) List(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	f := Filter{UserID: c.QueryParam("user_id"), Status: Status(c.QueryParam("status"))}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	list, err := h.Svc.List(c.Request().Context(), actor, f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"exchanges": list})
}

// Get handles GET /exchanges/:id.
func (h *Handler) Get(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	e, err := h.Svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

type actRequest struct {
	Action      Action `json:"action"`
	DeliveryURL string `json:"delivery_url"`
	// Status is only honoured on the admin route.
	Status Status `json:"status"`
}

// Act handles PATCH /exchanges/:id.
func (h *Handler) Act(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req actRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	if req.Action == "" {
		return httpx.BadRequest(c, "action is required")
	}
	e, err := h.Svc.Act(c.Request().Context(), actor, c.Param("id"), Command{
		Action:      req.Action,
		DeliveryURL: req.DeliveryURL,
	})
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// AdminUpdate handles PATCH /admin/exchanges/:id. A status forces the exchange,
// an action runs the normal lifecycle with admin privileges.
func (h *Handler) AdminUpdate(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req actRequest
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}

	ctx := c.Request().Context()
	id := c.Param("id")
	var e Exchange
	var err error
	switch {
	case req.Status != "":
		e, err = h.Svc.Force(ctx, actor, id, req.Status)
	case req.Action != "":
		e, err = h.Svc.Act(ctx, actor, id, Command{Action: req.Action, DeliveryURL: req.DeliveryURL})
	default:
		return httpx.BadRequest(c, "status or action is required")
	}
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Delete handles DELETE /admin/exchanges/:id.
func (h *Handler) Delete(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request().Context(), actor, id); err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "exchange deleted", "exchange_id": id})
}
