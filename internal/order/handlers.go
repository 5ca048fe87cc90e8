package order

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/httpx"
)

type Handler struct {
	Svc *Service
}

// Create handles POST /orders.
func (h *Handler) Create(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	o, err := h.Svc.Create(c.Request().Context(), actor, in)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// List handles GET /orders and GET /admin/orders.
func (h *Handler) List(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	f := Filter{UserID: c.QueryParam("user_id")}
	if st := c.QueryParam("status"); st != "" {
		parsed, ok := ParseStatus(st)
		if !ok {
			return httpx.BadRequest(c, "unknown status "+st)
		}
		f.Status = parsed
	}
	f.Limit, _ = strconv.Atoi(c.QueryParam("limit"))
	f.Offset, _ = strconv.Atoi(c.QueryParam("offset"))

	orders, err := h.Svc.List(c.Request().Context(), actor, f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Get handles GET /orders/:id.
func (h *Handler) Get(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	o, err := h.Svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

type actRequest struct {
	Action      Action `json:"action"`
	DeliveryURL string `json:"delivery_url"`
	Reason      string `json:"reason"`
}

// Act handles PATCH /orders/:id and PATCH /admin/orders/:id.
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

	o, err := h.Svc.Act(c.Request().Context(), actor, c.Param("id"), Command{
		Action:      req.Action,
		DeliveryURL: req.DeliveryURL,
		Reason:      req.Reason,
	})
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

// Delete handles DELETE /admin/orders/:id.
func (h *Handler) Delete(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	o, err := h.Svc.Delete(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "order deleted",
		"order_id": o.ID,
		"refunded": !o.Status.Terminal(),
	})
}

// CreateReview handles POST /orders/:id/review.
func (h *Handler) CreateReview(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	r, err := h.Svc.Review(c.Request().Context(), actor, c.Param("id"), req.Rating, req.Comment)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// SellerReviews handles GET /sellers/:id/reviews.
func (h *Handler) SellerReviews(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	reviews, summary, err := h.Svc.SellerReviews(c.Request().Context(), c.Param("id"), limit, (page-1)*limit)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"summary": summary,
		"reviews": reviews,
		"page":    page,
		"limit":   limit,
	})
}
