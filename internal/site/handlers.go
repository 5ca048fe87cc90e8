package site

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/httpx"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/money"
)

// Sellers may list up to this many sites; admins are unlimited.
const maxListingsPerSeller = 50

type Handler struct {
	Sites Repository
}

// Search handles GET /sites.
func (h *Handler) Search(c echo.Context) error {
	f := SearchFilter{
		Query:    c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Offering: Offering(c.QueryParam("offering")),
		Language: c.QueryParam("language"),
		Sort:     c.QueryParam("sort"),
	}
	var err error
	if f.MinPrice, err = priceParam(c, "min_price"); err != nil {
		return httpx.Error(c, err)
	}
	if f.MaxPrice, err = priceParam(c, "max_price"); err != nil {
		return httpx.Error(c, err)
	}
	f.MinDA = intParam(c, "min_da")
	f.MaxTurnaround = intParam(c, "max_turnaround")
	f.Limit = intParam(c, "limit")
	f.Offset = intParam(c, "offset")

	sites, err := h.Sites.Search(c.Request().Context(), f)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sites": sites})
}

// Get handles GET /sites/:id. Non-active listings are only shown to the owner or an admin.
func (h *Handler) Get(c echo.Context) error {
	s, err := h.Sites.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	if s.Status != StatusActive {
		actor, _ := httpx.CurrentActor(c)
		if !actor.Is(s.OwnerID) && !actor.IsAdmin() {
			return httpx.Error(c, apperr.NotFound("site"))
		}
	}
	return c.JSON(http.StatusOK, s)
}

// Create handles POST /sites.
func (h *Handler) Create(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}

	var in Input
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}

	ctx := c.Request().Context()
	if !actor.IsAdmin() {
		n, err := h.Sites.CountByOwner(ctx, actor.UserID)
		if err != nil {
			return httpx.Error(c, err)
		}
		if n >= maxListingsPerSeller {
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "listing limit reached",
				"max":     maxListingsPerSeller,
				"current": n,
			})
		}
	}

	s, err := in.Merge(Site{
		OwnerID:        actor.UserID,
		Language:       "en",
		TurnaroundDays: 7,
		Status:         StatusActive,
	})
	if err != nil {
		return httpx.Error(c, err)
	}
	created, err := h.Sites.Create(ctx, s)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Update handles PATCH /sites/:id for the owner or an admin.
func (h *Handler) Update(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	ctx := c.Request().Context()

	s, err := h.Sites.Get(ctx, c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	if !actor.Is(s.OwnerID) && !actor.IsAdmin() {
		return httpx.Error(c, apperr.ErrUnauthorized)
	}

	var in Input
	if err := c.Bind(&in); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	merged, err := in.Merge(s)
	if err != nil {
		return httpx.Error(c, err)
	}
	updated, err := h.Sites.Update(ctx, merged)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// Mine handles GET /sites/me.
func (h *Handler) Mine(c echo.Context) error {
	actor, ok := httpx.CurrentActor(c)
	if !ok {
		return httpx.Unauthorized(c)
	}
	var all []Site
	for _, st := range []Status{StatusActive, StatusPendingReview, StatusSuspended} {
		sites, err := h.Sites.Search(c.Request().Context(), SearchFilter{
			OwnerID: actor.UserID, Status: st, Limit: maxLimit,
		})
		if err != nil {
			return httpx.Error(c, err)
		}
		all = append(all, sites...)
	}
	if all == nil {
		all = []Site{}
	}
	return c.JSON(http.StatusOK, echo.Map{"sites": all})
}

// Suspend handles POST /admin/sites/:id/suspend.
func (h *Handler) Suspend(c echo.Context) error { return h.setStatus(c, StatusSuspended) }

// Approve handles POST /admin/sites/:id/approve.
func (h *Handler) Approve(c echo.Context) error { return h.setStatus(c, StatusActive) }

func (h *Handler) setStatus(c echo.Context, status Status) error {
	s, err := h.Sites.SetStatus(c.Request().Context(), c.Param("id"), status)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Roles that may create listings.
var ListingRoles = []string{identity.RoleSeller, identity.RoleAdmin}

func intParam(c echo.Context, name string) int {
	v, _ := strconv.Atoi(c.QueryParam(name))
	return v
}

func priceParam(c echo.Context, name string) (money.Cents, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	return money.Parse(v)
}
