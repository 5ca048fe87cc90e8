package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/httpx"
)

// Rejection reasons are canned texts admins pick from when cancelling an
// order, declining an exchange or suspending a listing.
type Reason struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	AppliesTo string    `json:"applies_to"`
	CreatedAt time.Time `json:"created_at"`
}

var reasonTargets = map[string]bool{"order": true, "exchange": true, "site": true}

const maxReason = 500

func (r *Reason) normalize() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" || len(r.Reason) > maxReason {
		return apperr.Validation("reason must be 1-%d characters", maxReason)
	}
	r.AppliesTo = strings.ToLower(strings.TrimSpace(r.AppliesTo))
	if r.AppliesTo == "" {
		r.AppliesTo = "order"
	}
	if !reasonTargets[r.AppliesTo] {
		return apperr.Validation("applies_to must be order, exchange or site")
	}
	return nil
}

type ReasonRepository interface {
	List(ctx context.Context, appliesTo string) ([]Reason, error)
	Create(ctx context.Context, r Reason) (Reason, error)
	Delete(ctx context.Context, id string) error
}

type ReasonStore struct {
	pool *pgxpool.Pool
}

func NewReasonStore(pool *pgxpool.Pool) *ReasonStore { return &ReasonStore{pool: pool} }

func (s *ReasonStore) List(ctx context.Context, appliesTo string) ([]Reason, error) {
	q := `SELECT id, reason, applies_to, created_at FROM rejection_reasons`
	var args []any
	if appliesTo != "" {
		q += ` WHERE applies_to = $1`
		args = append(args, appliesTo)
	}
	rows, err := s.pool.Query(ctx, q+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("list reasons: %w", err)
	}
	defer rows.Close()
	out := []Reason{}
	for rows.Next() {
		var r Reason
		if err := rows.Scan(&r.ID, &r.Reason, &r.AppliesTo, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reason: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *ReasonStore) Create(ctx context.Context, r Reason) (Reason, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO rejection_reasons (reason, applies_to) VALUES ($1, $2) RETURNING id, created_at`,
		r.Reason, r.AppliesTo).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return Reason{}, fmt.Errorf("insert reason: %w", err)
	}
	return r, nil
}

func (s *ReasonStore) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound("rejection reason")
	}
	var deleted string
	err := s.pool.QueryRow(ctx, `DELETE FROM rejection_reasons WHERE id = $1 RETURNING id`, id).Scan(&deleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("rejection reason")
	}
	if err != nil {
		return fmt.Errorf("delete reason: %w", err)
	}
	return nil
}

type ReasonsHandler struct {
	Reasons ReasonRepository
}

// GET /admin/rejection-reasons?applies_to=
func (h *ReasonsHandler) List(c echo.Context) error {
	target := strings.ToLower(c.QueryParam("applies_to"))
	if target != "" && !reasonTargets[target] {
		return httpx.BadRequest(c, "applies_to must be order, exchange or site")
	}
	reasons, err := h.Reasons.List(c.Request().Context(), target)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reasons": reasons})
}

// POST /admin/rejection-reasons
func (h *ReasonsHandler) Create(c echo.Context) error {
	var r Reason
	if err := c.Bind(&r); err != nil {
		return httpx.BadRequest(c, "invalid request")
	}
	if err := r.normalize(); err != nil {
		return httpx.Error(c, err)
	}
	r, err := h.Reasons.Create(c.Request().Context(), r)
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// DELETE /admin/rejection-reasons/:id
func (h *ReasonsHandler) Delete(c echo.Context) error {
	if err := h.Reasons.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpx.Error(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
