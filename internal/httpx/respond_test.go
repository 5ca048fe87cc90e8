package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		apperr.NotFound("order"):                           http.StatusNotFound,
		apperr.ErrUnauthorized:                             http.StatusForbidden,
		apperr.Validation("bad"):                           http.StatusBadRequest,
		apperr.Transition("accept", "completed"):           http.StatusConflict,
		fmt.Errorf("wrap: %w", apperr.ErrInsufficientBalance): http.StatusUnprocessableEntity,
		errors.New("boom"):                                 http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := StatusFor(err); got != want {
			t.Errorf("StatusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestErrorHidesInternalDetails(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := Error(c, errors.New("pq: connection refused")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusInternalServerError || body["error"] != "internal error" {
		t.Errorf("got %d %v", rec.Code, body)
	}
}

func TestCurrentActor(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, ok := CurrentActor(c); ok {
		t.Fatal("expected no actor on a bare context")
	}
	c.Set("user_id", "u-1")
	c.Set("role", "admin")
	a, ok := CurrentActor(c)
	if !ok || a.UserID != "u-1" || !a.IsAdmin() {
		t.Errorf("unexpected actor %+v", a)
	}
}

func TestBearerToken(t *testing.T) {
	if tok, ok := BearerToken("Bearer abc.def"); !ok || tok != "abc.def" {
		t.Errorf("got %q %v", tok, ok)
	}
	for _, h := range []string{"", "Bearer ", "Basic abc"} {
		if _, ok := BearerToken(h); ok {
			t.Errorf("expected %q to be rejected", h)
		}
	}
}
