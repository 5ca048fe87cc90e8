package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/testutil"
	"github.com/sudo-init-do/linkhub/internal/user"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]user.User
}

func (m *memUsers) ByID(_ context.Context, id string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return user.User{}, apperr.NotFound("user")
	}
	return u, nil
}

func (m *memUsers) List(_ context.Context, f user.Filter) ([]user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []user.User{}
	for _, u := range m.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
	return u, nil
}

func (m *memUsers) SetRole(_ context.Context, id, role string) (user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return u, nil
}

func newUsers() *memUsers {
	return &memUsers{users: map[string]user.User{
		"admin":  {ID: "admin", Role: identity.RoleAdmin, IsActive: true},
		"admin2": {ID: "admin2", Role: identity.RoleAdmin, IsActive: true},
		"fan":    {ID: "fan", Role: identity.RoleFan, IsActive: true},
		"seller": {ID: "seller", Role: identity.RoleSeller, IsActive: true},
	}}
}

func adminContext(method, target, body, id string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "admin")
	c.Set("role", identity.RoleAdmin)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	return c, rec
}

func TestUserModeration(t *testing.T) {
	users := newUsers()
	h := &UsersHandler{Users: users}

	cases := []struct {
		name string
		fn   echo.HandlerFunc
		id   string
		want int
	}{
		{"suspend fan", h.SuspendUser, "fan", http.StatusOK},
		{"activate fan", h.ActivateUser, "fan", http.StatusOK},
		{"promote fan", h.PromoteSeller, "fan", http.StatusOK},
		{"promote seller again", h.PromoteSeller, "fan", http.StatusConflict},
		{"demote seller", h.DemoteSeller, "seller", http.StatusOK},
		{"demote again", h.DemoteSeller, "seller", http.StatusConflict},
		{"suspend self", h.SuspendUser, "admin", http.StatusBadRequest},
		{"suspend other admin", h.SuspendUser, "admin2", http.StatusBadRequest},
		{"unknown user", h.SuspendUser, "ghost", http.StatusNotFound},
	}
	for _, tc := range cases {
		c, rec := adminContext(http.MethodPost, "/", "", tc.id)
		if err := tc.fn(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d (%s)", tc.name, rec.Code, tc.want, rec.Body.String())
		}
	}

	if u := users.users["fan"]; u.Role != identity.RoleSeller || !u.IsActive {
		t.Errorf("fan = %+v", u)
	}
	if u := users.users["seller"]; u.Role != identity.RoleFan {
		t.Errorf("seller = %+v", u)
	}
}

func TestListUsersFilters(t *testing.T) {
	users := newUsers()
	users.users["fan"] = user.User{ID: "fan", Role: identity.RoleFan, IsActive: false}
	h := &UsersHandler{Users: users}

	c, rec := adminContext(http.MethodGet, "/admin/users?active=false", "", "")
	if err := h.ListUsers(c); err != nil {
		t.Fatal(err)
	}
	var body struct {
		Users []user.User `json:"users"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Users) != 1 || body.Users[0].ID != "fan" {
		t.Fatalf("users = %+v", body.Users)
	}

	c, rec = adminContext(http.MethodGet, "/admin/users?active=maybe", "", "")
	_ = h.ListUsers(c)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad active flag: %d", rec.Code)
	}
}

type memReasons struct {
	items []Reason
}

func (m *memReasons) List(_ context.Context, appliesTo string) ([]Reason, error) {
	out := []Reason{}
	for _, r := range m.items {
		if appliesTo == "" || r.AppliesTo == appliesTo {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReasons) Create(_ context.Context, r Reason) (Reason, error) {
	r.ID = "r" + string(rune('0'+len(m.items)))
	r.CreatedAt = time.Now()
	m.items = append(m.items, r)
	return r, nil
}

func (m *memReasons) Delete(_ context.Context, id string) error {
	for i, r := range m.items {
		if r.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("rejection reason")
}

func TestReasonsHandlers(t *testing.T) {
	repo := &memReasons{}
	h := &ReasonsHandler{Reasons: repo}

	cases := []struct {
		body string
		want int
	}{
		{`{"reason":"Low quality content"}`, http.StatusCreated},
		{`{"reason":"Spammy outbound links","applies_to":"Exchange"}`, http.StatusCreated},
		{`{"reason":"  "}`, http.StatusBadRequest},
		{`{"reason":"x","applies_to":"user"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		c, rec := adminContext(http.MethodPost, "/admin/rejection-reasons", tc.body, "")
		if err := h.Create(c); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.body, rec.Code, tc.want)
		}
	}
	if len(repo.items) != 2 || repo.items[0].AppliesTo != "order" || repo.items[1].AppliesTo != "exchange" {
		t.Fatalf("items = %+v", repo.items)
	}

	c, rec := adminContext(http.MethodGet, "/admin/rejection-reasons?applies_to=exchange", "", "")
	_ = h.List(c)
	var body struct {
		Reasons []Reason `json:"reasons"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Reasons) != 1 {
		t.Fatalf("filtered reasons = %+v", body.Reasons)
	}

	c, rec = adminContext(http.MethodDelete, "/", "", repo.items[0].ID)
	_ = h.Delete(c)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	c, rec = adminContext(http.MethodDelete, "/", "", "missing")
	_ = h.Delete(c)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("delete missing: %d", rec.Code)
	}
}

type fixedStats struct {
	loc *time.Location
	err error
}

func (f *fixedStats) Stats(_ context.Context, loc *time.Location) (Stats, error) {
	f.loc = loc
	return Stats{OrdersToday: 3}, f.err
}

type fixedLoc struct{ loc *time.Location }

func (f fixedLoc) Location(context.Context) *time.Location { return f.loc }

func TestStatsHandlerUsesConfiguredTimezone(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	src := &fixedStats{}
	h := &StatsHandler{Stats: src, Settings: fixedLoc{lagos}}

	c, rec := adminContext(http.MethodGet, "/admin/stats", "", "")
	if err := h.Get(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || src.loc != lagos {
		t.Fatalf("status %d loc %v", rec.Code, src.loc)
	}

	src.err = errors.New("db down")
	c, rec = adminContext(http.MethodGet, "/admin/stats", "", "")
	_ = h.Get(c)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("error status %d", rec.Code)
	}
}

func TestStatsStore(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	seller := testutil.User(t, pool, identity.RoleSeller)
	buyer := testutil.User(t, pool, identity.RoleFan)
	site := testutil.Site(t, pool, seller, 5000)

	store := NewStatsStore(pool)
	before, err := store.Stats(ctx, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO orders (id, buyer_id, seller_id, site_id, amount_cents, service_fee_cents, seller_amount_cents, status)
		VALUES (gen_random_uuid(), $1, $2, $3, 5000, 500, 4500, 'on_going')`, buyer, seller, site)
	if err != nil {
		t.Fatal(err)
	}

	after, err := store.Stats(ctx, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if after.OrdersToday != before.OrdersToday+1 {
		t.Errorf("orders today %d -> %d", before.OrdersToday, after.OrdersToday)
	}
	if after.EscrowHeld-before.EscrowHeld != 5000 {
		t.Errorf("escrow %v -> %v", before.EscrowHeld, after.EscrowHeld)
	}
	if after.Orders["on_going"] != before.Orders["on_going"]+1 {
		t.Errorf("on_going %d -> %d", before.Orders["on_going"], after.Orders["on_going"])
	}

	wallets, err := store.Wallets(ctx, 200, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(wallets) == 0 {
		t.Fatal("no wallets listed")
	}
}

func TestReasonStore(t *testing.T) {
	pool := testutil.Pool(t)
	ctx := context.Background()
	store := NewReasonStore(pool)

	r, err := store.Create(ctx, Reason{Reason: "Duplicate listing", AppliesTo: "site"})
	if err != nil {
		t.Fatal(err)
	}
	list, err := store.List(ctx, "site")
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, x := range list {
		found = found || x.ID == r.ID
	}
	if !found {
		t.Fatalf("created reason %s not listed", r.ID)
	}
	if err := store.Delete(ctx, r.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, r.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if err := store.Delete(ctx, "not-a-uuid"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("bad id: %v", err)
	}
}
