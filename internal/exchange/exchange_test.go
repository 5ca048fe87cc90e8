package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/site"
)

var (
	alice = identity.Actor{UserID: "alice", Role: identity.RoleSeller}
	bob   = identity.Actor{UserID: "bob", Role: identity.RoleSeller}
	carol = identity.Actor{UserID: "carol", Role: identity.RoleFan}
	admin = identity.Actor{UserID: "root", Role: identity.RoleAdmin}
)

func sample(status Status) Exchange {
	return Exchange{
		ID:              "ex-1",
		RequesterID:     alice.UserID,
		RequestedUserID: bob.UserID,
		RequesterSiteID: "site-a",
		RequestedSiteID: "site-b",
		Status:          status,
		Version:         1,
	}
}

func TestApply(t *testing.T) {
	delivered := sample(StatusDelivered)
	delivered.DeliveredBy = alice.UserID

	tests := []struct {
		name    string
		start   Exchange
		cmd     Command
		want    Status
		wantErr error
	}{
		{"requested owner accepts", sample(StatusPending), Command{Action: ActionAccept, Actor: bob}, StatusActive, nil},
		{"requester cannot accept", sample(StatusPending), Command{Action: ActionAccept, Actor: alice}, "", apperr.ErrUnauthorized},
		{"requested owner declines", sample(StatusPending), Command{Action: ActionDecline, Actor: bob}, StatusDeclined, nil},
		{"decline active", sample(StatusActive), Command{Action: ActionDecline, Actor: bob}, "", apperr.ErrInvalidTransition},
		{"requester cancels pending", sample(StatusPending), Command{Action: ActionCancel, Actor: alice}, StatusCancelled, nil},
		{"other party cancels active", sample(StatusActive), Command{Action: ActionCancel, Actor: bob}, StatusCancelled, nil},
		{"stranger cannot cancel", sample(StatusActive), Command{Action: ActionCancel, Actor: carol}, "", apperr.ErrUnauthorized},
		{"cancel delivered", delivered, Command{Action: ActionCancel, Actor: alice}, "", apperr.ErrInvalidTransition},
		{"either party delivers", sample(StatusActive), Command{Action: ActionDeliver, Actor: bob, DeliveryURL: "https://b.example.com/post"}, StatusDelivered, nil},
		{"deliver needs url", sample(StatusActive), Command{Action: ActionDeliver, Actor: bob}, "", apperr.ErrValidation},
		{"deliver pending", sample(StatusPending), Command{Action: ActionDeliver, Actor: bob, DeliveryURL: "https://b.example.com/post"}, "", apperr.ErrInvalidTransition},
		{"other party confirms", delivered, Command{Action: ActionConfirm, Actor: bob}, StatusCompleted, nil},
		{"deliverer cannot confirm", delivered, Command{Action: ActionConfirm, Actor: alice}, "", apperr.ErrUnauthorized},
		{"admin confirms", delivered, Command{Action: ActionConfirm, Actor: admin}, StatusCompleted, nil},
		{"admin accepts", sample(StatusPending), Command{Action: ActionAccept, Actor: admin}, StatusActive, nil},
		{"completed is final", sample(StatusCompleted), Command{Action: ActionCancel, Actor: admin}, "", apperr.ErrInvalidTransition},
		{"declined is final", sample(StatusDeclined), Command{Action: ActionAccept, Actor: bob}, "", apperr.ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.start, tt.cmd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Status)
			}
			if got.Status == StatusDelivered && got.DeliveredBy != tt.cmd.Actor.UserID {
				t.Errorf("expected delivered_by %s, got %s", tt.cmd.Actor.UserID, got.DeliveredBy)
			}
		})
	}
}

func TestForce(t *testing.T) {
	e := sample(StatusActive)
	if _, err := Force(e, bob, StatusCompleted); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected non-admin force to fail, got %v", err)
	}
	got, err := Force(e, admin, StatusCompleted)
	if err != nil || got.Status != StatusCompleted {
		t.Fatalf("force: %v %s", err, got.Status)
	}
	if _, err := Force(got, admin, StatusActive); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("terminal exchanges cannot be forced, got %v", err)
	}
	for _, terminal := range []Status{StatusCompleted, StatusCancelled, StatusDeclined} {
		if _, err := Force(sample(terminal), admin, StatusPending); !errors.Is(err, apperr.ErrInvalidTransition) {
			t.Errorf("force out of %s: want ErrInvalidTransition, got %v", terminal, err)
		}
	}
	if _, err := Force(e, admin, "exploded"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	d := sample(StatusDelivered)
	d.DeliveryURL, d.DeliveredBy = "https://a.example.com", alice.UserID
	back, err := Force(d, admin, StatusActive)
	if err != nil {
		t.Fatal(err)
	}
	if back.DeliveryURL != "" || back.DeliveredBy != "" {
		t.Errorf("forcing back to active should clear delivery, got %+v", back)
	}
}

type memRepo struct {
	mu        sync.Mutex
	exchanges map[string]Exchange
}

func (m *memRepo) Create(_ context.Context, e Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.exchanges {
		if x.RequesterSiteID == e.RequesterSiteID && x.RequestedSiteID == e.RequestedSiteID && x.Status == StatusPending {
			return apperr.ErrConflict
		}
	}
	m.exchanges[e.ID] = e
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return Exchange{}, apperr.NotFound("exchange")
	}
	return e, nil
}

func (m *memRepo) List(_ context.Context, f Filter) ([]Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Exchange
	for _, e := range m.exchanges {
		if f.UserID == "" || e.IsParty(f.UserID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id string, fn func(Exchange) (Exchange, error)) (Exchange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return Exchange{}, apperr.NotFound("exchange")
	}
	next, err := fn(e)
	if err != nil {
		return Exchange{}, err
	}
	m.exchanges[id] = next
	return next, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.exchanges[id]; !ok {
		return apperr.NotFound("exchange")
	}
	delete(m.exchanges, id)
	return nil
}

type memSites map[string]site.Site

func (m memSites) Get(_ context.Context, id string) (site.Site, error) {
	s, ok := m[id]
	if !ok {
		return site.Site{}, apperr.NotFound("site")
	}
	return s, nil
}

func newService() (*Service, *memRepo, *events.Recorder) {
	repo := &memRepo{exchanges: map[string]Exchange{}}
	rec := &events.Recorder{}
	sites := memSites{
		"site-a":  {ID: "site-a", OwnerID: alice.UserID, Offering: site.OfferingBoth, Status: site.StatusActive},
		"site-a2": {ID: "site-a2", OwnerID: alice.UserID, Offering: site.OfferingExchange, Status: site.StatusActive},
		"site-b":  {ID: "site-b", OwnerID: bob.UserID, Offering: site.OfferingExchange, Status: site.StatusActive},
		"site-g":  {ID: "site-g", OwnerID: bob.UserID, Offering: site.OfferingGuestPost, Status: site.StatusActive},
	}
	return &Service{Repo: repo, Sites: sites, Events: rec}, repo, rec
}

func TestExchangeFlow(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	e, err := svc.Create(ctx, alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-b", Message: "swap?"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.RequestedUserID != bob.UserID {
		t.Fatalf("expected requested user bob, got %s", e.RequestedUserID)
	}
	if _, err := svc.Create(ctx, alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-b"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected duplicate pending request to conflict, got %v", err)
	}

	steps := []struct {
		actor identity.Actor
		cmd   Command
	}{
		{bob, Command{Action: ActionAccept}},
		{alice, Command{Action: ActionDeliver, DeliveryURL: "https://a.example.com/links"}},
		{bob, Command{Action: ActionConfirm}},
	}
	for _, s := range steps {
		if e, err = svc.Act(ctx, s.actor, e.ID, s.cmd); err != nil {
			t.Fatalf("%s by %s: %v", s.cmd.Action, s.actor.UserID, err)
		}
	}
	if e.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", e.Status)
	}

	want := []string{events.ExchangeRequested, events.ExchangeAccepted, events.ExchangeDelivered, events.ExchangeCompleted}
	if got := rec.Types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
	last := rec.Events()[len(rec.Events())-1]
	if len(last.Recipients) != 1 || last.Recipients[0] != alice.UserID {
		t.Errorf("completion should notify the requester, got %v", last.Recipients)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name  string
		actor identity.Actor
		in    CreateInput
		want  error
	}{
		{"missing ids", alice, CreateInput{}, apperr.ErrValidation},
		{"same site", alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-a"}, apperr.ErrValidation},
		{"not my site", carol, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-b"}, apperr.ErrUnauthorized},
		{"self exchange", alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-a2"}, apperr.ErrValidation},
		{"guest post only", alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-g"}, apperr.ErrValidation},
		{"unknown site", alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "nope"}, apperr.ErrNotFound},
	}
	for _, tc := range cases {
		if _, err := svc.Create(ctx, tc.actor, tc.in); !errors.Is(err, tc.want) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestAdminUpdateHandler(t *testing.T) {
	svc, repo, _ := newService()
	e, _ := svc.Create(context.Background(), alice, CreateInput{RequesterSiteID: "site-a", RequestedSiteID: "site-b"})
	h := &Handler{Svc: svc}

	do := func(actor identity.Actor, body string, fn func(echo.Context) error) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/admin/exchanges/"+e.ID, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues(e.ID)
		c.Set("user_id", actor.UserID)
		c.Set("role", actor.Role)
		if err := fn(c); err != nil {
			t.Fatal(err)
		}
		return rec
	}

	if rec := do(bob, `{"status":"completed"}`, h.AdminUpdate); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin force, got %d", rec.Code)
	}
	if rec := do(admin, `{"status":"active"}`, h.AdminUpdate); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got, _ := repo.Get(context.Background(), e.ID); got.Status != StatusActive {
		t.Errorf("expected forced active, got %s", got.Status)
	}
	if rec := do(admin, `{}`, h.Delete); rec.Code != http.StatusOK {
		t.Errorf("expected delete 200, got %d", rec.Code)
	}
	if rec := do(admin, `{}`, h.Delete); rec.Code != http.StatusNotFound {
		t.Errorf("expected second delete 404, got %d", rec.Code)
	}
}
