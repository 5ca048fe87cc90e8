package settings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

type memKV struct {
	mu    sync.Mutex
	data  map[string]string
	loads int
}

func newMemKV() *memKV { return &memKV{data: map[string]string{}} }

func (m *memKV) load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) loadAll(context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.data {
		out[k] = v
	}
	return out, nil
}

func (m *memKV) save(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestDefaults(t *testing.T) {
	s := &Store{db: newMemKV()}
	ctx := context.Background()

	if got := s.ServiceFeeBps(ctx); got != 500 {
		t.Errorf("expected fee 500 bps, got %d", got)
	}
	if got := s.ReferralCommissionBps(ctx); got != 1000 {
		t.Errorf("expected referral 1000 bps, got %d", got)
	}
	if s.Maintenance(ctx) || s.AutoAcceptOrders(ctx) {
		t.Error("expected boolean flags to default to false")
	}
	if s.Location(ctx) != time.UTC {
		t.Error("expected UTC location")
	}
}

func TestSetAndGet(t *testing.T) {
	s := &Store{db: newMemKV()}
	ctx := context.Background()

	if err := s.Set(ctx, ServiceFeeBps, "750"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := s.ServiceFeeBps(ctx); got != 750 {
		t.Errorf("expected 750, got %d", got)
	}
	if err := s.Set(ctx, Maintenance, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !s.Maintenance(ctx) {
		t.Error("expected maintenance on")
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if all[ServiceFeeBps] != "750" || all[Timezone] != "UTC" {
		t.Errorf("unexpected settings %v", all)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		key, value string
		ok         bool
	}{
		{ServiceFeeBps, "500", true},
		{ServiceFeeBps, "-1", false},
		{ServiceFeeBps, "10001", false},
		{ServiceFeeBps, "abc", false},
		{Maintenance, "true", true},
		{Maintenance, "maybe", false},
		{Timezone, "Europe/Berlin", true},
		{Timezone, "Mars/Olympus", false},
		{PaymentGateway, `{"provider":"stripe"}`, true},
		{PaymentGateway, `{`, false},
		{"unknown", "1", false},
	}
	for _, tt := range tests {
		err := Validate(tt.key, tt.value)
		if tt.ok && err != nil {
			t.Errorf("%s=%s: unexpected error %v", tt.key, tt.value, err)
		}
		if !tt.ok && !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("%s=%s: expected validation error, got %v", tt.key, tt.value, err)
		}
	}
}

func TestGetUnknownKey(t *testing.T) {
	s := &Store{db: newMemKV()}
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestPutHandler(t *testing.T) {
	s := &Store{db: newMemKV()}
	h := &Handler{Store: s}
	e := echo.New()

	req := httptest.NewRequest(http.MethodPut, "/admin/settings/service_fee_bps", strings.NewReader(`{"value":"1200"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(ServiceFeeBps)

	if err := h.Put(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := s.ServiceFeeBps(context.Background()); got != 1200 {
		t.Errorf("expected 1200, got %d", got)
	}

	req = httptest.NewRequest(http.MethodPut, "/admin/settings/maintenance", strings.NewReader(`{"value":"sometimes"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("key")
	c.SetParamValues(Maintenance)
	_ = h.Put(c)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRedisCacheInvalidatedOnSet(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	client.Del(ctx, cachePrefix+ServiceFeeBps)

	kv := newMemKV()
	s := &Store{db: kv, cache: client, ttl: time.Minute}

	_ = s.ServiceFeeBps(ctx)
	_ = s.ServiceFeeBps(ctx)
	if kv.loads != 1 {
		t.Errorf("expected second read to hit the cache, got %d loads", kv.loads)
	}

	if err := s.Set(ctx, ServiceFeeBps, "300"); err != nil {
		t.Fatal(err)
	}
	if got := s.ServiceFeeBps(ctx); got != 300 {
		t.Errorf("expected fresh value after set, got %d", got)
	}
	client.Del(ctx, cachePrefix+ServiceFeeBps)
}
