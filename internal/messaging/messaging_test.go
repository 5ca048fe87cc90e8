package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/order"
)

type memRepo struct {
	mu     sync.Mutex
	msgs   []Message
	orders memOrders
}

func (r *memRepo) Post(_ context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[m.ThreadID]
	if !ok {
		return apperr.NotFound("order")
	}
	if o.ChatClosed {
		return errChatClosed()
	}
	r.msgs = append(r.msgs, m)
	return nil
}

func (r *memRepo) List(_ context.Context, kind ThreadKind, threadID string, since time.Time) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Message{}
	for _, m := range r.msgs {
		if m.ThreadKind == kind && m.ThreadID == threadID && m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memRepo) Unread(_ context.Context, kind ThreadKind, threadID, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, m := range r.msgs {
		if m.ThreadKind == kind && m.ThreadID == threadID && m.RecipientID == userID && m.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) MarkRead(_ context.Context, kind ThreadKind, threadID, messageID, userID string) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.msgs {
		if m.ID != messageID || m.ThreadKind != kind || m.ThreadID != threadID {
			continue
		}
		if m.RecipientID != userID {
			return time.Time{}, false, fmt.Errorf("%w: not the recipient", apperr.ErrUnauthorized)
		}
		if m.ReadAt != nil {
			return *m.ReadAt, false, nil
		}
		now := time.Now().UTC()
		r.msgs[i].ReadAt = &now
		return now, true, nil
	}
	return time.Time{}, false, apperr.NotFound("message")
}

type memOrders map[string]order.Order

func (m memOrders) Get(_ context.Context, id string) (order.Order, error) {
	o, ok := m[id]
	if !ok {
		return order.Order{}, apperr.NotFound("order")
	}
	return o, nil
}

var (
	buyer    = identity.Actor{UserID: "buyer", Role: identity.RoleFan}
	seller   = identity.Actor{UserID: "seller", Role: identity.RoleSeller}
	stranger = identity.Actor{UserID: "stranger", Role: identity.RoleFan}
	admin    = identity.Actor{UserID: "admin", Role: identity.RoleAdmin}
)

// closeOnRead hands out the current order and then closes its chat, as if the
// buyer confirmed delivery right after Send looked the order up.
type closeOnRead struct{ orders memOrders }

func (c closeOnRead) Get(ctx context.Context, id string) (order.Order, error) {
	o, err := c.orders.Get(ctx, id)
	if err != nil {
		return o, err
	}
	closed := o
	closed.Status = order.StatusCompleted
	closed.ChatClosed = true
	c.orders[id] = closed
	return o, nil
}

func newService() (*Service, *memRepo, *events.Recorder) {
	rec := &events.Recorder{}
	orders := memOrders{
		"o1": {ID: "o1", BuyerID: "buyer", SellerID: "seller", Status: order.StatusOnGoing},
		"o2": {ID: "o2", BuyerID: "buyer", SellerID: "seller", Status: order.StatusCompleted, ChatClosed: true},
	}
	repo := &memRepo{orders: orders}
	return &Service{Repo: repo, Orders: orders, Events: rec}, repo, rec
}

func TestSendAndReadFlow(t *testing.T) {
	svc, _, rec := newService()
	ctx := context.Background()

	m, err := svc.Send(ctx, buyer, "o1", "  hello there  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if m.RecipientID != "seller" || m.Content != "hello there" {
		t.Fatalf("unexpected message %+v", m)
	}

	n, _ := svc.Unread(ctx, seller, "o1")
	if n != 1 {
		t.Fatalf("seller unread = %d, want 1", n)
	}
	if n, _ := svc.Unread(ctx, buyer, "o1"); n != 0 {
		t.Fatalf("buyer unread = %d, want 0", n)
	}

	if _, err := svc.MarkRead(ctx, buyer, "o1", m.ID); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("sender marking read: want ErrUnauthorized, got %v", err)
	}
	first, err := svc.MarkRead(ctx, seller, "o1", m.ID)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	again, err := svc.MarkRead(ctx, seller, "o1", m.ID)
	if err != nil {
		t.Fatalf("second mark read: %v", err)
	}
	if !first.Equal(again) {
		t.Fatalf("read_at changed on second mark: %v vs %v", first, again)
	}
	if n, _ := svc.Unread(ctx, seller, "o1"); n != 0 {
		t.Fatalf("unread after mark = %d", n)
	}

	if got := rec.Types(); len(got) != 2 || got[0] != events.MessageNew || got[1] != events.MessageRead {
		t.Fatalf("events = %v", got)
	}
	if r := rec.Events()[0].Recipients; len(r) != 1 || r[0] != "seller" {
		t.Fatalf("message.new recipients = %v", r)
	}
}

func TestSendRejections(t *testing.T) {
	svc, repo, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name    string
		actor   identity.Actor
		order   string
		content string
		want    error
	}{
		{"closed chat", buyer, "o2", "hi", apperr.ErrValidation},
		{"stranger", stranger, "o1", "hi", apperr.ErrNotFound},
		{"admin is read-only", admin, "o1", "hi", apperr.ErrValidation},
		{"empty", seller, "o1", "   ", apperr.ErrValidation},
		{"too long", seller, "o1", strings.Repeat("x", MaxContentLength+1), apperr.ErrValidation},
		{"missing order", buyer, "nope", "hi", apperr.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Send(ctx, tc.actor, tc.order, tc.content); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
	if len(repo.msgs) != 0 {
		t.Fatalf("rejected sends stored %d messages", len(repo.msgs))
	}
}

func TestSendAfterChatClosesConcurrently(t *testing.T) {
	svc, repo, rec := newService()
	svc.Orders = closeOnRead{orders: repo.orders}

	_, err := svc.Send(context.Background(), buyer, "o1", "one more thing")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if len(repo.msgs) != 0 {
		t.Fatalf("closed thread stored %d messages", len(repo.msgs))
	}
	if got := rec.Types(); len(got) != 0 {
		t.Fatalf("events = %v", got)
	}
}

func TestListSince(t *testing.T) {
	svc, repo, _ := newService()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		repo.msgs = append(repo.msgs, Message{
			ID: fmt.Sprintf("m%d", i), ThreadKind: ThreadOrder, ThreadID: "o1",
			SenderID: "buyer", RecipientID: "seller", Content: "x", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	all, _ := svc.List(context.Background(), admin, "o1", time.Time{})
	if len(all) != 3 {
		t.Fatalf("admin sees %d messages, want 3", len(all))
	}
	newer, _ := svc.List(context.Background(), seller, "o1", base)
	if len(newer) != 2 || newer[0].ID != "m1" {
		t.Fatalf("since filter returned %+v", newer)
	}
}

func TestListHandlerRejectsBadSince(t *testing.T) {
	svc, _, _ := newService()
	h := &Handler{Svc: svc, Hub: NewHub()}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/orders/o1/messages?since=yesterday", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("o1")
	c.Set("user_id", "buyer")

	if err := h.List(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRoomFor(t *testing.T) {
	cases := []struct {
		e    events.Event
		room string
		ok   bool
	}{
		{events.Event{Type: events.OrderDelivered, EntityID: "o1"}, "order:o1", true},
		{events.Event{Type: events.TicketReplied, EntityID: "t1"}, "ticket:t1", true},
		{events.Event{Type: events.MessageNew, Data: map[string]any{"thread_kind": "order", "thread_id": "o9"}}, "order:o9", true},
		{events.Event{Type: events.MessageNew}, "", false},
		{events.Event{Type: events.WalletAdjusted, EntityID: "u1"}, "", false},
	}
	for _, tc := range cases {
		room, ok := roomFor(tc.e)
		if room != tc.room || ok != tc.ok {
			t.Errorf("roomFor(%s) = %q,%v want %q,%v", tc.e.Type, room, ok, tc.room, tc.ok)
		}
	}
}

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a := &client{send: make(chan []byte, 1)}
	b := &client{send: make(chan []byte, 1)}
	other := &client{send: make(chan []byte, 1)}
	h.join("order:o1", a)
	h.join("order:o1", b)
	h.join("order:o2", other)

	if err := h.Publish(context.Background(), events.Event{Type: events.OrderAccepted, EntityID: "o1"}); err != nil {
		t.Fatal(err)
	}
	for _, c := range []*client{a, b} {
		select {
		case p := <-c.send:
			var evt wsEvent
			if err := json.Unmarshal(p, &evt); err != nil || evt.Type != events.OrderAccepted {
				t.Fatalf("payload %s (%v)", p, err)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}
	select {
	case p := <-other.send:
		t.Fatalf("unrelated room received %s", p)
	default:
	}

	// A full buffer drops instead of blocking the publisher.
	a.send <- []byte("x")
	_ = h.Publish(context.Background(), events.Event{Type: events.OrderDelivered, EntityID: "o1"})

	h.leave("order:o1", a)
	h.leave("order:o1", a)
	if n := h.Subscribers("order:o1"); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
}

func TestHubServeWebsocket(t *testing.T) {
	h := NewHub()
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error { return h.Serve(c, "order:o1", "buyer") })
	srv := httptest.NewServer(e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.Subscribers("order:o1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never joined")
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = h.Publish(context.Background(), events.Event{
		Type: events.OrderDelivered, EntityID: "o1", Data: map[string]any{"status": "delivered"},
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var evt wsEvent
		if err := json.Unmarshal(p, &evt); err != nil {
			t.Fatal(err)
		}
		if evt.Type == events.OrderDelivered {
			break
		}
	}
}
