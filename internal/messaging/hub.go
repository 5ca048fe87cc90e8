package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/sudo-init-do/linkhub/internal/events"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

type wsEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes events to websocket subscribers grouped by thread ("order:<id>", "ticket:<id>").
// It implements events.Publisher.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func Room(kind ThreadKind, id string) string { return string(kind) + ":" + id }

func roomFor(e events.Event) (string, bool) {
	switch {
	case strings.HasPrefix(e.Type, "message."):
		kind, _ := e.Data["thread_kind"].(string)
		id, _ := e.Data["thread_id"].(string)
		if kind == "" || id == "" {
			return "", false
		}
		return Room(ThreadKind(kind), id), true
	case strings.HasPrefix(e.Type, "order."):
		return Room(ThreadOrder, e.EntityID), true
	case strings.HasPrefix(e.Type, "ticket."):
		return Room(ThreadTicket, e.EntityID), true
	}
	return "", false
}

func (h *Hub) Publish(_ context.Context, e events.Event) error {
	room, ok := roomFor(e)
	if !ok {
		return nil
	}
	payload, err := json.Marshal(wsEvent{Type: e.Type, Data: e.Data})
	if err != nil {
		return fmt.Errorf("encode ws event: %w", err)
	}
	h.broadcast(room, payload)
	return nil
}

func (h *Hub) broadcast(room string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			log.Printf("[ws] dropping event for slow client in %s", room)
		}
	}
}

func (h *Hub) join(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]struct{})
	}
	h.rooms[room][c] = struct{}{}
}

func (h *Hub) leave(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[room][c]; !ok {
		return
	}
	delete(h.rooms[room], c)
	close(c.send)
	if len(h.rooms[room]) == 0 {
		delete(h.rooms, room)
	}
}

// Subscribers returns the number of live connections in room.
func (h *Hub) Subscribers(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) presence(room, typ, userID string) {
	payload, _ := json.Marshal(wsEvent{Type: typ, Data: echo.Map{"user_id": userID}})
	h.broadcast(room, payload)
}

// Serve upgrades the request and streams room events until the client goes away.
// Client frames are read only to detect disconnects.
func (h *Hub) Serve(c echo.Context, room, userID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.join(room, cl)
	h.presence(room, "presence_join", userID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range cl.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.leave(room, cl)
	<-done
	_ = conn.Close()
	h.presence(room, "presence_leave", userID)
	return nil
}
