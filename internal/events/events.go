// Package events is the push seam for lifecycle changes. Publishers are
// best-effort: they run after the owning transaction commits.
package events

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	OrderCreated   = "order.created"
	OrderAccepted  = "order.accepted"
	OrderDelivered = "order.delivered"
	OrderCompleted = "order.completed"
	OrderCancelled = "order.cancelled"
	OrderRefunded  = "order.refunded"
	OrderDeleted   = "order.deleted"

	ExchangeRequested = "exchange.requested"
	ExchangeAccepted  = "exchange.accepted"
	ExchangeDelivered = "exchange.delivered"
	ExchangeCompleted = "exchange.completed"
	ExchangeCancelled = "exchange.cancelled"
	ExchangeDeclined  = "exchange.declined"

	TicketCreated       = "ticket.created"
	TicketReplied       = "ticket.replied"
	TicketStatusChanged = "ticket.status_changed"

	MessageNew  = "message.new"
	MessageRead = "message.read"

	WalletAdjusted = "wallet.adjusted"
	UserRegistered = "user.registered"
)

type Event struct {
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id,omitempty"`
	Recipients []string       `json:"recipients,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher; one failure does not stop the rest.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			log.Printf("[events][ERROR] %s %s: %v", e.Type, e.EntityID, err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Emit publishes e and only logs failures.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Printf("[events] publish %s failed: %v", e.Type, err)
	}
}

// Recorder keeps published events in memory. Used by tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}
