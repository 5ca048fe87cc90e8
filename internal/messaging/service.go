package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/order"
)

type Repository interface {
	// Post stores an order-thread message only while the order's chat is open.
	Post(ctx context.Context, m Message) error
	List(ctx context.Context, kind ThreadKind, threadID string, since time.Time) ([]Message, error)
	Unread(ctx context.Context, kind ThreadKind, threadID, userID string) (int64, error)
	// MarkRead reports whether this call set read_at.
	MarkRead(ctx context.Context, kind ThreadKind, threadID, messageID, userID string) (readAt time.Time, changed bool, err error)
}

func errChatClosed() error { return apperr.Validation("chat is closed for this order") }

type OrderLookup interface {
	Get(ctx context.Context, id string) (order.Order, error)
}

// Service handles order threads. Ticket threads live in the support package.
type Service struct {
	Repo   Repository
	Orders OrderLookup
	Events events.Publisher
}

// participant loads the order and checks that actor may read its thread.
func (s *Service) participant(ctx context.Context, actor identity.Actor, orderID string) (order.Order, error) {
	o, err := s.Orders.Get(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if !o.IsParty(actor.UserID) && !actor.IsAdmin() {
		return order.Order{}, apperr.NotFound("order")
	}
	return o, nil
}

// CanJoin reports whether actor may subscribe to the order's live thread.
func (s *Service) CanJoin(ctx context.Context, actor identity.Actor, orderID string) error {
	_, err := s.participant(ctx, actor, orderID)
	return err
}

func (s *Service) Send(ctx context.Context, actor identity.Actor, orderID, content string) (Message, error) {
	o, err := s.participant(ctx, actor, orderID)
	if err != nil {
		return Message{}, err
	}
	if !o.IsParty(actor.UserID) {
		return Message{}, apperr.Validation("only the buyer and seller can post in an order thread")
	}
	if o.ChatClosed {
		return Message{}, errChatClosed()
	}
	content, err = CleanContent(content)
	if err != nil {
		return Message{}, err
	}

	m := Message{
		ID:          uuid.NewString(),
		ThreadKind:  ThreadOrder,
		ThreadID:    o.ID,
		SenderID:    actor.UserID,
		RecipientID: o.Counterparty(actor.UserID),
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Post(ctx, m); err != nil {
		return Message{}, err
	}

	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:       events.MessageNew,
		EntityID:   m.ID,
		ActorID:    actor.UserID,
		Recipients: []string{m.RecipientID},
		Data:       MessageData(m),
	})
	return m, nil
}

func (s *Service) List(ctx context.Context, actor identity.Actor, orderID string, since time.Time) ([]Message, error) {
	o, err := s.participant(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	return s.Repo.List(ctx, ThreadOrder, o.ID, since)
}

func (s *Service) Unread(ctx context.Context, actor identity.Actor, orderID string) (int64, error) {
	o, err := s.participant(ctx, actor, orderID)
	if err != nil {
		return 0, err
	}
	return s.Repo.Unread(ctx, ThreadOrder, o.ID, actor.UserID)
}

func (s *Service) MarkRead(ctx context.Context, actor identity.Actor, orderID, messageID string) (time.Time, error) {
	o, err := s.participant(ctx, actor, orderID)
	if err != nil {
		return time.Time{}, err
	}
	readAt, changed, err := s.Repo.MarkRead(ctx, ThreadOrder, o.ID, messageID, actor.UserID)
	if err != nil {
		return time.Time{}, err
	}
	if !changed {
		return readAt, nil
	}
	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:     events.MessageRead,
		EntityID: messageID,
		ActorID:  actor.UserID,
		Data: map[string]any{
			"thread_kind": string(ThreadOrder),
			"thread_id":   o.ID,
			"message_id":  messageID,
			"read_at":     readAt.UTC().Format(time.RFC3339),
		},
	})
	return readAt, nil
}

// MessageData is the event payload for m.
func MessageData(m Message) map[string]any {
	return map[string]any{
		"thread_kind":  string(m.ThreadKind),
		"thread_id":    m.ThreadID,
		"message_id":   m.ID,
		"sender_id":    m.SenderID,
		"recipient_id": m.RecipientID,
		"content":      m.Content,
		"created_at":   m.CreatedAt.UTC().Format(time.RFC3339),
	}
}
