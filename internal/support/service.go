package support

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/messaging"
)

type Repository interface {
	// Create assigns the ticket number.
	Create(ctx context.Context, t Ticket) (Ticket, error)
	Get(ctx context.Context, id string) (Ticket, error)
	List(ctx context.Context, f Filter) ([]Ticket, error)
	// Update runs fn under the ticket row lock and stores the new ticket together
	// with the message fn returns, if any.
	Update(ctx context.Context, id string, fn func(Ticket) (Ticket, *messaging.Message, error)) (Ticket, error)
	Messages(ctx context.Context, ticketID string) ([]messaging.Message, error)
}

type Service struct {
	Repo    Repository
	Machine Machine
	Events  events.Publisher
}

func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (Ticket, error) {
	in, err := in.normalize()
	if err != nil {
		return Ticket{}, err
	}
	now := time.Now().UTC()
	t, err := s.Repo.Create(ctx, Ticket{
		ID:          uuid.NewString(),
		UserID:      actor.UserID,
		Subject:     in.Subject,
		Description: in.Description,
		Status:      StatusOpen,
		Priority:    in.Priority,
		Category:    in.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Ticket{}, err
	}
	log.Printf("[support] ticket %s opened by %s (%s)", t.Number, actor.UserID, t.Priority)

	s.emit(ctx, events.TicketCreated, actor, t, nil, map[string]any{"subject": t.Subject})
	return t, nil
}

func visible(actor identity.Actor, t Ticket) bool {
	return actor.IsAdmin() || actor.Is(t.UserID)
}

func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (Ticket, error) {
	t, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !visible(actor, t) {
		return Ticket{}, apperr.NotFound("ticket")
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, actor identity.Actor, f Filter) ([]Ticket, error) {
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return nil, apperr.Validation("unknown priority %q", f.Priority)
	}
	return s.Repo.List(ctx, f)
}

func (s *Service) Messages(ctx context.Context, actor identity.Actor, id string) ([]messaging.Message, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.Repo.Messages(ctx, t.ID)
}

// Post adds a message to the ticket thread. An admin message on an open
// ticket marks it replied. Closed tickets accept no messages.
func (s *Service) Post(ctx context.Context, actor identity.Actor, id, content string) (Ticket, messaging.Message, error) {
	content, err := messaging.CleanContent(content)
	if err != nil {
		return Ticket{}, messaging.Message{}, err
	}
	var msg messaging.Message
	var from Status
	t, err := s.Repo.Update(ctx, id, func(t Ticket) (Ticket, *messaging.Message, error) {
		if !visible(actor, t) {
			return t, nil, apperr.NotFound("ticket")
		}
		if t.Status == StatusClosed {
			return t, nil, apperr.Validation("ticket %s is closed", t.Number)
		}
		from = t.Status
		now := time.Now().UTC()
		msg = messaging.Message{
			ID:         uuid.NewString(),
			ThreadKind: messaging.ThreadTicket,
			ThreadID:   t.ID,
			SenderID:   actor.UserID,
			Content:    content,
			CreatedAt:  now,
		}
		if actor.IsAdmin() && !actor.Is(t.UserID) {
			msg.RecipientID = t.UserID
			if t.Status == StatusOpen {
				t.Status = StatusReplied
			}
		}
		t.UpdatedAt = now
		return t, &msg, nil
	})
	if err != nil {
		return Ticket{}, messaging.Message{}, err
	}

	data := messaging.MessageData(msg)
	data["status"] = string(t.Status)
	if msg.RecipientID != "" {
		log.Printf("[support] %s replied on %s (%s -> %s)", actor.UserID, t.Number, from, t.Status)
		s.emit(ctx, events.TicketReplied, actor, t, []string{t.UserID}, data)
	} else {
		s.emit(ctx, events.MessageNew, actor, t, nil, data)
	}
	return t, msg, nil
}

// Reply is the admin-only form of Post.
func (s *Service) Reply(ctx context.Context, actor identity.Actor, id, content string) (Ticket, messaging.Message, error) {
	if !actor.IsAdmin() {
		return Ticket{}, messaging.Message{}, fmt.Errorf("%w: only an admin can reply to tickets", apperr.ErrUnauthorized)
	}
	return s.Post(ctx, actor, id, content)
}

func (s *Service) SetStatus(ctx context.Context, actor identity.Actor, id string, to Status) (Ticket, error) {
	if !actor.IsAdmin() {
		return Ticket{}, fmt.Errorf("%w: only an admin can change ticket status", apperr.ErrUnauthorized)
	}
	if !to.Valid() {
		return Ticket{}, apperr.Validation("unknown status %q", to)
	}
	var from Status
	t, err := s.Repo.Update(ctx, id, func(t Ticket) (Ticket, *messaging.Message, error) {
		from = t.Status
		if !s.Machine.CanTransition(from, to) {
			return t, nil, apperr.Transition("move to "+string(to), string(from))
		}
		t.Status = to
		t.UpdatedAt = time.Now().UTC()
		return t, nil, nil
	})
	if err != nil {
		return Ticket{}, err
	}
	log.Printf("[support] %s status %s -> %s by %s", t.Number, from, to, actor.UserID)

	s.emit(ctx, events.TicketStatusChanged, actor, t, []string{t.UserID}, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	return t, nil
}

func (s *Service) emit(ctx context.Context, typ string, actor identity.Actor, t Ticket, recipients []string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	data["ticket_number"] = t.Number
	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:       typ,
		EntityID:   t.ID,
		ActorID:    actor.UserID,
		Recipients: recipients,
		Data:       data,
	})
}
