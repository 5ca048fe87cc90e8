package exchange

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/site"
)

type Repository interface {
	// Create fails with ErrConflict when a pending request for the same pair of sites exists.
	Create(ctx context.Context, e Exchange) error
	Get(ctx context.Context, id string) (Exchange, error)
	List(ctx context.Context, f Filter) ([]Exchange, error)
	Update(ctx context.Context, id string, fn func(Exchange) (Exchange, error)) (Exchange, error)
	Delete(ctx context.Context, id string) error
}

type SiteLookup interface {
	Get(ctx context.Context, id string) (site.Site, error)
}

type Service struct {
	Repo   Repository
	Sites  SiteLookup
	Events events.Publisher
}

type CreateInput struct {
	RequesterSiteID string `json:"requester_site_id"`
	RequestedSiteID string `json:"requested_site_id"`
	Message         string `json:"message"`
}

func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (Exchange, error) {
	if in.RequesterSiteID == "" || in.RequestedSiteID == "" {
		return Exchange{}, apperr.Validation("requester_site_id and requested_site_id are required")
	}
	if in.RequesterSiteID == in.RequestedSiteID {
		return Exchange{}, apperr.Validation("a site cannot be exchanged with itself")
	}
	msg := strings.TrimSpace(in.Message)
	if len(msg) > 1000 {
		return Exchange{}, apperr.Validation("message must be at most 1000 characters")
	}

	mine, err := s.Sites.Get(ctx, in.RequesterSiteID)
	if err != nil {
		return Exchange{}, err
	}
	if mine.OwnerID != actor.UserID {
		return Exchange{}, fmt.Errorf("%w: you can only offer your own site", apperr.ErrUnauthorized)
	}
	theirs, err := s.Sites.Get(ctx, in.RequestedSiteID)
	if err != nil {
		return Exchange{}, err
	}
	if theirs.OwnerID == actor.UserID {
		return Exchange{}, apperr.Validation("you cannot request an exchange with yourself")
	}
	if !mine.AcceptsExchanges() || !theirs.AcceptsExchanges() {
		return Exchange{}, apperr.Validation("both sites must be active and open to exchanges")
	}

	now := time.Now().UTC()
	e := Exchange{
		ID:              uuid.NewString(),
		RequesterID:     actor.UserID,
		RequestedUserID: theirs.OwnerID,
		RequesterSiteID: mine.ID,
		RequestedSiteID: theirs.ID,
		Status:          StatusPending,
		Message:         msg,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, e); err != nil {
		return Exchange{}, err
	}
	log.Printf("[exchanges] %s requested by %s (%s -> %s)", e.ID, actor.UserID, mine.Domain, theirs.Domain)

	s.emit(ctx, events.ExchangeRequested, actor, e)
	return e, nil
}

func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (Exchange, error) {
	e, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Exchange{}, err
	}
	if !actor.IsAdmin() && !e.IsParty(actor.UserID) {
		return Exchange{}, apperr.NotFound("exchange")
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, actor identity.Actor, f Filter) ([]Exchange, error) {
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	return s.Repo.List(ctx, f)
}

func (s *Service) Act(ctx context.Context, actor identity.Actor, id string, cmd Command) (Exchange, error) {
	cmd.Actor = actor
	e, err := s.Repo.Update(ctx, id, func(e Exchange) (Exchange, error) {
		if !actor.IsAdmin() && !e.IsParty(actor.UserID) {
			return e, apperr.NotFound("exchange")
		}
		return Apply(e, cmd)
	})
	if err != nil {
		return Exchange{}, err
	}
	log.Printf("[exchanges] %s %s by %s -> %s", e.ID, cmd.Action, actor.UserID, e.Status)

	s.emit(ctx, eventFor(e.Status), actor, e)
	return e, nil
}

// Force is the admin override for stuck exchanges.
func (s *Service) Force(ctx context.Context, actor identity.Actor, id string, status Status) (Exchange, error) {
	e, err := s.Repo.Update(ctx, id, func(e Exchange) (Exchange, error) {
		return Force(e, actor, status)
	})
	if err != nil {
		return Exchange{}, err
	}
	log.Printf("[exchanges] %s forced to %s by admin %s", e.ID, e.Status, actor.UserID)

	s.emit(ctx, eventFor(e.Status), actor, e)
	return e, nil
}

func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: only an admin can delete exchanges", apperr.ErrUnauthorized)
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Printf("[exchanges] %s deleted by admin %s", id, actor.UserID)
	return nil
}

func eventFor(st Status) string {
	switch st {
	case StatusActive:
		return events.ExchangeAccepted
	case StatusDelivered:
		return events.ExchangeDelivered
	case StatusCompleted:
		return events.ExchangeCompleted
	case StatusCancelled:
		return events.ExchangeCancelled
	case StatusDeclined:
		return events.ExchangeDeclined
	}
	return events.ExchangeRequested
}

func (s *Service) emit(ctx context.Context, typ string, actor identity.Actor, e Exchange) {
	recipients := []string{e.RequesterID, e.RequestedUserID}
	if e.IsParty(actor.UserID) {
		recipients = []string{e.Counterparty(actor.UserID)}
	}
	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:       typ,
		EntityID:   e.ID,
		ActorID:    actor.UserID,
		Recipients: recipients,
		Data: map[string]any{
			"status":       string(e.Status),
			"delivery_url": e.DeliveryURL,
		},
	})
}
