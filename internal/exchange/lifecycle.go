package exchange

import (
	"fmt"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/delivery"
	"github.com/sudo-init-do/linkhub/internal/identity"
)

type Command struct {
	Action      Action
	Actor       identity.Actor
	DeliveryURL string
}

// Apply returns the exchange after cmd. Admins skip the party checks but not
// the status rules.
func Apply(e Exchange, cmd Command) (Exchange, error) {
	if e.Status.Terminal() {
		return e, apperr.Transition(string(cmd.Action), string(e.Status))
	}
	admin := cmd.Actor.IsAdmin()
	uid := cmd.Actor.UserID
	next := e

	switch cmd.Action {
	case ActionAccept, ActionDecline:
		if e.Status != StatusPending {
			return e, apperr.Transition(string(cmd.Action), string(e.Status))
		}
		if !admin && uid != e.RequestedUserID {
			return e, fmt.Errorf("%w: only the requested owner can %s", apperr.ErrUnauthorized, cmd.Action)
		}
		next.Status = StatusActive
		if cmd.Action == ActionDecline {
			next.Status = StatusDeclined
		}

	case ActionCancel:
		if e.Status != StatusPending && e.Status != StatusActive {
			return e, apperr.Transition(string(cmd.Action), string(e.Status))
		}
		if !admin && !e.IsParty(uid) {
			return e, fmt.Errorf("%w: not a party to this exchange", apperr.ErrUnauthorized)
		}
		next.Status = StatusCancelled

	case ActionDeliver:
		if e.Status != StatusActive {
			return e, apperr.Transition(string(cmd.Action), string(e.Status))
		}
		if !admin && !e.IsParty(uid) {
			return e, fmt.Errorf("%w: not a party to this exchange", apperr.ErrUnauthorized)
		}
		u, err := delivery.ValidateURL(cmd.DeliveryURL)
		if err != nil {
			return e, err
		}
		next.Status = StatusDelivered
		next.DeliveryURL = u
		next.DeliveredBy = uid

	case ActionConfirm:
		if e.Status != StatusDelivered {
			return e, apperr.Transition(string(cmd.Action), string(e.Status))
		}
		if !admin {
			if !e.IsParty(uid) {
				return e, fmt.Errorf("%w: not a party to this exchange", apperr.ErrUnauthorized)
			}
			if uid == e.DeliveredBy {
				return e, fmt.Errorf("%w: the other party must confirm your delivery", apperr.ErrUnauthorized)
			}
		}
		next.Status = StatusCompleted

	default:
		return e, apperr.Validation("unknown action %q", cmd.Action)
	}

	next.Version = e.Version + 1
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}

// Force moves a non-terminal exchange straight to status. Admin only.
func Force(e Exchange, actor identity.Actor, status Status) (Exchange, error) {
	if !actor.IsAdmin() {
		return e, fmt.Errorf("%w: only an admin can force a status", apperr.ErrUnauthorized)
	}
	if !status.Valid() {
		return e, apperr.Validation("unknown status %q", status)
	}
	if e.Status.Terminal() {
		return e, apperr.Transition("force "+string(status), string(e.Status))
	}
	if e.Status == status {
		return e, apperr.Validation("exchange is already %s", status)
	}
	next := e
	next.Status = status
	if status == StatusPending || status == StatusActive {
		next.DeliveryURL = ""
		next.DeliveredBy = ""
	}
	next.Version = e.Version + 1
	next.UpdatedAt = time.Now().UTC()
	return next, nil
}
