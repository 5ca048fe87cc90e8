package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/delivery"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

const maxReasonLength = 500

// Command is one requested lifecycle step.
type Command struct {
	Action      Action
	Actor       identity.Actor
	DeliveryURL string
	Reason      string
}

// Apply computes the order that results from cmd along with the wallet
// postings that must be written in the same transaction. o is not modified.
func Apply(o Order, cmd Command) (Order, []wallet.Posting, error) {
	if o.Status.Terminal() {
		return o, nil, apperr.Transition(string(cmd.Action), string(o.Status))
	}

	next := o
	var postings []wallet.Posting

	switch cmd.Action {
	case ActionAccept:
		if err := from(o, cmd, StatusPending); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.Is(o.SellerID) {
			return o, nil, unauthorized(cmd, "seller")
		}
		next.Status = StatusOnGoing

	case ActionDeliver:
		if err := from(o, cmd, StatusOnGoing); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.Is(o.SellerID) {
			return o, nil, unauthorized(cmd, "seller")
		}
		u, err := delivery.ValidateURL(cmd.DeliveryURL)
		if err != nil {
			return o, nil, err
		}
		next.Status = StatusDelivered
		next.DeliveryURL = u

	case ActionConfirm:
		if err := from(o, cmd, StatusDelivered); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.Is(o.BuyerID) {
			return o, nil, unauthorized(cmd, "buyer")
		}
		next.Status = StatusCompleted
		if o.SellerAmount > 0 {
			postings = append(postings, wallet.Credit(o.SellerID, o.SellerAmount, wallet.KindPayout, o.ID))
		}

	case ActionDecline:
		if err := from(o, cmd, StatusPending); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.Is(o.SellerID) {
			return o, nil, unauthorized(cmd, "seller")
		}
		next.Status = StatusCancelled
		postings = append(postings, refund(o))

	case ActionCancel:
		if err := from(o, cmd, StatusPending, StatusOnGoing, StatusDelivered); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.Is(o.SellerID) && !cmd.Actor.IsAdmin() {
			return o, nil, unauthorized(cmd, "seller or admin")
		}
		next.Status = StatusCancelled
		postings = append(postings, refund(o))

	case ActionRefund:
		if err := from(o, cmd, StatusPending, StatusOnGoing, StatusDelivered); err != nil {
			return o, nil, err
		}
		if !cmd.Actor.IsAdmin() {
			return o, nil, unauthorized(cmd, "admin")
		}
		next.Status = StatusRefunded
		postings = append(postings, refund(o))

	default:
		return o, nil, apperr.Validation("unknown action %q", cmd.Action)
	}

	if next.Status == StatusCancelled || next.Status == StatusRefunded {
		reason := strings.TrimSpace(cmd.Reason)
		if len(reason) > maxReasonLength {
			return o, nil, apperr.Validation("reason must be at most %d characters", maxReasonLength)
		}
		next.CancelReason = reason
	}
	if next.Status.Terminal() {
		next.ChatClosed = true
	}
	next.Version = o.Version + 1
	next.UpdatedAt = time.Now().UTC()
	return next, postings, nil
}

// DeletionRefund returns the refund owed when an admin deletes o.
func DeletionRefund(o Order) []wallet.Posting {
	if o.Status.Terminal() {
		return nil
	}
	return []wallet.Posting{refund(o)}
}

func refund(o Order) wallet.Posting {
	return wallet.Credit(o.BuyerID, o.Amount, wallet.KindRefund, o.ID)
}

func from(o Order, cmd Command, allowed ...Status) error {
	for _, s := range allowed {
		if o.Status == s {
			return nil
		}
	}
	return apperr.Transition(string(cmd.Action), string(o.Status))
}

func unauthorized(cmd Command, who string) error {
	return fmt.Errorf("%w: only the %s can %s", apperr.ErrUnauthorized, who, cmd.Action)
}
