package order

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
	"github.com/sudo-init-do/linkhub/internal/money"
	"github.com/sudo-init-do/linkhub/internal/site"
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

// Repository persists orders. Transition and Delete must run fn while holding
// the order's row lock and write its postings in the same transaction.
type Repository interface {
	Create(ctx context.Context, o Order, hold wallet.Posting) error
	Get(ctx context.Context, id string) (Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	Transition(ctx context.Context, id string, fn func(Order) (Order, []wallet.Posting, error)) (Order, error)
	Delete(ctx context.Context, id string, fn func(Order) ([]wallet.Posting, error)) (Order, error)
	ReferrerOf(ctx context.Context, userID string) (string, error)

	CreateReview(ctx context.Context, r Review) (Review, error)
	SellerReviews(ctx context.Context, sellerID string, limit, offset int) ([]Review, RatingSummary, error)
}

type SiteLookup interface {
	Get(ctx context.Context, id string) (site.Site, error)
}

// Policy exposes the settings that shape pricing and onboarding.
type Policy interface {
	ServiceFeeBps(ctx context.Context) int64
	ReferralCommissionBps(ctx context.Context) int64
	AutoAcceptOrders(ctx context.Context) bool
}

type Service struct {
	Repo   Repository
	Sites  SiteLookup
	Policy Policy
	Events events.Publisher
}

type CreateInput struct {
	SiteID        string `json:"site_id"`
	Requirements  string `json:"requirements"`
	GoogleDocLink string `json:"google_doc_link"`
	TargetLink    string `json:"target_link"`
}

const (
	maxRequirementsLength = 5000
	maxLinkLength         = 500
)

// Create places an order on a listing and escrows its price from the buyer.
func (s *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (Order, error) {
	if strings.TrimSpace(in.SiteID) == "" {
		return Order{}, apperr.Validation("site_id is required")
	}
	if len(in.Requirements) > maxRequirementsLength {
		return Order{}, apperr.Validation("requirements must be at most %d characters", maxRequirementsLength)
	}
	if len(in.GoogleDocLink) > maxLinkLength || len(in.TargetLink) > maxLinkLength {
		return Order{}, apperr.Validation("links must be at most %d characters", maxLinkLength)
	}

	listing, err := s.Sites.Get(ctx, in.SiteID)
	if err != nil {
		return Order{}, err
	}
	if !listing.AcceptsOrders() {
		return Order{}, apperr.Validation("listing is not accepting guest posts")
	}
	if listing.OwnerID == actor.UserID {
		return Order{}, apperr.Validation("you cannot order your own listing")
	}
	if err := money.RequirePositive("price", listing.Price); err != nil {
		return Order{}, err
	}

	fee := money.Fee(listing.Price, s.Policy.ServiceFeeBps(ctx))
	now := time.Now().UTC()
	o := Order{
		ID:            uuid.NewString(),
		BuyerID:       actor.UserID,
		SellerID:      listing.OwnerID,
		SiteID:        listing.ID,
		Amount:        listing.Price,
		ServiceFee:    fee,
		SellerAmount:  listing.Price - fee,
		Status:        StatusPending,
		Requirements:  strings.TrimSpace(in.Requirements),
		GoogleDocLink: strings.TrimSpace(in.GoogleDocLink),
		TargetLink:    strings.TrimSpace(in.TargetLink),
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.Policy.AutoAcceptOrders(ctx) {
		o.Status = StatusOnGoing
	}

	hold := wallet.Debit(o.BuyerID, o.Amount, wallet.KindEscrowHold, o.ID)
	if err := s.Repo.Create(ctx, o, hold); err != nil {
		return Order{}, err
	}
	log.Printf("[orders] %s created by %s on site %s for %s", o.ID, o.BuyerID, o.SiteID, o.Amount)

	s.emit(ctx, events.OrderCreated, actor, o)
	return o, nil
}

// Get returns an order visible to actor.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (Order, error) {
	o, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if !actor.IsAdmin() && !o.IsParty(actor.UserID) {
		return Order{}, apperr.NotFound("order")
	}
	return o, nil
}

// List returns the actor's own orders. Admins see all orders unless f.UserID is set.
func (s *Service) List(ctx context.Context, actor identity.Actor, f Filter) ([]Order, error) {
	if !actor.IsAdmin() {
		f.UserID = actor.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", f.Status)
	}
	return s.Repo.List(ctx, f)
}

// Act runs one lifecycle action. Status, settlement and referral credit are
// committed together or not at all.
func (s *Service) Act(ctx context.Context, actor identity.Actor, id string, cmd Command) (Order, error) {
	cmd.Actor = actor

	var referrer string
	var commissionBps int64
	if cmd.Action == ActionConfirm {
		current, err := s.Get(ctx, actor, id)
		if err != nil {
			return Order{}, err
		}
		if referrer, err = s.Repo.ReferrerOf(ctx, current.SellerID); err != nil {
			return Order{}, err
		}
		commissionBps = s.Policy.ReferralCommissionBps(ctx)
	}

	o, err := s.Repo.Transition(ctx, id, func(o Order) (Order, []wallet.Posting, error) {
		if !actor.IsAdmin() && !o.IsParty(actor.UserID) {
			return o, nil, apperr.NotFound("order")
		}
		next, postings, err := Apply(o, cmd)
		if err != nil {
			return o, nil, err
		}
		if next.Status == StatusCompleted {
			if p, ok := referralPosting(next, referrer, commissionBps); ok {
				postings = append(postings, p)
			}
		}
		return next, postings, nil
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[orders] %s %s by %s -> %s", o.ID, cmd.Action, actor.UserID, o.Status)

	s.emit(ctx, eventFor(o.Status), actor, o)
	return o, nil
}

// Delete removes an order, refunding the buyer first when it is still open.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) (Order, error) {
	if !actor.IsAdmin() {
		return Order{}, fmt.Errorf("%w: only an admin can delete orders", apperr.ErrUnauthorized)
	}
	o, err := s.Repo.Delete(ctx, id, func(o Order) ([]wallet.Posting, error) {
		return DeletionRefund(o), nil
	})
	if err != nil {
		return Order{}, err
	}
	log.Printf("[orders] %s deleted by admin %s (was %s)", o.ID, actor.UserID, o.Status)

	s.emit(ctx, events.OrderDeleted, actor, o)
	return o, nil
}

// Review lets the buyer rate a completed order once.
func (s *Service) Review(ctx context.Context, actor identity.Actor, orderID string, rating int, comment string) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, apperr.Validation("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > 1000 {
		return Review{}, apperr.Validation("comment too long (max 1000 characters)")
	}

	o, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return Review{}, err
	}
	if o.BuyerID != actor.UserID {
		return Review{}, fmt.Errorf("%w: only the buyer can review an order", apperr.ErrUnauthorized)
	}
	if o.Status != StatusCompleted {
		return Review{}, apperr.Validation("can only review completed orders")
	}

	return s.Repo.CreateReview(ctx, Review{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		BuyerID:   o.BuyerID,
		SellerID:  o.SellerID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Service) SellerReviews(ctx context.Context, sellerID string, limit, offset int) ([]Review, RatingSummary, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.SellerReviews(ctx, sellerID, limit, offset)
}

func referralPosting(o Order, referrer string, bps int64) (wallet.Posting, bool) {
	if referrer == "" || referrer == o.BuyerID || referrer == o.SellerID {
		return wallet.Posting{}, false
	}
	commission := money.Fee(o.ServiceFee, bps)
	if commission <= 0 {
		return wallet.Posting{}, false
	}
	return wallet.Credit(referrer, commission, wallet.KindReferralCommission, o.ID), true
}

func eventFor(st Status) string {
	switch st {
	case StatusOnGoing:
		return events.OrderAccepted
	case StatusDelivered:
		return events.OrderDelivered
	case StatusCompleted:
		return events.OrderCompleted
	case StatusCancelled:
		return events.OrderCancelled
	case StatusRefunded:
		return events.OrderRefunded
	}
	return events.OrderCreated
}

func (s *Service) emit(ctx context.Context, typ string, actor identity.Actor, o Order) {
	recipients := []string{o.BuyerID, o.SellerID}
	if actor.Is(o.BuyerID) {
		recipients = []string{o.SellerID}
	} else if actor.Is(o.SellerID) {
		recipients = []string{o.BuyerID}
	}
	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:       typ,
		EntityID:   o.ID,
		ActorID:    actor.UserID,
		Recipients: recipients,
		Data: map[string]any{
			"status":        string(o.Status),
			"amount":        o.Amount.String(),
			"seller_amount": o.SellerAmount.String(),
			"delivery_url":  o.DeliveryURL,
			"reason":        o.CancelReason,
		},
	})
}
