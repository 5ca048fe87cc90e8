package order

import (
	"errors"
	"testing"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/money"
	"github.com/sudo-init-do/linkhub/internal/wallet"
)

var (
	buyer  = identity.Actor{UserID: "buyer-1", Role: identity.RoleFan}
	seller = identity.Actor{UserID: "seller-1", Role: identity.RoleSeller}
	admin  = identity.Actor{UserID: "admin-1", Role: identity.RoleAdmin}
	other  = identity.Actor{UserID: "other-1", Role: identity.RoleSeller}
)

func sample(status Status) Order {
	amount := money.Cents(10000)
	fee := money.Fee(amount, 500)
	return Order{
		ID:           "order-1",
		BuyerID:      buyer.UserID,
		SellerID:     seller.UserID,
		SiteID:       "site-1",
		Amount:       amount,
		ServiceFee:   fee,
		SellerAmount: amount - fee,
		Status:       status,
		Version:      1,
	}
}

func TestApplyTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		cmd     Command
		want    Status
		wantErr error
		credit  map[string]money.Cents
	}{
		{"seller accepts", StatusPending, Command{Action: ActionAccept, Actor: seller}, StatusOnGoing, nil, nil},
		{"buyer cannot accept", StatusPending, Command{Action: ActionAccept, Actor: buyer}, "", apperr.ErrUnauthorized, nil},
		{"accept twice", StatusOnGoing, Command{Action: ActionAccept, Actor: seller}, "", apperr.ErrInvalidTransition, nil},
		{"seller delivers", StatusOnGoing, Command{Action: ActionDeliver, Actor: seller, DeliveryURL: "https://example.com/post"}, StatusDelivered, nil, nil},
		{"deliver needs url", StatusOnGoing, Command{Action: ActionDeliver, Actor: seller}, "", apperr.ErrValidation, nil},
		{"deliver rejects markup", StatusOnGoing, Command{Action: ActionDeliver, Actor: seller, DeliveryURL: "https://x.com/<b>"}, "", apperr.ErrValidation, nil},
		{"deliver from pending", StatusPending, Command{Action: ActionDeliver, Actor: seller, DeliveryURL: "https://example.com/post"}, "", apperr.ErrInvalidTransition, nil},
		{"buyer confirms", StatusDelivered, Command{Action: ActionConfirm, Actor: buyer}, StatusCompleted, nil, map[string]money.Cents{seller.UserID: 9500}},
		{"seller cannot confirm", StatusDelivered, Command{Action: ActionConfirm, Actor: seller}, "", apperr.ErrUnauthorized, nil},
		{"confirm before delivery", StatusOnGoing, Command{Action: ActionConfirm, Actor: buyer}, "", apperr.ErrInvalidTransition, nil},
		{"confirm while pending", StatusPending, Command{Action: ActionConfirm, Actor: buyer}, "", apperr.ErrInvalidTransition, nil},
		{"seller declines", StatusPending, Command{Action: ActionDecline, Actor: seller, Reason: "off topic"}, StatusCancelled, nil, map[string]money.Cents{buyer.UserID: 10000}},
		{"decline after accept", StatusOnGoing, Command{Action: ActionDecline, Actor: seller}, "", apperr.ErrInvalidTransition, nil},
		{"seller cancels pending", StatusPending, Command{Action: ActionCancel, Actor: seller}, StatusCancelled, nil, map[string]money.Cents{buyer.UserID: 10000}},
		{"seller cancels ongoing", StatusOnGoing, Command{Action: ActionCancel, Actor: seller}, StatusCancelled, nil, map[string]money.Cents{buyer.UserID: 10000}},
		{"admin cancels delivered", StatusDelivered, Command{Action: ActionCancel, Actor: admin}, StatusCancelled, nil, map[string]money.Cents{buyer.UserID: 10000}},
		{"buyer cannot cancel", StatusPending, Command{Action: ActionCancel, Actor: buyer}, "", apperr.ErrUnauthorized, nil},
		{"stranger cannot cancel", StatusPending, Command{Action: ActionCancel, Actor: other}, "", apperr.ErrUnauthorized, nil},
		{"admin refunds", StatusDelivered, Command{Action: ActionRefund, Actor: admin}, StatusRefunded, nil, map[string]money.Cents{buyer.UserID: 10000}},
		{"seller cannot refund", StatusOnGoing, Command{Action: ActionRefund, Actor: seller}, "", apperr.ErrUnauthorized, nil},
		{"cancel completed", StatusCompleted, Command{Action: ActionCancel, Actor: seller}, "", apperr.ErrInvalidTransition, nil},
		{"refund cancelled", StatusCancelled, Command{Action: ActionRefund, Actor: admin}, "", apperr.ErrInvalidTransition, nil},
		{"accept refunded", StatusRefunded, Command{Action: ActionAccept, Actor: seller}, "", apperr.ErrInvalidTransition, nil},
		{"unknown action", StatusPending, Command{Action: "teleport", Actor: admin}, "", apperr.ErrValidation, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := sample(tt.from)
			got, postings, err := Apply(before, tt.cmd)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				if got.Status != tt.from || len(postings) != 0 {
					t.Errorf("failed action must not change state: %s, %v", got.Status, postings)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got.Status)
			}
			if got.Version != before.Version+1 {
				t.Errorf("expected version bump, got %d", got.Version)
			}
			if got.Status.Terminal() != got.ChatClosed {
				t.Errorf("chat_closed=%v for status %s", got.ChatClosed, got.Status)
			}

			credited := map[string]money.Cents{}
			for _, p := range postings {
				credited[p.UserID] += p.Amount
			}
			if len(credited) != len(tt.credit) {
				t.Fatalf("expected credits %v, got %v", tt.credit, credited)
			}
			for uid, amt := range tt.credit {
				if credited[uid] != amt {
					t.Errorf("expected %s credited %s, got %s", uid, amt, credited[uid])
				}
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	o := sample(StatusOnGoing)
	_, _, err := Apply(o, Command{Action: ActionDeliver, Actor: seller, DeliveryURL: "https://example.com/post"})
	if err != nil {
		t.Fatal(err)
	}
	if o.Status != StatusOnGoing || o.DeliveryURL != "" {
		t.Errorf("input order was modified: %+v", o)
	}
}

func TestCompletedOrderIsImmutable(t *testing.T) {
	o := sample(StatusCompleted)
	for _, a := range []Action{ActionAccept, ActionDeliver, ActionConfirm, ActionDecline, ActionCancel, ActionRefund} {
		for _, actor := range []identity.Actor{buyer, seller, admin} {
			if _, _, err := Apply(o, Command{Action: a, Actor: actor, DeliveryURL: "https://example.com/x"}); !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Errorf("%s by %s: expected invalid transition, got %v", a, actor.Role, err)
			}
		}
	}
}

func TestSellerAmountPlusFeeEqualsAmount(t *testing.T) {
	for _, amount := range []money.Cents{1, 99, 10000, 12345, 999999} {
		for _, bps := range []int64{0, 250, 500, 1000, 10000} {
			fee := money.Fee(amount, bps)
			o := Order{Amount: amount, ServiceFee: fee, SellerAmount: amount - fee}
			if o.SellerAmount+o.ServiceFee != o.Amount {
				t.Errorf("amount %s bps %d: %s + %s != %s", amount, bps, o.SellerAmount, o.ServiceFee, o.Amount)
			}
			if o.SellerAmount < 0 {
				t.Errorf("negative seller amount for %s at %d bps", amount, bps)
			}
		}
	}
}

func TestDeletionRefund(t *testing.T) {
	if got := DeletionRefund(sample(StatusOnGoing)); len(got) != 1 || got[0].Amount != 10000 || got[0].Kind != wallet.KindRefund {
		t.Errorf("expected full refund, got %v", got)
	}
	if got := DeletionRefund(sample(StatusCompleted)); len(got) != 0 {
		t.Errorf("terminal orders are not refunded on delete, got %v", got)
	}
}
