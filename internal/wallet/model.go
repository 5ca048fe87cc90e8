package wallet

import (
	"fmt"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/money"
)

// Kind labels why a ledger entry exists.
type Kind string

const (
	KindAdminAdd           Kind = "admin_add"
	KindAdminSubtract      Kind = "admin_subtract"
	KindEscrowHold         Kind = "escrow_hold"
	KindPayout             Kind = "payout"
	KindRefund             Kind = "refund"
	KindReferralCommission Kind = "referral_commission"
	KindTopup              Kind = "topup"
)

type Operation string

const (
	OpAdd      Operation = "add"
	OpSubtract Operation = "subtract"
)

// Posting is a pending signed change to one user's balance.
type Posting struct {
	UserID    string
	Amount    money.Cents
	Kind      Kind
	Reference string
	Note      string
}

// Entry is a persisted posting.
type Entry struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Amount    money.Cents `json:"amount"`
	Kind      Kind        `json:"kind"`
	Reference string      `json:"reference,omitempty"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Credit builds a positive posting.
func Credit(userID string, amount money.Cents, kind Kind, ref string) Posting {
	return Posting{UserID: userID, Amount: amount, Kind: kind, Reference: ref}
}

// Debit builds a negative posting.
func Debit(userID string, amount money.Cents, kind Kind, ref string) Posting {
	return Posting{UserID: userID, Amount: -amount, Kind: kind, Reference: ref}
}

// AdjustmentPosting validates an admin add/subtract request.
func AdjustmentPosting(userID string, op Operation, amount money.Cents, note string) (Posting, error) {
	if userID == "" {
		return Posting{}, apperr.Validation("user_id is required")
	}
	if err := money.RequirePositive("amount", amount); err != nil {
		return Posting{}, err
	}
	switch op {
	case OpAdd:
		p := Credit(userID, amount, KindAdminAdd, "")
		p.Note = note
		return p, nil
	case OpSubtract:
		p := Debit(userID, amount, KindAdminSubtract, "")
		p.Note = note
		return p, nil
	default:
		return Posting{}, apperr.Validation("operation must be add or subtract")
	}
}

// Replay sums entries in order and fails at the first point the running
// balance would be negative.
func Replay(entries []Entry) (money.Cents, error) {
	var bal money.Cents
	for i, e := range entries {
		if e.Amount == 0 {
			return bal, apperr.Validation("entry %s has zero amount", e.ID)
		}
		bal += e.Amount
		if bal < 0 {
			return bal, fmt.Errorf("%w: balance %s after entry %d (%s)",
				apperr.ErrInsufficientBalance, bal, i, e.ID)
		}
	}
	return bal, nil
}
