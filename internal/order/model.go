package order

import (
	"time"

	"github.com/sudo-init-do/linkhub/internal/money"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusOnGoing   Status = "on_going"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Terminal statuses accept no further actions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOnGoing, StatusDelivered, StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// ParseStatus accepts "accepted" as an alias of on_going.
func ParseStatus(s string) (Status, bool) {
	if s == "accepted" {
		return StatusOnGoing, true
	}
	st := Status(s)
	return st, st.Valid()
}

type Action string

const (
	ActionAccept  Action = "accept"
	ActionDeliver Action = "deliver"
	ActionConfirm Action = "confirm_completed"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
	ActionRefund  Action = "refund"
)

// Order is a paid guest post on one listing.
type Order struct {
	ID            string      `json:"id"`
	BuyerID       string      `json:"buyer_id"`
	SellerID      string      `json:"seller_id"`
	SiteID        string      `json:"site_id"`
	Amount        money.Cents `json:"amount"`
	ServiceFee    money.Cents `json:"service_fee"`
	SellerAmount  money.Cents `json:"seller_amount"`
	Status        Status      `json:"status"`
	Requirements  string      `json:"requirements,omitempty"`
	DeliveryURL   string      `json:"delivery_url,omitempty"`
	GoogleDocLink string      `json:"google_doc_link,omitempty"`
	TargetLink    string      `json:"target_link,omitempty"`
	CancelReason  string      `json:"cancel_reason,omitempty"`
	ChatClosed    bool        `json:"chat_closed"`
	Version       int         `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsParty reports whether userID is the buyer or the seller.
func (o Order) IsParty(userID string) bool {
	return userID != "" && (userID == o.BuyerID || userID == o.SellerID)
}

// Counterparty returns the other participant.
func (o Order) Counterparty(userID string) string {
	if userID == o.BuyerID {
		return o.SellerID
	}
	return o.BuyerID
}

// Filter narrows order listings. Empty fields match everything.
type Filter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

type Review struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	BuyerID   string    `json:"buyer_id"`
	SellerID  string    `json:"seller_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates a seller's reviews.
type RatingSummary struct {
	SellerID      string      `json:"seller_id"`
	TotalReviews  int         `json:"total_reviews"`
	AverageRating float64     `json:"average_rating"`
	Breakdown     map[int]int `json:"rating_breakdown"`
}
