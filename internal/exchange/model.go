package exchange

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusDeclined  Status = "declined"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusDeclined
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDelivered, StatusCompleted, StatusCancelled, StatusDeclined:
		return true
	}
	return false
}

type Action string

const (
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
	ActionDeliver Action = "deliver"
	ActionConfirm Action = "confirm_completed"
)

// Exchange is an unpaid reciprocal link placement between two site owners.
type Exchange struct {
	ID              string    `json:"id"`
	RequesterID     string    `json:"requester_id"`
	RequestedUserID string    `json:"requested_user_id"`
	RequesterSiteID string    `json:"requester_site_id"`
	RequestedSiteID string    `json:"requested_site_id"`
	Status          Status    `json:"status"`
	Message         string    `json:"message,omitempty"`
	DeliveryURL     string    `json:"delivery_url,omitempty"`
	DeliveredBy     string    `json:"delivered_by,omitempty"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (e Exchange) IsParty(userID string) bool {
	return userID != "" && (userID == e.RequesterID || userID == e.RequestedUserID)
}

func (e Exchange) Counterparty(userID string) string {
	if userID == e.RequesterID {
		return e.RequestedUserID
	}
	return e.RequesterID
}

type Filter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}
