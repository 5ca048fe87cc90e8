package support

import (
	"fmt"
	"strings"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

const (
	maxSubject     = 200
	maxDescription = 5000
	maxCategory    = 50

	DefaultCategory = "general"
)

type Ticket struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Number      string    `json:"ticket_number"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FormatNumber renders a sequence value as T-000123.
func FormatNumber(seq int64) string {
	return fmt.Sprintf("T-%06d", seq)
}

type Filter struct {
	UserID   string
	Status   Status
	Priority Priority
	Limit    int
	Offset   int
}

type CreateInput struct {
	Subject     string   `json:"subject"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    string   `json:"category"`
}

// normalize trims the input and fills defaults.
func (in CreateInput) normalize() (CreateInput, error) {
	in.Subject = strings.TrimSpace(in.Subject)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))

	if in.Subject == "" || len(in.Subject) > maxSubject {
		return in, apperr.Validation("subject must be 1-%d characters", maxSubject)
	}
	if in.Description == "" || len(in.Description) > maxDescription {
		return in, apperr.Validation("description must be 1-%d characters", maxDescription)
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return in, apperr.Validation("unknown priority %q", in.Priority)
	}
	if in.Category == "" {
		in.Category = DefaultCategory
	}
	if len(in.Category) > maxCategory {
		return in, apperr.Validation("category must be at most %d characters", maxCategory)
	}
	return in, nil
}
