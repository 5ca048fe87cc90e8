package messaging

import (
	"strings"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

type ThreadKind string

const (
	ThreadOrder  ThreadKind = "order"
	ThreadTicket ThreadKind = "ticket"
)

const MaxContentLength = 5000

// Message is append-only; only ReadAt changes after insert.
type Message struct {
	ID          string     `json:"id"`
	ThreadKind  ThreadKind `json:"thread_kind"`
	ThreadID    string     `json:"thread_id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id,omitempty"`
	Content     string     `json:"content"`
	CreatedAt   time.Time  `json:"created_at"`
	ReadAt      *time.Time `json:"read_at"`
}

// CleanContent trims content and enforces the length bounds.
func CleanContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperr.Validation("content is required")
	}
	if len(content) > MaxContentLength {
		return "", apperr.Validation("content must be at most %d characters", MaxContentLength)
	}
	return content, nil
}
