package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail   = "email:welcome"
	TaskAdminAlert     = "email:admin_alert"
	TaskPasswordReset  = "email:password_reset"
	TaskOrderCreated   = "email:order_created"
	TaskOrderDelivered = "email:order_delivered"
	TaskOrderCompleted = "email:order_completed"
	TaskOrderCancelled = "email:order_cancelled"
	TaskTicketReplied  = "email:ticket_replied"
	TaskMessageNew     = "email:message_new"
)

// EmailTasks lists every task type the worker delivers.
var EmailTasks = []string{
	TaskWelcomeEmail,
	TaskAdminAlert,
	TaskPasswordReset,
	TaskOrderCreated,
	TaskOrderDelivered,
	TaskOrderCompleted,
	TaskOrderCancelled,
	TaskTicketReplied,
	TaskMessageNew,
}

const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailPayload is the body of every email task.
type EmailPayload struct {
	UserID    string        `json:"user_id,omitempty"`
	Event     string        `json:"event"`
	Reference string        `json:"reference,omitempty"`
	Envelope  EmailEnvelope `json:"envelope"`
	SentAt    time.Time     `json:"sent_at"`
}

// Notification is an in-app inbox item.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference string     `json:"reference,omitempty"`
	Metadata  []byte     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

// Contact is what the notifier needs to address a user.
type Contact struct {
	UserID string
	Name   string
	Email  string
}
