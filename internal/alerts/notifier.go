package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/sudo-init-do/linkhub/internal/events"
)

type Inbox interface {
	Create(ctx context.Context, n Notification) error
	Contact(ctx context.Context, userID string) (Contact, error)
	Admins(ctx context.Context) ([]Contact, error)
}

// Notifier turns lifecycle events into inbox items and email tasks.
// It implements events.Publisher.
type Notifier struct {
	Inbox  Inbox
	Tasks  TaskQueue
	AppURL string
}

type notice struct {
	title    string
	body     string
	task     string
	path     string
	toAdmins bool
}

func str(e events.Event, key string) string {
	s, _ := e.Data[key].(string)
	return s
}

func describe(e events.Event) (notice, bool) {
	orderPath := "/orders/" + e.EntityID
	exchangePath := "/exchanges/" + e.EntityID
	ticketPath := "/support/tickets/" + e.EntityID

	switch e.Type {
	case events.OrderCreated:
		return notice{"New order received", fmt.Sprintf("A buyer placed an order worth %s.", str(e, "amount")), TaskOrderCreated, orderPath, false}, true
	case events.OrderAccepted:
		return notice{"Your order was accepted", "The seller started working on your order.", "", orderPath, false}, true
	case events.OrderDelivered:
		return notice{"Your order has been delivered", "Review the post at " + str(e, "delivery_url") + " and confirm to release payment.", TaskOrderDelivered, orderPath, false}, true
	case events.OrderCompleted:
		return notice{"Order completed and paid", fmt.Sprintf("%s has been released to your wallet.", str(e, "seller_amount")), TaskOrderCompleted, orderPath, false}, true
	case events.OrderCancelled:
		return notice{"Order cancelled", cancelBody(e), TaskOrderCancelled, orderPath, false}, true
	case events.OrderRefunded:
		return notice{"Order refunded", cancelBody(e), TaskOrderCancelled, orderPath, false}, true
	case events.OrderDeleted:
		return notice{"Order removed", "An admin removed this order.", "", orderPath, false}, true

	case events.ExchangeRequested:
		return notice{"New link exchange request", "Someone wants to exchange links with your site.", "", exchangePath, false}, true
	case events.ExchangeAccepted:
		return notice{"Exchange accepted", "Your link exchange is now active.", "", exchangePath, false}, true
	case events.ExchangeDeclined:
		return notice{"Exchange declined", "Your link exchange request was declined.", "", exchangePath, false}, true
	case events.ExchangeDelivered:
		return notice{"Exchange link delivered", "Check " + str(e, "delivery_url") + " and confirm the exchange.", "", exchangePath, false}, true
	case events.ExchangeCompleted:
		return notice{"Exchange completed", "Your link exchange is complete.", "", exchangePath, false}, true
	case events.ExchangeCancelled:
		return notice{"Exchange cancelled", "A link exchange was cancelled.", "", exchangePath, false}, true

	case events.TicketCreated:
		return notice{"New support ticket " + str(e, "ticket_number"), str(e, "subject"), TaskAdminAlert, ticketPath, true}, true
	case events.TicketReplied:
		return notice{"New reply on ticket " + str(e, "ticket_number"), str(e, "content"), TaskTicketReplied, ticketPath, false}, true
	case events.TicketStatusChanged:
		return notice{"Ticket " + str(e, "ticket_number") + " is now " + str(e, "to"), "", "", ticketPath, false}, true

	case events.MessageNew:
		if str(e, "thread_kind") == "ticket" {
			return notice{"User replied on ticket " + str(e, "ticket_number"), str(e, "content"), "", "/support/tickets/" + str(e, "thread_id"), true}, true
		}
		return notice{"New message on your order", str(e, "content"), TaskMessageNew, "/orders/" + str(e, "thread_id"), false}, true

	case events.WalletAdjusted:
		return notice{"Your balance was adjusted", fmt.Sprintf("%s %s, new balance %s.", str(e, "operation"), str(e, "amount"), str(e, "balance")), "", "/wallet", false}, true
	case events.UserRegistered:
		return notice{"Welcome to LinkHub", "Thanks for joining. List a site or browse the marketplace to get started.", TaskWelcomeEmail, "/", false}, true
	}
	return notice{}, false
}

func cancelBody(e events.Event) string {
	body := "The order was closed and " + str(e, "amount") + " returned to the buyer."
	if r := str(e, "reason"); r != "" {
		body += " Reason: " + r
	}
	return body
}

func (n *Notifier) Publish(ctx context.Context, e events.Event) error {
	nt, ok := describe(e)
	if !ok {
		return nil
	}

	recipients := e.Recipients
	if nt.toAdmins && len(recipients) == 0 {
		admins, err := n.Inbox.Admins(ctx)
		if err != nil {
			return err
		}
		for _, a := range admins {
			recipients = append(recipients, a.UserID)
		}
	}

	meta, _ := json.Marshal(e.Data)
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, uid := range recipients {
		if uid == "" || uid == e.ActorID {
			continue
		}
		err := n.Inbox.Create(ctx, Notification{
			UserID:    uid,
			Type:      e.Type,
			Title:     nt.title,
			Body:      nt.body,
			Reference: e.EntityID,
			Metadata:  meta,
		})
		if err != nil {
			log.Printf("[notify][ERROR] notification %s for %s: %v", e.Type, uid, err)
			keep(err)
		}
		if nt.task != "" && n.Tasks != nil {
			keep(n.email(ctx, uid, nt, e))
		}
	}
	return first
}

func (n *Notifier) email(ctx context.Context, userID string, nt notice, e events.Event) error {
	c, err := n.Inbox.Contact(ctx, userID)
	if err != nil {
		return err
	}
	if c.Email == "" {
		return nil
	}
	body := nt.body
	if body != "" {
		body += "\n\n"
	}
	body += "Open LinkHub: " + n.AppURL + nt.path
	if c.Name != "" {
		body = "Hi " + c.Name + ",\n\n" + body
	}
	return EnqueueEmail(n.Tasks, nt.task, EmailPayload{
		UserID:    userID,
		Event:     e.Type,
		Reference: e.EntityID,
		Envelope:  EmailEnvelope{To: c.Email, Subject: nt.title, Body: body},
	})
}
