package site

import (
	"strings"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/money"
)

type Offering string

const (
	OfferingGuestPost Offering = "guest_post"
	OfferingExchange  Offering = "exchange"
	OfferingBoth      Offering = "both"
)

type Status string

const (
	StatusActive        Status = "active"
	StatusSuspended     Status = "suspended"
	StatusPendingReview Status = "pending_review"
)

// Site is a website listed in the directory.
type Site struct {
	ID              string      `json:"id"`
	OwnerID         string      `json:"owner_id"`
	Domain          string      `json:"domain"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	Category        string      `json:"category,omitempty"`
	Offering        Offering    `json:"offering"`
	Price           money.Cents `json:"price"`
	DomainAuthority int         `json:"domain_authority"`
	MonthlyTraffic  int64       `json:"monthly_traffic"`
	Language        string      `json:"language"`
	TurnaroundDays  int         `json:"turnaround_days"`
	Status          Status      `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}

// AcceptsOrders reports whether a guest post can be bought on s.
func (s Site) AcceptsOrders() bool {
	return s.Status == StatusActive && (s.Offering == OfferingGuestPost || s.Offering == OfferingBoth)
}

// AcceptsExchanges reports whether s can take part in a link exchange.
func (s Site) AcceptsExchanges() bool {
	return s.Status == StatusActive && (s.Offering == OfferingExchange || s.Offering == OfferingBoth)
}

// Input is the writable part of a Site.
type Input struct {
	Domain          *string      `json:"domain"`
	Title           *string      `json:"title"`
	Description     *string      `json:"description"`
	Category        *string      `json:"category"`
	Offering        *Offering    `json:"offering"`
	Price           *money.Cents `json:"price"`
	DomainAuthority *int         `json:"domain_authority"`
	MonthlyTraffic  *int64       `json:"monthly_traffic"`
	Language        *string      `json:"language"`
	TurnaroundDays  *int         `json:"turnaround_days"`
}

// Merge applies the non-nil fields of in onto s and validates the result.
func (in Input) Merge(s Site) (Site, error) {
	if in.Domain != nil {
		s.Domain = normalizeDomain(*in.Domain)
	}
	if in.Title != nil {
		s.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		s.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		s.Category = strings.ToLower(strings.TrimSpace(*in.Category))
	}
	if in.Offering != nil {
		s.Offering = *in.Offering
	}
	if in.Price != nil {
		s.Price = *in.Price
	}
	if in.DomainAuthority != nil {
		s.DomainAuthority = *in.DomainAuthority
	}
	if in.MonthlyTraffic != nil {
		s.MonthlyTraffic = *in.MonthlyTraffic
	}
	if in.Language != nil {
		s.Language = strings.ToLower(strings.TrimSpace(*in.Language))
	}
	if in.TurnaroundDays != nil {
		s.TurnaroundDays = *in.TurnaroundDays
	}
	return s, s.validate()
}

func (s Site) validate() error {
	switch {
	case s.Domain == "" || strings.ContainsAny(s.Domain, " /<>\"'"):
		return apperr.Validation("a bare domain such as example.com is required")
	case s.Title == "":
		return apperr.Validation("title is required")
	case len(s.Title) > 200:
		return apperr.Validation("title must be at most 200 characters")
	case s.Offering != OfferingGuestPost && s.Offering != OfferingExchange && s.Offering != OfferingBoth:
		return apperr.Validation("offering must be guest_post, exchange or both")
	case s.Price < 0:
		return apperr.Validation("price cannot be negative")
	case s.Offering != OfferingExchange && s.Price == 0:
		return apperr.Validation("guest post listings need a price")
	case s.DomainAuthority < 0 || s.DomainAuthority > 100:
		return apperr.Validation("domain_authority must be between 0 and 100")
	case s.MonthlyTraffic < 0:
		return apperr.Validation("monthly_traffic cannot be negative")
	case s.TurnaroundDays < 1 || s.TurnaroundDays > 90:
		return apperr.Validation("turnaround_days must be between 1 and 90")
	}
	return nil
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}
