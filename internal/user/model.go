package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/sudo-init-do/linkhub/internal/apperr"
)

type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Password   string    `json:"-"` // bcrypt hash, never returned
	Role       string    `json:"role"`
	IsActive   bool      `json:"is_active"`
	ReferredBy string    `json:"referred_by,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Public is the profile shown to other users.
type Public struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	AvatarURL string    `json:"avatar_url"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Bio: u.Bio, AvatarURL: u.AvatarURL, Role: u.Role, CreatedAt: u.CreatedAt}
}

type ProfileUpdate struct {
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

// Validate trims the fields. Empty fields leave the stored value unchanged.
func (p ProfileUpdate) Validate() (ProfileUpdate, error) {
	p.Name = strings.TrimSpace(p.Name)
	p.Bio = strings.TrimSpace(p.Bio)
	p.AvatarURL = strings.TrimSpace(p.AvatarURL)
	if len(p.Name) > 100 {
		return p, apperr.Validation("name must be at most 100 characters")
	}
	if len(p.Bio) > 1000 {
		return p, apperr.Validation("bio must be at most 1000 characters")
	}
	if len(p.AvatarURL) > 500 {
		return p, apperr.Validation("avatar_url must be at most 500 characters")
	}
	return p, nil
}

// NormalizeEmail lower-cases and checks the address.
func NormalizeEmail(raw string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e {
		return "", apperr.Validation("invalid email %q", raw)
	}
	return e, nil
}

type Filter struct {
	Query  string
	Role   string
	Active *bool
	Limit  int
	Offset int
}
