package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/linkhub/internal/alerts"
	"github.com/sudo-init-do/linkhub/internal/apperr"
	"github.com/sudo-init-do/linkhub/internal/events"
	"github.com/sudo-init-do/linkhub/internal/identity"
	"github.com/sudo-init-do/linkhub/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSuspended          = fmt.Errorf("%w: account suspended", apperr.ErrUnauthorized)
)

const minPassword = 6

type UserRepository interface {
	Create(ctx context.Context, u user.User) (user.User, error)
	ByEmail(ctx context.Context, email string) (user.User, error)
	ByID(ctx context.Context, id string) (user.User, error)
	SetPassword(ctx context.Context, id, hash string) error
}

type Service struct {
	Users  UserRepository
	Tokens *Tokens
	Events events.Publisher
	// Tasks receives password reset emails. Nil disables them.
	Tasks  alerts.TaskQueue
	AppURL string
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	// Role may be "fan" (default) or "seller".
	Role         string `json:"role"`
	ReferralCode string `json:"referral_code"`
}

type Session struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

func (s *Service) hash(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len(name) > 100 {
		return Session{}, apperr.Validation("name must be 1-100 characters")
	}
	email, err := user.NormalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if len(in.Password) < minPassword {
		return Session{}, apperr.Validation("password must be at least %d characters", minPassword)
	}
	role := in.Role
	switch role {
	case "":
		role = identity.RoleFan
	case identity.RoleFan, identity.RoleSeller:
	default:
		return Session{}, apperr.Validation("role must be fan or seller")
	}

	hashed, err := s.hash(in.Password)
	if err != nil {
		return Session{}, err
	}
	u, err := s.Users.Create(ctx, user.User{
		ID:         uuid.NewString(),
		Name:       name,
		Email:      email,
		Password:   hashed,
		Role:       role,
		ReferredBy: strings.TrimSpace(in.ReferralCode),
	})
	if err != nil {
		return Session{}, err
	}
	token, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	log.Printf("[auth] new %s %s", u.Role, u.ID)

	events.Emit(context.WithoutCancel(ctx), s.Events, events.Event{
		Type:       events.UserRegistered,
		EntityID:   u.ID,
		Recipients: []string{u.ID},
		Data:       map[string]any{"role": u.Role, "referred_by": u.ReferredBy},
	})
	return Session{Token: token, User: u}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.ByEmail(ctx, email)
	if errors.Is(err, apperr.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return Session{}, ErrSuspended
	}
	token, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: u}, nil
}

func (s *Service) Me(ctx context.Context, actor identity.Actor) (user.User, error) {
	return s.Users.ByID(ctx, actor.UserID)
}

// RequestReset emails a reset link if the address is registered. It never
// reports whether the address exists.
func (s *Service) RequestReset(ctx context.Context, email string) {
	u, err := s.Users.ByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || !u.IsActive || s.Tasks == nil {
		return
	}
	token, err := s.Tokens.IssueReset(u.ID)
	if err != nil {
		log.Printf("[auth][ERROR] reset token for %s: %v", u.ID, err)
		return
	}
	link := fmt.Sprintf("%s/reset-password?token=%s", s.AppURL, url.QueryEscape(token))
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your LinkHub password.\n\nOpen the link below to choose a new one:\n%s\n\nIf you did not request this, no action is required.", u.Name, link)
	err = alerts.EnqueueEmail(s.Tasks, alerts.TaskPasswordReset, alerts.EmailPayload{
		UserID:   u.ID,
		Event:    "password_reset",
		Envelope: alerts.EmailEnvelope{To: u.Email, Subject: "Password reset instructions", Body: body},
	})
	if err != nil {
		log.Printf("[auth][ERROR] enqueue reset for %s: %v", u.ID, err)
	}
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	uid, err := s.Tokens.ParseReset(token)
	if err != nil {
		return err
	}
	if len(newPassword) < minPassword {
		return apperr.Validation("password must be at least %d characters", minPassword)
	}
	hashed, err := s.hash(newPassword)
	if err != nil {
		return err
	}
	return s.Users.SetPassword(ctx, uid, hashed)
}
