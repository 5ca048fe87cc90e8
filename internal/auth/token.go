package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sudo-init-do/linkhub/internal/identity"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const purposeReset = "password_reset"

// Tokens issues and verifies HS256 tokens for sessions and password resets.
type Tokens struct {
	Secret   []byte
	TTL      time.Duration
	ResetTTL time.Duration
}

func (t *Tokens) sign(claims jwt.MapClaims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(ttl).Unix()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.Secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issue returns a session token carrying user_id and role.
func (t *Tokens) Issue(userID, role string) (string, error) {
	ttl := t.TTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return t.sign(jwt.MapClaims{"user_id": userID, "role": role}, ttl)
}

// Parse verifies a session token. Reset tokens are rejected.
func (t *Tokens) Parse(raw string) (identity.Actor, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return identity.Actor{}, err
	}
	if p, _ := claims["purpose"].(string); p != "" {
		return identity.Actor{}, ErrInvalidToken
	}
	uid, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	if uid == "" {
		return identity.Actor{}, ErrInvalidToken
	}
	return identity.Actor{UserID: uid, Role: role}, nil
}

func (t *Tokens) IssueReset(userID string) (string, error) {
	ttl := t.ResetTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return t.sign(jwt.MapClaims{"user_id": userID, "purpose": purposeReset}, ttl)
}

// ParseReset returns the user a reset token was issued for.
func (t *Tokens) ParseReset(raw string) (string, error) {
	claims, err := t.parse(raw)
	if err != nil {
		return "", err
	}
	if p, _ := claims["purpose"].(string); p != purposeReset {
		return "", ErrInvalidToken
	}
	uid, _ := claims["user_id"].(string)
	if uid == "" {
		return "", ErrInvalidToken
	}
	return uid, nil
}
