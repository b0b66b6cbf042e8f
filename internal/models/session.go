package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the user profile returned by the third-party identity provider.
type Identity struct {
	Provider string `validate:"required"`
	Subject  string `validate:"required"`
	Login    string
	Name     string
	Email    string `validate:"omitempty,email"`
}

// DisplayName prefers the profile name and falls back to the login handle.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.Login
}

// Session is an authenticated user context persisted in auth_sessions.
type Session struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Provider  string     `db:"provider" json:"provider"`
	Email     string     `db:"email" json:"email"`
	Name      string     `db:"name" json:"name"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`

	// AccessToken is only populated right after issuance.
	AccessToken string `db:"-" json:"access_token,omitempty"`
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// SessionClaims is the signed payload of a session token; RegisteredClaims.ID carries the session id.
type SessionClaims struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}
