package session

import (
	"time"

	"github.com/google/uuid"

	"filetree-service/internal/model/user"
)

type Kind string

const (
	KindUser Kind = "user"
	KindDemo Kind = "demo"
)

// Session is what sign-up, sign-in, refresh and demo creation hand back.
// User is nil for demo sessions.
type Session struct {
	Kind        Kind       `json:"kind"`
	PrincipalID uuid.UUID  `json:"principal_id"`
	User        *user.User `json:"user,omitempty"`
	Token       string     `json:"token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

type DemoSession struct {
	ID           uuid.UUID `json:"id"`
	SessionToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiredAt reports whether the session is no longer usable at now.
// A session is dead from the instant of expires_at onwards.
func (s *DemoSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Identity is the verified content of a bearer token.
type Identity struct {
	SubjectID uuid.UUID
	Email     string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
