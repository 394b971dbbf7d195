package domain

import "time"

// Session binds an opaque handle to the user that logged in with it.
type Session struct {
	ID        string    `json:"id"`
	User      User      `json:"user"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Bound reports whether the session exists and carries a user identity.
func (s *Session) Bound() bool {
	return s != nil && s.ID != "" && s.User.ID != ""
}

// Expired reports whether the session is past its expiry at now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
