package domain

import "time"

// AuthEventType names an entry in the authentication audit trail.
type AuthEventType string

const (
	EventSignup       AuthEventType = "signup"
	EventLoginSuccess AuthEventType = "login_success"
	EventLoginFailure AuthEventType = "login_failure"
	EventLogout       AuthEventType = "logout"
)

// AuthEvent records one authentication outcome. It never carries a password
// or password hash.
type AuthEvent struct {
	Type      AuthEventType
	Username  string
	UserID    string // empty when the user is unknown
	SessionID string // set for login_success and logout
	Timestamp time.Time
}
