package auth

import "time"

// Credentials carries a login attempt. Never persisted.
type Credentials struct {
	Email    string
	Password string
}

// User represents the identity embedded in a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Session is an authenticated identity with a bounded validity window.
type Session struct {
	User        User      `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessToken string    `json:"access_token"`
}

// Valid reports whether the session has not expired at the given instant.
func (s Session) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// State enumerates the authentication lifecycle.
type State int

const (
	StateUnauthenticated State = iota
	StateInitializing
	StateAuthenticating
	StateAuthenticated
	StateFailed
)

// String returns a log-friendly name for the state.
func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateInitializing:
		return "initializing"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only view of the controller state at one instant.
// A Failed snapshot retains the previous session, if any, so a rejected
// re-login does not drop an already established identity.
type Snapshot struct {
	State   State
	Session *Session
	Err     error
}

// User returns the session identity, or nil when no session is held.
func (s Snapshot) User() *User {
	if s.Session == nil {
		return nil
	}
	u := s.Session.User
	return &u
}

// Loading reports whether an initialization or login is in flight.
func (s Snapshot) Loading() bool {
	return s.State == StateInitializing || s.State == StateAuthenticating
}
