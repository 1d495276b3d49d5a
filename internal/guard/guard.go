// Package guard maps authentication state to navigation decisions.
package guard

import "github.com/logistica-inteligente/logistica/internal/auth"

const (
	// LoginPath is where unauthenticated navigation is redirected.
	LoginPath = "/login"
	// DefaultLandingPath is used after login when no path was remembered.
	DefaultLandingPath = "/dashboard"
)

// Decision is the outcome of evaluating a navigation request.
type Decision struct {
	Allow bool
	// RedirectTo is set when Allow is false.
	RedirectTo string
	// RememberPath carries the originally requested path so the caller can
	// resume navigation after a successful login.
	RememberPath string
}

// Evaluate permits the requested path only for an Authenticated snapshot.
// Pure: it reads the snapshot and touches nothing.
func Evaluate(snap auth.Snapshot, requestedPath string) Decision {
	if snap.State == auth.StateAuthenticated {
		return Decision{Allow: true}
	}
	return Decision{
		Allow:        false,
		RedirectTo:   LoginPath,
		RememberPath: requestedPath,
	}
}

// Resume returns the path navigation should continue to after login.
func Resume(rememberPath string) string {
	if rememberPath == "" || rememberPath == LoginPath {
		return DefaultLandingPath
	}
	return rememberPath
}
