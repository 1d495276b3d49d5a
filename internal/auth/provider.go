package auth

import "context"

// Provider turns credentials into sessions. The controller receives one
// already-constructed implementation and never inspects which variant it is.
type Provider interface {
	// Authenticate verifies credentials and issues a session.
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
	// Restore attempts to recover a live session from an access token
	// persisted by an earlier run. Implementations that keep no server-side
	// state validate only what the token itself encodes.
	Restore(ctx context.Context, token string) (Session, error)
	// Revoke invalidates the session upstream. Best-effort: callers log
	// failures and move on.
	Revoke(ctx context.Context, sess Session) error
}
