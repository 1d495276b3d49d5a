// Package session persists the client-side auth session across restarts.
// The store holds a derived copy of the controller's in-memory state and is
// only consulted during initialization; it is never a source of truth once
// fresher in-memory state exists.
package session

import (
	"context"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// Store is the persistence boundary for the session snapshot.
//
// Load returns (nil, nil) when nothing usable is stored. A corrupt or
// expired snapshot is cleared as a side effect before reporting absence,
// so a bad record never survives a restart.
type Store interface {
	// Save writes a complete snapshot atomically; no partial session is
	// ever observable by a later Load.
	Save(ctx context.Context, sess auth.Session) error
	Load(ctx context.Context) (*auth.Session, error)
	// AccessToken returns the token persisted alongside the session, for
	// consumers that expect it separately. Empty when nothing is stored.
	AccessToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// envelope is the serialized snapshot. Generation uniquely identifies the
// Save that produced the record so racing writers can be told apart.
type envelope struct {
	Generation  string       `json:"generation"`
	Session     auth.Session `json:"session"`
	AccessToken string       `json:"access_token"`
}
