// Package syncer notifies the secondary backend of newly established
// sessions. Everything here is best-effort: a slow or failing backend must
// never be mistaken for an authentication failure.
package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// DefaultTimeout bounds the sync call so the backend can never hold up the
// session lifecycle.
const DefaultTimeout = 5 * time.Second

// Syncer pushes session identity to the secondary backend.
type Syncer interface {
	SyncUser(ctx context.Context, sess auth.Session) error
}

// Payload is the sync-user request body.
type Payload struct {
	SupabaseUserID string            `json:"supabase_user_id"`
	Email          string            `json:"email"`
	Metadata       map[string]string `json:"metadata"`
}

// NewPayload builds the sync body for a session.
func NewPayload(sess auth.Session) Payload {
	metadata := map[string]string{}
	if sess.User.Name != "" {
		metadata["name"] = sess.User.Name
	}
	if sess.User.Role != "" {
		metadata["role"] = sess.User.Role
	}
	return Payload{
		SupabaseUserID: sess.User.ID,
		Email:          sess.User.Email,
		Metadata:       metadata,
	}
}

// HTTPSyncer posts the payload to the backend sync endpoint.
type HTTPSyncer struct {
	endpoint string
	client   *http.Client
}

// NewHTTPSyncer constructs an HTTPSyncer for the given endpoint URL. A zero
// timeout falls back to DefaultTimeout.
func NewHTTPSyncer(endpoint string, timeout time.Duration) *HTTPSyncer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSyncer{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// SyncUser posts the session identity, bearing the session token. Any
// failure is classified SyncFailed; callers log it and move on.
func (s *HTTPSyncer) SyncUser(ctx context.Context, sess auth.Session) error {
	body, err := json.Marshal(NewPayload(sess))
	if err != nil {
		return auth.WrapError(auth.CodeSyncFailed, "encode sync payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return auth.WrapError(auth.CodeSyncFailed, "build sync request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)

	res, err := s.client.Do(req)
	if err != nil {
		return auth.WrapError(auth.CodeSyncFailed, "sync backend unreachable", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return auth.NewError(auth.CodeSyncFailed, fmt.Sprintf("sync backend returned status %d", res.StatusCode))
	}
	return nil
}

var _ Syncer = (*HTTPSyncer)(nil)
