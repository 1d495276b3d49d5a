// Package jobs carries the queue-backed variant of the backend sync
// adapter: sessions are synchronized through Redis so a slow secondary
// system never runs inside the login path at all.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/logistica-inteligente/logistica/internal/auth"
	"github.com/logistica-inteligente/logistica/internal/syncer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthSyncUser is the task type for backend user synchronization.
	TaskAuthSyncUser = "auth:sync_user"
)

// SyncUserPayload describes the information required to sync a session.
type SyncUserPayload struct {
	SupabaseUserID string            `json:"supabase_user_id"`
	Email          string            `json:"email"`
	Metadata       map[string]string `json:"metadata"`
	AccessToken    string            `json:"access_token"`
}

// NewSyncUserTask constructs an Asynq task for a freshly issued session.
func NewSyncUserTask(sess auth.Session) (*asynq.Task, error) {
	payload := syncer.NewPayload(sess)
	data, err := json.Marshal(SyncUserPayload{
		SupabaseUserID: payload.SupabaseUserID,
		Email:          payload.Email,
		Metadata:       payload.Metadata,
		AccessToken:    sess.AccessToken,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthSyncUser, data), nil
}

// NewSyncUserHandler builds the worker handler that delivers queued sync
// payloads to the backend. Delivery failures are logged and returned so
// Asynq can retry within its bound; they never reach the login caller.
func NewSyncUserHandler(s syncer.Syncer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SyncUserPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		sess := auth.Session{
			User: auth.User{
				ID:    payload.SupabaseUserID,
				Email: payload.Email,
				Name:  payload.Metadata["name"],
				Role:  payload.Metadata["role"],
			},
			AccessToken: payload.AccessToken,
		}
		if err := s.SyncUser(ctx, sess); err != nil {
			logger.Warn("queued sync failed",
				slog.String("email", payload.Email),
				slog.Any("error", err))
			return err
		}
		logger.Info("user synced", slog.String("email", payload.Email))
		return nil
	}
}
