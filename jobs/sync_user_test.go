package jobs_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/logistica-inteligente/logistica/internal/auth"
	"github.com/logistica-inteligente/logistica/jobs"
)

type captureSyncer struct {
	sessions []auth.Session
	err      error
}

func (s *captureSyncer) SyncUser(_ context.Context, sess auth.Session) error {
	s.sessions = append(s.sessions, sess)
	return s.err
}

func TestSyncUserTaskDeliversIdentityToSyncer(t *testing.T) {
	now := time.Now().UTC()
	sess := auth.Session{
		User: auth.User{
			ID:    "u-7",
			Email: "prueba@correo.com",
			Name:  "prueba",
			Role:  "admin",
		},
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Hour),
		AccessToken: "jwt-abc",
	}
	task, err := jobs.NewSyncUserTask(sess)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskAuthSyncUser, task.Type())

	capture := &captureSyncer{}
	handler := jobs.NewSyncUserHandler(capture, slog.Default())
	require.NoError(t, handler(context.Background(), task))

	require.Len(t, capture.sessions, 1)
	delivered := capture.sessions[0]
	require.Equal(t, "u-7", delivered.User.ID)
	require.Equal(t, "prueba@correo.com", delivered.User.Email)
	require.Equal(t, "prueba", delivered.User.Name)
	require.Equal(t, "admin", delivered.User.Role)
	require.Equal(t, "jwt-abc", delivered.AccessToken)
}

func TestSyncUserHandlerSkipsRetryOnMalformedPayload(t *testing.T) {
	handler := jobs.NewSyncUserHandler(&captureSyncer{}, slog.Default())
	err := handler(context.Background(), asynq.NewTask(jobs.TaskAuthSyncUser, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSyncUserHandlerPropagatesDeliveryFailureForRetry(t *testing.T) {
	sess := auth.Session{User: auth.User{ID: "u-7", Email: "prueba@correo.com"}, AccessToken: "jwt-abc"}
	task, err := jobs.NewSyncUserTask(sess)
	require.NoError(t, err)

	wantErr := auth.NewError(auth.CodeSyncFailed, "backend down")
	handler := jobs.NewSyncUserHandler(&captureSyncer{err: wantErr}, slog.Default())
	err = handler(context.Background(), task)
	require.ErrorIs(t, err, wantErr)
}
