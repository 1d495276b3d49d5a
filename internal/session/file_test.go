package session_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/logistica-inteligente/logistica/internal/auth"
	"github.com/logistica-inteligente/logistica/internal/session"
)

func testSession(now time.Time) auth.Session {
	return auth.Session{
		User: auth.User{
			ID:    "dev-42",
			Email: "prueba@correo.com",
			Name:  "prueba",
			Role:  "admin",
		},
		IssuedAt:    now,
		ExpiresAt:   now.Add(24 * time.Hour),
		AccessToken: "dev-token-42",
	}
}

func requireSameSession(t *testing.T, want auth.Session, got *auth.Session) {
	t.Helper()
	require.NotNil(t, got)
	require.Equal(t, want.User, got.User)
	require.True(t, want.IssuedAt.Equal(got.IssuedAt), "issuedAt mismatch")
	require.True(t, want.ExpiresAt.Equal(got.ExpiresAt), "expiresAt mismatch")
	require.Equal(t, want.AccessToken, got.AccessToken)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")
	store := session.NewFileStore(path)
	now := time.Now().UTC()
	sess := testSession(now)

	require.NoError(t, store.Save(context.Background(), sess))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	requireSameSession(t, sess, loaded)

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, sess.AccessToken, token)
}

func TestFileStoreLoadClearsExpiredSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	now := time.Now().UTC()
	store := session.NewFileStore(path).WithClock(func() time.Time { return now.Add(48 * time.Hour) })

	require.NoError(t, store.Save(context.Background(), testSession(now)))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "expired snapshot must be removed from disk")
}

func TestFileStoreLoadHealsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store := session.NewFileStore(path)

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "corrupt snapshot must be removed from disk")
}

func TestFileStoreEmptyBehavesAsAbsent(t *testing.T) {
	store := session.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Clear(context.Background()))
}

func TestFileStoreSaveOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := session.NewFileStore(path)
	now := time.Now().UTC()

	first := testSession(now)
	require.NoError(t, store.Save(context.Background(), first))

	second := testSession(now)
	second.User.Email = "admin@logistica.com"
	second.AccessToken = "dev-token-43"
	require.NoError(t, store.Save(context.Background(), second))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "admin@logistica.com", loaded.User.Email)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files may be left behind")
}
