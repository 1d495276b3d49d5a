package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/logistica-inteligente/logistica/internal/session"
)

func TestMemoryStoreRoundTripAndExpiry(t *testing.T) {
	now := time.Now().UTC()
	current := now
	store := session.NewMemoryStore().WithClock(func() time.Time { return current })
	sess := testSession(now)

	require.NoError(t, store.Save(context.Background(), sess))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	requireSameSession(t, sess, loaded)

	current = now.Add(48 * time.Hour)
	loaded, err = store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, loaded)

	token, err := store.AccessToken(context.Background())
	require.NoError(t, err)
	require.Empty(t, token, "expired snapshot must drop the token with it")
}

func TestMemoryStoreTracksGenerations(t *testing.T) {
	store := session.NewMemoryStore()
	now := time.Now().UTC()

	require.NoError(t, store.Save(context.Background(), testSession(now)))
	require.NoError(t, store.Save(context.Background(), testSession(now)))

	gens := store.Generations()
	require.Len(t, gens, 2)
	require.NotEqual(t, gens[0], gens[1])
}
