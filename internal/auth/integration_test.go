package auth_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/logistica-inteligente/logistica/internal/auth"
	"github.com/logistica-inteligente/logistica/internal/guard"
	"github.com/logistica-inteligente/logistica/internal/session"
)

// Exercises the full reload flow: sign in with the development allow-list,
// tear the process state down, and recover the session from disk without
// contacting any provider.
func TestLoginSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	ctx := context.Background()

	store := session.NewFileStore(path)
	first, err := auth.NewController(auth.ControllerConfig{
		Provider: auth.NewMockProvider(nil),
		Store:    store,
	})
	require.NoError(t, err)

	decision := guard.Evaluate(first.Snapshot(), "/inventario/productos")
	require.False(t, decision.Allow)
	require.Equal(t, guard.LoginPath, decision.RedirectTo)

	require.NoError(t, first.Login(ctx, "prueba@correo.com", "123456"))
	require.True(t, guard.Evaluate(first.Snapshot(), "/inventario/productos").Allow)
	first.Close()

	// A fresh controller over the same file simulates the reload.
	countingProvider := &stubProvider{}
	second, err := auth.NewController(auth.ControllerConfig{
		Provider: countingProvider,
		Store:    session.NewFileStore(path),
	})
	require.NoError(t, err)
	t.Cleanup(second.Close)

	second.InitializeAuth(ctx)

	snap := second.Snapshot()
	require.Equal(t, auth.StateAuthenticated, snap.State)
	require.Equal(t, "prueba@correo.com", snap.User().Email)
	require.Zero(t, countingProvider.authCalls.Load())
	require.Zero(t, countingProvider.restoreCalls.Load())
	require.True(t, guard.Evaluate(snap, guard.DefaultLandingPath).Allow)

	require.NoError(t, second.Logout(ctx))
	loaded, err := session.NewFileStore(path).Load(ctx)
	require.NoError(t, err)
	require.Nil(t, loaded, "logout must clear the persisted session")
}
