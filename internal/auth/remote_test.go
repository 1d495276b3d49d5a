package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

func TestRemoteProviderAuthenticateSuccess(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("apikey") != "anon-key" {
			t.Fatalf("missing apikey header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accessToken":"jwt-abc","expiresAt":` + itoa(expiresAt) + `,"user":{"id":"u-7","email":"prueba@correo.com","name":"Prueba"}}`))
	}))
	defer srv.Close()

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL, APIKey: "anon-key"})
	sess, err := provider.Authenticate(context.Background(), auth.Credentials{Email: "prueba@correo.com", Password: "123456"})
	require.NoError(t, err)
	require.Equal(t, "jwt-abc", sess.AccessToken)
	require.Equal(t, "u-7", sess.User.ID)
	require.Equal(t, "prueba@correo.com", sess.User.Email)
	require.Equal(t, time.Unix(expiresAt, 0).UTC(), sess.ExpiresAt)
	require.True(t, sess.ExpiresAt.After(sess.IssuedAt))
}

func TestRemoteProviderMapsRejectionReasons(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   auth.Code
	}{
		{"invalid credentials", http.StatusUnauthorized,
			`{"type":"invalid_credentials","title":"Unauthorized","status":401}`, auth.CodeInvalidCredentials},
		{"unconfirmed email", http.StatusForbidden,
			`{"type":"email_not_confirmed","title":"Forbidden","status":403}`, auth.CodeEmailUnconfirmed},
		{"reason code rate limited", http.StatusForbidden,
			`{"type":"rate_limited","title":"Forbidden","status":403}`, auth.CodeRateLimited},
		{"bare 429", http.StatusTooManyRequests, `Too Many Requests`, auth.CodeRateLimited},
		{"unclassified", http.StatusBadGateway,
			`{"title":"Bad Gateway","status":502,"detail":"upstream exploded"}`, auth.CodeProviderError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
			_, err := provider.Authenticate(context.Background(), auth.Credentials{Email: "a@b.com", Password: "x"})
			require.Error(t, err)
			require.Equal(t, tc.want, auth.CodeOf(err))
		})
	}
}

func TestRemoteProviderUnclassifiedCarriesUpstreamDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"title":"Bad Gateway","status":502,"detail":"upstream exploded"}`))
	}))
	defer srv.Close()

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
	_, err := provider.Authenticate(context.Background(), auth.Credentials{Email: "a@b.com", Password: "x"})
	require.ErrorContains(t, err, "upstream exploded")
}

func TestRemoteProviderTransportFailureIsNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
	_, err := provider.Authenticate(context.Background(), auth.Credentials{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	require.Equal(t, auth.CodeNetworkUnavailable, auth.CodeOf(err))

	_, err = provider.Restore(context.Background(), "jwt-abc")
	require.Equal(t, auth.CodeNetworkUnavailable, auth.CodeOf(err))
}

func TestRemoteProviderRestoreUsesBearerToken(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Unix()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/session" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer jwt-abc" {
			t.Fatalf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"accessToken":"jwt-abc","expiresAt":` + itoa(expiresAt) + `,"user":{"id":"u-7","email":"prueba@correo.com"}}`))
	}))
	defer srv.Close()

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
	sess, err := provider.Restore(context.Background(), "jwt-abc")
	require.NoError(t, err)
	require.Equal(t, "prueba@correo.com", sess.User.Email)

	_, err = provider.Restore(context.Background(), "")
	require.Error(t, err, "empty token must fail without any request")
}

func TestRemoteProviderRejectsExpiredIssuance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"accessToken":"jwt-abc","expiresAt":1000,"user":{"id":"u-7","email":"a@b.com"}}`))
	}))
	defer srv.Close()

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
	_, err := provider.Authenticate(context.Background(), auth.Credentials{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	require.Equal(t, auth.CodeProviderError, auth.CodeOf(err))
}

func TestRemoteProviderRevoke(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	provider := auth.NewRemoteProvider(auth.RemoteConfig{BaseURL: srv.URL})
	err := provider.Revoke(context.Background(), auth.Session{AccessToken: "jwt-abc"})
	require.NoError(t, err)
	require.Equal(t, "Bearer jwt-abc", gotAuth)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
