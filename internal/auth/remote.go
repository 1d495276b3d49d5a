package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteConfig collects the settings of the remote identity service.
type RemoteConfig struct {
	// BaseURL is the root of the identity service, without trailing slash.
	BaseURL string
	// APIKey is the public (anon) key sent with every request.
	APIKey string
	// HTTPClient overrides the transport; nil means http.DefaultClient.
	HTTPClient *http.Client
}

// RemoteProvider delegates authentication to an external identity service
// over HTTP.
type RemoteProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRemoteProvider constructs a RemoteProvider.
func NewRemoteProvider(cfg RemoteConfig) *RemoteProvider {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	return &RemoteProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresAt   int64  `json:"expiresAt"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
}

// problemDetail mirrors the RFC7807 body the identity service returns on
// rejection; Type carries the machine-readable reason code.
type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// Authenticate exchanges credentials for a provider-issued session.
func (p *RemoteProvider) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	body, err := json.Marshal(tokenRequest{Email: creds.Email, Password: creds.Password})
	if err != nil {
		return Session{}, WrapError(CodeProviderError, "encode token request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/token", bytes.NewReader(body))
	if err != nil {
		return Session{}, WrapError(CodeProviderError, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.setAPIKey(req)

	return p.doSessionRequest(req)
}

// Restore asks the identity service whether the token still maps to a live
// session.
func (p *RemoteProvider) Restore(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, NewError(CodeProviderError, "no token to restore from")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/session", nil)
	if err != nil {
		return Session{}, WrapError(CodeProviderError, "build session request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	p.setAPIKey(req)

	return p.doSessionRequest(req)
}

// Revoke signs the session out upstream. Best-effort by contract.
func (p *RemoteProvider) Revoke(ctx context.Context, sess Session) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return WrapError(CodeProviderError, "build logout request", err)
	}
	req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
	p.setAPIKey(req)

	res, err := p.client.Do(req)
	if err != nil {
		return WrapError(CodeNetworkUnavailable, "identity service unreachable", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return NewError(CodeProviderError, fmt.Sprintf("logout returned status %d", res.StatusCode))
	}
	return nil
}

func (p *RemoteProvider) setAPIKey(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
}

func (p *RemoteProvider) doSessionRequest(req *http.Request) (Session, error) {
	res, err := p.client.Do(req)
	if err != nil {
		return Session{}, WrapError(CodeNetworkUnavailable, "identity service unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Session{}, classifyRejection(res)
	}

	var payload tokenResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Session{}, WrapError(CodeProviderError, "decode identity response", err)
	}
	if payload.AccessToken == "" {
		return Session{}, NewError(CodeProviderError, "identity response missing access token")
	}

	now := time.Now().UTC()
	expiresAt := time.Unix(payload.ExpiresAt, 0).UTC()
	if !expiresAt.After(now) {
		return Session{}, NewError(CodeProviderError, "identity service issued an already expired session")
	}
	return Session{
		User: User{
			ID:    payload.User.ID,
			Email: payload.User.Email,
			Name:  payload.User.Name,
		},
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
		AccessToken: payload.AccessToken,
	}, nil
}

func classifyRejection(res *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))

	var problem problemDetail
	_ = json.Unmarshal(body, &problem)

	switch {
	case problem.Type == string(CodeInvalidCredentials):
		return ErrInvalidCredentials
	case problem.Type == string(CodeEmailUnconfirmed):
		return NewError(CodeEmailUnconfirmed, "confirm your email address before signing in")
	case problem.Type == string(CodeRateLimited) || res.StatusCode == http.StatusTooManyRequests:
		return NewError(CodeRateLimited, "too many attempts, retry later")
	}

	detail := problem.Detail
	if detail == "" {
		detail = strings.TrimSpace(string(body))
	}
	if detail == "" {
		detail = res.Status
	}
	return NewError(CodeProviderError, detail)
}

var _ Provider = (*RemoteProvider)(nil)
