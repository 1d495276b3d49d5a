package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MockCredential is one allow-list entry for the mock provider.
type MockCredential struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// DefaultMockCredentials is the development allow-list shipped with the
// application.
func DefaultMockCredentials() []MockCredential {
	return []MockCredential{
		{Email: "prueba@correo.com", Password: "123456"},
		{Email: "admin@logistica.com", Password: "admin123"},
		{Email: "test@example.com", Password: "test123"},
		{Email: "user@example.com", Password: "password"},
	}
}

// MockProvider authenticates against a fixed allow-list without any network
// I/O. Intended for development and tests; the tokens it mints are opaque
// placeholders, not a security boundary.
type MockProvider struct {
	allowed []MockCredential
	ttl     time.Duration
	now     func() time.Time
}

// MockOption customizes a MockProvider.
type MockOption func(*MockProvider)

// WithMockTTL overrides the fixed session lifetime.
func WithMockTTL(ttl time.Duration) MockOption {
	return func(p *MockProvider) { p.ttl = ttl }
}

// WithMockClock overrides the time source, for tests.
func WithMockClock(now func() time.Time) MockOption {
	return func(p *MockProvider) { p.now = now }
}

// NewMockProvider constructs a MockProvider over the given allow-list.
// An empty list falls back to DefaultMockCredentials.
func NewMockProvider(allowed []MockCredential, opts ...MockOption) *MockProvider {
	if len(allowed) == 0 {
		allowed = DefaultMockCredentials()
	}
	p := &MockProvider{
		allowed: allowed,
		ttl:     24 * time.Hour,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Authenticate performs an exact-match lookup against the allow-list.
func (p *MockProvider) Authenticate(_ context.Context, creds Credentials) (Session, error) {
	for _, entry := range p.allowed {
		if entry.Email != creds.Email || entry.Password != creds.Password {
			continue
		}
		now := p.now().UTC()
		name := entry.Name
		if name == "" {
			name = localPart(entry.Email)
		}
		role := entry.Role
		if role == "" {
			role = "admin"
		}
		return Session{
			User: User{
				ID:    "dev-" + uuid.NewString(),
				Email: entry.Email,
				Name:  name,
				Role:  role,
			},
			IssuedAt:    now,
			ExpiresAt:   now.Add(p.ttl),
			AccessToken: "dev-token-" + uuid.NewString(),
		}, nil
	}
	return Session{}, ErrInvalidCredentials
}

// Restore always fails: the mock keeps no state of its own beyond what the
// session store already persists, so there is nothing to recover out of band.
func (p *MockProvider) Restore(context.Context, string) (Session, error) {
	return Session{}, NewError(CodeProviderError, "mock provider holds no restorable session")
}

// Revoke is a no-op; mock sessions live only in the session store.
func (p *MockProvider) Revoke(context.Context, Session) error {
	return nil
}

func localPart(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

var _ Provider = (*MockProvider)(nil)
