package idp

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"
	"golang.org/x/crypto/bcrypt"

	"github.com/logistica-inteligente/logistica/internal/observability"
	"github.com/logistica-inteligente/logistica/internal/platform/httpx"
)

// Reason codes returned in problem details, matching what the client maps.
const (
	reasonInvalidCredentials = "invalid_credentials"
	reasonEmailUnconfirmed   = "email_not_confirmed"
)

// issuedSession is server-side state for one live token.
type issuedSession struct {
	account   Account
	expiresAt time.Time
}

// Server implements the identity service wire contract over an in-memory
// account table.
type Server struct {
	logger  *slog.Logger
	ttl     time.Duration
	ratePM  int
	now     func() time.Time
	secured bool
	metrics *observability.Metrics

	mu       sync.Mutex
	accounts map[string]Account
	sessions map[string]issuedSession
}

// ServerConfig collects settings for the dev identity server.
type ServerConfig struct {
	Logger *slog.Logger
	// SessionTTL is the lifetime of issued tokens.
	SessionTTL time.Duration
	// RatePerMinute bounds token requests per client IP; zero disables the
	// limiter (tests).
	RatePerMinute int
	// Secure enables the production security-header profile.
	Secure bool
	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// NewServer constructs a Server seeded with the given accounts.
func NewServer(cfg ServerConfig, accounts []Account) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	byEmail := make(map[string]Account, len(accounts))
	for _, acc := range accounts {
		byEmail[acc.Email] = acc
	}
	return &Server{
		logger:   logger,
		ttl:      ttl,
		ratePM:   cfg.RatePerMinute,
		now:      now,
		secured:  cfg.Secure,
		metrics:  cfg.Metrics,
		accounts: byEmail,
		sessions: make(map[string]issuedSession),
	}
}

// Router builds the HTTP surface with the middleware stack applied.
func (s *Server) Router() chi.Router {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        s.secured,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return secureMiddleware.Handler(next)
	})
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/health", s.handleHealth)
	r.Route("/auth/v1", func(r chi.Router) {
		if s.ratePM > 0 {
			r.With(httprate.Limit(s.ratePM, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).
				Post("/token", s.handleToken)
		} else {
			r.Post("/token", s.handleToken)
		}
		r.Get("/session", s.handleSession)
		r.Post("/logout", s.handleLogout)
	})
	return r
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   int64        `json:"expiresAt"`
	User        userResponse `json:"user"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "body must be JSON with email and password")
		return
	}

	s.mu.Lock()
	account, ok := s.accounts[req.Email]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		httpx.Reason(w, http.StatusUnauthorized, reasonInvalidCredentials, "email or password is incorrect")
		return
	}
	if !account.Confirmed {
		httpx.Reason(w, http.StatusForbidden, reasonEmailUnconfirmed, "email address has not been confirmed")
		return
	}

	token := uuid.NewString()
	expiresAt := s.now().Add(s.ttl)
	s.mu.Lock()
	s.sessions[token] = issuedSession{account: account, expiresAt: expiresAt}
	s.mu.Unlock()

	s.metrics.TokenIssued()
	s.logger.Info("token issued", slog.String("email", account.Email))
	httpx.JSON(w, http.StatusOK, sessionResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt.Unix(),
		User:        userResponse{ID: account.ID, Email: account.Email, Name: account.Name},
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.Reason(w, http.StatusUnauthorized, reasonInvalidCredentials, "missing bearer token")
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok && !sess.expiresAt.After(s.now()) {
		delete(s.sessions, token)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		httpx.Reason(w, http.StatusUnauthorized, reasonInvalidCredentials, "session is no longer live")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		AccessToken: token,
		ExpiresAt:   sess.expiresAt.Unix(),
		User:        userResponse{ID: sess.account.ID, Email: sess.account.Email, Name: sess.account.Name},
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token != "" {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "logistica-idp"})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}
