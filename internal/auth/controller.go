package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// SessionStore is the slice of the persistence contract the controller
// needs. internal/session provides the implementations.
type SessionStore interface {
	Save(ctx context.Context, sess Session) error
	Load(ctx context.Context) (*Session, error)
	AccessToken(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// UserSyncer receives fire-and-forget notifications about new sessions.
type UserSyncer interface {
	SyncUser(ctx context.Context, sess Session) error
}

// ErrClosed is returned by operations on a controller whose consumer has
// been torn down.
var ErrClosed = errors.New("auth: controller closed")

// ControllerConfig collects the collaborators of a Controller.
type ControllerConfig struct {
	Provider Provider
	Store    SessionStore
	// Syncer is optional; nil disables backend synchronization.
	Syncer UserSyncer
	// SyncTimeout bounds each detached sync dispatch. Zero means 5s.
	SyncTimeout time.Duration
	// AuxCleanup, when set, is invoked on logout to drop auxiliary
	// client-side debug state outside the session store.
	AuxCleanup func(ctx context.Context) error
	Logger     *slog.Logger
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Controller owns the authoritative in-memory authentication state. All
// transitions go through its operations; the session store only ever holds
// a derived copy for restoration across restarts.
type Controller struct {
	provider    Provider
	store       SessionStore
	syncer      UserSyncer
	syncTimeout time.Duration
	auxCleanup  func(ctx context.Context) error
	logger      *slog.Logger
	validate    *validator.Validate
	now         func() time.Time

	mu      sync.Mutex
	snap    Snapshot
	pending bool
	closed  bool

	syncWG sync.WaitGroup
}

// NewController constructs a Controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Provider == nil {
		return nil, errors.New("auth: provider is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("auth: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	syncTimeout := cfg.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = 5 * time.Second
	}
	return &Controller{
		provider:    cfg.Provider,
		store:       cfg.Store,
		syncer:      cfg.Syncer,
		syncTimeout: syncTimeout,
		auxCleanup:  cfg.AuxCleanup,
		logger:      logger,
		validate:    validator.New(),
		now:         now,
		snap:        Snapshot{State: StateUnauthenticated},
	}, nil
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// InitializeAuth settles the startup state from the session store, falling
// back to an out-of-band provider restore. It never fails: every error path
// settles Unauthenticated.
func (c *Controller) InitializeAuth(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.snap = Snapshot{State: StateInitializing}
	c.mu.Unlock()

	if sess, err := c.store.Load(ctx); err != nil {
		c.logger.Warn("session store load failed", slog.Any("error", err))
	} else if sess != nil && sess.Valid(c.now()) {
		c.commit(ctx, Snapshot{State: StateAuthenticated, Session: sess})
		return
	}

	token, err := c.store.AccessToken(ctx)
	if err != nil {
		c.logger.Warn("session store token read failed", slog.Any("error", err))
	}
	if token != "" {
		if restored, err := c.provider.Restore(ctx, token); err != nil {
			c.logger.Info("provider restore unavailable", slog.String("reason", err.Error()))
		} else {
			if err := c.store.Save(ctx, restored); err != nil {
				c.logger.Warn("persist restored session failed", slog.Any("error", err))
			}
			c.commit(ctx, Snapshot{State: StateAuthenticated, Session: &restored})
			return
		}
	}

	c.commit(ctx, Snapshot{State: StateUnauthenticated})
}

// Login authenticates the credentials and commits the resulting session.
// A second call while one is in flight is rejected with Busy and does not
// disturb the pending attempt.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	creds := Credentials{Email: strings.TrimSpace(email), Password: password}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.pending {
		c.mu.Unlock()
		return ErrBusy
	}
	if err := c.validate.Struct(loginInput{Email: creds.Email, Password: creds.Password}); err != nil {
		wrapped := WrapError(CodeInvalidInput, "email and password are required", err)
		c.snap = Snapshot{State: StateFailed, Session: c.snap.Session, Err: wrapped}
		c.mu.Unlock()
		return wrapped
	}
	prev := c.snap.Session
	c.pending = true
	c.snap = Snapshot{State: StateAuthenticating, Session: prev}
	c.mu.Unlock()

	sess, err := c.provider.Authenticate(ctx, creds)

	c.mu.Lock()
	c.pending = false
	if c.closed || ctx.Err() != nil {
		// Consumer torn down while we were suspended; do not commit.
		c.mu.Unlock()
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = ErrClosed
		}
		return err
	}
	if err != nil {
		c.snap = Snapshot{State: StateFailed, Session: prev, Err: err}
		c.mu.Unlock()
		c.logger.Info("login rejected",
			slog.String("email", creds.Email),
			slog.String("code", string(CodeOf(err))))
		return err
	}
	if err := c.store.Save(ctx, sess); err != nil {
		c.logger.Warn("persist session failed", slog.Any("error", err))
	}
	c.snap = Snapshot{State: StateAuthenticated, Session: &sess}
	c.mu.Unlock()

	c.logger.Info("login succeeded", slog.String("email", sess.User.Email))
	c.dispatchSync(sess)
	return nil
}

// Logout revokes upstream best-effort, clears persisted state, and settles
// Unauthenticated. It never fails and is safe to call repeatedly.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	sess := c.snap.Session
	c.mu.Unlock()

	if sess != nil {
		if err := c.provider.Revoke(ctx, *sess); err != nil {
			c.logger.Warn("provider revoke failed", slog.Any("error", err))
		}
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Warn("session store clear failed", slog.Any("error", err))
	}
	if c.auxCleanup != nil {
		if err := c.auxCleanup(ctx); err != nil {
			c.logger.Warn("auxiliary cleanup failed", slog.Any("error", err))
		}
	}

	c.commit(ctx, Snapshot{State: StateUnauthenticated})
	return nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// CurrentUser returns the authenticated identity, or nil.
func (c *Controller) CurrentUser() *User {
	return c.Snapshot().User()
}

// Loading reports whether initialization or a login is in flight.
func (c *Controller) Loading() bool {
	return c.Snapshot().Loading()
}

// Err returns the failure recorded by the last settled operation, if any.
func (c *Controller) Err() error {
	return c.Snapshot().Err
}

// Close marks the controller torn down. Suspended operations resume without
// committing a transition; detached sync dispatches are drained before
// returning.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.syncWG.Wait()
}

// commit applies the snapshot unless the controller was torn down or the
// operation's context was cancelled while it was suspended.
func (c *Controller) commit(ctx context.Context, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || ctx.Err() != nil {
		return
	}
	c.snap = snap
}

// dispatchSync fires the backend notification after the Authenticated state
// has committed. The task runs detached with its own deadline and an
// isolated error channel: failures are logged, never surfaced.
func (c *Controller) dispatchSync(sess Session) {
	if c.syncer == nil {
		return
	}
	c.syncWG.Add(1)
	go func() {
		defer c.syncWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.syncTimeout)
		defer cancel()
		if err := c.syncer.SyncUser(ctx, sess); err != nil {
			c.logger.Warn("backend sync failed",
				slog.String("email", sess.User.Email),
				slog.String("code", string(CodeOf(err))),
				slog.Any("error", err))
		}
	}()
}
