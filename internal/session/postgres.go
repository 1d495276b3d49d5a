package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// PostgresStore persists the snapshot as a single keyed row, for
// deployments where several tools on one host share a session through the
// central database.
type PostgresStore struct {
	pool    *pgxpool.Pool
	profile string
	now     func() time.Time
}

// NewPostgresStore constructs a PostgresStore for the given profile key.
func NewPostgresStore(pool *pgxpool.Pool, profile string) *PostgresStore {
	if profile == "" {
		profile = "default"
	}
	return &PostgresStore{pool: pool, profile: profile, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *PostgresStore) WithClock(now func() time.Time) *PostgresStore {
	s.now = now
	return s
}

// Migrate creates the backing table when it does not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS client_sessions (
	profile      TEXT PRIMARY KEY,
	snapshot     JSONB NOT NULL,
	access_token TEXT NOT NULL,
	generation   TEXT NOT NULL,
	expires_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("session: migrate: %w", err)
	}
	return nil
}

// Save upserts the snapshot row in one statement.
func (s *PostgresStore) Save(ctx context.Context, sess auth.Session) error {
	gen := uuid.NewString()
	data, err := json.Marshal(envelope{Generation: gen, Session: sess, AccessToken: sess.AccessToken})
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	const query = `
INSERT INTO client_sessions (profile, snapshot, access_token, generation, expires_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (profile) DO UPDATE SET
	snapshot = EXCLUDED.snapshot,
	access_token = EXCLUDED.access_token,
	generation = EXCLUDED.generation,
	expires_at = EXCLUDED.expires_at,
	updated_at = EXCLUDED.updated_at`
	_, err = s.pool.Exec(ctx, query, s.profile, data, sess.AccessToken, gen, sess.ExpiresAt.UTC(), s.now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
			return fmt.Errorf("session: client_sessions table missing, run Migrate: %w", err)
		}
		return fmt.Errorf("session: postgres save: %w", err)
	}
	return nil
}

// Load reads the snapshot row, deleting it when corrupt or expired.
func (s *PostgresStore) Load(ctx context.Context) (*auth.Session, error) {
	const query = `SELECT snapshot FROM client_sessions WHERE profile = $1`
	var data []byte
	if err := s.pool.QueryRow(ctx, query, s.profile).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: postgres load: %w", err)
	}
	var rec envelope
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = s.Clear(ctx)
		return nil, nil
	}
	if !rec.Session.Valid(s.now()) {
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	sess := rec.Session
	return &sess, nil
}

// AccessToken returns the persisted token column, if present.
func (s *PostgresStore) AccessToken(ctx context.Context) (string, error) {
	const query = `SELECT access_token FROM client_sessions WHERE profile = $1`
	var token string
	if err := s.pool.QueryRow(ctx, query, s.profile).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("session: postgres token: %w", err)
	}
	return token, nil
}

// Clear deletes the snapshot row.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM client_sessions WHERE profile = $1`, s.profile); err != nil {
		return fmt.Errorf("session: postgres clear: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
