package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// MemoryStore keeps the snapshot in process memory. Used by tests and by
// runs that should not leave a session behind.
type MemoryStore struct {
	mu   sync.Mutex
	rec  *envelope
	now  func() time.Time
	gens []string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.now = now
	return s
}

// Save stores a copy of the session under a fresh generation marker.
func (s *MemoryStore) Save(_ context.Context, sess auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := uuid.NewString()
	s.rec = &envelope{Generation: gen, Session: sess, AccessToken: sess.AccessToken}
	s.gens = append(s.gens, gen)
	return nil
}

// Load returns the stored session, clearing it first when expired.
func (s *MemoryStore) Load(_ context.Context) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return nil, nil
	}
	if !s.rec.Session.Valid(s.now()) {
		s.rec = nil
		return nil, nil
	}
	sess := s.rec.Session
	return &sess, nil
}

// AccessToken returns the token of the stored snapshot, if any.
func (s *MemoryStore) AccessToken(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return "", nil
	}
	return s.rec.AccessToken, nil
}

// Clear drops the stored snapshot.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

// Generations returns the markers of every Save performed, oldest first.
func (s *MemoryStore) Generations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.gens))
	copy(out, s.gens)
	return out
}

var _ Store = (*MemoryStore)(nil)
