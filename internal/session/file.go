package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/logistica-inteligente/logistica/internal/auth"
)

// FileStore persists the snapshot as a JSON file. Writes go through a
// temporary file followed by rename, so readers observe either the previous
// snapshot or the new one, never a torn record.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore constructs a FileStore rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (s *FileStore) WithClock(now func() time.Time) *FileStore {
	s.now = now
	return s
}

// Save writes the session snapshot atomically.
func (s *FileStore) Save(_ context.Context, sess auth.Session) error {
	data, err := json.Marshal(envelope{
		Generation:  uuid.NewString(),
		Session:     sess,
		AccessToken: sess.AccessToken,
	})
	if err != nil {
		return fmt.Errorf("session: encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("session: create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*")
	if err != nil {
		return fmt.Errorf("session: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: commit snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot, clearing it when corrupt or expired.
func (s *FileStore) Load(ctx context.Context) (*auth.Session, error) {
	rec, err := s.read()
	if err != nil {
		return nil, err
	}
	if rec == nil {
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

// AccessToken returns the persisted token, if any.
func (s *FileStore) AccessToken(context.Context) (string, error) {
	rec, err := s.read()
	if err != nil || rec == nil {
		return "", err
	}
	return rec.AccessToken, nil
}

// Clear removes the snapshot file.
func (s *FileStore) Clear(context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: clear snapshot: %w", err)
	}
	return nil
}

// read returns the stored envelope, deleting unreadable records on the way.
func (s *FileStore) read() (*envelope, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("session: read snapshot: %w", err)
	}
	var rec envelope
	if err := json.Unmarshal(data, &rec); err != nil {
		// Self-healing: a corrupt record behaves as if nothing were stored.
		_ = os.Remove(s.path)
		return nil, nil
	}
	return &rec, nil
}

var _ Store = (*FileStore)(nil)
