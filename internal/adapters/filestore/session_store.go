package filestore

// Package filestore persists the client-side session snapshot to a single
// JSON file, the durable-storage equivalent of the browser's token /
// refreshToken / user keys. Writes go through a temp file and rename so
// the three values can never be observed partially written.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	domainauth "github.com/theervu-kaanal/grievance-api/internal/domain/auth"
)

// SessionStore is a file-backed session store.
type SessionStore struct {
	path string
	mu   sync.Mutex
}

// NewSessionStore creates a session store persisting to path. The parent
// directory is created on first save.
func NewSessionStore(path string) (*SessionStore, error) {
	if path == "" {
		return nil, errors.New("session store path is required")
	}
	return &SessionStore{path: path}, nil
}

// DefaultPath returns the conventional session file location under the
// user's home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".grievance", "session.json"), nil
}

// Load reads the persisted snapshot. Returns ok=false when the file does
// not exist or when either the token or the principal is absent.
func (s *SessionStore) Load(_ context.Context) (domainauth.SessionSnapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domainauth.SessionSnapshot{}, false, nil
		}
		return domainauth.SessionSnapshot{}, false, fmt.Errorf("read session file: %w", err)
	}

	var snap domainauth.SessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// A corrupt file is treated as logged out, not as a fatal error.
		return domainauth.SessionSnapshot{}, false, nil
	}
	if !snap.Valid() {
		return domainauth.SessionSnapshot{}, false, nil
	}
	return snap, true, nil
}

// Save writes the snapshot atomically.
func (s *SessionStore) Save(_ context.Context, snap domainauth.SessionSnapshot) error {
	if !snap.Valid() {
		return errors.New("refusing to save partial session: token and user are both required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "session-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear removes the persisted snapshot. Removing the single file drops
// token, refresh token, and principal together.
func (s *SessionStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
