package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"subgen/types"
)

// Store is a file-backed session store. It is safe for concurrent use; the
// file is rewritten atomically on every mutation so a crash never leaves a
// half-written session behind.
type Store struct {
	mu   sync.RWMutex
	path string
	data data
}

// DefaultPath places the session file under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "subgen", "session.json"), nil
}

// Open loads the session file at path, creating an empty store if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	if err := json.Unmarshal(raw, &s.data); err != nil {
		// A corrupt session file is treated as logged out rather than
		// making every command fail.
		s.data = data{}
	}
	return s, nil
}

// Token implements Provider.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

// Invalidate implements Provider. Called on 401-class responses; clears the
// local session so the next command prompts for login.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = ""
	s.data.User = nil
	_ = s.persist()
}

// User returns the stored profile, or nil when logged out.
func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.User == nil {
		return nil
	}
	u := *s.data.User
	return &u
}

// SetSession stores a fresh token and profile after login or signup.
func (s *Store) SetSession(token string, user types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Token = token
	s.data.User = &user
	return s.persist()
}

// SetUser updates just the profile, keeping the token.
func (s *Store) SetUser(user types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.User = &user
	return s.persist()
}

// LastUpload returns the descriptor of the most recent upload, or nil.
func (s *Store) LastUpload() *types.UploadDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.LastUpload == nil {
		return nil
	}
	d := *s.data.LastUpload
	return &d
}

// SetLastUpload remembers the most recent upload so the dashboard can offer
// regeneration after a restart.
func (s *Store) SetLastUpload(d types.UploadDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.LastUpload = &d
	return s.persist()
}

// Clear wipes the whole session, including the last-upload descriptor.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data{}
	return s.persist()
}

// persist writes the session file. Callers must hold the write lock.
func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}
