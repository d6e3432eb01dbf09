// Package credentials provides the access token used to authenticate against
// the job application service. Tokens are kept in a Store (OS keyring, a
// locked file, an environment variable or memory) and exposed to the HTTP
// transport as an oauth2.TokenSource.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/zalando/go-keyring"
)

// ErrNoToken is returned when no token is stored. Requests are then sent
// unauthenticated.
var ErrNoToken = errors.New("no access token available")

// ErrReadOnly is returned by stores that cannot persist tokens.
var ErrReadOnly = errors.New("credential store is read-only")

// Store persists a single access token.
type Store interface {
	// Load returns the stored token or ErrNoToken
	Load() (string, error)
	// Save replaces the stored token
	Save(token string) error
	// Clear removes the stored token; clearing an empty store is not an error
	Clear() error
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore returns a store holding token, which may be empty.
func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

// Load implements Store
func (s *MemoryStore) Load() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrNoToken
	}
	return s.token, nil
}

// Save implements Store
func (s *MemoryStore) Save(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

// Clear implements Store
func (s *MemoryStore) Clear() error {
	return s.Save("")
}

// EnvStore reads the token from an environment variable.
type EnvStore struct {
	Variable string
}

// Load implements Store
func (s EnvStore) Load() (string, error) {
	token := strings.TrimSpace(os.Getenv(s.Variable))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save implements Store
func (EnvStore) Save(string) error {
	return ErrReadOnly
}

// Clear implements Store
func (EnvStore) Clear() error {
	return ErrReadOnly
}

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct {
	Service string
	User    string
}

// Load implements Store
func (s KeyringStore) Load() (string, error) {
	token, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from keyring: %w", err)
	}
	return token, nil
}

// Save implements Store
func (s KeyringStore) Save(token string) error {
	if err := keyring.Set(s.Service, s.User, token); err != nil {
		return fmt.Errorf("failed to write token to keyring: %w", err)
	}
	return nil
}

// Clear implements Store
func (s KeyringStore) Clear() error {
	if err := keyring.Delete(s.Service, s.User); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

// FileStore keeps the token in a file guarded by an advisory lock so that
// concurrent processes never observe a partial write.
type FileStore struct {
	Path string
}

func (s FileStore) lock() *flock.Flock {
	return flock.New(s.Path + ".lock")
}

// Load implements Store
func (s FileStore) Load() (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0750); err != nil {
		return "", fmt.Errorf("failed to create token directory: %w", err)
	}
	lk := s.lock()
	if err := lk.RLock(); err != nil {
		return "", fmt.Errorf("failed to lock token file: %w", err)
	}
	defer func() {
		_ = lk.Unlock()
	}()

	// #nosec G304 -- path comes from configuration
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save implements Store
func (s FileStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0750); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	lk := s.lock()
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("failed to lock token file: %w", err)
	}
	defer func() {
		_ = lk.Unlock()
	}()

	// Write to temporary file first for atomic operation
	tempPath := s.Path + ".tmp"
	if err := os.WriteFile(tempPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("failed to write temporary token file: %w", err)
	}
	if err := os.Rename(tempPath, s.Path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename token file: %w", err)
	}
	return nil
}

// Clear implements Store
func (s FileStore) Clear() error {
	lk := s.lock()
	if err := lk.Lock(); err != nil {
		return fmt.Errorf("failed to lock token file: %w", err)
	}
	defer func() {
		_ = lk.Unlock()
	}()
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
