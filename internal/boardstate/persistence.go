// Package boardstate persists what the command line client remembers about a
// service between invocations: the column order chosen by the user and the
// outcome of the last sync.
package boardstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	// StateFileName is the name of the state file in each service directory
	StateFileName = "board.json"
)

// Persistence stores one State per service
type Persistence interface {
	// Save stores the state of a service
	Save(ctx context.Context, key string, state *State) error

	// Load returns the state of a service, or an empty State if none was saved
	Load(ctx context.Context, key string) (*State, error)

	// LoadAll returns the state of every service, skipping unreadable ones
	LoadAll(ctx context.Context) (map[string]*State, error)
}

// fileStatePersistence implements Persistence using local filesystem
type fileStatePersistence struct {
	basePath string
}

// NewFilePersistence creates a new file-based state persistence. Each service
// gets a directory below basePath.
func NewFilePersistence(basePath string) Persistence {
	return &fileStatePersistence{
		basePath: basePath,
	}
}

// KeyForURL derives the storage key of a service from its base URL
func KeyForURL(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return sanitize(baseURL)
	}
	return sanitize(u.Host + strings.TrimSuffix(u.Path, "/"))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Save writes the state to a JSON file in the service directory
func (f *fileStatePersistence) Save(_ context.Context, key string, state *State) error {
	dir := filepath.Join(f.basePath, key)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create state directory for '%s': %w", key, err)
	}

	filePath := filepath.Join(dir, StateFileName)
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state for '%s': %w", key, err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary state file for '%s': %w", key, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename state file for '%s': %w", key, err)
	}
	return nil
}

// Load reads the state of a service. A missing file yields an empty State.
func (f *fileStatePersistence) Load(_ context.Context, key string) (*State, error) {
	filePath := filepath.Join(f.basePath, key, StateFileName)

	// #nosec G304 -- filePath is built from basePath and a sanitized key
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read state file for '%s': %w", key, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state for '%s': %w", key, err)
	}
	return &state, nil
}

// LoadAll loads the state of every service directory below basePath
func (f *fileStatePersistence) LoadAll(ctx context.Context) (map[string]*State, error) {
	result := make(map[string]*State)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		state, err := f.Load(ctx, entry.Name())
		if err != nil {
			continue
		}
		result[entry.Name()] = state
	}
	return result, nil
}
