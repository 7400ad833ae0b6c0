// Package credentials resolves the Veo API key. A key saved through the
// settings dialog is persisted under the data directory and preferred over
// the process-level environment fallback.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrAPIKeyMissing is returned when no API key can be resolved from either
// the saved file or the environment fallback.
var ErrAPIKeyMissing = errors.New("credentials: no API key configured")

// keyFileName is the fixed name of the saved-key file in the data directory.
const keyFileName = "api_key"

// Source identifies where a resolved key came from.
type Source string

const (
	// SourceUser means the key was saved through the settings dialog.
	SourceUser Source = "user"
	// SourceEnv means the key came from the environment fallback.
	SourceEnv Source = "env"
	// SourceNone means no key is configured.
	SourceNone Source = "none"
)

// Store persists a user-supplied API key on disk and resolves the
// effective key for each generation attempt.
type Store struct {
	dir      string
	fallback string
}

// NewStore creates a Store rooted at dir. The fallback is the
// process-level environment key, used when no saved key exists.
// The directory is created if it doesn't exist.
func NewStore(dir, fallback string) (*Store, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "minacast")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("credentials: create data directory: %w", err)
	}

	return &Store{dir: dir, fallback: fallback}, nil
}

// Save persists the user-supplied key. A blank or whitespace-only key
// clears any previously saved key instead of storing an empty string.
func (s *Store) Save(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.Clear()
	}

	if err := os.WriteFile(s.keyPath(), []byte(key), 0600); err != nil {
		return fmt.Errorf("credentials: write key file: %w", err)
	}
	return nil
}

// Clear removes the saved key. Clearing an already-clear store is a no-op.
func (s *Store) Clear() error {
	if err := os.Remove(s.keyPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("credentials: remove key file: %w", err)
	}
	return nil
}

// Resolve returns the effective API key: the saved key when present,
// otherwise the environment fallback. Returns ErrAPIKeyMissing when
// neither source yields a key.
func (s *Store) Resolve() (string, error) {
	if key := s.savedKey(); key != "" {
		return key, nil
	}
	if s.fallback != "" {
		return s.fallback, nil
	}
	return "", ErrAPIKeyMissing
}

// Source reports where Resolve would take the key from.
func (s *Store) Source() Source {
	if s.savedKey() != "" {
		return SourceUser
	}
	if s.fallback != "" {
		return SourceEnv
	}
	return SourceNone
}

// savedKey reads the saved key file, returning "" when absent or empty.
func (s *Store) savedKey() string {
	data, err := os.ReadFile(s.keyPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *Store) keyPath() string {
	return filepath.Join(s.dir, keyFileName)
}
