// Package credentials persists the SP-API credential set as a JSON file.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	domain "github.com/sellerops/amazon-connector/pkg/types"
)

// FileStore stores one credential as a mode-0600 JSON file. It implements
// spapi.CredentialStore.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store at path, creating parent directories.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("credential store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the stored credential. A missing file is not an error: it
// returns (nil, nil), meaning the seller has not connected yet.
func (s *FileStore) Load() (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading credential file: %w", err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parsing credential file: %w", err)
	}
	return &cred, nil
}

// Persist writes the credential atomically: a temp file in the same
// directory renamed over the target, so a crash never leaves a torn file.
func (s *FileStore) Persist(cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("creating temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting credential permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing credential file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing credential file: %w", err)
	}
	return nil
}

// Clear removes the stored credential. Clearing an absent file succeeds.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}
