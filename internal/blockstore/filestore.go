// Package blockstore provides a file-backed implementation of the guard's
// durable block-list store, for embedded use and tests where no database is
// available.
package blockstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the blocked-address list as a JSON array on disk.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a new FileStore
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored address list. A missing file is an empty list.
func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read block list: %w", err)
	}

	var addresses []string
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, fmt.Errorf("failed to decode block list: %w", err)
	}
	return addresses, nil
}

// Save writes the address list atomically (temp file plus rename).
func (s *FileStore) Save(ctx context.Context, addresses []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addresses == nil {
		addresses = []string{}
	}
	data, err := json.Marshal(addresses)
	if err != nil {
		return fmt.Errorf("failed to encode block list: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".blocklist-*")
	if err != nil {
		return fmt.Errorf("failed to create temp block list: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write block list: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close block list: %w", err)
	}

	return os.Rename(tmp.Name(), s.path)
}
