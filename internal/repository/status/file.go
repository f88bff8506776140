package status

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/oshokin/catpoint/internal/codec"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// FileStore persists the security state to a JSON file on disk.
// The document is protobuf JSON (see package codec) so the file matches
// what the gRPC API returns.
type FileStore struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// NewFileStore creates a store that reads/writes JSON at the provided path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: filepath.Clean(path),
	}
}

// Load reads the state from disk.
func (s *FileStore) Load(_ context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	contents, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	snapshot, err := codec.UnmarshalSnapshot(contents)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return snapshot, nil
}

// Save writes the state to disk, replacing the file atomically.
func (s *FileStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := codec.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
