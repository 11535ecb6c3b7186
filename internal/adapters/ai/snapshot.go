package ai

import (
	"errors"
	"os"
)

// FileSnapshotStore persists the gateway cache snapshot as a single file.
// Implements providers.SnapshotStore; the gateway itself never touches the
// filesystem.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a file-backed snapshot store at path.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Save writes the blob atomically via a temp file rename.
func (s *FileSnapshotStore) Save(data []byte) error {
	if s.path == "" {
		return errors.New("snapshot path not configured")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// Load reads the blob; a missing file is not an error worth surfacing.
func (s *FileSnapshotStore) Load() ([]byte, error) {
	if s.path == "" {
		return nil, errors.New("snapshot path not configured")
	}
	return os.ReadFile(s.path)
}
