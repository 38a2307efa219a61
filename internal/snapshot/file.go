// Package snapshot keeps the in-progress session on local disk.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/scrabble-score/internal/domain"
	"github.com/scrabble-score/internal/fileutil"
)

// FileStore persists one snapshot as a JSON file
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store writing to path
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load returns the saved snapshot, or nil when there is none.
// A malformed file is removed and reported as absent.
func (s *FileStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	snapshot, ok := domain.DecodeSnapshot(data)
	if !ok {
		s.logger.Warn("discarding unusable snapshot", "path", s.path)
		if err := s.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return snapshot, nil
}

// Save replaces the stored snapshot
func (s *FileStore) Save(_ context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot if present
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing snapshot: %w", err)
	}
	return nil
}
