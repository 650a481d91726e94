package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"
)

// FileStorage implements Repository over an activity.json file.
// Records are only ever appended; trimming happens at display time.
type FileStorage struct {
	path    string
	records []*domain.Record
	mu      sync.RWMutex
}

// NewFileStorage creates a file-backed activity log under basePath
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path: filepath.Join(basePath, "activity.json"),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, oops.With("path", s.path, "context", "failed to read activity log").Wrap(err)
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, oops.With("path", s.path, "context", "failed to unmarshal activity log").Wrap(err)
	}
	return s, nil
}

func (s *FileStorage) Append(record *domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal activity log").Wrap(err)
	}

	return os.WriteFile(s.path, data, 0644)
}

// GetRecent returns up to limit records, newest first
func (s *FileStorage) GetRecent(limit int) ([]*domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}

	recent := make([]*domain.Record, 0, limit)
	for i := len(s.records) - 1; i >= len(s.records)-limit; i-- {
		recent = append(recent, s.records[i])
	}
	return recent, nil
}
