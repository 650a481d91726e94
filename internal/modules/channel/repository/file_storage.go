package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// directoryFile is the on-disk layout of channels.json
type directoryFile struct {
	Channels     map[string]string `json:"channels"`
	ChannelLinks map[string]string `json:"channel_links"`
}

// FileStorage implements Repository over a single channels.json file.
// The whole file is read once at startup and rewritten wholesale on
// every mutation.
type FileStorage struct {
	path     string
	channels map[string]string
	links    map[string]string
	mu       sync.RWMutex
}

// NewFileStorage creates a file-based channel directory under basePath
func NewFileStorage(basePath string) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create storage directory").Wrap(err)
	}

	s := &FileStorage{
		path:     filepath.Join(basePath, "channels.json"),
		channels: make(map[string]string),
		links:    make(map[string]string),
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStorage) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return oops.With("path", s.path, "context", "failed to read channel directory").Wrap(err)
	}

	var file directoryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return oops.With("path", s.path, "context", "failed to unmarshal channel directory").Wrap(err)
	}

	if file.Channels != nil {
		s.channels = file.Channels
	}
	if file.ChannelLinks != nil {
		s.links = file.ChannelLinks
	}
	return nil
}

// persist rewrites the directory file. Caller must hold the write lock.
func (s *FileStorage) persist() error {
	file := directoryFile{
		Channels:     s.channels,
		ChannelLinks: s.links,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return oops.With("context", "failed to marshal channel directory").Wrap(err)
	}

	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return oops.With("path", s.path, "context", "failed to write channel directory").Wrap(err)
	}
	return nil
}

func (s *FileStorage) SaveChannel(entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels[entry.Label] = entry.DestinationID
	if entry.Link != "" {
		s.links[entry.Label] = entry.Link
	} else {
		delete(s.links, entry.Label)
	}

	return s.persist()
}

func (s *FileStorage) GetChannel(label string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.channels[label]
	if !ok {
		return nil, errors.ErrChannelNotFound
	}

	return &domain.Entry{
		Label:         label,
		DestinationID: id,
		Link:          s.links[label],
	}, nil
}

func (s *FileStorage) GetAllChannels() ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := lo.MapToSlice(s.channels, func(label string, id string) *domain.Entry {
		return &domain.Entry{
			Label:         label,
			DestinationID: id,
			Link:          s.links[label],
		}
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Label < entries[j].Label
	})
	return entries, nil
}

func (s *FileStorage) DeleteChannel(label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[label]; !ok {
		return errors.ErrChannelNotFound
	}

	delete(s.channels, label)
	delete(s.links, label)

	return s.persist()
}
