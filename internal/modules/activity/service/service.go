package service

import (
	"time"

	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/activity/repository"
)

// DisplayLimit is how many entries the activity view shows
const DisplayLimit = 10

// Service handles activity log business logic
type Service struct {
	repo repository.Repository
}

// New creates a new activity service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// Record appends an activity entry with a trimmed text preview
func (s *Service) Record(owner, destination string, action domain.Action, text string, messageID int) error {
	record := &domain.Record{
		Owner:       owner,
		Destination: destination,
		Action:      action,
		Timestamp:   time.Now(),
		TextPreview: preview(text),
		MessageID:   messageID,
	}

	if err := s.repo.Append(record); err != nil {
		return oops.With("owner", owner, "action", string(action), "context", "failed to append activity record").Wrap(err)
	}
	return nil
}

// Recent returns the newest entries for display, oldest silently trimmed
func (s *Service) Recent() ([]*domain.Record, error) {
	return s.repo.GetRecent(DisplayLimit)
}

// preview cuts on a rune boundary so multibyte text stays valid
func preview(text string) string {
	if len(text) <= domain.PreviewLength {
		return text
	}
	runes := []rune(text)
	if len(runes) <= domain.PreviewLength {
		return text
	}
	return string(runes[:domain.PreviewLength])
}
