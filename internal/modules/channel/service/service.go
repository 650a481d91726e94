package service

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/domain"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/channel/repository"
	"github.com/reshetovitsme/x-telegram-scheduler/internal/shared/errors"
)

// Service handles channel directory business logic
type Service struct {
	repo repository.Repository
	bot  *bot.Bot
}

// New creates a new channel service
func New(repo repository.Repository) *Service {
	return &Service{
		repo: repo,
	}
}

// SetBot sets the Telegram bot instance used for channel verification
func (s *Service) SetBot(b *bot.Bot) {
	s.bot = b
}

// SaveChannel stores a labelled destination, normalizing the raw id
func (s *Service) SaveChannel(label, rawID, link string) (*domain.Entry, error) {
	if strings.TrimSpace(label) == "" {
		return nil, errors.ErrChannelLabelEmpty
	}

	entry := &domain.Entry{
		Label:         strings.TrimSpace(label),
		DestinationID: FormatDestinationID(rawID),
		Link:          strings.TrimSpace(link),
	}

	if err := s.repo.SaveChannel(entry); err != nil {
		return nil, oops.With("label", entry.Label, "context", "failed to save channel").Wrap(err)
	}
	return entry, nil
}

// GetChannel retrieves a channel entry by label
func (s *Service) GetChannel(label string) (*domain.Entry, error) {
	return s.repo.GetChannel(label)
}

// GetAllChannels retrieves all channel entries
func (s *Service) GetAllChannels() ([]*domain.Entry, error) {
	return s.repo.GetAllChannels()
}

// DeleteChannel removes a channel entry by label
func (s *Service) DeleteChannel(label string) error {
	return s.repo.DeleteChannel(label)
}

// VerifyDestination checks a destination id against the destination API
// and returns the channel title. Used for verification only.
func (s *Service) VerifyDestination(ctx context.Context, destinationID string) (string, error) {
	if s.bot == nil {
		return "", oops.Errorf("bot not initialized")
	}

	chat, err := s.bot.GetChat(ctx, &bot.GetChatParams{
		ChatID: destinationID,
	})
	if err != nil {
		return "", oops.With("destination", destinationID, "context", "failed to get chat info").Wrap(err)
	}

	return chat.Title, nil
}

// FormatDestinationID normalizes user input into a destination id the
// messaging API accepts:
//   - a bare 10-digit number starting with 6-9 is a personal chat id
//   - any other bare number is a broadcast channel and gets the -100 prefix
//   - ids already starting with @ or - pass through unchanged
//   - anything else is treated as a public handle and gets an @ prefix
func FormatDestinationID(input string) string {
	id := strings.TrimSpace(input)

	switch {
	case id == "":
		return id
	case isDigits(id):
		if len(id) == 10 && id[0] >= '6' && id[0] <= '9' {
			return id
		}
		return "-100" + id
	case strings.HasPrefix(id, "@"), strings.HasPrefix(id, "-"):
		return id
	default:
		return "@" + id
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
