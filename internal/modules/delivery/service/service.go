package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/reshetovitsme/x-telegram-scheduler/internal/modules/post/domain"
)

// Per-call timeouts for the destination API. Media uploads get the
// longest window since they move tens of megabytes.
const (
	textTimeout   = 30 * time.Second
	mediaTimeout  = 120 * time.Second
	deleteTimeout = 10 * time.Second
)

// Service delivers content to destination channels
type Service struct {
	bot    *bot.Bot
	logger *slog.Logger
}

// New creates a new delivery service
func New(b *bot.Bot) *Service {
	return &Service{
		bot:    b,
		logger: slog.Default(),
	}
}

// SetLogger sets the logger
func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Deliver sends content to a destination, as a grouped album when media
// is attached and as a plain message otherwise. It returns the remote
// message id of the delivered (first) message.
func (s *Service) Deliver(ctx context.Context, destinationID string, content domain.DeliveryContent) (int, error) {
	if len(content.Media) > 0 {
		return s.DeliverMediaGroup(ctx, destinationID, content.Text, content.Media)
	}
	return s.DeliverText(ctx, destinationID, content.Text)
}

// DeliverText sends a text-only message with link previews suppressed
func (s *Service) DeliverText(ctx context.Context, destinationID string, text string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, textTimeout)
	defer cancel()

	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    destinationID,
		Text:      domain.TruncateText(text),
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: bot.True(),
		},
	})
	if err != nil {
		return 0, oops.With("destination", destinationID, "context", "sending text message").Wrap(err)
	}

	s.logger.Info("Delivered text message", "destination", destinationID, "message_id", msg.ID)
	return msg.ID, nil
}

// DeliverMediaGroup uploads the caption and media as one grouped album.
// Only the first item carries the caption. Every local file is removed
// exactly once after the attempt, whether it succeeded or not.
func (s *Service) DeliverMediaGroup(ctx context.Context, destinationID string, caption string, media []domain.DownloadedMedia) (int, error) {
	defer s.cleanupMedia(media)

	ctx, cancel := context.WithTimeout(ctx, mediaTimeout)
	defer cancel()

	inputs := make([]models.InputMedia, 0, len(media))
	for i, m := range media {
		file, err := os.Open(m.LocalPath)
		if err != nil {
			return 0, oops.With("destination", destinationID, "path", m.LocalPath, "context", "opening media file").Wrap(err)
		}
		defer file.Close()

		itemCaption := ""
		if i == 0 {
			itemCaption = domain.TruncateText(caption)
		}

		// Each item references its binary part through a generated
		// attach key.
		attachKey := "attach://" + uuid.NewString()

		switch m.Type {
		case domain.MediaTypePhoto:
			inputs = append(inputs, &models.InputMediaPhoto{
				Media:           attachKey,
				Caption:         itemCaption,
				ParseMode:       models.ParseModeHTML,
				MediaAttachment: file,
			})
		default:
			// Videos and animated GIFs share the video wire representation
			inputs = append(inputs, &models.InputMediaVideo{
				Media:           attachKey,
				Caption:         itemCaption,
				ParseMode:       models.ParseModeHTML,
				MediaAttachment: file,
			})
		}
	}

	msgs, err := s.bot.SendMediaGroup(ctx, &bot.SendMediaGroupParams{
		ChatID: destinationID,
		Media:  inputs,
	})
	if err != nil {
		return 0, oops.With("destination", destinationID, "items", len(media), "context", "sending media group").Wrap(err)
	}
	if len(msgs) == 0 {
		return 0, oops.With("destination", destinationID).Errorf("media group delivered but no messages returned")
	}

	s.logger.Info("Delivered media group", "destination", destinationID, "items", len(media), "message_id", msgs[0].ID)
	return msgs[0].ID, nil
}

// DeletePost removes a delivered message, best effort. Used for
// user-initiated undo only.
func (s *Service) DeletePost(ctx context.Context, destinationID string, messageID int) bool {
	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	ok, err := s.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    destinationID,
		MessageID: messageID,
	})
	if err != nil {
		s.logger.Error("Failed to delete message", "destination", destinationID, "message_id", messageID, "error", err)
		return false
	}

	return ok
}

// cleanupMedia removes the local files backing a delivery attempt
func (s *Service) cleanupMedia(media []domain.DownloadedMedia) {
	for _, m := range media {
		if err := os.Remove(m.LocalPath); err != nil && !os.IsNotExist(err) {
			s.logger.Error("Failed to remove media file", "path", m.LocalPath, "error", err)
		}
	}
}
